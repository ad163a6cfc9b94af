package icon

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

// PathPrefix is the URL path the icon directory is served under.
const PathPrefix = "/data/icon/"

var extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".svg", ".gif"}

// Resolver looks icons up in an explicit mapping first, then in the local
// icon directory by file name.
type Resolver struct {
	mapping map[string]string
	dir     string
}

// NewResolver builds a resolver. Mapping keys are compared case-insensitively.
func NewResolver(dir string, mapping map[string]string) *Resolver {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &Resolver{mapping: m, dir: dir}
}

// Resolve implements epg.IconResolver. Local files resolve to a path under
// PathPrefix.
func (r *Resolver) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if url, ok := r.mapping[strings.ToUpper(name)]; ok && url != "" {
		return url, true
	}
	if r.dir == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	for _, ext := range extensions {
		file := name + ext
		if info, err := os.Stat(filepath.Join(r.dir, file)); err == nil && !info.IsDir() {
			return PathPrefix + file, true
		}
	}
	return "", false
}

var _ epg.IconResolver = (*Resolver)(nil)
