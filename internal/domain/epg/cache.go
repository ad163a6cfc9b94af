package epg

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	regexp "github.com/grafana/regexp"
)

// CacheKey fingerprints a lookup.
func CacheKey(date, cleanName string, schema Schema) string {
	return base64.StdEncoding.EncodeToString([]byte(date + "_" + cleanName + "_" + string(schema)))
}

var iconURLPattern = regexp.MustCompile(`(?:https?://[^/"\s]+)?/data/icon/`)

// RewriteIconHost points every icon URL in body at baseURL.
func RewriteIconHost(body []byte, baseURL string) []byte {
	return iconURLPattern.ReplaceAllLiteral(body, []byte(strings.TrimRight(baseURL, "/")+"/data/icon/"))
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopCache) Flush(context.Context) error { return nil }

var _ Cache = NoopCache{}
