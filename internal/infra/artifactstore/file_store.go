package artifactstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanqian/epg-server/internal/domain/artifact"
)

// FileStore reads artifacts from the directories the generator writes to.
type FileStore struct {
	dirs map[artifact.Location]string
}

// NewFileStore maps each location to a directory.
func NewFileStore(dataDir, liveDir, liveFileDir string) *FileStore {
	return &FileStore{dirs: map[artifact.Location]string{
		artifact.LocationData:     dataDir,
		artifact.LocationLive:     liveDir,
		artifact.LocationLiveFile: liveFileDir,
	}}
}

// Read implements artifact.Store.
func (s *FileStore) Read(_ context.Context, loc artifact.Location, name string) ([]byte, error) {
	dir, ok := s.dirs[loc]
	if !ok || dir == "" {
		return nil, artifact.ErrNotExist
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, artifact.ErrNotExist
	}
	return data, err
}

var _ artifact.Store = (*FileStore)(nil)
