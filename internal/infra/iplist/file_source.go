package iplist

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yanqian/epg-server/internal/domain/admission"
)

type cached struct {
	modTime time.Time
	size    int64
	entries []string
}

// FileSource reads the white and black lists from plain text files, one
// address per line. A file is reparsed only when it changes on disk.
type FileSource struct {
	paths map[admission.IPListMode]string

	mu    sync.Mutex
	cache map[admission.IPListMode]cached
}

// NewFileSource builds a source for the two list files.
func NewFileSource(whiteList, blackList string) *FileSource {
	return &FileSource{
		paths: map[admission.IPListMode]string{
			admission.IPListWhite: whiteList,
			admission.IPListBlack: blackList,
		},
		cache: make(map[admission.IPListMode]cached),
	}
}

// Entries implements admission.IPListSource.
func (s *FileSource) Entries(_ context.Context, mode admission.IPListMode) ([]string, bool, error) {
	path := s.paths[mode]
	if path == "" {
		return nil, false, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cache[mode]; ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.entries, true, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	entries := parse(data)
	s.cache[mode] = cached{modTime: info.ModTime(), size: info.Size(), entries: entries}
	return entries, true, nil
}

func parse(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}

var _ admission.IPListSource = (*FileSource)(nil)
