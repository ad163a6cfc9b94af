package accesslog

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one access log line.
type Entry struct {
	Time      time.Time
	ClientIP  string
	Denial    string
	Method    string
	URI       string
	UserAgent string
}

// Format renders e as
//
//	[2006-01-02 15:04:05] [ip] <denial>[METHOD] uri | UA: agent
//
// with the URI percent-decoded.
func Format(e Entry, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	uri := e.URI
	if decoded, err := url.PathUnescape(uri); err == nil {
		uri = decoded
	}
	return fmt.Sprintf("[%s] [%s] %s[%s] %s | UA: %s\n",
		e.Time.In(loc).Format("2006-01-02 15:04:05"),
		orUnknown(e.ClientIP), e.Denial, orDefault(e.Method, "GET"), orUnknown(uri), orUnknown(e.UserAgent))
}

func orUnknown(s string) string {
	return orDefault(s, "unknown")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// FileLog appends formatted entries to a file.
type FileLog struct {
	mu   sync.Mutex
	file *os.File
	loc  *time.Location
}

// OpenFile opens path for appending, creating it and its directory.
func OpenFile(path string, loc *time.Location) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating access log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening access log: %w", err)
	}
	return &FileLog{file: f, loc: loc}, nil
}

// Record writes one entry.
func (l *FileLog) Record(e Entry) error {
	line := Format(e, l.loc)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.file.WriteString(line)
	return err
}

// Close closes the underlying file.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
