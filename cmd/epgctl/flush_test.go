package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	httpiface "github.com/yanqian/epg-server/internal/interface/http"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("CONFIG_PATH", path)
}

func runFlush(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := flushCacheCMD()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFlushCacheRefusesProcessLocalCache(t *testing.T) {
	writeConfig(t, "storage:\n  driver: memory\ncache:\n  memory: true\n")

	out, err := runFlush(t)
	require.ErrorIs(t, err, errLocalCache)
	require.NotContains(t, out, "cache flushed")
}

func TestFlushCacheThroughServer(t *testing.T) {
	writeConfig(t, "storage:\n  driver: memory\nhttp:\n  adminToken: s3cret\n")

	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Header.Get(httpiface.AdminTokenHeader) != "s3cret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("cache flushed"))
	}))
	defer server.Close()

	out, err := runFlush(t, "--server", server.URL+"/")
	require.NoError(t, err)
	require.Contains(t, out, "cache flushed")
	require.Equal(t, []string{"POST " + httpiface.AdminFlushPath}, calls)
}

func TestFlushRemoteReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	err := flushRemote(context.Background(), server.Client(), server.URL, "wrong")
	require.ErrorContains(t, err, "403: forbidden")

	err = flushRemote(context.Background(), server.Client(), server.URL, " ")
	require.ErrorContains(t, err, "adminToken")
}
