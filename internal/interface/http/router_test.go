package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/epg-server/internal/domain/admission"
	"github.com/yanqian/epg-server/internal/domain/artifact"
	"github.com/yanqian/epg-server/internal/domain/epg"
	"github.com/yanqian/epg-server/internal/infra/accesslog"
	"github.com/yanqian/epg-server/internal/infra/config"
	apperrors "github.com/yanqian/epg-server/pkg/errors"
)

func TestRouter_DIYPLookup(t *testing.T) {
	svc := &stubEPG{body: `{"channel_name": "CCTV1"}`}
	server := newRouterUnderTest(t, routerDeps{epg: svc})

	rec := performRequest(server, "/?ch=CCTV1&date=20240301", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, `{"channel_name": "CCTV1"}`, rec.Body.String())

	require.Equal(t, epg.Request{OriginalName: "CCTV1", RawDate: "20240301", Schema: epg.SchemaDIYP, BaseURL: "http://example.com"}, svc.last)
}

func TestRouter_LoveTVLookupKeepsPlusSign(t *testing.T) {
	svc := &stubEPG{body: `{}`}
	server := newRouterUnderTest(t, routerDeps{epg: svc})

	rec := performRequest(server, "/index.php?channel=CCTV5+?date=2024-03-01", map[string]string{"X-Forwarded-Proto": "https"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CCTV5+", svc.last.OriginalName)
	require.Equal(t, "2024-03-01", svc.last.RawDate)
	require.Equal(t, epg.SchemaLoveTV, svc.last.Schema)
	require.Equal(t, "https://example.com", svc.last.BaseURL)
}

func TestRouter_PublicBaseURL(t *testing.T) {
	svc := &stubEPG{body: `{}`}
	server := newRouterUnderTest(t, routerDeps{epg: svc, configure: func(cfg *config.Config) {
		cfg.HTTP.PublicBaseURL = "https://epg.example.org/"
	}})

	performRequest(server, "/?ch=CCTV1", nil)
	require.Equal(t, "https://epg.example.org", svc.last.BaseURL)
}

func TestRouter_EmptyChannelServesXMLTV(t *testing.T) {
	svc := &stubEPG{err: apperrors.Wrap(apperrors.CodeNoChannel, "channel name is empty", nil)}
	arts := &stubArtifacts{xml: artifact.Artifact{Name: "t.xml.gz", ContentType: "application/gzip", Attachment: true, Body: []byte("gz")}}
	server := newRouterUnderTest(t, routerDeps{epg: svc, artifacts: arts})

	rec := performRequest(server, "/?ch=&type=gz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="t.xml.gz"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, artifact.KindGzip, arts.lastKind)

	rec = performRequest(server, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, artifact.Kind(""), arts.lastKind)
}

func TestRouter_XMLTVNotGenerated(t *testing.T) {
	arts := &stubArtifacts{xmlErr: apperrors.Wrap(apperrors.CodeNotGenerated, artifact.NotGeneratedMessage, nil)}
	server := newRouterUnderTest(t, routerDeps{artifacts: arts})

	rec := performRequest(server, "/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, artifact.NotGeneratedMessage, rec.Body.String())
}

func TestRouter_Playlist(t *testing.T) {
	arts := &stubArtifacts{playlist: artifact.Artifact{Name: "tv.m3u", ContentType: "text/plain; charset=utf-8", Body: []byte("#EXTM3U")}}
	server := newRouterUnderTest(t, routerDeps{artifacts: arts})

	rec := performRequest(server, "/?type=m3u&url=http%3A%2F%2Fsrc%2Fa.m3u&ch=ignored", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "#EXTM3U", rec.Body.String())
	require.Equal(t, "http://src/a.m3u", arts.lastSource)
	require.Equal(t, "http://example.com", arts.lastBase)

	arts.playlistErr = apperrors.Wrap(apperrors.CodeNotFound, artifact.MissingPlaylistMessage, nil)
	rec = performRequest(server, "/?type=txt", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, artifact.MissingPlaylistMessage, rec.Body.String())
}

func TestRouter_AdmissionDenied(t *testing.T) {
	log := &recordingAccessLog{}
	server := newRouterUnderTest(t, routerDeps{
		epg:       &stubEPG{body: `{}`},
		accessLog: log,
		admission: admission.Config{TokenMode: 1, Tokens: []string{"secret"}},
	})

	rec := performRequest(server, "/?type=m3u&token=wrong", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "访问被拒绝：无效Token。", rec.Body.String())
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = performRequest(server, "/?ch=CCTV1&token=wrong", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := log.all()
	require.Len(t, entries, 2)
	require.Equal(t, "203.0.113.9", entries[0].ClientIP)
	require.Equal(t, "访问被拒绝：无效Token。", entries[0].Denial)
	require.Equal(t, "/?type=m3u&token=wrong", entries[0].URI)
	require.Empty(t, entries[1].Denial)
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{epg: &stubEPG{body: `{}`}, configure: func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	}})

	require.Equal(t, http.StatusOK, performRequest(server, "/?ch=A", nil).Code)
	rec := performRequest(server, "/?ch=A", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "too many requests", rec.Body.String())
}

func TestRouter_RateLimitKeysOnAdmissionClientIP(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{epg: &stubEPG{body: `{}`}, configure: func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	}})

	first := map[string]string{"Client-IP": "198.51.100.1"}
	second := map[string]string{"Client-IP": "198.51.100.2"}
	require.Equal(t, http.StatusOK, performRequest(server, "/?ch=A", first).Code)
	require.Equal(t, http.StatusOK, performRequest(server, "/?ch=A", second).Code)
	require.Equal(t, http.StatusTooManyRequests, performRequest(server, "/?ch=A", first).Code)
}

func TestRouter_SemicolonStaysInChannelName(t *testing.T) {
	svc := &stubEPG{body: `{}`}
	server := newRouterUnderTest(t, routerDeps{epg: svc})

	rec := performRequest(server, "/?ch=CCTV1;HD&date=20240301", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CCTV1;HD", svc.last.OriginalName)
	require.Equal(t, "20240301", svc.last.RawDate)
}

func TestRouter_XMLTVWithoutAttachmentIsInline(t *testing.T) {
	arts := &stubArtifacts{xml: artifact.Artifact{Name: "t.xml", ContentType: "application/xml", Body: []byte("<tv/>")}}
	server := newRouterUnderTest(t, routerDeps{artifacts: arts})

	rec := performRequest(server, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "<tv/>", rec.Body.String())
}

func TestRouter_AdminFlushCache(t *testing.T) {
	svc := &stubEPG{}
	closed := newRouterUnderTest(t, routerDeps{epg: svc})
	require.Equal(t, http.StatusNotFound, performMethod(closed, http.MethodPost, AdminFlushPath, nil).Code)

	server := newRouterUnderTest(t, routerDeps{epg: svc, configure: func(cfg *config.Config) {
		cfg.HTTP.AdminToken = "s3cret"
	}})

	rec := performMethod(server, http.MethodPost, AdminFlushPath, map[string]string{AdminTokenHeader: "guess"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, svc.flushes)

	rec = performMethod(server, http.MethodPost, AdminFlushPath, map[string]string{AdminTokenHeader: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cache flushed", rec.Body.String())
	require.Equal(t, 1, svc.flushes)

	svc.flushErr = errors.New("valkey down")
	rec = performMethod(server, http.MethodPost, AdminFlushPath, map[string]string{AdminTokenHeader: "s3cret"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})

	rec := performRequest(server, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = performRequest(server, "/healthz", map[string]string{"X-Request-ID": "abc"})
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

type routerDeps struct {
	epg       epg.Service
	artifacts artifact.Service
	admission admission.Config
	accessLog AccessLogger
	configure func(cfg *config.Config)
}

func performRequest(server *http.Server, target string, headers map[string]string) *httptest.ResponseRecorder {
	return performMethod(server, http.MethodGet, target, headers)
}

func performMethod(server *http.Server, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, deps routerDeps) *http.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	if deps.configure != nil {
		deps.configure(cfg)
	}
	if deps.epg == nil {
		deps.epg = &stubEPG{}
	}
	if deps.artifacts == nil {
		deps.artifacts = &stubArtifacts{}
	}
	gate, err := admission.NewService(deps.admission, nil, newTestLogger())
	require.NoError(t, err)
	handler := NewHandler(cfg, deps.epg, deps.artifacts, newTestLogger())
	return NewRouter(cfg, handler, gate, deps.accessLog)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubEPG struct {
	body     string
	err      error
	last     epg.Request
	flushes  int
	flushErr error
}

func (s *stubEPG) Flush(context.Context) error {
	s.flushes++
	return s.flushErr
}

func (s *stubEPG) Lookup(_ context.Context, req epg.Request) (epg.Document, error) {
	s.last = req
	if s.err != nil {
		return epg.Document{}, s.err
	}
	return epg.Document{Body: []byte(s.body), Matched: true}, nil
}

type stubArtifacts struct {
	xml         artifact.Artifact
	xmlErr      error
	playlist    artifact.Artifact
	playlistErr error

	lastKind   artifact.Kind
	lastSource string
	lastBase   string
}

func (s *stubArtifacts) XMLTV(_ context.Context, kind artifact.Kind) (artifact.Artifact, error) {
	s.lastKind = kind
	return s.xml, s.xmlErr
}

func (s *stubArtifacts) Playlist(_ context.Context, kind artifact.Kind, sourceURL, baseURL string) (artifact.Artifact, error) {
	s.lastKind, s.lastSource, s.lastBase = kind, sourceURL, baseURL
	return s.playlist, s.playlistErr
}

type recordingAccessLog struct {
	mu      sync.Mutex
	entries []accesslog.Entry
}

func (l *recordingAccessLog) Record(e accesslog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *recordingAccessLog) all() []accesslog.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]accesslog.Entry(nil), l.entries...)
}
