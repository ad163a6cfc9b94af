package admission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/epg-server/pkg/errors"
)

type stubIPList struct {
	entries map[IPListMode][]string
	err     error
}

func (s stubIPList) Entries(_ context.Context, mode IPListMode) ([]string, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	entries, ok := s.entries[mode]
	return entries, ok, nil
}

func newTestService(t *testing.T, cfg Config, ips IPListSource) Service {
	t.Helper()
	svc, err := NewService(cfg, ips, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

func TestDecideTokenRangeDefaults(t *testing.T) {
	cases := []struct {
		name    string
		mode    int
		token   string
		outType string
		allowed bool
	}{
		{name: "mode off", mode: 0, token: "", outType: "", allowed: true},
		{name: "listed token", mode: 1, token: "good", outType: "m3u", allowed: true},
		{name: "mode 1 lookup passes", mode: 1, token: "bad", outType: "", allowed: true},
		{name: "mode 1 playlist denied", mode: 1, token: "bad", outType: "m3u", allowed: false},
		{name: "mode 2 playlist passes", mode: 2, token: "bad", outType: "txt", allowed: true},
		{name: "mode 2 lookup denied", mode: 2, token: "bad", outType: "", allowed: false},
		{name: "mode 2 xml denied", mode: 2, token: "bad", outType: "xml", allowed: false},
		{name: "mode 3 always needs token", mode: 3, token: "bad", outType: "", allowed: false},
	}
	for _, tc := range cases {
		svc := newTestService(t, Config{TokenMode: tc.mode, Tokens: []string{"good"}}, nil)
		decision := svc.Decide(context.Background(), Request{Token: tc.token, OutputType: tc.outType})
		require.Equal(t, tc.allowed, decision.Allowed, tc.name)
		if !tc.allowed {
			require.Equal(t, ReasonBadToken, decision.Reason, tc.name)
			require.Equal(t, "访问被拒绝：无效Token。", decision.Message, tc.name)
		}
	}
}

func TestDecideUserAgentRegex(t *testing.T) {
	svc := newTestService(t, Config{UserAgentMode: 3, UserAgents: []string{"regex:/^okhttp/i"}}, nil)

	require.True(t, svc.Decide(context.Background(), Request{UserAgent: "OkHttp/4.9"}).Allowed)

	decision := svc.Decide(context.Background(), Request{UserAgent: "curl/8"})
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonBadIdentity, decision.Reason)
	require.Equal(t, "访问被拒绝：无效UA。", decision.Message)
}

func TestDecideFirstDenialWins(t *testing.T) {
	svc := newTestService(t, Config{
		TokenMode:     3,
		Tokens:        []string{"t"},
		UserAgentMode: 3,
		UserAgents:    []string{"ua"},
	}, nil)
	decision := svc.Decide(context.Background(), Request{Token: "x", UserAgent: "y"})
	require.Equal(t, ReasonBadToken, decision.Reason)
}

func TestDecideIPLists(t *testing.T) {
	ips := stubIPList{entries: map[IPListMode][]string{
		IPListWhite: {"10.0.0.1"},
		IPListBlack: {"10.0.0.9"},
	}}

	white := newTestService(t, Config{IPListMode: IPListWhite}, ips)
	require.True(t, white.Decide(context.Background(), Request{ClientIP: "10.0.0.1"}).Allowed)
	decision := white.Decide(context.Background(), Request{ClientIP: "10.0.0.2"})
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonIPDenied, decision.Reason)

	black := newTestService(t, Config{IPListMode: IPListBlack}, ips)
	require.True(t, black.Decide(context.Background(), Request{ClientIP: "10.0.0.2"}).Allowed)
	require.False(t, black.Decide(context.Background(), Request{ClientIP: "10.0.0.9"}).Allowed)
}

func TestDecideIPListMissingOrBrokenSkipsCheck(t *testing.T) {
	missing := newTestService(t, Config{IPListMode: IPListWhite}, stubIPList{})
	require.True(t, missing.Decide(context.Background(), Request{ClientIP: "1.2.3.4"}).Allowed)

	broken := newTestService(t, Config{IPListMode: IPListWhite}, stubIPList{err: errors.New("disk")})
	require.True(t, broken.Decide(context.Background(), Request{ClientIP: "1.2.3.4"}).Allowed)
}

func TestNewServiceRejectsInvalidRegex(t *testing.T) {
	_, err := NewService(Config{Tokens: []string{"regex:(("}}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "token allow-list")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidConfig))
}

func TestClientIP(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	h.Set("Client-IP", "198.51.100.1")
	require.Equal(t, "203.0.113.7", ClientIP(h, "127.0.0.1:5000"))

	h.Del("X-Forwarded-For")
	require.Equal(t, "198.51.100.1", ClientIP(h, "127.0.0.1:5000"))

	require.Equal(t, "127.0.0.1", ClientIP(http.Header{}, "127.0.0.1:5000"))
	require.Equal(t, "unix", ClientIP(http.Header{}, "unix"))
}
