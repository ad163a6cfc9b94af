package admission

import (
	"context"
	"log/slog"
	"slices"

	apperrors "github.com/yanqian/epg-server/pkg/errors"
)

// Service decides whether a request may proceed.
type Service interface {
	Decide(ctx context.Context, req Request) Decision
}

// IPListSource supplies the entries of the white or black list. ok is false
// when the list does not exist, in which case the IP check is skipped.
type IPListSource interface {
	Entries(ctx context.Context, mode IPListMode) (entries []string, ok bool, err error)
}

type service struct {
	cfg        Config
	tokens     AllowList
	userAgents AllowList
	ips        IPListSource
	logger     *slog.Logger
}

// NewService compiles the allow-lists and returns the gate. Invalid regex
// entries are reported as an error so a broken configuration fails at startup.
func NewService(cfg Config, ips IPListSource, logger *slog.Logger) (Service, error) {
	tokens, err := Compile(cfg.Tokens)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidConfig, "token allow-list", err)
	}
	userAgents, err := Compile(cfg.UserAgents)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidConfig, "user agent allow-list", err)
	}
	return &service{
		cfg:        cfg,
		tokens:     tokens,
		userAgents: userAgents,
		ips:        ips,
		logger:     logger.With("component", "admission.service"),
	}, nil
}

func (s *service) Decide(ctx context.Context, req Request) Decision {
	live := req.IsLive()
	if !rangeCheck(s.cfg.TokenMode, s.tokens, req.Token, live) {
		return deny(ReasonBadToken)
	}
	if !rangeCheck(s.cfg.UserAgentMode, s.userAgents, req.UserAgent, live) {
		return deny(ReasonBadIdentity)
	}
	if !s.ipAllowed(ctx, req.ClientIP) {
		return deny(ReasonIPDenied)
	}
	return allow()
}

// rangeCheck applies one allow-list. When the value is not listed the
// request still passes if the mode covers its kind: mode 1 lets ordinary
// lookups through, mode 2 lets playlist requests through.
func rangeCheck(mode int, list AllowList, value string, live bool) bool {
	if mode == 0 {
		return true
	}
	if list.Matches(value) {
		return true
	}
	return (mode == 2 && live) || (mode == 1 && !live)
}

func (s *service) ipAllowed(ctx context.Context, ip string) bool {
	mode := s.cfg.IPListMode
	if mode != IPListWhite && mode != IPListBlack {
		return true
	}
	if s.ips == nil {
		return true
	}
	entries, ok, err := s.ips.Entries(ctx, mode)
	if err != nil {
		s.logger.Warn("ip list unavailable, skipping check", "mode", int(mode), "error", err)
		return true
	}
	if !ok {
		return true
	}
	listed := slices.Contains(entries, ip)
	if mode == IPListWhite {
		return listed
	}
	return !listed
}
