package epg

import (
	"context"
	"log/slog"
)

// Resolver finds the stored record that best matches a cleaned name.
type Resolver interface {
	Resolve(ctx context.Context, date, channel string) (MatchCandidate, bool)
}

type resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver wraps the repository. Store failures count as no match.
func NewResolver(repo Repository, logger *slog.Logger) Resolver {
	return &resolver{repo: repo, logger: logger.With("component", "epg.resolver")}
}

func (r *resolver) Resolve(ctx context.Context, date, channel string) (MatchCandidate, bool) {
	if channel == "" {
		return MatchCandidate{}, false
	}
	cand, ok, err := r.repo.FindBest(ctx, date, channel)
	if err != nil {
		r.logger.Warn("program lookup failed", "channel", channel, "date", date, "error", err)
		return MatchCandidate{}, false
	}
	if ok {
		r.logger.Debug("program matched", "channel", channel, "date", date, "stored", cand.Record.Channel, "tier", cand.Tier.String())
	}
	return cand, ok
}
