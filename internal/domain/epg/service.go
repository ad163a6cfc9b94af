package epg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/yanqian/epg-server/pkg/errors"
)

// Service produces schedule documents.
type Service interface {
	Lookup(ctx context.Context, req Request) (Document, error)
	// Flush drops every cached document, typically after an ingestion pass.
	Flush(ctx context.Context) error
}

type service struct {
	cfg        Config
	normalizer ChannelNormalizer
	resolver   Resolver
	synth      *Synthesizer
	cache      Cache
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the lookup pipeline. A nil cache disables caching.
func NewService(cfg Config, normalizer ChannelNormalizer, resolver Resolver, synth *Synthesizer, cache Cache, logger *slog.Logger) Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &service{
		cfg:        cfg,
		normalizer: normalizer,
		resolver:   resolver,
		synth:      synth,
		cache:      cache,
		logger:     logger.With("component", "epg.service"),
		now:        time.Now,
	}
}

func (s *service) Lookup(ctx context.Context, req Request) (Document, error) {
	clean := s.normalizer.Normalize(req.OriginalName)
	if clean == "" {
		return Document{}, apperrors.Wrap(apperrors.CodeNoChannel, "channel name is empty", nil)
	}
	schema := req.Schema
	if schema != SchemaLoveTV {
		schema = SchemaDIYP
	}
	date := ParseDate(req.RawDate, s.now(), s.cfg.Location)
	doc := Document{Channel: clean, Date: date}

	key := CacheKey(date, clean, schema)
	body, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if hit {
		doc.Body = RewriteIconHost(body, req.BaseURL)
		doc.Matched, doc.Cached = true, true
		return doc, nil
	}

	if match, ok := s.resolver.Resolve(ctx, date, clean); ok {
		body, err := s.synth.Render(match, req.OriginalName, clean, schema, req.BaseURL)
		if err == nil {
			if err := s.cache.Set(ctx, key, body, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("cache write failed", "key", key, "error", err)
			}
			doc.Body, doc.Matched = body, true
			return doc, nil
		}
		s.logger.Warn("stored record unusable, serving default", "channel", clean, "stored", match.Record.Channel, "date", date, "error", err)
	}

	doc.Body = s.synth.Default(req.OriginalName, clean, date, schema, req.BaseURL)
	return doc, nil
}

func (s *service) Flush(ctx context.Context) error {
	if err := s.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush response cache: %w", err)
	}
	s.logger.Info("response cache flushed")
	return nil
}

var _ Service = (*service)(nil)
