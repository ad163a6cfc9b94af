package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/epg-server/internal/domain/epg"
	"github.com/yanqian/epg-server/internal/infra/chname"
	"github.com/yanqian/epg-server/internal/infra/config"
	"github.com/yanqian/epg-server/internal/infra/epgcache"
	"github.com/yanqian/epg-server/internal/infra/epgrepo"
	"github.com/yanqian/epg-server/internal/infra/icon"
)

// ProvideLocation loads the zone guide times are anchored in.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.EPG.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.EPG.Timezone, err)
	}
	return loc, nil
}

// ProvideEPGConfig maps configuration onto the lookup pipeline.
func ProvideEPGConfig(cfg *config.Config, loc *time.Location) epg.Config {
	return epg.Config{
		Location:         loc,
		DefaultData:      cfg.EPG.DefaultData,
		CacheTTL:         cfg.EPG.CacheTTL,
		PlaceholderURL:   cfg.EPG.PlaceholderURL,
		PlaceholderTitle: cfg.EPG.PlaceholderTitle,
	}
}

// ProvideNormalizer builds the channel name normalizer.
func ProvideNormalizer(cfg *config.Config, logger *slog.Logger) epg.ChannelNormalizer {
	return chname.NewNormalizer(cfg.EPG.ChtToChs, logger)
}

// ProvideIconResolver builds the icon lookup.
func ProvideIconResolver(cfg *config.Config) epg.IconResolver {
	return icon.NewResolver(cfg.EPG.IconDir, cfg.EPG.IconMapping)
}

// ProvideRepository opens the configured program store.
func ProvideRepository(cfg *config.Config, logger *slog.Logger) (epg.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("memory program store selected, every lookup serves defaults until records are loaded")
		return epgrepo.NewMemoryRepository(), func() {}, nil
	case "postgres":
		return providePostgresRepository(cfg, logger)
	default:
		db, err := epgrepo.OpenSQLite(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite program store enabled", "path", cfg.Storage.SQLite.Path)
		repo := epgrepo.NewSQLiteRepository(db)
		return repo, func() { _ = repo.Close() }, nil
	}
}

func providePostgresRepository(cfg *config.Config, logger *slog.Logger) (epg.Repository, func(), error) {
	fallback := epgrepo.NewMemoryRepository()
	noop := func() {}
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.Storage.Postgres.DSN))
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noop, nil
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Storage.Postgres.MaxConns
	}
	if cfg.Storage.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Storage.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noop, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop, nil
	}
	logger.Info("postgres program store enabled")
	repo := epgrepo.NewPostgresRepository(pool)
	return repo, repo.Close, nil
}

// ProvideCache returns Valkey when it answers, otherwise the memory cache,
// otherwise no cache at all.
func ProvideCache(cfg *config.Config, logger *slog.Logger) (epg.Cache, func()) {
	if cfg.Cache.Valkey.Enabled {
		if client, err := connectValkey(cfg.Cache.Valkey.Addr); err != nil {
			logger.Error("valkey unavailable, falling back", "addr", cfg.Cache.Valkey.Addr, "error", err)
		} else {
			logger.Info("valkey response cache enabled", "addr", cfg.Cache.Valkey.Addr)
			return epgcache.NewValkeyCache(client, cfg.Cache.Valkey.Prefix), client.Close
		}
	}
	if cfg.Cache.Memory {
		logger.Info("memory response cache enabled")
		return epgcache.NewMemoryCache(), func() {}
	}
	logger.Info("response cache disabled")
	return epg.NoopCache{}, func() {}
}

// SharedCache reports whether cache is visible to other processes. Only a
// shared cache can be invalidated from outside the running server.
func SharedCache(cache epg.Cache) bool {
	_, ok := cache.(*epgcache.ValkeyCache)
	return ok
}

func connectValkey(addr string) (valkey.Client, error) {
	opt, err := buildValkeyOptions(addr)
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
