package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/epg-server/internal/infra/config"
)

const shutdownGrace = 10 * time.Second

// App owns the guide server until its context is cancelled.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server}
}

// Run serves until ctx is done, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	served := make(chan error, 1)
	go func() {
		served <- a.server.ListenAndServe()
	}()
	a.logger.Info("guide server listening",
		"address", a.cfg.HTTP.Address,
		"storage", a.cfg.Storage.Driver,
		"gen_xml", a.cfg.Artifacts.GenXML,
	)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("draining guide server", "grace", shutdownGrace.String())
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.server.Shutdown(drainCtx); err != nil {
		return err
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("guide server stopped")
	return nil
}
