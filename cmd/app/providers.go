package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/epg-server/internal/domain/admission"
	"github.com/yanqian/epg-server/internal/domain/artifact"
	"github.com/yanqian/epg-server/internal/infra/accesslog"
	"github.com/yanqian/epg-server/internal/infra/artifactstore"
	"github.com/yanqian/epg-server/internal/infra/config"
	"github.com/yanqian/epg-server/internal/infra/iplist"
	httpiface "github.com/yanqian/epg-server/internal/interface/http"
)

func provideAdmissionConfig(cfg *config.Config) admission.Config {
	return admission.Config{
		TokenMode:     cfg.Admission.Token.Mode,
		Tokens:        cfg.Admission.Token.Values,
		UserAgentMode: cfg.Admission.UserAgent.Mode,
		UserAgents:    cfg.Admission.UserAgent.Values,
		IPListMode:    admission.IPListMode(cfg.Admission.IPList.Mode),
	}
}

func provideIPListSource(cfg *config.Config) admission.IPListSource {
	return iplist.NewFileSource(cfg.Admission.IPList.WhiteListFile, cfg.Admission.IPList.BlackListFile)
}

func provideArtifactConfig(cfg *config.Config) artifact.Config {
	return artifact.Config{GenXML: cfg.Artifacts.GenXML}
}

func provideArtifactStore(cfg *config.Config, logger *slog.Logger) artifact.Store {
	local := artifactstore.NewFileStore(cfg.Artifacts.DataDir, cfg.Artifacts.LiveDir, cfg.Artifacts.LiveFileDir)
	r2 := cfg.Artifacts.R2
	if !r2.Enabled {
		return local
	}
	store, err := artifactstore.NewR2Store(r2.Endpoint, r2.AccessKey, r2.SecretKey, r2.Bucket, r2.Region, logger)
	if err != nil {
		logger.Error("failed to init r2 artifact store, using local files", "error", err)
		return local
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Error("r2 bucket unavailable, using local files", "bucket", r2.Bucket, "error", err)
		return local
	}
	logger.Info("r2 artifact store enabled", "bucket", r2.Bucket)
	return store
}

// provideAccessLog returns a nil recorder unless debug mode is on.
func provideAccessLog(cfg *config.Config, loc *time.Location, logger *slog.Logger) (httpiface.AccessLogger, func(), error) {
	if !cfg.Log.DebugMode {
		return nil, func() {}, nil
	}
	file, err := accesslog.OpenFile(cfg.Log.AccessLogPath, loc)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("access log enabled", "path", cfg.Log.AccessLogPath)
	return file, func() { _ = file.Close() }, nil
}
