//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/epg-server/internal/bootstrap"
	"github.com/yanqian/epg-server/internal/domain/admission"
	"github.com/yanqian/epg-server/internal/domain/artifact"
	"github.com/yanqian/epg-server/internal/domain/epg"
	"github.com/yanqian/epg-server/internal/infra/config"
	httpiface "github.com/yanqian/epg-server/internal/interface/http"
	"github.com/yanqian/epg-server/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		bootstrap.ProvideLocation,
		bootstrap.ProvideEPGConfig,
		bootstrap.ProvideNormalizer,
		bootstrap.ProvideIconResolver,
		bootstrap.ProvideRepository,
		bootstrap.ProvideCache,
		provideAdmissionConfig,
		provideIPListSource,
		provideArtifactConfig,
		provideArtifactStore,
		provideAccessLog,
		admission.NewService,
		epg.NewResolver,
		epg.NewSynthesizer,
		epg.NewService,
		artifact.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
