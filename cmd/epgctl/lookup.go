package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/epg-server/internal/bootstrap"
	"github.com/yanqian/epg-server/internal/domain/epg"
	"github.com/yanqian/epg-server/internal/infra/config"
	"github.com/yanqian/epg-server/pkg/logger"
)

func lookupCMD() *cobra.Command {
	var (
		diypName   string
		loveTVName string
		date       string
		baseURL    string
		noCache    bool
	)
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Print the schedule document a client would receive",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := epg.Request{OriginalName: diypName, RawDate: date, Schema: epg.SchemaDIYP}
			if loveTVName != "" {
				req.OriginalName, req.Schema = loveTVName, epg.SchemaLoveTV
			}
			if req.OriginalName == "" {
				return fmt.Errorf("one of --ch or --channel is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = cfg.HTTP.PublicBaseURL
			}
			req.BaseURL = baseURL

			svc, cleanup, err := buildLookup(cfg, noCache)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := svc.Lookup(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "channel=%s date=%s matched=%t cached=%t\n", doc.Channel, doc.Date, doc.Matched, doc.Cached)
			fmt.Fprintln(cmd.OutOrStdout(), string(doc.Body))
			return nil
		},
	}
	cmd.Flags().StringVar(&diypName, "ch", "", "channel name, DIYP document")
	cmd.Flags().StringVar(&loveTVName, "channel", "", "channel name, LoveTV document")
	cmd.Flags().StringVar(&date, "date", "", "schedule date, any common layout (default today)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "origin used for icon URLs")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	return cmd
}

func buildLookup(cfg *config.Config, noCache bool) (epg.Service, func(), error) {
	log := logger.New()
	loc, err := bootstrap.ProvideLocation(cfg)
	if err != nil {
		return nil, nil, err
	}
	repo, closeRepo, err := bootstrap.ProvideRepository(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	var (
		cache      epg.Cache = epg.NoopCache{}
		closeCache           = func() {}
	)
	if !noCache {
		cache, closeCache = bootstrap.ProvideCache(cfg, log)
	}
	epgCfg := bootstrap.ProvideEPGConfig(cfg, loc)
	synth := epg.NewSynthesizer(epgCfg, bootstrap.ProvideIconResolver(cfg))
	svc := epg.NewService(epgCfg, bootstrap.ProvideNormalizer(cfg, log), epg.NewResolver(repo, log), synth, cache, log)
	return svc, func() {
		closeCache()
		closeRepo()
	}, nil
}
