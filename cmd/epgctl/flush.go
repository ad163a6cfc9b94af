package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/epg-server/internal/bootstrap"
	"github.com/yanqian/epg-server/internal/infra/config"
	httpiface "github.com/yanqian/epg-server/internal/interface/http"
	"github.com/yanqian/epg-server/pkg/logger"
)

var errLocalCache = errors.New("response cache is local to the server process; pass --server to flush it through the admin route")

func flushCacheCMD() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop every cached schedule document",
		Long: "Drop every cached schedule document. Run it after an ingestion pass rewrote the program store.\n" +
			"With --server the running server flushes its own cache; without it only a shared (valkey) cache can be flushed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if server != "" {
				if err := flushRemote(cmd.Context(), http.DefaultClient, server, cfg.HTTP.AdminToken); err != nil {
					return err
				}
			} else if err := flushShared(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache flushed")
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "base URL of the running server, e.g. http://localhost:8080")
	return cmd
}

func flushShared(ctx context.Context, cfg *config.Config) error {
	cache, closeCache := bootstrap.ProvideCache(cfg, logger.New())
	defer closeCache()
	if !bootstrap.SharedCache(cache) {
		return errLocalCache
	}
	if err := cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	return nil
}

func flushRemote(ctx context.Context, client *http.Client, server, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("http.adminToken is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+httpiface.AdminFlushPath, nil)
	if err != nil {
		return fmt.Errorf("build flush request: %w", err)
	}
	req.Header.Set(httpiface.AdminTokenHeader, token)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call flush route: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("flush route returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
