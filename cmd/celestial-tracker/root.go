package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dreschagin/celestial-tracker/internal/server"
	"github.com/dreschagin/celestial-tracker/pkg/config"
	"github.com/dreschagin/celestial-tracker/pkg/logger"
)

const (
	appName    = "NERV Celestial Tracking System"
	appVersion = "1.0.0"
)

type flags struct {
	host     string
	port     int
	root     string
	reload   bool
	logLevel string
}

func newRootCmd() (*cobra.Command, *flags) {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "celestial-tracker",
		Short:         "Serve the celestial tracker page and its assets",
		Long:          appName + ": serves index.html, script.js, style.css and the assets directory over HTTP.",
		Version:       appVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.host, "host", "0.0.0.0", "interface to bind (env HOST)")
	fs.IntVarP(&f.port, "port", "p", 8000, "port to listen on (env PORT)")
	fs.StringVar(&f.root, "root", ".", "directory holding index.html and assets/ (env ASSET_ROOT)")
	fs.BoolVar(&f.reload, "reload", false, "watch the asset root and notify browsers on change (env RELOAD)")
	fs.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error (env LOG_LEVEL)")

	return cmd, f
}

// loadConfig reads the environment, then applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Server.Host = f.host
	}
	if fs.Changed("port") {
		cfg.Server.Port = f.port
	}
	if fs.Changed("root") {
		cfg.Assets.Root = f.root
	}
	if fs.Changed("reload") {
		cfg.Assets.Reload = f.reload
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.LogLevel)
	log.Info("starting "+appName, "version", appVersion)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize asset server", "error", err)
		return err
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("asset server failed", "error", err)
		return err
	}
	return nil
}
