package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/vlogadmin/internal/auth"
	"github.com/vbonduro/vlogadmin/internal/config"
	"github.com/vbonduro/vlogadmin/internal/logging"
	"github.com/vbonduro/vlogadmin/internal/service"
	"github.com/vbonduro/vlogadmin/internal/web"
	"github.com/vbonduro/vlogadmin/internal/web/templates"
)

func newServeCmd(flags *flagOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(flags)
			logger, cleanup, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			set, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
				return err
			}
			defer closeStore()

			uploader, localAssets, closeAssets, err := openAssets(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to initialize asset backend", "backend", cfg.AssetBackend, "error", err)
				return err
			}
			defer closeAssets()

			sessions, closeSessions, err := openSessions(cfg, logger)
			if err != nil {
				logger.Error("failed to initialize session store", "backend", cfg.SessionBackend, "error", err)
				return err
			}
			defer closeSessions()

			authSvc := auth.NewService(set.Users, set.Credentials, sessions, cfg.SessionTTL, logger)
			catalog := service.NewCatalog(set.Categories, set.Gallery, set.Vlogs, set.Users, uploader, logger)
			lists := web.NewLists(set, cfg.PageSizes, cfg.SessionTTL)
			defer lists.ForgetOnSignOut(authSvc)()

			deps := web.Deps{
				Catalog:       catalog,
				Auth:          authSvc,
				Lists:         lists,
				SessionTTL:    cfg.SessionTTL,
				SecureCookies: cfg.SecureCookies,
			}
			if localAssets != nil {
				deps.Assets = localAssets
			}
			server := web.NewServer(deps, templates.FS, logger)

			if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", "error", err)
				return err
			}
			return nil
		},
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, cleanup, nil
}
