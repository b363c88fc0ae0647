package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dormitory-forms/internal/backend"
	"dormitory-forms/internal/config"
	"dormitory-forms/internal/logger"
	"dormitory-forms/internal/prefs"
	"dormitory-forms/internal/server"
	"dormitory-forms/internal/session"
	"dormitory-forms/pkg/idgen"
	"dormitory-forms/pkg/validator"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "Listen address, overrides server.addr")
	return cmd
}

// serve 组装依赖并运行到 ctx 结束
func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ids, err := idgen.NewSnowflake(cfg.Snowflake.DatacenterID, cfg.Snowflake.WorkerID)
	if err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}

	client, err := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(log.Named("backend")),
		backend.WithIDGenerator(ids))
	if err != nil {
		return err
	}

	store, closeStore, err := prefs.Open(cfg.Prefs, log.Named("prefs"))
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("close preferences store", zap.Error(err))
		}
	}()

	v := validator.New()
	sessions := session.NewManager(ids, session.Options{
		Backend:           client,
		Validator:         v,
		CenturyPrefix:     cfg.Form.CenturyPrefix,
		Logger:            log.Named("session"),
		ProfileURL:        cfg.Form.ProfileURL,
		HighlightDuration: cfg.Form.HighlightDuration,
	}, session.WithIdleTTL(cfg.Server.SessionTTL), session.WithMaxSessions(cfg.Server.MaxSessions))
	defer sessions.Close()
	go sessions.Run(ctx, session.DefaultSweepInterval)

	gin.SetMode(cfg.Server.Mode)
	srv := server.New(server.Options{
		Sessions:      sessions,
		Prefs:         store,
		Validator:     v,
		IDs:           ids,
		CenturyPrefix: cfg.Form.CenturyPrefix,
		Logger:        log.Named("http"),
		Swagger:       cfg.Server.Swagger,
	})

	log.Info("dormform starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("prefs", cfg.Prefs.Driver))
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}
