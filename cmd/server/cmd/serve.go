package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/trading-network/internal/config"
	"github.com/iliyamo/trading-network/internal/database"
	"github.com/iliyamo/trading-network/internal/handler"
	"github.com/iliyamo/trading-network/internal/queue"
	"github.com/iliyamo/trading-network/internal/router"
)

var (
	serverPort  string
	autoMigrate bool
	runConsumer bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API and, unless disabled, the registration queue consumer.

Examples:
  # Start with configuration from the environment
  server serve

  # Apply pending migrations first and log at debug level
  server serve --migrate --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "listen port (default: APP_PORT or 8080)")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	serveCmd.Flags().BoolVar(&runConsumer, "consumer", true, "run the user.registered queue consumer in-process")
}

func runServer() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}
	logger.Info().Str("env", cfg.Env).Msg("starting trading network server")

	if autoMigrate {
		if err := database.MigrateUp(dsn(cfg)); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	publisher := queue.NewPublisher(cfg.AMQPURL, logger)
	a, err := newApp(cfg, logger, publisher)
	if err != nil {
		return err
	}
	defer a.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger)
	if rdb != nil {
		defer rdb.Close()
	}

	e := router.New(router.Deps{
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Actors:    a.accounts,
		Nodes:     handler.NewNodeHandler(a.directory),
		Products:  handler.NewProductHandler(a.catalog),
		Auth:      handler.NewAuthHandler(a.accounts),
		Users:     handler.NewUserHandler(a.accounts),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runConsumer {
		consumer := queue.NewConsumer(cfg.AMQPURL, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("queue consumer stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
