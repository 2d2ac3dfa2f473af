package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/tvshow-catalog/internal/config"
	"github.com/iliyamo/tvshow-catalog/internal/database"
	"github.com/iliyamo/tvshow-catalog/internal/handler"
	"github.com/iliyamo/tvshow-catalog/internal/logging"
	"github.com/iliyamo/tvshow-catalog/internal/middleware"
	"github.com/iliyamo/tvshow-catalog/internal/queue"
	"github.com/iliyamo/tvshow-catalog/internal/repository"
	"github.com/iliyamo/tvshow-catalog/internal/router"
	"github.com/iliyamo/tvshow-catalog/internal/service"
	"github.com/iliyamo/tvshow-catalog/internal/tvmaze"
)

var (
	rootCmd = &cobra.Command{
		Use:          "tvshow-catalog",
		Short:        "TV show catalog API backed by TVmaze",
		SilenceUsage: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the tv_shows table if it does not exist",
		RunE:  runMigrate,
	}

	port string
)

func init() {
	serveCmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides APP_PORT)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every command needs.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	if port != "" {
		cfg.Port = port
		if os.Getenv("PUBLIC_BASE_URL") == "" {
			cfg.BaseURL = "http://127.0.0.1:" + port
		}
	}
	log, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func dbParams(cfg config.Config) (database.Params, error) {
	d, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		return database.Params{}, err
	}
	return database.Params{
		Dialect: d,
		Path:    cfg.DBPath,
		User:    cfg.DBUser,
		Pass:    cfg.DBPass,
		Host:    cfg.DBHost,
		Port:    cfg.DBPort,
		Name:    cfg.DBName,
	}, nil
}

// openStore returns the configured ShowStore and a function releasing it.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.ShowStore, func(), error) {
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory store, data is lost on exit")
		return repository.NewMemoryShowRepo(), func() {}, nil
	}
	p, err := dbParams(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(p)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db, p.Dialect); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("database ready", zap.String("driver", string(p.Dialect)))
	return repository.NewShowRepo(db, p.Dialect), func() { _ = db.Close() }, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if cfg.DBDriver == "memory" {
		return errors.New("nothing to migrate for the memory driver")
	}
	_, closeStore, err := openStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	closeStore()
	log.Info("migration complete")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	catalog := tvmaze.New(cfg.TVMazeURL,
		tvmaze.ClientConfig{Timeout: cfg.TVMazeTimeout, MaxRetries: cfg.TVMazeMaxRetries},
		tvmaze.WithLogger(log.Named("tvmaze")),
		tvmaze.WithCircuitBreaker(tvmaze.NewBreaker(log.Named("tvmaze"))),
		tvmaze.WithLimiter(rate.NewLimiter(rate.Limit(cfg.TVMazeRPS), 1)),
	)

	opts := []service.Option{service.WithLogger(log.Named("service"))}
	if cfg.EventsEnabled {
		pub := service.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue, log.Named("events"))
		defer func() { _ = pub.Close() }()
		opts = append(opts, service.WithEvents(pub))

		consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, Queue: cfg.EventsQueue, LogPath: cfg.AuditLogPath, Log: log.Named("audit")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}
	svc := service.NewShowService(store, catalog, opts...)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log.Named("http")))
	router.RegisterRoutes(e)
	router.RegisterShows(e, handler.NewShowHandler(svc, cfg.BaseURL, log.Named("http")), cfg, rdb, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env), zap.String("base_url", cfg.BaseURL))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
