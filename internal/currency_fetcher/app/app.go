package fetcherApp

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/langowen/converter/deploy/config"
	"github.com/langowen/converter/internal/currency_fetcher/adapter/api_client/open_er"
	"github.com/langowen/converter/internal/currency_fetcher/adapter/storage/postgres"
	"github.com/langowen/converter/internal/currency_fetcher/adapter/storage/redis"
	"github.com/langowen/converter/internal/currency_fetcher/fetcher"
	"github.com/langowen/converter/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisPack "github.com/redis/go-redis/v9"
)

type FetcherApp struct {
	cfg *config.Config
}

func NewFetcherApp(cfg *config.Config) *FetcherApp {
	return &FetcherApp{cfg: cfg}
}

// Start runs the standalone fetcher until ctx is cancelled. Snapshots go to
// redis (for api_service in redis mode) and to postgres history when enabled.
func (a *FetcherApp) Start(ctx context.Context) {
	a.initLogger()
	slog.Info("Logger initialized")

	slog.With("fetcher", a.cfg.Fetcher, "widget", a.cfg.Widget).Info("starting fetcher")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	opts := []fetcher.Option{fetcher.WithMetrics(m)}

	if a.cfg.Storage.Enabled {
		pgStorage := a.initDatabase(ctx)
		defer pgStorage.Close()
		opts = append(opts, fetcher.WithStorage(pgStorage))
		slog.Info("Storage initialized")
	}

	if a.cfg.Redis.Enabled {
		rdStorage := a.initRedis(ctx)
		defer rdStorage.Close()
		opts = append(opts, fetcher.WithRedis(rdStorage))
		slog.Info("Redis client initialized")
	} else {
		slog.Warn("Redis disabled, snapshots are not published")
	}

	httpClient := open_er.NewHTTPClient()
	slog.Info("HTTP client initialized")

	metricsDone := a.startMetrics(ctx, reg)

	fetch := fetcher.NewFetcher(httpClient, a.cfg, opts...)

	slog.Info("starting application")
	if err := fetch.StartFetcher(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Failed to fetcher", "error", err)
	}

	<-metricsDone
}

func (a *FetcherApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *FetcherApp) initDatabase(ctx context.Context) *postgres.Storage {
	pgStorage, err := postgres.InitStorage(ctx, a.cfg.Storage.DSN(), a.cfg.Storage.Timeout)
	if err != nil {
		log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
	}

	return pgStorage
}

func (a *FetcherApp) initRedis(ctx context.Context) *redis.Storage {
	options := &redisPack.Options{
		Addr:     a.cfg.Redis.Host,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	rdStorage, err := redis.InitStorage(ctx, options, a.cfg.Redis.Channel, a.cfg.Redis.Key)
	if err != nil {
		log.Fatalln("Failed to initialize Redis storage", "error", err)
	}

	return rdStorage
}

func (a *FetcherApp) startMetrics(ctx context.Context, reg *prometheus.Registry) <-chan struct{} {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:        ":" + a.cfg.HTTPServer.Port,
		Handler:     r,
		IdleTimeout: a.cfg.HTTPServer.IdleTimeout,
	}

	done := make(chan struct{})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop metrics server", "error", err)
		}

		close(done)
	}()

	return done
}
