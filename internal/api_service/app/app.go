package apiApp

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/langowen/converter/deploy/config"
	"github.com/langowen/converter/internal/api_service/adapter/storage/postgres"
	"github.com/langowen/converter/internal/api_service/adapter/storage/redis"
	"github.com/langowen/converter/internal/api_service/ports/http/public"
	"github.com/langowen/converter/internal/api_service/service"
	"github.com/langowen/converter/internal/components"
	"github.com/langowen/converter/internal/currency_fetcher/adapter/api_client/open_er"
	fetcherPostgres "github.com/langowen/converter/internal/currency_fetcher/adapter/storage/postgres"
	fetcherRedis "github.com/langowen/converter/internal/currency_fetcher/adapter/storage/redis"
	"github.com/langowen/converter/internal/currency_fetcher/fetcher"
	"github.com/langowen/converter/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	redisPack "github.com/redis/go-redis/v9"
)

type ApiApp struct {
	cfg     *config.Config
	closers []func()
}

func NewApiApp(cfg *config.Config) *ApiApp {
	return &ApiApp{cfg: cfg}
}

// Start wires the widget to its rate source and starts the http server.
// The returned channel is closed once the server has shut down.
func (a *ApiApp) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	slog.With("fetcher", a.cfg.Fetcher, "widget", a.cfg.Widget, "http", a.cfg.HTTPServer).Info("starting server")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	widget := service.NewWidget(a.cfg, service.WithWidgetMetrics(m))
	a.closers = append(a.closers, widget.Close)
	slog.Info("Widget initialized", "currencies", widget.Currencies())

	var opts []service.Option

	if a.cfg.Storage.Enabled {
		pgStorage := a.initDatabase(ctx)
		a.closers = append(a.closers, pgStorage.Close)
		opts = append(opts, service.WithStorage(pgStorage))
		slog.Info("Storage initialized")
	}

	switch a.cfg.Fetcher.Mode {
	case config.ModeRedis:
		apiService := a.initService(widget, opts...)
		a.startListener(ctx, apiService)
		return a.startServer(ctx, apiService, widget, reg)
	default:
		f := a.initFetcher(ctx, widget, m)
		opts = append(opts, service.WithRefresher(f))
		apiService := a.initService(widget, opts...)

		go func() {
			if err := f.StartFetcher(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Fetcher stopped", "error", err)
			}
		}()
		slog.Info("Embedded fetcher started", "interval", a.cfg.Fetcher.Interval)

		return a.startServer(ctx, apiService, widget, reg)
	}
}

func (a *ApiApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *ApiApp) initDatabase(ctx context.Context) *postgres.Storage {
	pgStorage, err := postgres.New(ctx, a.cfg)
	if err != nil {
		log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
	}

	return pgStorage
}

func (a *ApiApp) redisOptions() *redisPack.Options {
	return &redisPack.Options{
		Addr:     a.cfg.Redis.Host,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}
}

// initFetcher builds the in-process fetcher. It mirrors snapshots to the same
// postgres history and redis channel the standalone fetcher would.
func (a *ApiApp) initFetcher(ctx context.Context, widget *service.Widget, m *metrics.Metrics) *fetcher.Fetcher {
	opts := []fetcher.Option{
		fetcher.WithListener(widget),
		fetcher.WithMetrics(m),
	}

	if a.cfg.Storage.Enabled {
		history, err := fetcherPostgres.InitStorage(ctx, a.cfg.Storage.DSN(), a.cfg.Storage.Timeout)
		if err != nil {
			log.Fatalln("Failed to initialize history storage", "error", err)
		}
		a.closers = append(a.closers, history.Close)
		opts = append(opts, fetcher.WithStorage(history))
	}

	if a.cfg.Redis.Enabled {
		publisher, err := fetcherRedis.InitStorage(ctx, a.redisOptions(), a.cfg.Redis.Channel, a.cfg.Redis.Key)
		if err != nil {
			log.Fatalln("Failed to initialize Redis publisher", "error", err)
		}
		a.closers = append(a.closers, func() { _ = publisher.Close() })
		opts = append(opts, fetcher.WithRedis(publisher))
	}

	return fetcher.NewFetcher(open_er.NewHTTPClient(), a.cfg, opts...)
}

func (a *ApiApp) initService(widget *service.Widget, opts ...service.Option) *service.Service {
	apiService, err := service.NewService(widget, opts...)
	if err != nil {
		log.Fatalln("Failed to initialize service", "error", err)
	}

	return apiService
}

func (a *ApiApp) startListener(ctx context.Context, apiService *service.Service) {
	rdStorage, err := redis.InitStorage(ctx, a.redisOptions(), a.cfg.Redis.Channel, a.cfg.Redis.Key)
	if err != nil {
		log.Fatalln("Failed to initialize Redis storage", "error", err)
	}
	a.closers = append(a.closers, func() { _ = rdStorage.Close() })
	slog.Info("Redis client initialized")

	go func() {
		if err := apiService.Listen(ctx, rdStorage); err != nil {
			slog.Error("Redis listener stopped", "error", err)
		}
	}()
}

func (a *ApiApp) startServer(ctx context.Context, apiService *service.Service, widget *service.Widget, reg *prometheus.Registry) <-chan struct{} {
	web := os.DirFS(a.cfg.Web.Root)

	server := public.NewServer(a.cfg, apiService, widget, components.NewLoader(web))
	serverDone := public.StartServer(ctx, server, web, reg)
	slog.Info("server started", "port", a.cfg.HTTPServer.Port)

	done := make(chan struct{})
	go func() {
		<-serverDone
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		close(done)
	}()

	return done
}
