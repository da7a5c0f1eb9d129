package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/langowen/converter/deploy/config"
	fetcherApp "github.com/langowen/converter/internal/currency_fetcher/app"
)

func main() {
	cfg := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fetcherApp.NewFetcherApp(cfg)
	app.Start(ctx)

	slog.Info("fetcher stopped")
}
