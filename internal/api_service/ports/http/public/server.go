package public

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/converter/deploy/config"
	mwLogger "github.com/langowen/converter/internal/api_service/ports/http/public/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Server  *http.Server
	cfg     *config.Config
	service Service
	widget  Widget
	pages   Pages
}

func NewServer(cfg *config.Config, service Service, widget Widget, pages Pages) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		widget:  widget,
		pages:   pages,
	}
}

// Router wires every route. web serves static assets next to the assembled pages.
func (s *Server) Router(web fs.FS, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/rates", s.GetRates)
		r.Post("/rates/refresh", s.RefreshRates)
		r.Get("/rates/history", s.GetHistory)
		r.Get("/convert", s.Convert)

		r.Get("/widget", s.GetWidget)
		r.Put("/widget/amount", s.InputAmount)
		r.Put("/widget/currencies", s.SetCurrencies)
		r.Post("/widget/swap", s.Swap)
	})

	if web != nil {
		assets := http.FileServer(http.FS(web))
		for _, prefix := range []string{"/components/*", "/js/*", "/css/*", "/img/*"} {
			r.Handle(prefix, assets)
		}
	}

	r.Get("/", s.GetPage)
	r.Get("/pages/*", s.GetPage)

	return r
}

func StartServer(ctx context.Context, server *Server, web fs.FS, gatherer prometheus.Gatherer) <-chan struct{} {
	server.Server = &http.Server{
		Addr:         ":" + server.cfg.HTTPServer.Port,
		Handler:      server.Router(web, gatherer),
		ReadTimeout:  server.cfg.HTTPServer.Timeout,
		WriteTimeout: server.cfg.HTTPServer.Timeout,
		IdleTimeout:  server.cfg.HTTPServer.IdleTimeout,
	}

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
