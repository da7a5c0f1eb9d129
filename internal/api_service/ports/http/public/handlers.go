package public

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/langowen/converter/internal/api_service/service"
	"github.com/langowen/converter/internal/entities"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type amountRequest struct {
	Amount string `json:"amount"`
}

type amountAccepted struct {
	Amount      string `json:"amount"`
	SettlesInMs int64  `json:"settles_in_ms"`
}

type currenciesRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type conversionResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Result string  `json:"result"`
	Rate   string  `json:"rate"`
	Info   string  `json:"info"`
	OK     bool    `json:"ok"`
}

func (s *Server) GetRates(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.FetchRates(r.Context())
	if err != nil {
		if errors.Is(err, entities.ErrNoRates) {
			RespondWithError(w, http.StatusServiceUnavailable, "Rates are not loaded yet")
			return
		}
		slog.Error("Failed to fetch rates", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to fetch rates")
		return
	}

	RespondWithJSON(w, http.StatusOK, snap)
}

func (s *Server) RefreshRates(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RefreshRates(r.Context()); err != nil {
		if errors.Is(err, service.ErrRefreshUnavailable) {
			RespondWithError(w, http.StatusConflict, "Rates are refreshed by the fetcher service")
			return
		}
		slog.Error("Refresh failed", "error", err)
		RespondWithError(w, http.StatusBadGateway, "Failed to refresh rates", err.Error())
		return
	}

	s.GetRates(w, r)
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			RespondWithError(w, http.StatusBadRequest, "Invalid limit", "expected 1.."+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	history, err := s.service.FetchHistory(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			RespondWithError(w, http.StatusNotFound, "Rate history is disabled")
			return
		}
		slog.Error("Failed to fetch history", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	RespondWithJSON(w, http.StatusOK, history)
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))

	if from == "" || to == "" {
		RespondWithError(w, http.StatusBadRequest, "Currency codes are required", "from and to query parameters")
		return
	}

	c := s.service.Convert(r.Context(), service.ConversionRequest{
		From:   from,
		To:     to,
		Amount: q.Get("amount"),
	})

	RespondWithJSON(w, http.StatusOK, conversionResponse{
		From:   c.From,
		To:     c.To,
		Amount: c.Amount,
		Result: c.FormattedResult,
		Rate:   c.FormattedRate,
		Info:   c.Info(),
		OK:     c.OK,
	})
}

func (s *Server) GetWidget(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.widget.View())
}

// InputAmount only records the amount. The conversion runs once input has been
// quiet for settles_in_ms; read GET /api/widget after that for the result.
func (s *Server) InputAmount(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	s.widget.InputAmount(req.Amount)

	RespondWithJSON(w, http.StatusAccepted, amountAccepted{
		Amount:      req.Amount,
		SettlesInMs: s.widget.Debounce().Milliseconds(),
	})
}

func (s *Server) SetCurrencies(w http.ResponseWriter, r *http.Request) {
	var req currenciesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	from := strings.ToUpper(strings.TrimSpace(req.From))
	to := strings.ToUpper(strings.TrimSpace(req.To))

	if err := s.widget.SetCurrencies(from, to); err != nil {
		if errors.Is(err, service.ErrUnsupportedCurrency) {
			RespondWithError(w, http.StatusBadRequest, "Unsupported currency", err.Error())
			return
		}
		slog.Error("Failed to set currencies", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to set currencies")
		return
	}

	RespondWithJSON(w, http.StatusOK, s.widget.View())
}

func (s *Server) Swap(w http.ResponseWriter, r *http.Request) {
	s.widget.Swap()

	RespondWithJSON(w, http.StatusOK, s.widget.View())
}

func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	if s.pages == nil {
		RespondWithError(w, http.StatusNotFound, "Page not found")
		return
	}

	page, err := s.pages.Page(r.URL.Path)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Page not found")
			return
		}
		slog.Error("Failed to assemble page", "path", r.URL.Path, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to assemble page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		slog.Error("Failed to write page", "error", err)
	}
}
