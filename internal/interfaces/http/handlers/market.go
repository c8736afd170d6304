package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

const defaultLimit = 50

// Prices handles GET /api/prices?symbols=BTC,ETH&limit=10
func (h *Handlers) Prices(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	limit, err := parseLimit(r, defaultLimit)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	h.writeResult(w, h.orchestrator.GetMarketPrices(r.Context(), symbols, limit))
}

// News handles GET /api/news?limit=20
func (h *Handlers) News(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	h.writeResult(w, h.orchestrator.GetNews(r.Context(), limit))
}

// Sentiment handles GET /api/sentiment
func (h *Handlers) Sentiment(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.orchestrator.GetSentiment(r.Context()))
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 500 {
		return 0, errInvalidLimit
	}
	return limit, nil
}

var errInvalidLimit = limitError{}

type limitError struct{}

func (limitError) Error() string { return "limit must be an integer between 1 and 500" }
