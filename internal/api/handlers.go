package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
)

const (
	defaultAlertHours = 24
	defaultAlertLimit = 100
	maxAlertLimit     = 1000
)

// Scorer computes a swing score for one ticker.
type Scorer interface {
	Score(ctx context.Context, ticker string, currentVolume int64) (*models.ScoreResult, error)
}

// Gate creates alerts from qualifying score results.
type Gate interface {
	CreateFromScore(ctx context.Context, result *models.ScoreResult) (*models.Alert, error)
}

// AlertHandler serves alert history.
type AlertHandler struct {
	store storage.AlertStore
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(store storage.AlertStore) *AlertHandler {
	return &AlertHandler{store: store}
}

// ListAlerts handles GET /alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	hours := defaultAlertHours
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	limit := defaultAlertLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= maxAlertLimit {
			limit = parsed
		}
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	alerts, err := h.store.GetRecentAlerts(r.Context(), since, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve alerts")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
		"hours":  hours,
		"limit":  limit,
	})
}

// ScoreHandler serves on-demand scoring and alert checks.
type ScoreHandler struct {
	scorer Scorer
	gate   Gate
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scorer Scorer, gate Gate) *ScoreHandler {
	return &ScoreHandler{scorer: scorer, gate: gate}
}

// GetScore handles GET /score/{ticker}. The response is always a full
// score result; adapter failures surface as degraded component scores,
// not errors.
func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	result, err := h.scorer.Score(r.Context(), ticker, 0)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTicker) {
			respondWithError(w, http.StatusBadRequest, "Invalid ticker")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to compute score")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// CheckTicker handles POST /check/{ticker}. It scores the ticker and
// creates an alert when the score qualifies, bypassing the dedup and
// rate-limit checks of the streaming path.
func (h *ScoreHandler) CheckTicker(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	result, err := h.scorer.Score(r.Context(), ticker, 0)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTicker) {
			respondWithError(w, http.StatusBadRequest, "Invalid ticker")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to compute score")
		return
	}

	alert, err := h.gate.CreateFromScore(r.Context(), result)
	if err != nil {
		if errors.Is(err, models.ErrNotQualified) {
			respondWithJSON(w, http.StatusOK, map[string]interface{}{
				"qualified": false,
				"score":     result,
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to create alert")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"qualified": true,
		"alert":     alert,
		"score":     result,
	})
}

// HealthHandler serves liveness checks.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
