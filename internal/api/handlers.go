package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/token-alert-system/internal/database"
	"github.com/trogers1052/token-alert-system/internal/models"
	"github.com/trogers1052/token-alert-system/internal/notify"
	"go.uber.org/zap"
)

// TriggerService runs the manual trigger operations
type TriggerService interface {
	ProcessNow(ctx context.Context) (models.CycleStatistics, error)
	SendTestNotification(ctx context.Context, alertID int, channels models.Channels) (models.DispatchResult, error)
}

// AlertRepository stores alert configurations and their history
type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.AlertConfig) error
	GetAlertByID(ctx context.Context, id int) (*models.AlertConfig, error)
	ListAlertsByUser(ctx context.Context, userID string) ([]*models.AlertConfig, error)
	UpdateAlert(ctx context.Context, a *models.AlertConfig) error
	DeleteAlert(ctx context.Context, id int) error
	GetNotificationHistory(ctx context.Context, alertID, limit int) ([]*models.NotificationRecord, error)
	GetMarketData(ctx context.Context, tokenID string) (*models.MarketSnapshot, error)
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	repo     AlertRepository
	triggers TriggerService
	logger   *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(repo AlertRepository, triggers TriggerService, logger *zap.Logger) *Handler {
	return &Handler{
		repo:     repo,
		triggers: triggers,
		logger:   logger,
	}
}

// ProcessAlerts handles POST /alerts/process
func (h *Handler) ProcessAlerts(w http.ResponseWriter, r *http.Request) {
	stats, err := h.triggers.ProcessNow(r.Context())
	if err != nil {
		h.internalError(w, "process alerts", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// SendTestNotification handles POST /alerts/{alertID}/test
func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	alertID, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	var channels models.Channels
	if err := json.NewDecoder(r.Body).Decode(&channels); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !channels.Push && !channels.SMS && !channels.Calls {
		respondError(w, http.StatusBadRequest, "at least one channel is required")
		return
	}

	result, err := h.triggers.SendTestNotification(r.Context(), alertID, channels)
	if errors.Is(err, database.ErrAlertNotFound) {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.internalError(w, "send test notification", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CreateAlert handles POST /alerts
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var alert models.AlertConfig
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateAlert(&alert); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.repo.CreateAlert(r.Context(), &alert); err != nil {
		h.internalError(w, "create alert", err)
		return
	}

	respondJSON(w, http.StatusCreated, alert)
}

// ListAlerts handles GET /alerts?user_id=
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	alerts, err := h.repo.ListAlertsByUser(r.Context(), userID)
	if err != nil {
		h.internalError(w, "list alerts", err)
		return
	}
	if alerts == nil {
		alerts = []*models.AlertConfig{}
	}

	respondJSON(w, http.StatusOK, alerts)
}

// GetAlert handles GET /alerts/{alertID}
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alertID, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	alert, err := h.repo.GetAlertByID(r.Context(), alertID)
	if errors.Is(err, database.ErrAlertNotFound) {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.internalError(w, "get alert", err)
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// UpdateAlert handles PUT /alerts/{alertID}
func (h *Handler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	alertID, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	var alert models.AlertConfig
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	alert.ID = alertID
	if msg := validateAlert(&alert); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	err := h.repo.UpdateAlert(r.Context(), &alert)
	if errors.Is(err, database.ErrAlertNotFound) {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.internalError(w, "update alert", err)
		return
	}

	updated, err := h.repo.GetAlertByID(r.Context(), alertID)
	if errors.Is(err, database.ErrAlertNotFound) {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.internalError(w, "reload alert", err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteAlert handles DELETE /alerts/{alertID}
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	alertID, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	err := h.repo.DeleteAlert(r.Context(), alertID)
	if errors.Is(err, database.ErrAlertNotFound) {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.internalError(w, "delete alert", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAlertHistory handles GET /alerts/{alertID}/history?limit=
func (h *Handler) GetAlertHistory(w http.ResponseWriter, r *http.Request) {
	alertID, ok := alertIDParam(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	history, err := h.repo.GetNotificationHistory(r.Context(), alertID, limit)
	if err != nil {
		h.internalError(w, "get alert history", err)
		return
	}
	if history == nil {
		history = []*models.NotificationRecord{}
	}

	respondJSON(w, http.StatusOK, history)
}

// GetTokenMarketData handles GET /tokens/{tokenID}/market with the last cached snapshot
func (h *Handler) GetTokenMarketData(w http.ResponseWriter, r *http.Request) {
	tokenID := mux.Vars(r)["tokenID"]

	snap, err := h.repo.GetMarketData(r.Context(), tokenID)
	if err != nil {
		h.internalError(w, "get market data", err)
		return
	}
	if snap == nil {
		respondError(w, http.StatusNotFound, "no market data for token")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func alertIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["alertID"]
	id, err := strconv.Atoi(raw)
	if raw == "" || err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "valid alert id is required")
		return 0, false
	}
	return id, true
}

// validateAlert returns a client-facing message for the first invalid field
func validateAlert(a *models.AlertConfig) string {
	switch {
	case a.UserID == "" && a.ID == 0:
		return "user_id is required"
	case a.TokenID == "" && a.ID == 0:
		return "token_id is required"
	case a.PhoneNumber != "" && notify.ValidatePhone(a.PhoneNumber) != nil:
		return "phone_number must be in E.164 format"
	case a.MarketCap.High.IsNegative() || a.MarketCap.Low.IsNegative():
		return "market cap thresholds must not be negative"
	case a.PriceChange.Threshold.IsNegative():
		return "price change threshold must not be negative"
	case a.Volume.Threshold.IsNegative():
		return "volume threshold must not be negative"
	case a.PriceChange.Direction != "" && !a.PriceChange.Direction.Valid():
		return "price change direction must be both, up or down"
	case a.Volume.Comparison != "" && !a.Volume.Comparison.Valid():
		return "volume comparison must be greater or less"
	}
	return ""
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
