// Package handler provides HTTP handlers for the ops surface.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/roomcast/qabroadcast/internal/api/models"
	"github.com/roomcast/qabroadcast/internal/api/response"
	"github.com/roomcast/qabroadcast/internal/message"
	"github.com/roomcast/qabroadcast/internal/worker"
)

// SendSource exposes the send job state.
type SendSource interface {
	History() []message.Result
	MetricsSnapshot() map[string]interface{}
	Running() bool
}

// OpsConfig holds configuration for the OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string
	Sends     SendSource

	// Ping checks the database. Nil reports ready without a check.
	Ping func(ctx context.Context) error

	// NextRun returns the next scheduled trigger; zero means none.
	NextRun func() time.Time

	// PingTimeout bounds the readiness check. Default: 2s
	PingTimeout time.Duration
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check. A failed last
// cycle reports DEGRADED but still answers 200: restarting would not help.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}

	if h.cfg.Sends != nil {
		metrics := h.cfg.Sends.MetricsSnapshot()
		if outcome, _ := metrics["last_outcome"].(string); outcome == worker.OutcomeFailed {
			health.Status = models.HealthStatusDegraded
			health.Details["lastError"] = metrics["last_error"]
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - database reachability.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.PingTimeout)
		defer cancel()

		if err := h.cfg.Ping(ctx); err != nil {
			response.ServiceUnavailable(w, r, fmt.Sprintf("database: %v", err))
			return
		}
	}

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SendStatus handles GET /v1/ops/sends - job state and retained history.
func (h *OpsHandler) SendStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SendStatus{
		Metrics: map[string]interface{}{},
		History: []models.SendRecord{},
	}

	if h.cfg.Sends != nil {
		status.Running = h.cfg.Sends.Running()
		status.Metrics = h.cfg.Sends.MetricsSnapshot()
		for _, result := range h.cfg.Sends.History() {
			status.History = append(status.History, toSendRecord(result))
		}
	}

	if h.cfg.NextRun != nil {
		if next := h.cfg.NextRun(); !next.IsZero() {
			status.NextRun = &next
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func toSendRecord(result message.Result) models.SendRecord {
	rooms := make([]string, 0, len(result.Devices))
	for _, d := range result.Devices {
		rooms = append(rooms, fmt.Sprintf("%d:%s", d.HotelID, d.HotelRoomNumber))
	}
	return models.SendRecord{
		MessageID:     result.MessageID,
		MessageInfoID: result.MessageInfoID,
		SendAt:        result.SendAt,
		Recipients:    len(result.Devices),
		Rooms:         rooms,
	}
}
