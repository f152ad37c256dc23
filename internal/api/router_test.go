package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/qabroadcast/internal/api"
	"github.com/roomcast/qabroadcast/internal/api/handler"
	"github.com/roomcast/qabroadcast/internal/api/models"
	"github.com/roomcast/qabroadcast/internal/device"
	"github.com/roomcast/qabroadcast/internal/message"
	"github.com/roomcast/qabroadcast/internal/worker"
)

type stubSends struct {
	history     []message.Result
	running     bool
	lastOutcome string
	lastError   string
}

func (s *stubSends) History() []message.Result { return s.history }

func (s *stubSends) MetricsSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_cycles": int64(len(s.history)),
		"last_outcome": s.lastOutcome,
		"last_error":   s.lastError,
	}
}

func (s *stubSends) Running() bool { return s.running }

func newTestRouter(ops handler.OpsConfig) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger: zerolog.Nop(),
		Ops:    ops,
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(handler.OpsConfig{Version: "1.2.3", BuildTime: "2024-01-01"})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
}

func TestRouter_HealthCheck_DegradedAfterFailedCycle(t *testing.T) {
	router := newTestRouter(handler.OpsConfig{
		Sends: &stubSends{lastOutcome: worker.OutcomeFailed, lastError: "persistence error: deadlock"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var health models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusDegraded, health.Status)
	assert.Equal(t, "persistence error: deadlock", health.Details["lastError"])
}

func TestRouter_HealthCheck_SkippedCycleStaysOK(t *testing.T) {
	router := newTestRouter(handler.OpsConfig{
		Sends: &stubSends{lastOutcome: worker.OutcomeSkipped, lastError: "no eligible devices"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	var health models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		router := newTestRouter(handler.OpsConfig{
			Ping: func(context.Context) error { return nil },
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		router := newTestRouter(handler.OpsConfig{
			Ping: func(context.Context) error { return errors.New("connection refused") },
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var problem models.Problem
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
		assert.Equal(t, models.ProblemTypeUnavailable, problem.Type)
		assert.Contains(t, problem.Detail, "connection refused")
		assert.Equal(t, "/v1/ops/ready", problem.Instance)
	})
}

func TestRouter_SendStatus(t *testing.T) {
	sendAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	next := sendAt.Add(30 * time.Minute)
	sends := &stubSends{
		running: true,
		history: []message.Result{{
			MessageID:     5,
			MessageInfoID: 9,
			SendAt:        sendAt,
			Devices: []device.Target{
				{Barcode: "A100", HotelID: 7, HotelRoomNumber: "1201"},
				{Barcode: "A101", HotelID: 7, HotelRoomNumber: "1202"},
			},
		}},
	}

	router := newTestRouter(handler.OpsConfig{
		Sends:   sends,
		NextRun: func() time.Time { return next },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/sends", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SendStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))

	assert.True(t, status.Running)
	require.NotNil(t, status.NextRun)
	assert.True(t, next.Equal(*status.NextRun))
	assert.EqualValues(t, 1, status.Metrics["total_cycles"])

	require.Len(t, status.History, 1)
	assert.Equal(t, int64(5), status.History[0].MessageID)
	assert.Equal(t, int64(9), status.History[0].MessageInfoID)
	assert.Equal(t, 2, status.History[0].Recipients)
	assert.Equal(t, []string{"7:1201", "7:1202"}, status.History[0].Rooms)
}

func TestRouter_SendStatus_Empty(t *testing.T) {
	router := newTestRouter(handler.OpsConfig{
		NextRun: func() time.Time { return time.Time{} },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/sends", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotContains(t, body, "nextRun")
	assert.Equal(t, []interface{}{}, body["history"])
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(handler.OpsConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/routes", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
