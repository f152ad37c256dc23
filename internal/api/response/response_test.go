package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/qabroadcast/internal/api/middleware"
	"github.com/roomcast/qabroadcast/internal/api/models"
	"github.com/roomcast/qabroadcast/internal/api/response"
)

// requestWithContext creates a request that has passed through the RequestID
// middleware.
func requestWithContext(t *testing.T, method, path string) *http.Request {
	t.Helper()

	var processed *http.Request
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))
	return processed
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req := requestWithContext(t, http.MethodGet, "/test")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, middleware.GetRequestID(req.Context()), rec.Header().Get("X-Request-Id"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "hello", body["message"])
}

func TestJSON_NilBody(t *testing.T) {
	req := requestWithContext(t, http.MethodGet, "/test")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestServiceUnavailable(t *testing.T) {
	req := requestWithContext(t, http.MethodGet, "/v1/ops/ready")
	rec := httptest.NewRecorder()

	response.ServiceUnavailable(rec, req, "database: down")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, "/v1/ops/ready", problem.Instance)
	assert.Equal(t, middleware.GetRequestID(req.Context()), problem.TraceID)
}
