package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/qabroadcast/internal/api/models"
)

func TestProblem_NewProblem(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, "req_test123")

	assert.Equal(t, models.ProblemTypeInternal, p.Type)
	assert.Equal(t, "Internal server error", p.Title)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Empty(t, p.Detail)
	assert.Empty(t, p.Instance)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewServiceUnavailable("req_abc", "database: timeout")
	rec := httptest.NewRecorder()

	p.Write(rec)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_abc", rec.Header().Get("X-Request-Id"))

	var decoded models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decoded))
	assert.Equal(t, models.ProblemTypeUnavailable, decoded.Type)
	assert.Equal(t, "database: timeout", decoded.Detail)
}

func TestNewInternalError(t *testing.T) {
	p := models.NewInternalError("req_1", "boom")

	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "boom", p.Detail)
}
