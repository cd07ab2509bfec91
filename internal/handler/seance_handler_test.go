package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	return c, rec
}

func TestSeanceHandlerListRejectsBadDate(t *testing.T) {
	handler := NewSeanceHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodGet, "/seances?date=31-12-2026", "")
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope, "error")
}

func TestSeanceHandlerCreateRejectsMalformedBody(t *testing.T) {
	handler := NewSeanceHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodPost, "/seances", "{not json")
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeanceHandlerSetStatusRejectsMalformedBody(t *testing.T) {
	handler := NewSeanceHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodPatch, "/seances/se1/status", "42")
	handler.SetStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeanceHandlerAvailabilityRequiresParams(t *testing.T) {
	handler := NewSeanceHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodGet, "/seances/availability?trainerId=t1&start=09:00", "")
	handler.Availability(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeanceHandlerAvailabilityRejectsBadTimes(t *testing.T) {
	handler := NewSeanceHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodGet, "/seances/availability?trainerId=t1&date=2026-09-01&start=9am&end=10:00", "")
	handler.Availability(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeanceHandlerAvailabilityRejectsBadDate(t *testing.T) {
	handler := NewSeanceHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodGet, "/seances/availability?trainerId=t1&date=notadate&start=09:00&end=10:00", "")
	handler.Availability(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
