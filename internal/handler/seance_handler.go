package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astba/training-api/internal/models"
	"github.com/astba/training-api/internal/service"
	appErrors "github.com/astba/training-api/pkg/errors"
	"github.com/astba/training-api/pkg/response"
)

const seanceCachePattern = "seances:*"

// SeanceHandler manages seance endpoints.
type SeanceHandler struct {
	service *service.SeanceService
	cache   *service.CacheService
}

// NewSeanceHandler constructs handler.
func NewSeanceHandler(svc *service.SeanceService, cache *service.CacheService) *SeanceHandler {
	return &SeanceHandler{service: svc, cache: cache}
}

// List godoc
// @Summary List seances
// @Tags Seances
// @Produce json
// @Param trainerId query string false "Filter by trainer"
// @Param groupId query string false "Filter by group"
// @Param trainingId query string false "Filter by training"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /seances [get]
func (h *SeanceHandler) List(c *gin.Context) {
	var filter models.SeanceFilter
	filter.TrainerID = c.Query("trainerId")
	filter.GroupID = c.Query("groupId")
	filter.TrainingID = c.Query("trainingId")

	for _, q := range []struct {
		name string
		dest **time.Time
	}{
		{"date", &filter.Date},
		{"from", &filter.DateFrom},
		{"to", &filter.DateTo},
	} {
		value := c.Query(q.name)
		if value == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s parameter", q.name)))
			return
		}
		*q.dest = &parsed
	}

	cacheKey := fmt.Sprintf("seances:%s:%s:%s:%s:%s:%s",
		filter.TrainerID, filter.GroupID, filter.TrainingID,
		c.Query("date"), c.Query("from"), c.Query("to"))
	var cached []models.SeanceDetail
	if hit, _ := h.cache.Get(c.Request.Context(), cacheKey, &cached); hit {
		response.JSON(c, http.StatusOK, cached, nil)
		return
	}

	seances, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	_ = h.cache.Set(c.Request.Context(), cacheKey, seances, 0)
	response.JSON(c, http.StatusOK, seances, nil)
}

// Get godoc
// @Summary Get a seance
// @Tags Seances
// @Produce json
// @Param id path string true "Seance ID"
// @Success 200 {object} response.Envelope
// @Router /seances/{id} [get]
func (h *SeanceHandler) Get(c *gin.Context) {
	seance, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seance, nil)
}

// Create godoc
// @Summary Schedule a seance
// @Tags Seances
// @Accept json
// @Produce json
// @Param payload body service.ScheduleSeanceRequest true "Seance payload"
// @Success 201 {object} response.Envelope
// @Router /seances [post]
func (h *SeanceHandler) Create(c *gin.Context) {
	var req service.ScheduleSeanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	seance, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	_ = h.cache.Invalidate(c.Request.Context(), seanceCachePattern)
	response.Created(c, seance)
}

// Update godoc
// @Summary Update a seance
// @Tags Seances
// @Accept json
// @Produce json
// @Param id path string true "Seance ID"
// @Param payload body service.UpdateSeanceRequest true "Seance payload"
// @Success 200 {object} response.Envelope
// @Router /seances/{id} [put]
func (h *SeanceHandler) Update(c *gin.Context) {
	var req service.UpdateSeanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	seance, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	_ = h.cache.Invalidate(c.Request.Context(), seanceCachePattern)
	response.JSON(c, http.StatusOK, seance, nil)
}

// Delete godoc
// @Summary Delete a seance
// @Tags Seances
// @Param id path string true "Seance ID"
// @Success 204
// @Router /seances/{id} [delete]
func (h *SeanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	_ = h.cache.Invalidate(c.Request.Context(), seanceCachePattern)
	response.NoContent(c)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus godoc
// @Summary Transition a seance status
// @Tags Seances
// @Accept json
// @Produce json
// @Param id path string true "Seance ID"
// @Param payload body setStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /seances/{id}/status [patch]
func (h *SeanceHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	seance, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), models.SeanceStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	_ = h.cache.Invalidate(c.Request.Context(), seanceCachePattern)
	response.JSON(c, http.StatusOK, seance, nil)
}

// Availability godoc
// @Summary Check trainer availability
// @Tags Seances
// @Produce json
// @Param trainerId query string true "Trainer ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Success 200 {object} response.Envelope
// @Router /seances/availability [get]
func (h *SeanceHandler) Availability(c *gin.Context) {
	trainerID := c.Query("trainerId")
	if trainerID == "" || c.Query("start") == "" || c.Query("end") == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "trainerId, date, start and end are required"))
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date parameter"))
		return
	}
	start, err := time.Parse("15:04", c.Query("start"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid start parameter"))
		return
	}
	end, err := time.Parse("15:04", c.Query("end"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid end parameter"))
		return
	}

	available, err := h.service.IsTrainerAvailable(c.Request.Context(), trainerID, date, start.Format("15:04"), end.Format("15:04"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available": available}, nil)
}

// Report godoc
// @Summary Report a seance for postponement
// @Tags Seances
// @Accept json
// @Produce json
// @Param id path string true "Seance ID"
// @Param payload body service.ReportSeanceRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Router /seances/{id}/report [post]
func (h *SeanceHandler) Report(c *gin.Context) {
	var req service.ReportSeanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	report, err := h.service.Report(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	_ = h.cache.Invalidate(c.Request.Context(), seanceCachePattern)
	response.Created(c, report)
}

// ListReports godoc
// @Summary List reports filed against a seance
// @Tags Seances
// @Produce json
// @Param id path string true "Seance ID"
// @Success 200 {object} response.Envelope
// @Router /seances/{id}/reports [get]
func (h *SeanceHandler) ListReports(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}
