package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astba/training-api/internal/models"
	"github.com/astba/training-api/internal/service"
	appErrors "github.com/astba/training-api/pkg/errors"
	"github.com/astba/training-api/pkg/response"
)

// AttendanceHandler exposes the bulk attendance recorder.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

type markAttendanceRequest struct {
	TrainingID string                    `json:"training_id"`
	SessionID  string                    `json:"session_id"`
	Date       string                    `json:"date"`
	Records    []models.AttendanceRecord `json:"records"`
}

// Mark godoc
// @Summary Bulk-mark attendance for a session occurrence
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body markAttendanceRequest true "Attendance payload"
// @Success 204
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req markAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}
	mark := models.AttendanceMarkRequest{
		TrainingID: req.TrainingID,
		SessionID:  req.SessionID,
		Date:       date,
		Records:    req.Records,
	}
	if err := h.service.Mark(c.Request.Context(), mark); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
