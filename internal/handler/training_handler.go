package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astba/training-api/internal/service"
	"github.com/astba/training-api/pkg/response"
)

// TrainingHandler exposes the read-only curriculum store.
type TrainingHandler struct {
	service *service.TrainingService
}

// NewTrainingHandler constructs handler.
func NewTrainingHandler(svc *service.TrainingService) *TrainingHandler {
	return &TrainingHandler{service: svc}
}

// List godoc
// @Summary List trainings
// @Tags Trainings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /trainings [get]
func (h *TrainingHandler) List(c *gin.Context) {
	trainings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trainings, nil)
}

// Get godoc
// @Summary Get a training
// @Tags Trainings
// @Produce json
// @Param id path string true "Training ID"
// @Success 200 {object} response.Envelope
// @Router /trainings/{id} [get]
func (h *TrainingHandler) Get(c *gin.Context) {
	training, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, training, nil)
}
