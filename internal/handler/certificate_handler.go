package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astba/training-api/internal/service"
	"github.com/astba/training-api/pkg/response"
)

// CertificateHandler exposes the certificate eligibility gate.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler constructs handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// Meta godoc
// @Summary Get certificate eligibility for an enrollment
// @Tags Certificates
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/certificate/meta [get]
func (h *CertificateHandler) Meta(c *gin.Context) {
	meta, err := h.service.GetMeta(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meta, nil)
}

// Issue godoc
// @Summary Issue the certificate PDF for an eligible enrollment
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Enrollment ID"
// @Success 200 {file} binary
// @Router /enrollments/{id}/certificate [get]
func (h *CertificateHandler) Issue(c *gin.Context) {
	issued, err := h.service.Issue(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+issued.FileName)
	c.Data(http.StatusOK, "application/pdf", issued.PDF)
}
