package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/service"
)

type HealthHandler struct {
	service *service.HealthService
}

func NewHealthHandler(service *service.HealthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Check handles GET /api/v1/health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, domain.ResponseBody[bool]{
		Message: domain.MessageHealthy,
		Data:    h.service.Check(c.Request.Context()),
	})
}
