package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmaulana/school-notify-api/internal/service"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
	"github.com/rmaulana/school-notify-api/pkg/response"
)

// DashboardHandler exposes the per-role landing endpoints.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Teacher godoc
// @Summary Teacher landing view
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cached, err := h.dashboards.Teacher(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, map[string]interface{}{"cached": cached})
}

// Office godoc
// @Summary Office landing view
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/office [get]
func (h *DashboardHandler) Office(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cached, err := h.dashboards.Office(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, map[string]interface{}{"cached": cached})
}

// Parent godoc
// @Summary Parent landing view
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/parent [get]
func (h *DashboardHandler) Parent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.dashboards.Parent(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
