package handler

import (
	"net/http"

	"requestflow/internal/middleware"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboard service.DashboardService
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

func (h *DashboardHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/dashboard", h.Summary)
}

// Summary returns the caller's request counts, approvals awaiting them and open questions
// @Summary      Dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.DashboardResponse}
// @Router       /api/dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	res, err := h.dashboard.Summary(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
