package handler

import (
	"net/http"

	"requestflow/internal/middleware"
	"requestflow/internal/model"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RosterHandler edits the approver templates at /api/rosters/:scope/:scopeId
type RosterHandler struct {
	rosters service.RosterService
	logger  *zap.Logger
}

func NewRosterHandler(rosters service.RosterService, logger *zap.Logger) *RosterHandler {
	return &RosterHandler{rosters: rosters, logger: logger}
}

func (h *RosterHandler) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/rosters/:scope/:scopeId")
	admin := middleware.RequireRole(model.RoleAdmin)
	{
		group.GET("", h.List)
		group.POST("", admin, h.AddEntry)
		group.PUT("/:entryId", admin, h.UpdateEntry)
		group.DELETE("/:entryId", admin, h.RemoveEntry)
	}
}

// @Summary      List roster entries
// @Tags         rosters
// @Security     BearerAuth
// @Produce      json
// @Param        scope    path      string  true  "department or team"
// @Param        scopeId  path      int     true  "Department or team ID"
// @Success      200      {object}  response.Response{data=[]service.RosterEntryResponse}
// @Router       /api/rosters/{scope}/{scopeId} [get]
func (h *RosterHandler) List(c *gin.Context) {
	scopeID, ok := idParam(c, "scopeId")
	if !ok {
		return
	}
	res, err := h.rosters.List(c.Request.Context(), c.Param("scope"), scopeID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Add roster entry
// @Tags         rosters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        scope    path      string                      true  "department or team"
// @Param        scopeId  path      int                         true  "Department or team ID"
// @Param        payload  body      service.RosterEntryRequest  true  "Entry"
// @Success      201      {object}  response.Response{data=service.RosterEntryResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/rosters/{scope}/{scopeId} [post]
func (h *RosterHandler) AddEntry(c *gin.Context) {
	scopeID, ok := idParam(c, "scopeId")
	if !ok {
		return
	}
	var req service.RosterEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.rosters.AddEntry(c.Request.Context(), actorFrom(c), c.Param("scope"), scopeID, req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

func (h *RosterHandler) UpdateEntry(c *gin.Context) {
	scopeID, ok := idParam(c, "scopeId")
	if !ok {
		return
	}
	entryID, ok := idParam(c, "entryId")
	if !ok {
		return
	}
	var req service.RosterEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.rosters.UpdateEntry(c.Request.Context(), actorFrom(c), c.Param("scope"), scopeID, entryID, req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func (h *RosterHandler) RemoveEntry(c *gin.Context) {
	scopeID, ok := idParam(c, "scopeId")
	if !ok {
		return
	}
	entryID, ok := idParam(c, "entryId")
	if !ok {
		return
	}
	if err := h.rosters.RemoveEntry(c.Request.Context(), actorFrom(c), c.Param("scope"), scopeID, entryID); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Roster entry removed"}))
}
