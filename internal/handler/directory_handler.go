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

// DirectoryHandler serves departments, teams and team membership
type DirectoryHandler struct {
	directory service.DirectoryService
	logger    *zap.Logger
}

func NewDirectoryHandler(directory service.DirectoryService, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, logger: logger}
}

func (h *DirectoryHandler) RegisterRoutes(api *gin.RouterGroup) {
	admin := middleware.RequireRole(model.RoleAdmin)

	departments := api.Group("/departments")
	{
		departments.GET("", h.ListDepartments)
		departments.POST("", admin, h.CreateDepartment)
		departments.PUT("/:id", admin, h.UpdateDepartment)
		departments.DELETE("/:id", admin, h.DeleteDepartment)
	}

	teams := api.Group("/teams")
	{
		teams.GET("", h.ListTeams)
		teams.GET("/:id", h.GetTeam)
		teams.POST("", admin, h.CreateTeam)
		teams.PUT("/:id", admin, h.UpdateTeam)
		teams.DELETE("/:id", admin, h.DeleteTeam)
		teams.POST("/:id/members", admin, h.AddMember)
		teams.DELETE("/:id/members/:userId", admin, h.RemoveMember)
	}
}

// @Summary      List departments
// @Tags         directory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.DepartmentResponse}
// @Router       /api/departments [get]
func (h *DirectoryHandler) ListDepartments(c *gin.Context) {
	res, err := h.directory.ListDepartments(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Create department
// @Tags         directory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DepartmentRequest  true  "Department"
// @Success      201      {object}  response.Response{data=service.DepartmentResponse}
// @Router       /api/departments [post]
func (h *DirectoryHandler) CreateDepartment(c *gin.Context) {
	var req service.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.directory.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// @Summary      Update department
// @Tags         directory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Department ID"
// @Param        payload  body      service.DepartmentRequest  true  "Department"
// @Success      200      {object}  response.Response{data=service.DepartmentResponse}
// @Router       /api/departments/{id} [put]
func (h *DirectoryHandler) UpdateDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.directory.UpdateDepartment(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Delete department
// @Tags         directory
// @Security     BearerAuth
// @Param        id   path      int  true  "Department ID"
// @Success      200  {object}  response.Response
// @Router       /api/departments/{id} [delete]
func (h *DirectoryHandler) DeleteDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteDepartment(c.Request.Context(), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Department deleted"}))
}

// @Summary      List teams with their members
// @Tags         directory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TeamResponse}
// @Router       /api/teams [get]
func (h *DirectoryHandler) ListTeams(c *gin.Context) {
	res, err := h.directory.ListTeams(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func (h *DirectoryHandler) GetTeam(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.directory.GetTeam(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Create team
// @Tags         directory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TeamRequest  true  "Team"
// @Success      201      {object}  response.Response{data=service.TeamResponse}
// @Router       /api/teams [post]
func (h *DirectoryHandler) CreateTeam(c *gin.Context) {
	var req service.TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.directory.CreateTeam(c.Request.Context(), req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

func (h *DirectoryHandler) UpdateTeam(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.directory.UpdateTeam(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func (h *DirectoryHandler) DeleteTeam(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteTeam(c.Request.Context(), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Team deleted"}))
}

// @Summary      Add a member to a team
// @Description  A user belongs to one team; adding moves them from their previous team.
// @Tags         directory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Team ID"
// @Param        payload  body      service.TeamMemberRequest  true  "Member"
// @Success      200      {object}  response.Response{data=service.TeamResponse}
// @Router       /api/teams/{id}/members [post]
func (h *DirectoryHandler) AddMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.directory.AddMember(c.Request.Context(), id, req.UserID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func (h *DirectoryHandler) RemoveMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	res, err := h.directory.RemoveMember(c.Request.Context(), id, userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
