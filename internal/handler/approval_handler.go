package handler

import (
	"net/http"
	"time"

	"requestflow/internal/middleware"
	"requestflow/internal/model"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ApprovalHandler serves one domain's approval inbox and decisions
type ApprovalHandler struct {
	workflow service.WorkflowService
	logger   *zap.Logger
}

func NewApprovalHandler(workflow service.WorkflowService, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{workflow: workflow, logger: logger}
}

// RegisterRoutes mounts /{domain}-approvals
func (h *ApprovalHandler) RegisterRoutes(api *gin.RouterGroup) {
	approvals := api.Group("/" + string(h.workflow.Domain()) + "-approvals")
	{
		approvals.GET("/pending", h.Pending)
		approvals.PUT("/:id/decision", h.Decide)
		approvals.PUT("/:id/approver", middleware.RequireRole(model.RoleAdmin), h.ReplaceApprover)
	}
}

// Pending lists the approvals where it is the caller's turn
// @Summary      Approvals awaiting me
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        domain  path      string  true  "purchase or travel"
// @Success      200     {object}  response.Response{data=[]service.ApprovalResponse}
// @Router       /api/{domain}-approvals/pending [get]
func (h *ApprovalHandler) Pending(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	res, err := h.workflow.PendingApprovalsFor(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Decide approves or rejects an approval assigned to the caller. Only the
// lowest pending step of a chain can be decided.
// @Summary      Approve or reject
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        domain   path      string                   true  "purchase or travel"
// @Param        id       path      int                      true  "Approval ID"
// @Param        payload  body      service.DecisionRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/{domain}-approvals/{id}/decision [put]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	turn, err := h.workflow.IsCurrentTurn(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if !turn {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "This approval is not awaiting a decision yet"))
		return
	}

	userID, _ := middleware.CurrentUser(c)
	res, err := h.workflow.RecordDecision(c.Request.Context(), service.DecisionInput{
		ApprovalID: id,
		RequestID:  req.RequestID,
		ApproverID: userID,
		Status:     req.Status,
		Comments:   req.Comments,
		DecidedAt:  time.Now(),
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ReplaceApprover reassigns one step of a live chain
// @Summary      Replace approver
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        domain   path      string                          true  "purchase or travel"
// @Param        id       path      int                             true  "Approval ID"
// @Param        payload  body      service.ReplaceApproverRequest  true  "New approver"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Router       /api/{domain}-approvals/{id}/approver [put]
func (h *ApprovalHandler) ReplaceApprover(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.ReplaceApproverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	userID, _ := middleware.CurrentUser(c)
	res, err := h.workflow.ReplaceApprover(c.Request.Context(), userID, id, req.ApproverID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
