package handler

import (
	"net/http"

	"requestflow/internal/model"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PurchaseHandler serves /api/purchase-requests
type PurchaseHandler struct {
	requestExtras
	purchases service.PurchaseService
}

func NewPurchaseHandler(purchases service.PurchaseService, workflow service.WorkflowService, discussions service.DiscussionService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		requestExtras: requestExtras{
			domain:      model.DomainPurchase,
			attachments: purchases,
			workflow:    workflow,
			discussions: discussions,
			logger:      logger,
		},
		purchases: purchases,
	}
}

func (h *PurchaseHandler) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/purchase-requests")
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		h.requestExtras.register(group)
	}
}

// List purchase requests
// @Summary      List purchase requests
// @Tags         purchase
// @Security     BearerAuth
// @Produce      json
// @Param        status         query     string  false  "Draft, In Progress, Approved or Rejected"
// @Param        department_id  query     int     false  "Department filter"
// @Param        requester_id   query     int     false  "Requester filter"
// @Param        mine           query     bool    false  "Only the caller's requests"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=[]service.PurchaseRequestResponse}
// @Router       /api/purchase-requests [get]
func (h *PurchaseHandler) List(c *gin.Context) {
	q, p := listQuery(c)
	res, total, err := h.purchases.List(c.Request.Context(), q)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, res, p.Meta(total)))
}

// Create saves a draft or submits a purchase request
// @Summary      Create purchase request
// @Description  JSON body, or multipart with a JSON "payload" field and any number of "files".
// @Description  submit=true starts the approval chain.
// @Tags         purchase
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        payload  body      service.PurchaseRequestInput  true  "Purchase form"
// @Success      201      {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response "Partially completed; resume via /api/submissions/{runId}/resume"
// @Router       /api/purchase-requests [post]
func (h *PurchaseHandler) Create(c *gin.Context) {
	var in service.PurchaseRequestInput
	files, err := bindSubmission(c, &in)
	if err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.purchases.Create(c.Request.Context(), actorFrom(c), in, files)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// @Summary      Get purchase request
// @Tags         purchase
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-requests/{id} [get]
func (h *PurchaseHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.purchases.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Update edits a draft, submits it, or resubmits a rejected request
// @Summary      Update purchase request
// @Tags         purchase
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        id       path      int                           true  "Request ID"
// @Param        payload  body      service.PurchaseRequestInput  true  "Purchase form"
// @Success      200      {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-requests/{id} [put]
func (h *PurchaseHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in service.PurchaseRequestInput
	files, err := bindSubmission(c, &in)
	if err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.purchases.Update(c.Request.Context(), actorFrom(c), id, in, files)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Delete purchase request
// @Description  Removes the request with its approvals and attachments. Discussions are kept.
// @Tags         purchase
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response
// @Router       /api/purchase-requests/{id} [delete]
func (h *PurchaseHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.purchases.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Purchase request deleted"}))
}
