package handler

import (
	"net/http"

	"requestflow/internal/model"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TravelHandler serves /api/travel-requests
type TravelHandler struct {
	requestExtras
	travels service.TravelService
}

func NewTravelHandler(travels service.TravelService, workflow service.WorkflowService, discussions service.DiscussionService, logger *zap.Logger) *TravelHandler {
	return &TravelHandler{
		requestExtras: requestExtras{
			domain:      model.DomainTravel,
			attachments: travels,
			workflow:    workflow,
			discussions: discussions,
			logger:      logger,
		},
		travels: travels,
	}
}

func (h *TravelHandler) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/travel-requests")
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		h.requestExtras.register(group)
	}
}

// List travel requests
// @Summary      List travel requests
// @Tags         travel
// @Security     BearerAuth
// @Produce      json
// @Param        status         query     string  false  "Draft, In Progress, Approved or Rejected"
// @Param        team_id        query     int     false  "Team filter"
// @Param        requester_id   query     int     false  "Requester filter"
// @Param        mine           query     bool    false  "Only the caller's requests"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=[]service.TravelRequestResponse}
// @Router       /api/travel-requests [get]
func (h *TravelHandler) List(c *gin.Context) {
	q, p := listQuery(c)
	res, total, err := h.travels.List(c.Request.Context(), q)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, res, p.Meta(total)))
}

// Create saves a draft or submits a travel request
// @Summary      Create travel request
// @Description  JSON body, or multipart with a JSON "payload" field and any number of "files".
// @Description  submit=true starts the approval chain.
// @Tags         travel
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        payload  body      service.TravelRequestInput  true  "Travel form"
// @Success      201      {object}  response.Response{data=service.TravelRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response "Partially completed; resume via /api/submissions/{runId}/resume"
// @Router       /api/travel-requests [post]
func (h *TravelHandler) Create(c *gin.Context) {
	var in service.TravelRequestInput
	files, err := bindSubmission(c, &in)
	if err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.travels.Create(c.Request.Context(), actorFrom(c), in, files)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// @Summary      Get travel request
// @Tags         travel
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.TravelRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/travel-requests/{id} [get]
func (h *TravelHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.travels.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Update edits a draft, submits it, or resubmits a rejected request
// @Summary      Update travel request
// @Tags         travel
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        id       path      int                           true  "Request ID"
// @Param        payload  body      service.TravelRequestInput  true  "Travel form"
// @Success      200      {object}  response.Response{data=service.TravelRequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/travel-requests/{id} [put]
func (h *TravelHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in service.TravelRequestInput
	files, err := bindSubmission(c, &in)
	if err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.travels.Update(c.Request.Context(), actorFrom(c), id, in, files)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Delete travel request
// @Description  Removes the request with its approvals and attachments. Discussions are kept.
// @Tags         travel
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response
// @Router       /api/travel-requests/{id} [delete]
func (h *TravelHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.travels.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Travel request deleted"}))
}
