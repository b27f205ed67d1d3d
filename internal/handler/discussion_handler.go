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

type DiscussionHandler struct {
	domain      model.Domain
	discussions service.DiscussionService
	logger      *zap.Logger
}

func NewDiscussionHandler(domain model.Domain, discussions service.DiscussionService, logger *zap.Logger) *DiscussionHandler {
	return &DiscussionHandler{domain: domain, discussions: discussions, logger: logger}
}

func (h *DiscussionHandler) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/" + string(h.domain) + "-discussions")
	{
		group.GET("/open", h.Open)
		group.PUT("/:id/answer", h.Answer)
	}
}

// Open lists unanswered questions addressed to the caller
// @Summary      Open questions for me
// @Tags         discussions
// @Security     BearerAuth
// @Produce      json
// @Param        domain  path      string  true  "purchase or travel"
// @Success      200     {object}  response.Response{data=[]service.DiscussionResponse}
// @Router       /api/{domain}-discussions/open [get]
func (h *DiscussionHandler) Open(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	res, err := h.discussions.OpenQuestionsFor(c.Request.Context(), h.domain, userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Answer a question
// @Tags         discussions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        domain   path      string                         true  "purchase or travel"
// @Param        id       path      int                            true  "Discussion ID"
// @Param        payload  body      service.AnswerQuestionRequest  true  "Answer"
// @Success      200      {object}  response.Response{data=service.DiscussionResponse}
// @Router       /api/{domain}-discussions/{id}/answer [put]
func (h *DiscussionHandler) Answer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.AnswerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	userID, _ := middleware.CurrentUser(c)
	res, err := h.discussions.Answer(c.Request.Context(), h.domain, id, req.Answer, userID, time.Now())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
