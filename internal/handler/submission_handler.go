package handler

import (
	"net/http"

	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionHandler exposes recorded submission runs so a partially applied
// submission can be inspected and resumed.
type SubmissionHandler struct {
	submissions service.SubmissionService
	logger      *zap.Logger
}

func NewSubmissionHandler(submissions service.SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, logger: logger}
}

func (h *SubmissionHandler) RegisterRoutes(api *gin.RouterGroup) {
	runs := api.Group("/submissions")
	{
		runs.GET("/:runId", h.Get)
		runs.POST("/:runId/resume", h.Resume)
	}
}

// @Summary      Get submission run
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        runId  path      string  true  "Run ID"
// @Success      200    {object}  response.Response{data=service.SubmissionRunResponse}
// @Router       /api/submissions/{runId} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	runID, ok := runIDParam(c)
	if !ok {
		return
	}
	res, err := h.submissions.GetRun(c.Request.Context(), actorFrom(c), runID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Resume continues a failed run from its first incomplete step
// @Summary      Resume submission
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        runId  path      string  true  "Run ID"
// @Success      200    {object}  response.Response{data=service.SubmissionRunResponse}
// @Failure      500    {object}  response.Response
// @Router       /api/submissions/{runId}/resume [post]
func (h *SubmissionHandler) Resume(c *gin.Context) {
	runID, ok := runIDParam(c)
	if !ok {
		return
	}
	res, err := h.submissions.ResumeSubmission(c.Request.Context(), actorFrom(c), runID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func runIDParam(c *gin.Context) (uuid.UUID, bool) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		badRequest(c, "Invalid run ID")
		return uuid.Nil, false
	}
	return runID, true
}
