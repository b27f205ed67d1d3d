package handler

import (
	"errors"
	"net/http"
	"strconv"

	"requestflow/internal/middleware"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRequestClosed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err in the error envelope. A partial submission still reports
// the run so the client can resume it.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	var incomplete *service.SubmissionIncompleteError
	if errors.As(err, &incomplete) {
		logger.Warn("Submission incomplete",
			zap.String("run_id", incomplete.RunID.String()),
			zap.String("step", incomplete.Step),
			zap.Error(incomplete.Err))
		c.JSON(http.StatusInternalServerError, response.ErrorWithData(http.StatusInternalServerError, err.Error(), gin.H{
			"run_id": incomplete.RunID.String(),
			"step":   incomplete.Step,
		}))
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, response.Error(status, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func actorFrom(c *gin.Context) service.Actor {
	id, role := middleware.CurrentUser(c)
	return service.Actor{UserID: id, Role: role}
}

var errMissingPayload = errors.New("multipart form requires a JSON \"payload\" field")
