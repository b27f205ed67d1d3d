package handler

import (
	"io"
	"net/http"

	"requestflow/internal/middleware"
	"requestflow/internal/model"
	"requestflow/internal/service"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BrandingHandler struct {
	branding service.BrandingService
	logger   *zap.Logger
}

func NewBrandingHandler(branding service.BrandingService, logger *zap.Logger) *BrandingHandler {
	return &BrandingHandler{branding: branding, logger: logger}
}

func (h *BrandingHandler) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/branding")
	{
		group.GET("/logo", h.GetLogo)
		group.PUT("/logo", middleware.RequireRole(model.RoleAdmin), h.UploadLogo)
	}
}

// @Summary      Company logo
// @Tags         branding
// @Security     BearerAuth
// @Produce      octet-stream
// @Success      200
// @Failure      404  {object}  response.Response
// @Router       /api/branding/logo [get]
func (h *BrandingHandler) GetLogo(c *gin.Context) {
	_, content, err := h.branding.Logo(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(content), content)
}

// UploadLogo replaces the logo with the multipart "file"
// @Summary      Replace company logo
// @Tags         branding
// @Security     BearerAuth
// @Accept       mpfd
// @Produce      json
// @Param        file  formData  file  true  "Image"
// @Success      200   {object}  response.Response{data=service.LogoResponse}
// @Router       /api/branding/logo [put]
func (h *BrandingHandler) UploadLogo(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "A logo file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.branding.UploadLogo(c.Request.Context(), actorFrom(c), service.FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
