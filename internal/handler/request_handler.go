package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"requestflow/internal/middleware"
	"requestflow/internal/model"
	"requestflow/internal/service"
	"requestflow/pkg/pagination"
	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// attachmentService is the file half shared by the purchase and travel services
type attachmentService interface {
	AddAttachments(ctx context.Context, actor service.Actor, id uint, files []service.FileUpload) ([]service.AttachmentResponse, error)
	ListAttachments(ctx context.Context, id uint) ([]service.AttachmentResponse, error)
	OpenAttachment(ctx context.Context, id, attachmentID uint) (*service.AttachmentResponse, []byte, error)
}

// requestExtras serves the routes every request type has besides its form:
// the approval chain, attachments and the discussion thread.
type requestExtras struct {
	domain      model.Domain
	attachments attachmentService
	workflow    service.WorkflowService
	discussions service.DiscussionService
	logger      *zap.Logger
}

func (x requestExtras) register(group *gin.RouterGroup) {
	group.GET("/:id/approvals", x.ListApprovals)
	group.GET("/:id/attachments", x.ListAttachments)
	group.POST("/:id/attachments", x.AddAttachments)
	group.GET("/:id/attachments/:attachmentId", x.DownloadAttachment)
	group.GET("/:id/discussions", x.ListDiscussions)
	group.POST("/:id/discussions", x.RaiseQuestion)
}

// ListApprovals returns the request's chain in order
func (x requestExtras) ListApprovals(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := x.workflow.ChainFor(c.Request.Context(), id)
	if err != nil {
		fail(c, x.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func (x requestExtras) ListAttachments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := x.attachments.ListAttachments(c.Request.Context(), id)
	if err != nil {
		fail(c, x.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AddAttachments uploads the multipart "files" to an existing request
func (x requestExtras) AddAttachments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	files, err := readFiles(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := x.attachments.AddAttachments(c.Request.Context(), actorFrom(c), id, files)
	if err != nil {
		fail(c, x.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// DownloadAttachment streams the stored file
func (x requestExtras) DownloadAttachment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := idParam(c, "attachmentId")
	if !ok {
		return
	}
	att, content, err := x.attachments.OpenAttachment(c.Request.Context(), id, attachmentID)
	if err != nil {
		fail(c, x.logger, err)
		return
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(att.OriginalName, `"`, "")+`"`)
	c.Data(http.StatusOK, contentType, content)
}

func (x requestExtras) ListDiscussions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := x.discussions.ByRequest(c.Request.Context(), x.domain, id)
	if err != nil {
		fail(c, x.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func (x requestExtras) RaiseQuestion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.RaiseQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	userID, _ := middleware.CurrentUser(c)
	res, err := x.discussions.RaiseQuestion(c.Request.Context(), x.domain, id, req.Question, userID, req.RecipientID)
	if err != nil {
		fail(c, x.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// bindSubmission fills in from a JSON body, or from the "payload" field of a
// multipart form whose "files" become the attachments.
func bindSubmission(c *gin.Context, in interface{}) ([]service.FileUpload, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, c.ShouldBindJSON(in)
	}
	payload := c.PostForm("payload")
	if payload == "" {
		return nil, errMissingPayload
	}
	if err := json.Unmarshal([]byte(payload), in); err != nil {
		return nil, err
	}
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	return readFiles(c)
}

// readFiles loads every multipart "files" part into memory
func readFiles(c *gin.Context) ([]service.FileUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	headers := form.File["files"]
	files := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, service.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return files, nil
}

// listQuery reads the shared list filters. mine=true narrows to the caller's requests.
func listQuery(c *gin.Context) (service.RequestListQuery, pagination.Params) {
	p := pagination.Parse(c)
	q := service.RequestListQuery{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}
	q.RequesterID = queryUint(c, "requester_id")
	q.DepartmentID = queryUint(c, "department_id")
	q.TeamID = queryUint(c, "team_id")
	if c.Query("mine") == "true" {
		q.RequesterID, _ = middleware.CurrentUser(c)
	}
	return q, p
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
