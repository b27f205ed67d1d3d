package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"
	"requestflow/internal/storage"

	"go.uber.org/zap"
)

// FileUpload is a file received with a request
type FileUpload struct {
	Name        string
	ContentType string
	Content     []byte
}

type AttachmentResponse struct {
	ID           uint   `json:"id"`
	RequestID    *uint  `json:"request_id"`
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
	CreatedAt    string `json:"created_at"`
}

// attachmentStore keeps a domain's attachment rows and library files in step.
type attachmentStore struct {
	domain  model.Domain
	repo    repository.AttachmentRepository
	storage storage.DocumentStorage
	logger  *zap.Logger
}

func cleanFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", validationErr("invalid file name %q", name)
	}
	return base, nil
}

// attach uploads the file as "{requestID}_{name}", then locates the row by
// that name and points it at the request. Repeating it has no further effect.
func (a attachmentStore) attach(ctx context.Context, requestID uint, originalName, contentType string, content []byte) (*model.Attachment, error) {
	name, err := cleanFileName(originalName)
	if err != nil {
		return nil, err
	}
	fileName := model.AttachmentFileName(requestID, name)

	stored, err := a.storage.Upload(ctx, a.domain.AttachmentLibrary(), fileName, content, true)
	if err != nil {
		return nil, storeErr("failed to upload attachment", err)
	}

	att, err := a.repo.FindByFileName(ctx, fileName)
	switch {
	case repository.IsNotFound(err):
		att = &model.Attachment{
			FileName:     fileName,
			OriginalName: name,
			Path:         stored.Path,
			Size:         stored.Size,
			ContentType:  contentType,
		}
		if err := a.repo.Create(ctx, att); err != nil {
			return nil, storeErr("failed to record attachment", err)
		}
	case err != nil:
		return nil, storeErr("failed to locate attachment", err)
	default:
		// same name stored again: the bytes were overwritten above
		if err := a.repo.UpdateFile(ctx, att.ID, stored.Path, stored.Size, contentType); err != nil {
			return nil, storeErr("failed to update attachment", err)
		}
		att.Path, att.Size, att.ContentType = stored.Path, stored.Size, contentType
	}

	if att.RequestID == nil || *att.RequestID != requestID {
		if err := a.repo.SetRequestID(ctx, att.ID, requestID); err != nil {
			return nil, storeErr("failed to associate attachment", err)
		}
		att.RequestID = &requestID
	}
	return att, nil
}

func (a attachmentStore) list(ctx context.Context, requestID uint) ([]AttachmentResponse, error) {
	items, err := a.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("failed to list attachments", err)
	}
	res := make([]AttachmentResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toAttachmentResponse(item))
	}
	return res, nil
}

func (a attachmentStore) open(ctx context.Context, requestID, attachmentID uint) (*model.Attachment, []byte, error) {
	att, err := a.repo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, storeErr("attachment not found", err)
	}
	if att.RequestID == nil || *att.RequestID != requestID {
		return nil, nil, fmt.Errorf("attachment not found: %w", ErrNotFound)
	}
	content, err := a.storage.Read(ctx, a.domain.AttachmentLibrary(), att.FileName)
	if err != nil {
		return nil, nil, storeErr("failed to read attachment", err)
	}
	return att, content, nil
}

// detachAll deletes the request's attachment rows and returns them so the
// caller can remove the files once its transaction has committed.
func (a attachmentStore) detachAll(ctx context.Context, requestID uint) ([]model.Attachment, error) {
	items, err := a.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("failed to list attachments", err)
	}
	if err := a.repo.DeleteByRequest(ctx, requestID); err != nil {
		return nil, storeErr("failed to delete attachments", err)
	}
	return items, nil
}

func (a attachmentStore) removeFiles(ctx context.Context, items []model.Attachment) {
	for _, item := range items {
		if err := a.storage.Delete(ctx, a.domain.AttachmentLibrary(), item.FileName); err != nil {
			a.logger.Warn("Failed to delete attachment file",
				zap.String("file_name", item.FileName),
				zap.Error(err))
		}
	}
}

func toAttachmentResponse(a model.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           a.ID,
		RequestID:    a.RequestID,
		FileName:     a.FileName,
		OriginalName: a.OriginalName,
		Path:         a.Path,
		Size:         a.Size,
		ContentType:  a.ContentType,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}
