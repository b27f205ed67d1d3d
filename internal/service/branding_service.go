package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"requestflow/internal/storage"

	"go.uber.org/zap"
)

const maxLogoSize = 2 << 20

type LogoResponse struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// BrandingService manages the single company logo document
type BrandingService interface {
	UploadLogo(ctx context.Context, actor Actor, file FileUpload) (*LogoResponse, error)
	Logo(ctx context.Context) (*LogoResponse, []byte, error)
}

type brandingService struct {
	storage storage.DocumentStorage
	library string
	logger  *zap.Logger
}

func NewBrandingService(store storage.DocumentStorage, library string, logger *zap.Logger) BrandingService {
	if library == "" {
		library = "company-logo"
	}
	return &brandingService{storage: store, library: library, logger: logger}
}

// UploadLogo replaces whatever logo the library held.
func (s *brandingService) UploadLogo(ctx context.Context, actor Actor, file FileUpload) (*LogoResponse, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can change the logo", ErrForbidden)
	}
	name, err := cleanFileName(file.Name)
	if err != nil {
		return nil, err
	}
	if len(file.Content) == 0 || len(file.Content) > maxLogoSize {
		return nil, validationErr("logo must be between 1 byte and %d bytes", maxLogoSize)
	}
	if ct := http.DetectContentType(file.Content); !strings.HasPrefix(ct, "image/") {
		return nil, validationErr("logo must be an image, got %s", ct)
	}

	existing, err := s.storage.List(ctx, s.library)
	if err != nil {
		return nil, storeErr("failed to read logo library", err)
	}
	stored, err := s.storage.Upload(ctx, s.library, name, file.Content, true)
	if err != nil {
		return nil, storeErr("failed to store logo", err)
	}
	for _, f := range existing {
		if f.Name == name {
			continue
		}
		if err := s.storage.Delete(ctx, s.library, f.Name); err != nil {
			s.logger.Warn("Failed to remove previous logo", zap.String("file", f.Name), zap.Error(err))
		}
	}

	s.logger.Info("Company logo updated", zap.Uint("user_id", actor.UserID), zap.String("file", name))
	return &LogoResponse{FileName: stored.Name, Path: stored.Path, Size: stored.Size}, nil
}

func (s *brandingService) Logo(ctx context.Context) (*LogoResponse, []byte, error) {
	files, err := s.storage.List(ctx, s.library)
	if err != nil {
		return nil, nil, storeErr("failed to read logo library", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no company logo uploaded: %w", ErrNotFound)
	}
	f := files[0]
	content, err := s.storage.Read(ctx, s.library, f.Name)
	if err != nil {
		return nil, nil, storeErr("failed to read logo", err)
	}
	return &LogoResponse{FileName: f.Name, Path: f.Path, Size: f.Size}, content, nil
}
