package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"requestflow/internal/model"
	"requestflow/internal/repository"

	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     *uint           `json:"user_id"`
	Username   string          `json:"username"`
	Domain     string          `json:"domain"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, domain string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the newest entries first, optionally limited to one domain
func (s *auditService) GetAuditLogs(ctx context.Context, domain string, page, limit int) ([]AuditLogResponse, int64, error) {
	if domain != "" {
		if _, err := model.ParseDomain(domain); err != nil {
			return nil, 0, validationErr("%v", err)
		}
	}

	logs, total, err := s.repo.List(ctx, domain, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		if l.User != nil {
			username = l.User.Username
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     l.UserID,
			Username:   username,
			Domain:     l.Domain,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    json.RawMessage(l.Details),
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// auditRecorder writes audit rows inside the caller's transaction, so a
// failed audit write rolls the action back.
type auditRecorder struct {
	repo repository.AuditRepository
}

func (a auditRecorder) record(ctx context.Context, userID uint, domain model.Domain, action string, entityID uint, entityName string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	var uid *uint
	if userID != 0 {
		uid = &userID
	}
	entry := &model.AuditLog{
		UserID:     uid,
		Domain:     string(domain),
		Action:     action,
		EntityID:   strconv.FormatUint(uint64(entityID), 10),
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	}
	if err := a.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
