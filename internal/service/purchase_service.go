package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

// PurchaseRequestInput is the purchase form. Submit=true sends the request
// for approval, otherwise it is saved as a draft.
type PurchaseRequestInput struct {
	Title            string          `json:"title" binding:"required"`
	RequesterID      uint            `json:"requester_id"`
	DepartmentID     uint            `json:"department_id" binding:"required"`
	Vendor           string          `json:"vendor"`
	Category         string          `json:"category" binding:"required,oneof=goods services software other"`
	Description      string          `json:"description"`
	Justification    string          `json:"justification"`
	Quantity         int             `json:"quantity" binding:"min=0"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ARRequired       bool            `json:"ar_required"`
	EmergencyRelated bool            `json:"emergency_related"`
	RequestedDate    *time.Time      `json:"requested_date"`
	Submit           bool            `json:"submit"`
	Version          int             `json:"version"`
}

func (in PurchaseRequestInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return validationErr("title is required")
	}
	if in.DepartmentID == 0 {
		return validationErr("department is required")
	}
	switch in.Category {
	case model.PurchaseCategoryGoods, model.PurchaseCategoryServices, model.PurchaseCategorySoftware, model.PurchaseCategoryOther:
	default:
		return validationErr("invalid category %q", in.Category)
	}
	if in.Quantity < 0 {
		return validationErr("quantity cannot be negative")
	}
	if in.UnitCost.IsNegative() {
		return validationErr("unit cost cannot be negative")
	}
	return nil
}

type DepartmentRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type PurchaseRequestResponse struct {
	ID               uint                   `json:"id"`
	Title            string                 `json:"title"`
	Requester        model.PersonRef        `json:"requester"`
	Department       DepartmentRef          `json:"department"`
	Vendor           string                 `json:"vendor"`
	Category         string                 `json:"category"`
	Description      string                 `json:"description"`
	Justification    string                 `json:"justification"`
	Quantity         int                    `json:"quantity"`
	UnitCost         string                 `json:"unit_cost"`
	TotalCost        string                 `json:"total_cost"`
	ARRequired       bool                   `json:"ar_required"`
	EmergencyRelated bool                   `json:"emergency_related"`
	Status           string                 `json:"status"`
	Version          int                    `json:"version"`
	CreatedBy        model.PersonRef        `json:"created_by"`
	RequestedDate    string                 `json:"requested_date"`
	CreatedAt        string                 `json:"created_at"`
	Approvals        []ApprovalResponse     `json:"approvals,omitempty"`
	Attachments      []AttachmentResponse   `json:"attachments,omitempty"`
	Submission       *SubmissionRunResponse `json:"submission,omitempty"`
}

// --- Interface ---

type PurchaseService interface {
	Create(ctx context.Context, actor Actor, in PurchaseRequestInput, files []FileUpload) (*PurchaseRequestResponse, error)
	Update(ctx context.Context, actor Actor, id uint, in PurchaseRequestInput, files []FileUpload) (*PurchaseRequestResponse, error)
	Get(ctx context.Context, id uint) (*PurchaseRequestResponse, error)
	List(ctx context.Context, q RequestListQuery) ([]PurchaseRequestResponse, int64, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	AddAttachments(ctx context.Context, actor Actor, id uint, files []FileUpload) ([]AttachmentResponse, error)
	ListAttachments(ctx context.Context, id uint) ([]AttachmentResponse, error)
	OpenAttachment(ctx context.Context, id, attachmentID uint) (*AttachmentResponse, []byte, error)
}

type purchaseService struct {
	requestFlow
	repo        repository.RequestRepository[model.PurchaseRequest]
	departments repository.DepartmentRepository
}

func NewPurchaseService(repo repository.RequestRepository[model.PurchaseRequest], deps RequestServiceDeps) PurchaseService {
	s := &purchaseService{
		requestFlow: newRequestFlow(model.DomainPurchase, deps),
		repo:        repo,
		departments: deps.Departments,
	}
	deps.Submissions.register(model.DomainPurchase, s, deps.Workflow, s.attachments)
	return s
}

// --- Implementation ---

func (s *purchaseService) Create(ctx context.Context, actor Actor, in PurchaseRequestInput, files []FileUpload) (*PurchaseRequestResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.submit(ctx, actor, 0, in, files)
}

func (s *purchaseService) Update(ctx context.Context, actor Actor, id uint, in PurchaseRequestInput, files []FileUpload) (*PurchaseRequestResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("purchase request not found", err)
	}
	if !req.IsOwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: only the requester may edit this request", ErrForbidden)
	}
	if err := checkTransition(req.Status, targetStatus(in.Submit)); err != nil {
		return nil, err
	}
	return s.submit(ctx, actor, id, in, files)
}

func (s *purchaseService) submit(ctx context.Context, actor Actor, id uint, in PurchaseRequestInput, files []FileUpload) (*PurchaseRequestResponse, error) {
	run, err := s.submissions.submit(ctx, s.domain, actor, id, in, files)
	if err != nil {
		return nil, err
	}
	res, err := s.Get(ctx, run.RequestID)
	if err != nil {
		return nil, err
	}
	res.Submission = toRunResponse(run)
	return res, nil
}

// saveRequest runs inside the submission transaction.
func (s *purchaseService) saveRequest(ctx context.Context, run *model.SubmissionRun) (uint, error) {
	var in PurchaseRequestInput
	if err := json.Unmarshal(run.State.Data().Payload, &in); err != nil {
		return 0, fmt.Errorf("failed to decode purchase submission: %w", err)
	}
	if err := in.validate(); err != nil {
		return 0, err
	}
	if _, err := s.departments.FindByID(ctx, in.DepartmentID); err != nil {
		return 0, storeErr("department not found", err)
	}
	requesterID, err := s.resolveRequester(ctx, run.UserID, in.RequesterID)
	if err != nil {
		return 0, err
	}
	status := targetStatus(in.Submit)

	if run.RequestID == 0 {
		req := &model.PurchaseRequest{
			CreatedByID:   run.UserID,
			RequestedDate: requestedDateOrNow(in.RequestedDate),
			Version:       1,
		}
		applyPurchaseInput(req, in, requesterID, status)
		if err := s.repo.Create(ctx, req); err != nil {
			return 0, storeErr("failed to create purchase request", err)
		}
		return req.ID, s.audit.record(ctx, run.UserID, s.domain, submitAction(status, true), req.ID, req.Title, map[string]interface{}{
			"status":     status,
			"total_cost": req.TotalCost.String(),
		})
	}

	req, err := s.repo.FindByID(ctx, run.RequestID)
	if err != nil {
		return 0, storeErr("purchase request not found", err)
	}
	if !req.IsOwnedBy(run.UserID) {
		return 0, fmt.Errorf("%w: only the requester may edit this request", ErrForbidden)
	}
	if err := checkTransition(req.Status, status); err != nil {
		return 0, err
	}
	if err := checkVersion(in.Version, req.Version); err != nil {
		return 0, err
	}

	expected := req.Version
	prevStatus := req.Status
	applyPurchaseInput(req, in, requesterID, status)
	if in.RequestedDate != nil {
		req.RequestedDate = *in.RequestedDate
	}
	req.Version = expected + 1
	if err := s.repo.Update(ctx, req, expected); err != nil {
		return 0, storeErr("failed to update purchase request", err)
	}
	return req.ID, s.audit.record(ctx, run.UserID, s.domain, submitAction(status, false), req.ID, req.Title, map[string]interface{}{
		"from": prevStatus,
		"to":   status,
	})
}

func (s *purchaseService) chainSource(ctx context.Context, requestID uint) (string, []model.RosterEntry, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return "", nil, storeErr("purchase request not found", err)
	}
	roster, err := s.rosters.ListByScope(ctx, model.RosterScopeFor(s.domain), req.DepartmentID)
	if err != nil {
		return "", nil, storeErr("failed to read department roster", err)
	}
	return req.Status, roster, nil
}

func applyPurchaseInput(req *model.PurchaseRequest, in PurchaseRequestInput, requesterID uint, status string) {
	req.Title = strings.TrimSpace(in.Title)
	req.RequesterID = requesterID
	req.DepartmentID = in.DepartmentID
	req.Vendor = in.Vendor
	req.Category = in.Category
	req.Description = in.Description
	req.Justification = in.Justification
	req.Quantity = in.Quantity
	req.UnitCost = in.UnitCost
	req.TotalCost = in.UnitCost.Mul(decimal.NewFromInt(int64(in.Quantity)))
	req.ARRequired = in.ARRequired
	req.EmergencyRelated = in.EmergencyRelated
	req.Status = status
}

func (s *purchaseService) Get(ctx context.Context, id uint) (*PurchaseRequestResponse, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("purchase request not found", err)
	}
	res := toPurchaseResponse(req)
	if res.Approvals, err = s.workflow.ChainFor(ctx, id); err != nil {
		return nil, err
	}
	if res.Attachments, err = s.attachments.list(ctx, id); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *purchaseService) List(ctx context.Context, q RequestListQuery) ([]PurchaseRequestResponse, int64, error) {
	page, limit := q.pageAndLimit()
	q.TeamID = 0
	items, total, err := s.repo.List(ctx, q.filter(), page, limit)
	if err != nil {
		s.logger.Error("Failed to list purchase requests", zap.Error(err))
		return nil, 0, storeErr("failed to list purchase requests", err)
	}
	res := make([]PurchaseRequestResponse, 0, len(items))
	for i := range items {
		res = append(res, toPurchaseResponse(&items[i]))
	}
	return res, total, nil
}

func (s *purchaseService) Delete(ctx context.Context, actor Actor, id uint) error {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeErr("purchase request not found", err)
	}
	if err := s.canDelete(actor, req.IsOwnedBy(actor.UserID), req.Status); err != nil {
		return err
	}
	return s.removeRequest(ctx, actor, id, req.Title, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

func (s *purchaseService) AddAttachments(ctx context.Context, actor Actor, id uint, files []FileUpload) ([]AttachmentResponse, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("purchase request not found", err)
	}
	if err := s.canAttach(actor, req.IsOwnedBy(actor.UserID)); err != nil {
		return nil, err
	}
	return s.addAttachments(ctx, actor, id, req.Title, files)
}

func (s *purchaseService) ListAttachments(ctx context.Context, id uint) ([]AttachmentResponse, error) {
	return s.attachments.list(ctx, id)
}

func (s *purchaseService) OpenAttachment(ctx context.Context, id, attachmentID uint) (*AttachmentResponse, []byte, error) {
	att, content, err := s.attachments.open(ctx, id, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	res := toAttachmentResponse(*att)
	return &res, content, nil
}

func toPurchaseResponse(req *model.PurchaseRequest) PurchaseRequestResponse {
	res := PurchaseRequestResponse{
		ID:               req.ID,
		Title:            req.Title,
		Requester:        req.Requester.Ref(req.RequesterID),
		Department:       DepartmentRef{ID: req.DepartmentID},
		Vendor:           req.Vendor,
		Category:         req.Category,
		Description:      req.Description,
		Justification:    req.Justification,
		Quantity:         req.Quantity,
		UnitCost:         req.UnitCost.StringFixed(2),
		TotalCost:        req.TotalCost.StringFixed(2),
		ARRequired:       req.ARRequired,
		EmergencyRelated: req.EmergencyRelated,
		Status:           req.Status,
		Version:          req.Version,
		CreatedBy:        req.CreatedBy.Ref(req.CreatedByID),
		RequestedDate:    req.RequestedDate.Format(time.RFC3339),
		CreatedAt:        req.CreatedAt.Format(time.RFC3339),
	}
	if req.Department != nil {
		res.Department.Name = req.Department.Name
	}
	return res
}
