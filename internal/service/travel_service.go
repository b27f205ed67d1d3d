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

// TravelRequestInput is the travel form. TeamID defaults to the requester's team.
type TravelRequestInput struct {
	Title            string          `json:"title" binding:"required"`
	RequesterID      uint            `json:"requester_id"`
	TeamID           *uint           `json:"team_id"`
	DepartmentID     *uint           `json:"department_id"`
	Destination      string          `json:"destination" binding:"required"`
	Purpose          string          `json:"purpose"`
	TravelType       string          `json:"travel_type" binding:"required,oneof=domestic international"`
	DepartureDate    time.Time       `json:"departure_date" binding:"required"`
	ReturnDate       time.Time       `json:"return_date" binding:"required"`
	EstimatedAirfare decimal.Decimal `json:"estimated_airfare"`
	EstimatedLodging decimal.Decimal `json:"estimated_lodging"`
	EstimatedOther   decimal.Decimal `json:"estimated_other"`
	EmergencyRelated bool            `json:"emergency_related"`
	RequestedDate    *time.Time      `json:"requested_date"`
	Submit           bool            `json:"submit"`
	Version          int             `json:"version"`
}

func (in TravelRequestInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return validationErr("title is required")
	}
	if strings.TrimSpace(in.Destination) == "" {
		return validationErr("destination is required")
	}
	if in.TravelType != model.TravelTypeDomestic && in.TravelType != model.TravelTypeInternational {
		return validationErr("invalid travel type %q", in.TravelType)
	}
	if in.DepartureDate.IsZero() || in.ReturnDate.IsZero() {
		return validationErr("departure and return dates are required")
	}
	if in.ReturnDate.Before(in.DepartureDate) {
		return validationErr("return date is before departure date")
	}
	for _, c := range []decimal.Decimal{in.EstimatedAirfare, in.EstimatedLodging, in.EstimatedOther} {
		if c.IsNegative() {
			return validationErr("estimated costs cannot be negative")
		}
	}
	return nil
}

type TeamRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type TravelRequestResponse struct {
	ID               uint                   `json:"id"`
	Title            string                 `json:"title"`
	Requester        model.PersonRef        `json:"requester"`
	Team             *TeamRef               `json:"team"`
	Department       *DepartmentRef         `json:"department"`
	Destination      string                 `json:"destination"`
	Purpose          string                 `json:"purpose"`
	TravelType       string                 `json:"travel_type"`
	DepartureDate    string                 `json:"departure_date"`
	ReturnDate       string                 `json:"return_date"`
	EstimatedAirfare string                 `json:"estimated_airfare"`
	EstimatedLodging string                 `json:"estimated_lodging"`
	EstimatedOther   string                 `json:"estimated_other"`
	TotalCost        string                 `json:"total_cost"`
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

type TravelService interface {
	Create(ctx context.Context, actor Actor, in TravelRequestInput, files []FileUpload) (*TravelRequestResponse, error)
	Update(ctx context.Context, actor Actor, id uint, in TravelRequestInput, files []FileUpload) (*TravelRequestResponse, error)
	Get(ctx context.Context, id uint) (*TravelRequestResponse, error)
	List(ctx context.Context, q RequestListQuery) ([]TravelRequestResponse, int64, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	AddAttachments(ctx context.Context, actor Actor, id uint, files []FileUpload) ([]AttachmentResponse, error)
	ListAttachments(ctx context.Context, id uint) ([]AttachmentResponse, error)
	OpenAttachment(ctx context.Context, id, attachmentID uint) (*AttachmentResponse, []byte, error)
}

type travelService struct {
	requestFlow
	repo        repository.RequestRepository[model.TravelRequest]
	teams       repository.TeamRepository
	departments repository.DepartmentRepository
}

func NewTravelService(repo repository.RequestRepository[model.TravelRequest], deps RequestServiceDeps) TravelService {
	s := &travelService{
		requestFlow: newRequestFlow(model.DomainTravel, deps),
		repo:        repo,
		teams:       deps.Teams,
		departments: deps.Departments,
	}
	deps.Submissions.register(model.DomainTravel, s, deps.Workflow, s.attachments)
	return s
}

// --- Implementation ---

func (s *travelService) Create(ctx context.Context, actor Actor, in TravelRequestInput, files []FileUpload) (*TravelRequestResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.submit(ctx, actor, 0, in, files)
}

func (s *travelService) Update(ctx context.Context, actor Actor, id uint, in TravelRequestInput, files []FileUpload) (*TravelRequestResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("travel request not found", err)
	}
	if !req.IsOwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: only the requester may edit this request", ErrForbidden)
	}
	if err := checkTransition(req.Status, targetStatus(in.Submit)); err != nil {
		return nil, err
	}
	return s.submit(ctx, actor, id, in, files)
}

func (s *travelService) submit(ctx context.Context, actor Actor, id uint, in TravelRequestInput, files []FileUpload) (*TravelRequestResponse, error) {
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

// resolveTeam uses the given team, or the team the requester belongs to.
// A request without a team can be drafted but not submitted.
func (s *travelService) resolveTeam(ctx context.Context, teamID *uint, requesterID uint, status string) (*uint, error) {
	if teamID != nil {
		if _, err := s.teams.FindByID(ctx, *teamID); err != nil {
			return nil, storeErr("team not found", err)
		}
		return teamID, nil
	}
	id, err := s.teams.FindTeamIDForUser(ctx, requesterID)
	if err == nil {
		return &id, nil
	}
	if !repository.IsNotFound(err) {
		return nil, storeErr("failed to look up team membership", err)
	}
	if status == model.RequestStatusInProgress {
		return nil, validationErr("requester does not belong to a team")
	}
	return nil, nil
}

func (s *travelService) saveRequest(ctx context.Context, run *model.SubmissionRun) (uint, error) {
	var in TravelRequestInput
	if err := json.Unmarshal(run.State.Data().Payload, &in); err != nil {
		return 0, fmt.Errorf("failed to decode travel submission: %w", err)
	}
	if err := in.validate(); err != nil {
		return 0, err
	}
	if in.DepartmentID != nil {
		if _, err := s.departments.FindByID(ctx, *in.DepartmentID); err != nil {
			return 0, storeErr("department not found", err)
		}
	}
	requesterID, err := s.resolveRequester(ctx, run.UserID, in.RequesterID)
	if err != nil {
		return 0, err
	}
	status := targetStatus(in.Submit)
	teamID, err := s.resolveTeam(ctx, in.TeamID, requesterID, status)
	if err != nil {
		return 0, err
	}

	if run.RequestID == 0 {
		req := &model.TravelRequest{
			CreatedByID:   run.UserID,
			RequestedDate: requestedDateOrNow(in.RequestedDate),
			Version:       1,
		}
		applyTravelInput(req, in, requesterID, teamID, status)
		if err := s.repo.Create(ctx, req); err != nil {
			return 0, storeErr("failed to create travel request", err)
		}
		return req.ID, s.audit.record(ctx, run.UserID, s.domain, submitAction(status, true), req.ID, req.Title, map[string]interface{}{
			"status":      status,
			"destination": req.Destination,
			"total_cost":  req.TotalCost.String(),
		})
	}

	req, err := s.repo.FindByID(ctx, run.RequestID)
	if err != nil {
		return 0, storeErr("travel request not found", err)
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
	applyTravelInput(req, in, requesterID, teamID, status)
	if in.RequestedDate != nil {
		req.RequestedDate = *in.RequestedDate
	}
	req.Version = expected + 1
	if err := s.repo.Update(ctx, req, expected); err != nil {
		return 0, storeErr("failed to update travel request", err)
	}
	return req.ID, s.audit.record(ctx, run.UserID, s.domain, submitAction(status, false), req.ID, req.Title, map[string]interface{}{
		"from": prevStatus,
		"to":   status,
	})
}

func (s *travelService) chainSource(ctx context.Context, requestID uint) (string, []model.RosterEntry, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return "", nil, storeErr("travel request not found", err)
	}
	if req.TeamID == nil {
		return req.Status, nil, nil
	}
	roster, err := s.rosters.ListByScope(ctx, model.RosterScopeFor(s.domain), *req.TeamID)
	if err != nil {
		return "", nil, storeErr("failed to read team roster", err)
	}
	return req.Status, roster, nil
}

func applyTravelInput(req *model.TravelRequest, in TravelRequestInput, requesterID uint, teamID *uint, status string) {
	req.Title = strings.TrimSpace(in.Title)
	req.RequesterID = requesterID
	req.TeamID = teamID
	req.DepartmentID = in.DepartmentID
	req.Destination = strings.TrimSpace(in.Destination)
	req.Purpose = in.Purpose
	req.TravelType = in.TravelType
	req.DepartureDate = in.DepartureDate
	req.ReturnDate = in.ReturnDate
	req.EstimatedAirfare = in.EstimatedAirfare
	req.EstimatedLodging = in.EstimatedLodging
	req.EstimatedOther = in.EstimatedOther
	req.TotalCost = in.EstimatedAirfare.Add(in.EstimatedLodging).Add(in.EstimatedOther)
	req.EmergencyRelated = in.EmergencyRelated
	req.Status = status
}

func (s *travelService) Get(ctx context.Context, id uint) (*TravelRequestResponse, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("travel request not found", err)
	}
	res := toTravelResponse(req)
	if res.Approvals, err = s.workflow.ChainFor(ctx, id); err != nil {
		return nil, err
	}
	if res.Attachments, err = s.attachments.list(ctx, id); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *travelService) List(ctx context.Context, q RequestListQuery) ([]TravelRequestResponse, int64, error) {
	page, limit := q.pageAndLimit()
	items, total, err := s.repo.List(ctx, q.filter(), page, limit)
	if err != nil {
		s.logger.Error("Failed to list travel requests", zap.Error(err))
		return nil, 0, storeErr("failed to list travel requests", err)
	}
	res := make([]TravelRequestResponse, 0, len(items))
	for i := range items {
		res = append(res, toTravelResponse(&items[i]))
	}
	return res, total, nil
}

func (s *travelService) Delete(ctx context.Context, actor Actor, id uint) error {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeErr("travel request not found", err)
	}
	if err := s.canDelete(actor, req.IsOwnedBy(actor.UserID), req.Status); err != nil {
		return err
	}
	return s.removeRequest(ctx, actor, id, req.Title, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

func (s *travelService) AddAttachments(ctx context.Context, actor Actor, id uint, files []FileUpload) ([]AttachmentResponse, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("travel request not found", err)
	}
	if err := s.canAttach(actor, req.IsOwnedBy(actor.UserID)); err != nil {
		return nil, err
	}
	return s.addAttachments(ctx, actor, id, req.Title, files)
}

func (s *travelService) ListAttachments(ctx context.Context, id uint) ([]AttachmentResponse, error) {
	return s.attachments.list(ctx, id)
}

func (s *travelService) OpenAttachment(ctx context.Context, id, attachmentID uint) (*AttachmentResponse, []byte, error) {
	att, content, err := s.attachments.open(ctx, id, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	res := toAttachmentResponse(*att)
	return &res, content, nil
}

func toTravelResponse(req *model.TravelRequest) TravelRequestResponse {
	res := TravelRequestResponse{
		ID:               req.ID,
		Title:            req.Title,
		Requester:        req.Requester.Ref(req.RequesterID),
		Destination:      req.Destination,
		Purpose:          req.Purpose,
		TravelType:       req.TravelType,
		DepartureDate:    req.DepartureDate.Format(time.RFC3339),
		ReturnDate:       req.ReturnDate.Format(time.RFC3339),
		EstimatedAirfare: req.EstimatedAirfare.StringFixed(2),
		EstimatedLodging: req.EstimatedLodging.StringFixed(2),
		EstimatedOther:   req.EstimatedOther.StringFixed(2),
		TotalCost:        req.TotalCost.StringFixed(2),
		EmergencyRelated: req.EmergencyRelated,
		Status:           req.Status,
		Version:          req.Version,
		CreatedBy:        req.CreatedBy.Ref(req.CreatedByID),
		RequestedDate:    req.RequestedDate.Format(time.RFC3339),
		CreatedAt:        req.CreatedAt.Format(time.RFC3339),
	}
	if req.TeamID != nil {
		res.Team = &TeamRef{ID: *req.TeamID}
		if req.Team != nil {
			res.Team.Name = req.Team.Name
		}
	}
	if req.DepartmentID != nil {
		res.Department = &DepartmentRef{ID: *req.DepartmentID}
		if req.Department != nil {
			res.Department.Name = req.Department.Name
		}
	}
	return res
}
