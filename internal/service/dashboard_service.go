package service

import (
	"context"

	"requestflow/internal/model"
	"requestflow/internal/repository"
)

// DashboardScope is one domain's view for the dashboard
type DashboardScope struct {
	Domain      model.Domain
	Requests    repository.RequestStateRepository
	Discussions repository.DiscussionRepository
	Workflow    WorkflowService
}

type DashboardService interface {
	Summary(ctx context.Context, userID uint) (*model.DashboardResponse, error)
}

type dashboardService struct {
	scopes []DashboardScope
}

func NewDashboardService(scopes ...DashboardScope) DashboardService {
	return &dashboardService{scopes: scopes}
}

// Summary counts the user's own requests by status, the approvals waiting on
// the user right now and the questions addressed to them, per domain.
func (s *dashboardService) Summary(ctx context.Context, userID uint) (*model.DashboardResponse, error) {
	res := &model.DashboardResponse{UserID: userID, Domains: make([]model.DomainSummary, 0, len(s.scopes))}
	for _, sc := range s.scopes {
		summary := model.DomainSummary{
			Domain: sc.Domain,
			MyRequests: map[string]int64{
				model.RequestStatusDraft:      0,
				model.RequestStatusInProgress: 0,
				model.RequestStatusApproved:   0,
				model.RequestStatusRejected:   0,
			},
		}

		counts, err := sc.Requests.CountByStatus(ctx, userID)
		if err != nil {
			return nil, storeErr("failed to count requests", err)
		}
		for _, c := range counts {
			summary.MyRequests[c.Status] = c.Count
		}

		pending, err := sc.Workflow.PendingApprovalsFor(ctx, userID)
		if err != nil {
			return nil, err
		}
		summary.AwaitingMyTurn = len(pending)

		if summary.OpenQuestionsToMe, err = sc.Discussions.CountOpenForRecipient(ctx, userID); err != nil {
			return nil, storeErr("failed to count open questions", err)
		}

		res.Domains = append(res.Domains, summary)
	}
	return res, nil
}
