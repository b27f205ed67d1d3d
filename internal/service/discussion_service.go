package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"

	"go.uber.org/zap"
)

type RaiseQuestionRequest struct {
	Question    string `json:"question" binding:"required"`
	RecipientID uint   `json:"recipient_id" binding:"required"`
}

type AnswerQuestionRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type DiscussionResponse struct {
	ID         uint             `json:"id"`
	RequestID  uint             `json:"request_id"`
	Question   string           `json:"question"`
	RaisedBy   model.PersonRef  `json:"raised_by"`
	RaisedOn   string           `json:"raised_on"`
	Recipient  model.PersonRef  `json:"recipient"`
	Answer     *string          `json:"answer"`
	AnsweredBy *model.PersonRef `json:"answered_by"`
	AnsweredOn *string          `json:"answered_on"`
}

// DiscussionService is the question and answer thread attached to requests.
// It is independent of the approval chain.
type DiscussionService interface {
	RaiseQuestion(ctx context.Context, domain model.Domain, requestID uint, question string, raisedBy, recipientID uint) (*DiscussionResponse, error)
	// Answer overwrites any previous answer.
	Answer(ctx context.Context, domain model.Domain, discussionID uint, answer string, answeredBy uint, answeredAt time.Time) (*DiscussionResponse, error)
	OpenQuestionsFor(ctx context.Context, domain model.Domain, personID uint) ([]DiscussionResponse, error)
	ByRequest(ctx context.Context, domain model.Domain, requestID uint) ([]DiscussionResponse, error)
}

type discussionScope struct {
	discussions repository.DiscussionRepository
	requests    repository.RequestStateRepository
}

type discussionService struct {
	scopes map[model.Domain]discussionScope
	users  repository.UserRepository
	tx     repository.TransactionManager
	audit  auditRecorder
	events EventPublisher
	logger *zap.Logger
}

// DiscussionScope wires one domain's discussion and request tables into the service
type DiscussionScope struct {
	Domain      model.Domain
	Discussions repository.DiscussionRepository
	Requests    repository.RequestStateRepository
}

func NewDiscussionService(
	scopes []DiscussionScope,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
	tx repository.TransactionManager,
	events EventPublisher,
	logger *zap.Logger,
) DiscussionService {
	s := &discussionService{
		scopes: make(map[model.Domain]discussionScope, len(scopes)),
		users:  users,
		tx:     tx,
		audit:  auditRecorder{repo: auditRepo},
		events: publisherOrNop(events),
		logger: logger,
	}
	for _, sc := range scopes {
		s.scopes[sc.Domain] = discussionScope{discussions: sc.Discussions, requests: sc.Requests}
	}
	return s
}

func (s *discussionService) scope(domain model.Domain) (discussionScope, error) {
	sc, ok := s.scopes[domain]
	if !ok {
		return discussionScope{}, validationErr("unknown domain %q", domain)
	}
	return sc, nil
}

func (s *discussionService) RaiseQuestion(ctx context.Context, domain model.Domain, requestID uint, question string, raisedBy, recipientID uint) (*DiscussionResponse, error) {
	sc, err := s.scope(domain)
	if err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, validationErr("question is required")
	}
	if _, err := sc.requests.FindState(ctx, requestID); err != nil {
		return nil, storeErr("request not found", err)
	}
	if _, err := s.users.GetByID(ctx, recipientID); err != nil {
		return nil, storeErr("recipient not found", err)
	}

	d := &model.Discussion{
		RequestID:   requestID,
		Question:    question,
		RaisedByID:  raisedBy,
		RaisedOn:    time.Now(),
		RecipientID: recipientID,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := sc.discussions.Create(txCtx, d); err != nil {
			return storeErr("failed to raise question", err)
		}
		return s.audit.record(txCtx, raisedBy, domain, model.ActionRaiseQuestion, requestID, "", map[string]interface{}{
			"discussion_id": d.ID,
			"recipient_id":  recipientID,
		})
	})
	if err != nil {
		s.logger.Error("Failed to raise question", zap.String("domain", string(domain)), zap.Uint("request_id", requestID), zap.Error(err))
		return nil, err
	}

	res, err := s.load(ctx, sc, d.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(model.Event{
		Type:      model.EventQuestionRaised,
		Domain:    domain,
		RequestID: requestID,
		UserID:    recipientID,
		Payload:   res,
	})
	return res, nil
}

func (s *discussionService) Answer(ctx context.Context, domain model.Domain, discussionID uint, answer string, answeredBy uint, answeredAt time.Time) (*DiscussionResponse, error) {
	sc, err := s.scope(domain)
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, validationErr("answer is required")
	}
	if answeredAt.IsZero() {
		answeredAt = time.Now()
	}

	var requestID uint
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := sc.discussions.FindByID(txCtx, discussionID)
		if err != nil {
			return storeErr("discussion not found", err)
		}
		requestID = current.RequestID
		if err := sc.discussions.SetAnswer(txCtx, discussionID, answer, answeredBy, answeredAt); err != nil {
			return storeErr("failed to answer question", err)
		}
		return s.audit.record(txCtx, answeredBy, domain, model.ActionAnswerQuestion, current.RequestID, "", map[string]interface{}{
			"discussion_id": discussionID,
			"re_answered":   !current.IsOpen(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to answer question", zap.String("domain", string(domain)), zap.Uint("discussion_id", discussionID), zap.Error(err))
		return nil, err
	}

	res, err := s.load(ctx, sc, discussionID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(model.Event{
		Type:      model.EventQuestionAnswered,
		Domain:    domain,
		RequestID: requestID,
		UserID:    res.RaisedBy.ID,
		Payload:   res,
	})
	return res, nil
}

func (s *discussionService) OpenQuestionsFor(ctx context.Context, domain model.Domain, personID uint) ([]DiscussionResponse, error) {
	sc, err := s.scope(domain)
	if err != nil {
		return nil, err
	}
	items, err := sc.discussions.ListOpenForRecipient(ctx, personID)
	if err != nil {
		return nil, storeErr("failed to list open questions", err)
	}
	return toDiscussionResponses(items), nil
}

func (s *discussionService) ByRequest(ctx context.Context, domain model.Domain, requestID uint) ([]DiscussionResponse, error) {
	sc, err := s.scope(domain)
	if err != nil {
		return nil, err
	}
	items, err := sc.discussions.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("failed to list discussions", err)
	}
	return toDiscussionResponses(items), nil
}

func (s *discussionService) load(ctx context.Context, sc discussionScope, id uint) (*DiscussionResponse, error) {
	d, err := sc.discussions.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("discussion %d not found", id), err)
	}
	res := toDiscussionResponse(*d)
	return &res, nil
}

func toDiscussionResponses(items []model.Discussion) []DiscussionResponse {
	res := make([]DiscussionResponse, 0, len(items))
	for _, d := range items {
		res = append(res, toDiscussionResponse(d))
	}
	return res
}

func toDiscussionResponse(d model.Discussion) DiscussionResponse {
	res := DiscussionResponse{
		ID:        d.ID,
		RequestID: d.RequestID,
		Question:  d.Question,
		RaisedBy:  d.RaisedBy.Ref(d.RaisedByID),
		RaisedOn:  d.RaisedOn.Format(time.RFC3339),
		Recipient: d.Recipient.Ref(d.RecipientID),
		Answer:    d.Answer,
	}
	if d.AnsweredByID != nil {
		ref := d.AnsweredBy.Ref(*d.AnsweredByID)
		res.AnsweredBy = &ref
	}
	if d.AnsweredOn != nil {
		on := d.AnsweredOn.Format(time.RFC3339)
		res.AnsweredOn = &on
	}
	return res
}
