package model

// Live event types pushed to connected clients
const (
	EventApprovalTurn     = "approval.turn"
	EventStatusChanged    = "request.status_changed"
	EventQuestionRaised   = "discussion.question"
	EventQuestionAnswered = "discussion.answer"
)

// Event is a notification addressed to one user. UserID 0 means everyone.
type Event struct {
	Type      string      `json:"type"`
	Domain    Domain      `json:"domain"`
	RequestID uint        `json:"request_id"`
	UserID    uint        `json:"user_id"`
	Payload   interface{} `json:"payload,omitempty"`
}
