package model

// StatusCount is one row of a GROUP BY status aggregate
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DomainSummary aggregates one domain's numbers for a single user
type DomainSummary struct {
	Domain            Domain           `json:"domain"`
	MyRequests        map[string]int64 `json:"my_requests"`
	AwaitingMyTurn    int              `json:"awaiting_my_turn"`
	OpenQuestionsToMe int64            `json:"open_questions_to_me"`
}

// DashboardResponse is the per-user landing page summary
type DashboardResponse struct {
	UserID  uint            `json:"user_id"`
	Domains []DomainSummary `json:"domains"`
}
