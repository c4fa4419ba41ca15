package store

import "time"

// RequestStatus is the lifecycle state of a help request.
type RequestStatus string

const (
	// StatusPending means the request is waiting for a supervisor.
	StatusPending RequestStatus = "pending"
	// StatusResolved means a supervisor answered the request. Terminal.
	StatusResolved RequestStatus = "resolved"
	// StatusTimeout means the request aged out unanswered. Terminal.
	StatusTimeout RequestStatus = "timeout"
)

// Knowledge entry sources.
const (
	SourceSupervisor = "supervisor"
	SourceSeed       = "seed"
)

// HelpRequest is a question escalated from the agent to a human supervisor.
type HelpRequest struct {
	ID            string        `json:"id"`
	CallerID      string        `json:"caller_id"`
	CallerContact string        `json:"caller_contact"`
	Question      string        `json:"question"`
	Context       string        `json:"context,omitempty"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
	Answer        string        `json:"supervisor_answer,omitempty"`
	ResolverName  string        `json:"supervisor_name,omitempty"`
}

// KnowledgeEntry is a reusable Q&A pair learned from a supervisor or seeded.
type KnowledgeEntry struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Source        string    `json:"source"`
	HelpRequestID string    `json:"help_request_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UsageCount    int64     `json:"usage_count"`
}

// CallLog records a single conversation with a caller.
type CallLog struct {
	ID            string     `json:"id"`
	CallerID      string     `json:"caller_id"`
	CallerContact string     `json:"caller_contact"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	HelpRequests  []string   `json:"help_requests,omitempty"`
	ResolvedByAI  bool       `json:"resolved_by_ai"`
}
