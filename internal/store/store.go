package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract consumed by the escalation core.
type Store interface {
	// CreateHelpRequest persists a new request and returns its assigned ID.
	CreateHelpRequest(ctx context.Context, req *HelpRequest) (string, error)

	// GetHelpRequest retrieves a request by ID. Returns ErrNotFound if absent.
	GetHelpRequest(ctx context.Context, id string) (*HelpRequest, error)

	// ListPending returns all PENDING requests, newest first.
	ListPending(ctx context.Context) ([]*HelpRequest, error)

	// ListRecent returns up to limit requests, newest first.
	ListRecent(ctx context.Context, limit int) ([]*HelpRequest, error)

	// UpdateHelpRequestResolved transitions a request PENDING -> RESOLVED,
	// stamping the answer, resolver name, and resolution time. Returns false
	// without mutation if the request is absent or not PENDING.
	UpdateHelpRequestResolved(ctx context.Context, id, answer, resolver string) (bool, error)

	// UpdateHelpRequestTimeout transitions a request PENDING -> TIMEOUT,
	// stamping the resolution time only. Same conditional contract as
	// UpdateHelpRequestResolved.
	UpdateHelpRequestTimeout(ctx context.Context, id string) (bool, error)

	// CreateKnowledgeEntry persists a new entry and returns its assigned ID.
	CreateKnowledgeEntry(ctx context.Context, entry *KnowledgeEntry) (string, error)

	// ListAllKnowledge returns every knowledge entry, newest first.
	ListAllKnowledge(ctx context.Context) ([]*KnowledgeEntry, error)

	// IncrementKnowledgeUsage bumps an entry's usage count by one.
	IncrementKnowledgeUsage(ctx context.Context, id string) error

	// TextSearchKnowledge returns entries whose question or answer contains
	// the query (case-insensitive substring), ranked by usage count descending.
	TextSearchKnowledge(ctx context.Context, query string) ([]*KnowledgeEntry, error)

	// CreateCallLog persists a new call log and returns its assigned ID.
	CreateCallLog(ctx context.Context, call *CallLog) (string, error)

	// AppendCallHelpRequest links an escalated request to a call and marks
	// the call as not resolved by the agent alone.
	AppendCallHelpRequest(ctx context.Context, callID, requestID string) error

	// EndCallLog stamps the call's end time.
	EndCallLog(ctx context.Context, callID string) error

	// ListCallLogs returns up to limit call logs, newest first.
	ListCallLogs(ctx context.Context, limit int) ([]*CallLog, error)

	// Close releases underlying resources.
	Close() error
}
