// Package oracle is the boundary to the language model that decides
// whether the agent can answer a question confidently and generates
// free-text replies. The model is a black box; this package owns the
// prompt surfaces and the strict verdict parser.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable signals that the oracle could not produce a usable
// verdict. Callers treat it as "escalate to a human" (fail-safe).
var ErrUnavailable = errors.New("oracle unavailable")

// Verdict is the oracle's binary judgment of a question.
type Verdict int

const (
	// VerdictUnknown is the zero value; never a valid parse result.
	VerdictUnknown Verdict = iota
	// VerdictAnswerable means the agent can answer confidently.
	VerdictAnswerable
	// VerdictEscalate means the question needs a human supervisor.
	VerdictEscalate
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictAnswerable:
		return "answerable"
	case VerdictEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Conversation roles used in turn history.
const (
	RoleCaller = "caller"
	RoleAgent  = "agent"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role string
	Text string
}

// Client is the oracle contract consumed by the conversation session.
type Client interface {
	// Classify returns the oracle's verdict on whether the question can
	// be answered confidently given the system context.
	Classify(ctx context.Context, systemContext, question string) (Verdict, error)

	// Generate produces a free-text agent reply from the system context
	// and turn history.
	Generate(ctx context.Context, systemContext string, history []Turn) (string, error)
}

// ParseVerdict maps a raw model token to a Verdict. Only the exact
// tokens YES and NO (after trimming whitespace and trailing punctuation)
// are accepted; anything else is rejected as ErrUnavailable rather than
// silently defaulted.
func ParseVerdict(raw string) (Verdict, error) {
	token := strings.ToUpper(strings.Trim(strings.TrimSpace(raw), ".,!\"'"))
	switch token {
	case "YES":
		return VerdictAnswerable, nil
	case "NO":
		return VerdictEscalate, nil
	default:
		return VerdictUnknown, fmt.Errorf("unrecognized verdict token %q: %w", raw, ErrUnavailable)
	}
}
