// Package notify delivers supervisor alerts and caller follow-ups.
//
// Delivery is fire-and-forget from the lifecycle's perspective: a failed
// notification is logged and swallowed, never rolled back into request
// state. The NATS notifier fans events out to interested consumers (SMS
// bridges, dashboards, pagers); the console notifier mirrors the
// simulated channel used in development.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Notifier is the outbound notification contract consumed by the
// help-request lifecycle.
type Notifier interface {
	// NotifySupervisor alerts a supervisor about a new help request.
	NotifySupervisor(ctx context.Context, message, requestID string) error

	// NotifyCaller sends a follow-up message to the caller's contact
	// address.
	NotifyCaller(ctx context.Context, contact, message string) error
}

// ConsoleNotifier logs notifications instead of delivering them. Used
// when no NATS URL is configured.
type ConsoleNotifier struct {
	logger *zap.Logger
}

// NewConsoleNotifier creates a log-only notifier.
func NewConsoleNotifier(logger *zap.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) NotifySupervisor(ctx context.Context, message, requestID string) error {
	n.logger.Info("supervisor notification",
		zap.String("request_id", requestID),
		zap.String("message", message),
	)
	return nil
}

func (n *ConsoleNotifier) NotifyCaller(ctx context.Context, contact, message string) error {
	n.logger.Info("caller follow-up",
		zap.String("contact", contact),
		zap.String("message", message),
	)
	return nil
}

// Recorded is a captured notification, used by MemoryNotifier.
type Recorded struct {
	Kind      string // "supervisor" or "caller"
	RequestID string
	Contact   string
	Message   string
}

// MemoryNotifier records notifications in memory. Test double.
type MemoryNotifier struct {
	mu       sync.Mutex
	recorded []Recorded
}

// NewMemoryNotifier creates an in-memory recording notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) NotifySupervisor(ctx context.Context, message, requestID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recorded = append(n.recorded, Recorded{Kind: "supervisor", RequestID: requestID, Message: message})
	return nil
}

func (n *MemoryNotifier) NotifyCaller(ctx context.Context, contact, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recorded = append(n.recorded, Recorded{Kind: "caller", Contact: contact, Message: message})
	return nil
}

// Recorded returns a copy of all captured notifications.
func (n *MemoryNotifier) Recorded() []Recorded {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Recorded, len(n.recorded))
	copy(out, n.recorded)
	return out
}
