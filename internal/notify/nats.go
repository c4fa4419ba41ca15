package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATS subjects for notification fan-out. Caller follow-ups carry the
// sanitized contact address as the final token so SMS bridges can
// subscribe per destination.
const (
	SubjectSupervisor   = "frontdesk.notify.supervisor"
	subjectCallerPrefix = "frontdesk.notify.caller."
)

// SupervisorEvent is the payload published for new help requests.
type SupervisorEvent struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CallerEvent is the payload published for caller follow-ups.
type CallerEvent struct {
	Type      string    `json:"type"`
	Contact   string    `json:"contact"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSNotifier publishes notification events to NATS subjects.
type NATSNotifier struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSNotifier creates a notifier over an established NATS connection.
func NewNATSNotifier(conn *nats.Conn, logger *zap.Logger) (*NATSNotifier, error) {
	if conn == nil {
		return nil, errors.New("nats connection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSNotifier{conn: conn, logger: logger}, nil
}

func (n *NATSNotifier) NotifySupervisor(ctx context.Context, message, requestID string) error {
	event := SupervisorEvent{
		Type:      "supervisor_alert",
		RequestID: requestID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal supervisor event: %w", err)
	}

	if err := n.conn.Publish(SubjectSupervisor, data); err != nil {
		return fmt.Errorf("publish supervisor alert: %w", err)
	}

	n.logger.Debug("published supervisor alert",
		zap.String("subject", SubjectSupervisor),
		zap.String("request_id", requestID),
	)
	return nil
}

func (n *NATSNotifier) NotifyCaller(ctx context.Context, contact, message string) error {
	event := CallerEvent{
		Type:      "caller_followup",
		Contact:   contact,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal caller event: %w", err)
	}

	subject := CallerSubject(contact)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish caller follow-up: %w", err)
	}

	n.logger.Debug("published caller follow-up",
		zap.String("subject", subject),
		zap.String("contact", contact),
	)
	return nil
}

// CallerSubject returns the per-contact subject for follow-up events.
func CallerSubject(contact string) string {
	return subjectCallerPrefix + sanitizeToken(contact)
}

// sanitizeToken maps a contact address to a valid NATS subject token.
// NATS tokens cannot contain spaces, dots, or wildcards.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
