// Package session orchestrates a single call: it consumes an ordered
// stream of typed conversation events, answers from the knowledge index
// when it can, and escalates to a human supervisor when it cannot.
//
// One session runs per active call. Events are consumed by a single
// blocking-receive loop, so per-call ordering and at-most-once handling
// fall out of the channel semantics rather than handler registration.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/helpreq"
	"github.com/fyrsmithlabs/frontdeskd/internal/knowledge"
	"github.com/fyrsmithlabs/frontdeskd/internal/oracle"
	"github.com/fyrsmithlabs/frontdeskd/internal/prompts"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/frontdeskd/internal/session"

// Defaults for session behavior.
const (
	DefaultContextWindow = 5
	DefaultMaxDuration   = time.Hour
	promptContextLimit   = 10
)

// fallbackApology is spoken when even escalation fails; the caller
// still gets an immediate acknowledgment.
const fallbackApology = "I'm sorry, I'm having trouble on my end right now. Please call us back in a few minutes."

// Event is one typed conversation event delivered by the agent runtime.
type Event struct {
	Role string // oracle.RoleCaller or oracle.RoleAgent
	Text string
}

// ReplyFunc delivers an agent reply back to the runtime (which speaks
// it to the caller).
type ReplyFunc func(ctx context.Context, text string) error

// Config configures one conversation session.
type Config struct {
	// CallerID identifies the caller (runtime participant identity).
	CallerID string

	// CallerContact is the address follow-ups are sent to.
	CallerContact string

	// Business carries the static facts rendered into every prompt.
	Business prompts.BusinessInfo

	// ContextWindow is how many trailing turns accompany an escalation
	// (default: 5).
	ContextWindow int

	// MaxDuration is the wall-clock cap on the whole call (default: 1h).
	// Teardown never auto-resolves pending help requests; they outlive
	// the call by design.
	MaxDuration time.Duration
}

// Session ties one call's event stream to knowledge lookups and the
// help-request lifecycle.
type Session struct {
	config    Config
	store     store.Store
	index     *knowledge.Index
	oracle    oracle.Client
	lifecycle *helpreq.Service
	reply     ReplyFunc
	logger    *zap.Logger

	callID string
	turns  []oracle.Turn

	tracer            trace.Tracer
	meter             metric.Meter
	answeredCounter   metric.Int64Counter
	escalationCounter metric.Int64Counter
}

// New creates a session. The call log is persisted when Run starts.
func New(cfg Config, st store.Store, idx *knowledge.Index, oc oracle.Client, lifecycle *helpreq.Service, reply ReplyFunc, logger *zap.Logger) (*Session, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if idx == nil {
		return nil, errors.New("knowledge index is required")
	}
	if oc == nil {
		return nil, errors.New("oracle client is required")
	}
	if lifecycle == nil {
		return nil, errors.New("lifecycle service is required")
	}
	if cfg.CallerID == "" || cfg.CallerContact == "" {
		return nil, errors.New("caller id and contact are required")
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		config:    cfg,
		store:     st,
		index:     idx,
		oracle:    oc,
		lifecycle: lifecycle,
		reply:     reply,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	s.initMetrics()

	return s, nil
}

func (s *Session) initMetrics() {
	var err error

	s.answeredCounter, err = s.meter.Int64Counter(
		"frontdeskd.session.answered_from_knowledge_total",
		metric.WithDescription("Utterances answered directly from the knowledge index"),
		metric.WithUnit("{utterance}"),
	)
	if err != nil {
		s.logger.Warn("failed to create answered counter", zap.Error(err))
	}

	s.escalationCounter, err = s.meter.Int64Counter(
		"frontdeskd.session.escalations_total",
		metric.WithDescription("Utterances escalated to a supervisor"),
		metric.WithUnit("{utterance}"),
	)
	if err != nil {
		s.logger.Warn("failed to create escalation counter", zap.Error(err))
	}
}

// CallID returns the persisted call log ID. Empty before Run starts.
func (s *Session) CallID() string {
	return s.callID
}

// Run consumes events until the channel closes or the wall-clock cap
// expires, then stamps the call's end time. It must be called once.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.MaxDuration)
	defer cancel()

	callID, err := s.store.CreateCallLog(ctx, &store.CallLog{
		CallerID:      s.config.CallerID,
		CallerContact: s.config.CallerContact,
		ResolvedByAI:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to create call log: %w", err)
	}
	s.callID = callID
	defer s.end()

	s.logger.Info("call started",
		zap.String("call_id", callID),
		zap.String("caller", s.config.CallerContact),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("call torn down",
				zap.String("call_id", callID),
				zap.NamedError("reason", ctx.Err()),
			)
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)
		}
	}
}

// end persists the call end timestamp. Runs under a fresh context
// because the run context may already be cancelled.
func (s *Session) end() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.EndCallLog(ctx, s.callID); err != nil {
		s.logger.Error("failed to end call log",
			zap.String("call_id", s.callID),
			zap.Error(err),
		)
	}
}

func (s *Session) handleEvent(ctx context.Context, ev Event) {
	if strings.TrimSpace(ev.Text) == "" {
		return
	}
	s.turns = append(s.turns, oracle.Turn{Role: ev.Role, Text: ev.Text})

	if ev.Role == oracle.RoleCaller {
		s.handleUtterance(ctx, ev.Text)
	}
}

// handleUtterance runs the lookup -> verdict -> escalate pipeline for
// one caller utterance.
func (s *Session) handleUtterance(ctx context.Context, text string) {
	ctx, span := s.tracer.Start(ctx, "session.utterance")
	defer span.End()

	entry, err := s.index.Search(ctx, text)
	if err != nil {
		// Lookup failure is not a miss, but it is handled like one.
		s.logger.Warn("knowledge lookup failed, continuing to oracle",
			zap.String("call_id", s.callID),
			zap.Error(err),
		)
	}
	if entry != nil {
		span.SetAttributes(attribute.String("outcome", "knowledge_hit"))
		if s.answeredCounter != nil {
			s.answeredCounter.Add(ctx, 1)
		}
		s.logger.Info("answered from knowledge",
			zap.String("call_id", s.callID),
			zap.String("entry_id", entry.ID),
		)
		s.sendReply(ctx, entry.Answer)
		return
	}

	systemContext := prompts.SystemPrompt(s.config.Business, s.index.PromptContext(promptContextLimit))

	verdict, err := s.oracle.Classify(ctx, systemContext, text)
	if err != nil {
		// Fail-safe: an unreachable or incoherent oracle hands the
		// question to a human rather than dropping it.
		s.logger.Warn("oracle classification failed, escalating",
			zap.String("call_id", s.callID),
			zap.Error(err),
		)
		span.SetAttributes(attribute.String("outcome", "escalated_failsafe"))
		s.escalate(ctx, text)
		return
	}

	if verdict == oracle.VerdictEscalate {
		span.SetAttributes(attribute.String("outcome", "escalated"))
		s.escalate(ctx, text)
		return
	}

	span.SetAttributes(attribute.String("outcome", "generated"))
	reply, err := s.oracle.Generate(ctx, systemContext, s.window())
	if err != nil {
		s.logger.Warn("generation failed, escalating",
			zap.String("call_id", s.callID),
			zap.Error(err),
		)
		s.escalate(ctx, text)
		return
	}
	s.sendReply(ctx, reply)
}

// escalate raises a help request carrying the trailing context window
// and promises the caller a follow-up.
func (s *Session) escalate(ctx context.Context, question string) {
	if s.escalationCounter != nil {
		s.escalationCounter.Add(ctx, 1)
	}

	id, err := s.lifecycle.Create(ctx, s.config.CallerID, s.config.CallerContact, question, s.renderWindow())
	if err != nil {
		s.logger.Error("failed to create help request",
			zap.String("call_id", s.callID),
			zap.Error(err),
		)
		s.sendReply(ctx, fallbackApology)
		return
	}

	if err := s.store.AppendCallHelpRequest(ctx, s.callID, id); err != nil {
		s.logger.Error("failed to link help request to call",
			zap.String("call_id", s.callID),
			zap.String("request_id", id),
			zap.Error(err),
		)
	}

	s.logger.Info("escalated to supervisor",
		zap.String("call_id", s.callID),
		zap.String("request_id", id),
		zap.String("question", question),
	)
	s.sendReply(ctx, prompts.EscalationPromise)
}

// sendReply delivers the agent's reply and records it as an agent turn
// so later generation sees the full exchange.
func (s *Session) sendReply(ctx context.Context, text string) {
	s.turns = append(s.turns, oracle.Turn{Role: oracle.RoleAgent, Text: text})
	if s.reply == nil {
		return
	}
	if err := s.reply(ctx, text); err != nil {
		s.logger.Warn("failed to deliver reply",
			zap.String("call_id", s.callID),
			zap.Error(err),
		)
	}
}

// window returns the trailing ContextWindow turns.
func (s *Session) window() []oracle.Turn {
	if len(s.turns) <= s.config.ContextWindow {
		return s.turns
	}
	return s.turns[len(s.turns)-s.config.ContextWindow:]
}

// renderWindow flattens the context window to "role: text" lines for
// the help-request record.
func (s *Session) renderWindow() string {
	window := s.window()
	lines := make([]string, 0, len(window))
	for _, turn := range window {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Text))
	}
	return strings.Join(lines, "\n")
}
