package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/frontdeskd/internal/knowledge"

// DefaultSimilarityThreshold is the minimum token-set Jaccard score for
// a snapshot entry to count as a match.
const DefaultSimilarityThreshold = 0.6

// noKnowledgeSentinel is returned by PromptContext when nothing has been
// learned yet.
const noKnowledgeSentinel = "No learned knowledge yet."

// Config configures the knowledge index.
type Config struct {
	// SimilarityThreshold is the minimum Jaccard score for a snapshot hit
	// (default: 0.6).
	SimilarityThreshold float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{SimilarityThreshold: DefaultSimilarityThreshold}
}

// snapshot is an immutable view of all cached entries. Mutations copy and
// swap the whole slice so readers can never observe a torn collection.
type snapshot []*store.KnowledgeEntry

// Index answers similarity queries over learned knowledge.
type Index struct {
	config *Config
	store  store.Store
	logger *zap.Logger

	// snap is swapped atomically on Refresh and Learn. The mutex serializes
	// writers only; it is never held during store I/O.
	snap atomic.Pointer[snapshot]
	mu   sync.Mutex

	tracer        trace.Tracer
	meter         metric.Meter
	searchCounter metric.Int64Counter
	hitCounter    metric.Int64Counter
	learnCounter  metric.Int64Counter
}

// NewIndex creates a knowledge index backed by st. The snapshot starts
// empty; call Refresh to load persisted entries.
func NewIndex(cfg *Config, st store.Store, logger *zap.Logger) (*Index, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &Index{
		config: cfg,
		store:  st,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	idx.snap.Store(&snapshot{})
	idx.initMetrics()

	return idx, nil
}

func (idx *Index) initMetrics() {
	var err error

	idx.searchCounter, err = idx.meter.Int64Counter(
		"frontdeskd.knowledge.searches_total",
		metric.WithDescription("Total number of knowledge lookups"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		idx.logger.Warn("failed to create search counter", zap.Error(err))
	}

	idx.hitCounter, err = idx.meter.Int64Counter(
		"frontdeskd.knowledge.hits_total",
		metric.WithDescription("Total number of knowledge lookup hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		idx.logger.Warn("failed to create hit counter", zap.Error(err))
	}

	idx.learnCounter, err = idx.meter.Int64Counter(
		"frontdeskd.knowledge.learned_total",
		metric.WithDescription("Total number of knowledge entries learned"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		idx.logger.Warn("failed to create learn counter", zap.Error(err))
	}
}

// Refresh reloads the full entry set from the store, replacing the
// snapshot atomically. Fails open: on error the previous snapshot stays
// active and the error is returned.
func (idx *Index) Refresh(ctx context.Context) error {
	ctx, span := idx.tracer.Start(ctx, "knowledge.refresh")
	defer span.End()

	entries, err := idx.store.ListAllKnowledge(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to refresh knowledge snapshot: %w", err)
	}

	snap := snapshot(entries)
	idx.mu.Lock()
	idx.snap.Store(&snap)
	idx.mu.Unlock()

	span.SetAttributes(attribute.Int("entry_count", len(entries)))
	idx.logger.Debug("knowledge snapshot refreshed", zap.Int("entries", len(entries)))
	return nil
}

// Search returns the best-known entry for question, or nil when nothing
// matches. Snapshot entries match on token-set similarity; on a snapshot
// miss the store is queried in substring mode. Every returned match has
// its usage count incremented exactly once, through the store.
func (idx *Index) Search(ctx context.Context, question string) (*store.KnowledgeEntry, error) {
	ctx, span := idx.tracer.Start(ctx, "knowledge.search")
	defer span.End()

	if idx.searchCounter != nil {
		idx.searchCounter.Add(ctx, 1)
	}

	queryTokens := tokenSet(question)

	// First match in snapshot order wins; deliberately not a ranking system.
	for _, entry := range *idx.snap.Load() {
		if jaccard(queryTokens, tokenSet(entry.Question)) >= idx.config.SimilarityThreshold {
			idx.recordHit(ctx, span, entry, "snapshot")
			return entry, nil
		}
	}

	// Snapshot miss: fall through to the store's substring search, ranked
	// by usage count descending.
	results, err := idx.store.TextSearchKnowledge(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("knowledge lookup failed: %w", err)
	}
	if len(results) == 0 {
		span.SetAttributes(attribute.Bool("hit", false))
		return nil, nil
	}

	best := results[0]
	idx.recordHit(ctx, span, best, "store")
	return best, nil
}

// recordHit increments the usage counter for a matched entry. A failed
// increment is logged but does not withhold the answer.
func (idx *Index) recordHit(ctx context.Context, span trace.Span, entry *store.KnowledgeEntry, source string) {
	span.SetAttributes(
		attribute.Bool("hit", true),
		attribute.String("hit_source", source),
		attribute.String("entry_id", entry.ID),
	)
	if idx.hitCounter != nil {
		idx.hitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}

	if err := idx.store.IncrementKnowledgeUsage(ctx, entry.ID); err != nil {
		idx.logger.Warn("failed to increment knowledge usage",
			zap.String("entry_id", entry.ID),
			zap.Error(err),
		)
	}
}

// Learn persists a new supervisor-taught entry and appends it to the
// snapshot. Always creates a fresh entry, even for near-duplicates.
func (idx *Index) Learn(ctx context.Context, question, answer, helpRequestID string) (string, error) {
	ctx, span := idx.tracer.Start(ctx, "knowledge.learn")
	defer span.End()

	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return "", errors.New("question and answer are required")
	}

	entry := &store.KnowledgeEntry{
		Question:      question,
		Answer:        answer,
		Source:        store.SourceSupervisor,
		HelpRequestID: helpRequestID,
	}

	id, err := idx.store.CreateKnowledgeEntry(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to persist knowledge entry: %w", err)
	}

	idx.mu.Lock()
	old := *idx.snap.Load()
	next := make(snapshot, len(old), len(old)+1)
	copy(next, old)
	next = append(next, entry)
	idx.snap.Store(&next)
	idx.mu.Unlock()

	if idx.learnCounter != nil {
		idx.learnCounter.Add(ctx, 1)
	}

	idx.logger.Info("learned new knowledge",
		zap.String("entry_id", id),
		zap.String("help_request_id", helpRequestID),
	)

	span.SetAttributes(attribute.String("entry_id", id))
	return id, nil
}

// Entries returns the current snapshot. Callers must not mutate the
// returned entries.
func (idx *Index) Entries() []*store.KnowledgeEntry {
	return *idx.snap.Load()
}

// Len returns the number of cached entries.
func (idx *Index) Len() int {
	return len(*idx.snap.Load())
}

// PromptContext renders the top entries by usage count as a text block
// for inclusion in a generation prompt. Pure projection, no side effects.
func (idx *Index) PromptContext(limit int) string {
	if limit <= 0 {
		limit = 10
	}

	snap := *idx.snap.Load()
	if len(snap) == 0 {
		return noKnowledgeSentinel
	}

	top := make([]*store.KnowledgeEntry, len(snap))
	copy(top, snap)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].UsageCount > top[j].UsageCount
	})
	if len(top) > limit {
		top = top[:limit]
	}

	var b strings.Builder
	b.WriteString("Learned Knowledge:\n")
	for _, entry := range top {
		fmt.Fprintf(&b, "Q: %s\n", entry.Question)
		fmt.Fprintf(&b, "A: %s\n\n", entry.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

// tokenSet lower-cases and whitespace-tokenizes s into a word set.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes intersection-over-union of two token sets.
// Empty sets never match.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
