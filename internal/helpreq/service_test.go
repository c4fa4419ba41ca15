package helpreq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/knowledge"
	"github.com/fyrsmithlabs/frontdeskd/internal/notify"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

type fixture struct {
	store    store.Store
	index    *knowledge.Index
	notifier *notify.MemoryNotifier
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(store.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := knowledge.NewIndex(nil, st, zap.NewNop())
	require.NoError(t, err)

	notifier := notify.NewMemoryNotifier()

	svc, err := NewService(st, idx, notifier, zap.NewNop())
	require.NoError(t, err)

	return &fixture{store: st, index: idx, notifier: notifier, service: svc}
}

func supervisorAlerts(recorded []notify.Recorded) []notify.Recorded {
	var out []notify.Recorded
	for _, r := range recorded {
		if r.Kind == "supervisor" {
			out = append(out, r)
		}
	}
	return out
}

func callerFollowUps(recorded []notify.Recorded) []notify.Recorded {
	var out []notify.Recorded
	for _, r := range recorded {
		if r.Kind == "caller" {
			out = append(out, r)
		}
	}
	return out
}

func TestCreatePersistsThenNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.Create(ctx, "call-1", "+1-555-0001", "Do you do weddings?", "caller: hi")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	req, err := f.store.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, req.Status)
	assert.Equal(t, "Do you do weddings?", req.Question)
	assert.Equal(t, "caller: hi", req.Context)

	alerts := supervisorAlerts(f.notifier.Recorded())
	require.Len(t, alerts, 1)
	assert.Equal(t, id, alerts[0].RequestID)
	assert.Contains(t, alerts[0].Message, "Do you do weddings?")
	assert.Contains(t, alerts[0].Message, "+1-555-0001")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), "call-1", "+1-555-0001", "   ", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.service.Create(context.Background(), "", "+1-555-0001", "question", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveLearnsAndNotifiesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.Create(ctx, "call-1", "+1-555-0001", "do you do weddings", "")
	require.NoError(t, err)

	ok, err := f.service.Resolve(ctx, id, "Yes, ask for a quote", "Dana")
	require.NoError(t, err)
	assert.True(t, ok)

	// The learned entry is immediately searchable.
	entry, err := f.index.Search(ctx, "do you do weddings")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Yes, ask for a quote", entry.Answer)
	assert.Equal(t, id, entry.HelpRequestID)

	followUps := callerFollowUps(f.notifier.Recorded())
	require.Len(t, followUps, 1)
	assert.Equal(t, "+1-555-0001", followUps[0].Contact)
	assert.Contains(t, followUps[0].Message, "Yes, ask for a quote")

	// Second resolve: idempotent-false, no duplicate learning or follow-up.
	ok, err = f.service.Resolve(ctx, id, "another answer", "Dana")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, ok)

	entries, err := f.store.ListAllKnowledge(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, callerFollowUps(f.notifier.Recorded()), 1)
}

func TestResolveUnknownRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.service.Resolve(ctx, "nonexistent-id", "answer", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, ok)

	entries, err := f.store.ListAllKnowledge(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, callerFollowUps(f.notifier.Recorded()))
}

func TestResolveEmptyAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.Create(ctx, "call-1", "+1-555-0001", "question", "")
	require.NoError(t, err)

	ok, err := f.service.Resolve(ctx, id, "  ", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, ok)

	req, err := f.store.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, req.Status)
}

func TestResolveDefaultsResolverName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.service.Create(ctx, "call-1", "+1-555-0001", "question", "")
	require.NoError(t, err)

	ok, err := f.service.Resolve(ctx, id, "answer", "")
	require.NoError(t, err)
	require.True(t, ok)

	req, err := f.store.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, DefaultResolverName, req.ResolverName)
}

func TestTimeoutStaleOnlyAffectsOldPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	staleID, err := f.store.CreateHelpRequest(ctx, &store.HelpRequest{
		CallerID:      "call-1",
		CallerContact: "+1-555-0001",
		Question:      "old question",
		CreatedAt:     time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	freshID, err := f.service.Create(ctx, "call-2", "+1-555-0002", "fresh question", "")
	require.NoError(t, err)

	resolvedID, err := f.store.CreateHelpRequest(ctx, &store.HelpRequest{
		CallerID:      "call-3",
		CallerContact: "+1-555-0003",
		Question:      "old but answered",
		CreatedAt:     time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	ok, err := f.service.Resolve(ctx, resolvedID, "answer", "")
	require.NoError(t, err)
	require.True(t, ok)

	count, err := f.service.TimeoutStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stale, err := f.store.GetHelpRequest(ctx, staleID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusTimeout, stale.Status)

	fresh, err := f.store.GetHelpRequest(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, fresh.Status)

	resolved, err := f.store.GetHelpRequest(ctx, resolvedID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusResolved, resolved.Status)

	// Re-running the sweep is a no-op.
	count, err = f.service.TimeoutStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStatsEmpty(t *testing.T) {
	f := newFixture(t)

	stats, err := f.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.ResolutionRatePct)
	assert.Zero(t, stats.AvgResolutionMinutes)
}

func TestStatsAggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One resolved (created an hour ago), one pending, one timed out.
	oldID, err := f.store.CreateHelpRequest(ctx, &store.HelpRequest{
		CallerID:      "call-1",
		CallerContact: "+1-555-0001",
		Question:      "q1",
		CreatedAt:     time.Now().UTC().Add(-60 * time.Minute),
	})
	require.NoError(t, err)
	ok, err := f.service.Resolve(ctx, oldID, "a1", "")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.service.Create(ctx, "call-2", "+1-555-0002", "q2", "")
	require.NoError(t, err)

	staleID, err := f.store.CreateHelpRequest(ctx, &store.HelpRequest{
		CallerID:      "call-3",
		CallerContact: "+1-555-0003",
		Question:      "q3",
		CreatedAt:     time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	ok, err = f.store.UpdateHelpRequestTimeout(ctx, staleID)
	require.NoError(t, err)
	require.True(t, ok)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.Timeout)
	assert.InDelta(t, 33.3, stats.ResolutionRatePct, 0.001)
	assert.InDelta(t, 60.0, stats.AvgResolutionMinutes, 0.2)
}
