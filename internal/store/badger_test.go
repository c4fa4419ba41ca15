package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetHelpRequest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateHelpRequest(ctx, &HelpRequest{
		CallerID:      "caller-1",
		CallerContact: "+1-555-0001",
		Question:      "Do you offer senior discounts?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	req, err := s.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, StatusPending, req.Status)
	assert.False(t, req.CreatedAt.IsZero())
	assert.Nil(t, req.ResolvedAt)
}

func TestGetHelpRequestNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetHelpRequest(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveIsConditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateHelpRequest(ctx, &HelpRequest{
		CallerID:      "caller-1",
		CallerContact: "+1-555-0001",
		Question:      "Do you do weddings?",
	})
	require.NoError(t, err)

	ok, err := s.UpdateHelpRequestResolved(ctx, id, "Yes, ask for a quote", "Dana")
	require.NoError(t, err)
	assert.True(t, ok)

	req, err := s.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, req.Status)
	assert.Equal(t, "Yes, ask for a quote", req.Answer)
	assert.Equal(t, "Dana", req.ResolverName)
	require.NotNil(t, req.ResolvedAt)

	// Second resolve must fail without mutation.
	ok, err = s.UpdateHelpRequestResolved(ctx, id, "different answer", "Someone")
	require.NoError(t, err)
	assert.False(t, ok)

	req, err = s.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Yes, ask for a quote", req.Answer)

	// Timeout after resolve must also fail.
	ok, err = s.UpdateHelpRequestTimeout(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveMissingRequest(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.UpdateHelpRequestResolved(context.Background(), "missing", "answer", "Supervisor")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimeoutStampsResolvedAtWithoutAnswer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateHelpRequest(ctx, &HelpRequest{
		CallerID:      "caller-1",
		CallerContact: "+1-555-0001",
		Question:      "stale question",
	})
	require.NoError(t, err)

	ok, err := s.UpdateHelpRequestTimeout(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	req, err := s.GetHelpRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, req.Status)
	assert.Empty(t, req.Answer)
	assert.Empty(t, req.ResolverName)
	require.NotNil(t, req.ResolvedAt)
}

func TestListPendingNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.CreateHelpRequest(ctx, &HelpRequest{
			CallerID:      "caller",
			CallerContact: "+1-555-0001",
			Question:      "q",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Resolve the middle one; it must drop out of the pending list.
	ok, err := s.UpdateHelpRequestResolved(ctx, ids[1], "a", "Supervisor")
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[2], pending[0].ID)
	assert.Equal(t, ids[0], pending[1].ID)
}

func TestListRecentHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		_, err := s.CreateHelpRequest(ctx, &HelpRequest{
			CallerID:      "caller",
			CallerContact: "+1-555-0001",
			Question:      "q",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recent, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].CreatedAt.After(recent[1].CreatedAt))
	assert.True(t, recent[1].CreatedAt.After(recent[2].CreatedAt))
}

func TestKnowledgeUsageIncrement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateKnowledgeEntry(ctx, &KnowledgeEntry{
		Question: "What are your hours?",
		Answer:   "9-7 Mon-Sat",
		Source:   SourceSeed,
	})
	require.NoError(t, err)

	require.NoError(t, s.IncrementKnowledgeUsage(ctx, id))
	require.NoError(t, s.IncrementKnowledgeUsage(ctx, id))

	entries, err := s.ListAllKnowledge(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].UsageCount)
}

func TestIncrementKnowledgeUsageMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.IncrementKnowledgeUsage(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTextSearchKnowledgeRankedByUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lowID, err := s.CreateKnowledgeEntry(ctx, &KnowledgeEntry{
		Question: "Do you do wedding styling?",
		Answer:   "Yes, book two weeks ahead",
		Source:   SourceSupervisor,
	})
	require.NoError(t, err)

	highID, err := s.CreateKnowledgeEntry(ctx, &KnowledgeEntry{
		Question: "How much is wedding hair?",
		Answer:   "Starts at $120",
		Source:   SourceSupervisor,
	})
	require.NoError(t, err)

	_, err = s.CreateKnowledgeEntry(ctx, &KnowledgeEntry{
		Question: "Where are you located?",
		Answer:   "123 Main Street",
		Source:   SourceSeed,
	})
	require.NoError(t, err)

	require.NoError(t, s.IncrementKnowledgeUsage(ctx, highID))

	results, err := s.TextSearchKnowledge(ctx, "WEDDING")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, highID, results[0].ID)
	assert.Equal(t, lowID, results[1].ID)
}

func TestTextSearchMatchesAnswerField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateKnowledgeEntry(ctx, &KnowledgeEntry{
		Question: "What products do you sell?",
		Answer:   "We carry the full Oribe line",
		Source:   SourceSeed,
	})
	require.NoError(t, err)

	results, err := s.TextSearchKnowledge(ctx, "oribe")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.TextSearchKnowledge(ctx, "shampoo")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCallLogLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	callID, err := s.CreateCallLog(ctx, &CallLog{
		CallerID:      "caller-1",
		CallerContact: "+1-555-0001",
		ResolvedByAI:  true,
	})
	require.NoError(t, err)

	require.NoError(t, s.AppendCallHelpRequest(ctx, callID, "req-1"))
	require.NoError(t, s.AppendCallHelpRequest(ctx, callID, "req-2"))
	require.NoError(t, s.EndCallLog(ctx, callID))

	calls, err := s.ListCallLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"req-1", "req-2"}, calls[0].HelpRequests)
	assert.False(t, calls[0].ResolvedByAI)
	require.NotNil(t, calls[0].EndedAt)
}
