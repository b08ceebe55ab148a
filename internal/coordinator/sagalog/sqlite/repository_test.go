package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
)

func TestRepositoryHistory(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.GetLatest(ctx, "saga-1")
	require.ErrorIs(t, err, sagalog.ErrNotFound)
	_, err = repo.History(ctx, "saga-1")
	require.ErrorIs(t, err, sagalog.ErrNotFound)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []*sagalog.SagaLog{
		{SagaID: "saga-1", Status: sagalog.StatusStarted, Payload: `{"items":2}`, ErrorMessages: "[]", UpdatedAt: base},
		{SagaID: "saga-1", Status: sagalog.StatusStepDone, CurrentStep: "Create_Order_Step", ErrorMessages: "[]", UpdatedAt: base.Add(time.Millisecond)},
		{SagaID: "saga-1", Status: sagalog.StatusFailed, CurrentStep: "Create_Items_Step", ErrorMessages: `["boom"]`, UpdatedAt: base.Add(2 * time.Millisecond)},
		{SagaID: "saga-2", Status: sagalog.StatusStarted, ErrorMessages: "[]", UpdatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, repo.Save(ctx, e))
	}

	latest, err := repo.GetLatest(ctx, "saga-1")
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusFailed, latest.Status)
	assert.Equal(t, `["boom"]`, latest.ErrorMessages)
	assert.True(t, latest.UpdatedAt.Equal(base.Add(2*time.Millisecond)))

	history, err := repo.History(ctx, "saga-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, `{"items":2}`, history[0].Payload)
	assert.Empty(t, history[1].Payload)
	assert.Equal(t, "Create_Order_Step", history[1].CurrentStep)
}

func TestNewEntryWithoutSpan(t *testing.T) {
	e := sagalog.NewEntry(context.Background(), "s", sagalog.StatusStarted, "", "", nil)
	assert.Equal(t, "[]", e.ErrorMessages)
	assert.Empty(t, e.TraceID)
	assert.Empty(t, e.SpanID)
}

func TestTrailFromStoredHistory(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	for _, e := range []*sagalog.SagaLog{
		sagalog.NewEntry(ctx, "s1", sagalog.StatusStarted, "", `{"items":1}`, nil),
		sagalog.NewEntry(ctx, "s1", sagalog.StatusStepDone, "Create_Order_Step", "", nil),
		sagalog.NewEntry(ctx, "s1", sagalog.StatusCompensating, "Create_Items_Step", "", []string{"Create_Items_Step failed: disk full"}),
	} {
		require.NoError(t, repo.Save(ctx, e))
	}

	history, err := repo.History(ctx, "s1")
	require.NoError(t, err)
	trail := sagalog.NewTrail(history)
	assert.True(t, trail.Stuck)
	assert.Equal(t, []string{"Create_Order_Step"}, trail.Steps)
	assert.Equal(t, "Create_Items_Step", trail.FailedStep)
	assert.Equal(t, []string{"Create_Items_Step failed: disk full"}, trail.Errors)
	assert.Equal(t, `{"items":1}`, trail.Payload)
}
