package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
)

type trail struct{ calls []string }

type fakeStep struct {
	name          string
	execErr       error
	compensateErr error
	trail         *trail
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Execute(context.Context) error {
	s.trail.calls = append(s.trail.calls, "exec:"+s.name)
	return s.execErr
}

func (s *fakeStep) Compensate(ctx context.Context) error {
	// Compensation must survive a cancelled request.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.trail.calls = append(s.trail.calls, "undo:"+s.name)
	return s.compensateErr
}

type recorder struct{ entries []sagalog.SagaLog }

func (r *recorder) Save(_ context.Context, e *sagalog.SagaLog) error {
	r.entries = append(r.entries, *e)
	return nil
}

func TestOrchestratorCompletes(t *testing.T) {
	tr := &trail{}
	rec := &recorder{}
	steps := []Step{
		&fakeStep{name: "a", trail: tr},
		&fakeStep{name: "b", trail: tr},
	}

	err := NewOrchestrator("saga-1", steps, rec).WithPayload(`{"userId":"u1"}`).Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"exec:a", "exec:b"}, tr.calls)
	require.Len(t, rec.entries, 4)
	assert.Equal(t, sagalog.StatusStarted, rec.entries[0].Status)
	assert.Equal(t, `{"userId":"u1"}`, rec.entries[0].Payload)
	assert.Equal(t, "a", rec.entries[1].CurrentStep)
	assert.Equal(t, "b", rec.entries[2].CurrentStep)
	assert.Equal(t, sagalog.StatusCompleted, rec.entries[3].Status)
	for _, e := range rec.entries {
		assert.Equal(t, "saga-1", e.SagaID)
		assert.Equal(t, "[]", e.ErrorMessages)
	}
}

func TestOrchestratorRollsBackInReverseOrder(t *testing.T) {
	boom := errors.New("boom")
	tr := &trail{}
	rec := &recorder{}
	steps := []Step{
		&fakeStep{name: "a", trail: tr},
		&fakeStep{name: "b", trail: tr},
		&fakeStep{name: "c", execErr: boom, trail: tr},
		&fakeStep{name: "d", trail: tr},
	}

	err := NewOrchestrator("saga-2", steps, rec).Start(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "undo:b", "undo:a"}, tr.calls)

	last := rec.entries[len(rec.entries)-1]
	assert.Equal(t, sagalog.StatusFailed, last.Status)
	assert.Equal(t, "c", last.CurrentStep)

	var errs []string
	require.NoError(t, json.Unmarshal([]byte(last.ErrorMessages), &errs))
	assert.Equal(t, []string{"c failed: boom"}, errs)
}

func TestOrchestratorRecordsCompensationFailures(t *testing.T) {
	tr := &trail{}
	rec := &recorder{}
	steps := []Step{
		&fakeStep{name: "a", trail: tr},
		&fakeStep{name: "b", compensateErr: errors.New("stuck"), trail: tr},
		&fakeStep{name: "c", execErr: errors.New("boom"), trail: tr},
	}

	require.Error(t, NewOrchestrator("saga-3", steps, rec).Start(context.Background()))

	// A failed compensation does not stop the ones before it.
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "undo:b", "undo:a"}, tr.calls)

	var statuses []sagalog.Status
	for _, e := range rec.entries {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted,
		sagalog.StatusStepDone,
		sagalog.StatusStepDone,
		sagalog.StatusCompensating,
		sagalog.StatusFailed,
	}, statuses)

	var errs []string
	require.NoError(t, json.Unmarshal([]byte(rec.entries[4].ErrorMessages), &errs))
	assert.Equal(t, []string{"c failed: boom", "compensation of b failed: stuck"}, errs)
}

func TestOrchestratorCompensatesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &trail{}
	cancelling := &cancelStep{cancel: cancel}
	steps := []Step{
		&fakeStep{name: "a", trail: tr},
		cancelling,
	}

	require.Error(t, NewOrchestrator("saga-4", steps, nil).Start(ctx))
	assert.Equal(t, []string{"exec:a", "undo:a"}, tr.calls)
}

// cancelStep cancels the request and then fails, like a client hanging up
// mid-placement.
type cancelStep struct{ cancel context.CancelFunc }

func (s *cancelStep) Name() string { return "cancel" }

func (s *cancelStep) Execute(ctx context.Context) error {
	s.cancel()
	return ctx.Err()
}

func (s *cancelStep) Compensate(context.Context) error { return nil }
