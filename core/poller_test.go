package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionforge/actportal-cli/github"
)

type updateRecorder struct {
	mu      sync.Mutex
	updates []*ExecutionResult
}

func (u *updateRecorder) record(r *ExecutionResult) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, r)
}

func (u *updateRecorder) all() []*ExecutionResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*ExecutionResult(nil), u.updates...)
}

func dispatchTestExecution(t *testing.T, gw *fakeGateway) (*Executor, *ExecutionResult) {
	t.Helper()
	gw.permission = true
	exec := NewExecutor(gw)
	record, err := exec.Execute(context.Background(), testAction(), nil, "main")
	require.NoError(t, err)
	return exec, record
}

func TestPollerCorrelatesRun(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)

	gw.runs = []github.WorkflowRun{
		// created long before the dispatch, not ours
		{ID: 90, CreatedAt: record.TriggeredAt.Add(-2 * time.Minute)},
		{ID: 91, CreatedAt: record.TriggeredAt.Add(3 * time.Second)},
	}

	recorder := &updateRecorder{}
	p := NewPoller(gw, exec, WithUpdateHandler(recorder.record))
	p.Start(record.ID)
	defer p.Stop()

	p.Refresh(context.Background())

	updated := exec.GetExecution(record.ID)
	require.NotNil(t, updated)
	assert.Equal(t, int64(91), updated.RunID)
	assert.Equal(t, StatusRunning, updated.Status)

	updates := recorder.all()
	require.NotEmpty(t, updates)
	assert.Equal(t, int64(91), updates[0].RunID)
}

func TestPollerIgnoresRunsOutsideWindow(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)

	gw.runs = []github.WorkflowRun{
		{ID: 90, CreatedAt: record.TriggeredAt.Add(-2 * time.Minute)},
	}

	p := NewPoller(gw, exec)
	p.Start(record.ID)
	defer p.Stop()

	p.Refresh(context.Background())

	updated := exec.GetExecution(record.ID)
	assert.Zero(t, updated.RunID)
	// lookup errors do not abort polling either
	gw.runsErr = assert.AnError
	p.Refresh(context.Background())
	assert.Zero(t, exec.GetExecution(record.ID).RunID)
}

func TestPollerTracksRunToCompletion(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)
	exec.UpdateStatus(record.ID, StatusRunning, 4711, "")

	gw.run = &github.WorkflowRun{ID: 4711, Status: "completed", Conclusion: "success"}

	recorder := &updateRecorder{}
	p := NewPoller(gw, exec,
		WithPollInterval(2*time.Millisecond),
		WithUpdateHandler(recorder.record))

	p.Start(record.ID)
	p.Wait() // the loop stops itself once the run is terminal

	updated := exec.GetExecution(record.ID)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.False(t, updated.CompletedAt.IsZero())

	updates := recorder.all()
	require.NotEmpty(t, updates)
	assert.Equal(t, StatusCompleted, updates[len(updates)-1].Status)
}

func TestPollerTranslatesRemoteStatus(t *testing.T) {
	tests := []struct {
		name       string
		run        github.WorkflowRun
		want       ExecutionStatus
		wantErrMsg string
	}{
		{"failure conclusion", github.WorkflowRun{Status: "completed", Conclusion: "failure"}, StatusFailed, "workflow run failed"},
		{"timed out conclusion", github.WorkflowRun{Status: "completed", Conclusion: "timed_out"}, StatusFailed, "workflow run failed"},
		{"cancelled", github.WorkflowRun{Status: "cancelled"}, StatusCancelled, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			exec, record := dispatchTestExecution(t, gw)
			exec.UpdateStatus(record.ID, StatusRunning, 1, "")

			run := tt.run
			run.ID = 1
			gw.run = &run

			p := NewPoller(gw, exec)
			p.Refresh(context.Background())

			updated := exec.GetExecution(record.ID)
			assert.Equal(t, tt.want, updated.Status)
			assert.Equal(t, tt.wantErrMsg, updated.Error)
		})
	}
}

func TestPollerUnknownRemoteStatus(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)
	exec.UpdateStatus(record.ID, StatusRunning, 1, "")

	gw.run = &github.WorkflowRun{ID: 1, Status: "waiting"}

	p := NewPoller(gw, exec)
	p.Refresh(context.Background())

	// unknown remote statuses leave the local status untouched
	assert.Equal(t, StatusRunning, exec.GetExecution(record.ID).Status)
}

func TestPollerSilentTimeout(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)

	// no runs ever correlate, the poller gives up after maxTicks
	p := NewPoller(gw, exec,
		WithPollInterval(time.Millisecond),
		WithMaxPollTicks(3))

	p.Start(record.ID)
	p.Wait()

	updated := exec.GetExecution(record.ID)
	assert.Equal(t, StatusRunning, updated.Status)
	assert.Zero(t, updated.RunID)
	assert.Empty(t, updated.Error)
}

func TestPollerStopIdempotent(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)

	p := NewPoller(gw, exec, WithPollInterval(time.Millisecond))

	// stopping and waiting without starting is a no-op
	p.Stop()
	p.Wait()

	p.Start(record.ID)
	p.Stop()
	p.Stop()
	p.Wait()
}

func TestPollerRestartWhilePolling(t *testing.T) {
	gw := &fakeGateway{}
	exec, record := dispatchTestExecution(t, gw)
	second, err := exec.Execute(context.Background(), testAction(), nil, "main")
	require.NoError(t, err)

	p := NewPoller(gw, exec, WithPollInterval(time.Hour))
	p.Start(record.ID)

	// restarting re-targets the running loop instead of stacking timers
	p.Start(second.ID)
	p.Stop()
	p.Wait()
}
