package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/actionforge/actportal-cli/utils"
)

const (
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxPollTicks caps a polling loop at roughly five minutes.
	DefaultMaxPollTicks = 60

	// correlationWindow is how far a run's created_at may be from the
	// dispatch's triggeredAt to be considered the resulting run. This
	// is a heuristic: rapid repeated dispatches of the same workflow
	// and ref can land inside the same window, in which case the first
	// listed run wins.
	correlationWindow = 30 * time.Second
)

// UpdateFunc receives a snapshot after every status change the poller
// observes.
type UpdateFunc func(*ExecutionResult)

// Poller bridges the gap between "dispatch accepted" and "run
// observable", then tracks the run to a terminal state. One poller
// handles one execution at a time; restarting while polling resets the
// tick counter instead of stacking timers.
type Poller struct {
	gw   Gateway
	exec *Executor

	interval time.Duration
	maxTicks int
	onUpdate UpdateFunc

	mux         sync.Mutex
	executionID string
	ticks       int
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}

	// inFlight guards against a tick whose network work outlasts the
	// interval overlapping with the next one.
	inFlight atomic.Bool
}

type PollerOption func(*Poller)

func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithMaxPollTicks(maxTicks int) PollerOption {
	return func(p *Poller) {
		if maxTicks > 0 {
			p.maxTicks = maxTicks
		}
	}
}

func WithUpdateHandler(fn UpdateFunc) PollerOption {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

func NewPoller(gw Gateway, exec *Executor, opts ...PollerOption) *Poller {
	p := &Poller{
		gw:       gw,
		exec:     exec,
		interval: DefaultPollInterval,
		maxTicks: DefaultMaxPollTicks,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling for the given execution id. Calling Start while
// already polling re-targets the poller and resets the tick counter.
func (p *Poller) Start(executionID string) {
	p.mux.Lock()
	defer p.mux.Unlock()

	p.executionID = executionID
	p.ticks = 0

	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.loop(ctx, p.done)
}

// Stop releases the polling timer and cancels in-flight tick work. It
// is idempotent and safe to call when polling never started.
func (p *Poller) Stop() {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
	p.cancel = nil
}

// Wait blocks until the polling loop has exited. Safe to call when
// polling never started.
func (p *Poller) Wait() {
	p.mux.Lock()
	done := p.done
	p.mux.Unlock()

	if done != nil {
		<-done
	}
}

// Refresh forces a single immediate poll tick. No-op while another
// tick is still in flight or when no execution id is set.
func (p *Poller) Refresh(ctx context.Context) {
	p.tick(ctx)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	// ticks are serialized per poller; a slow previous tick skips this one
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	p.mux.Lock()
	id := p.executionID
	p.ticks++
	ticks := p.ticks
	running := p.running
	p.mux.Unlock()

	if id == "" {
		return
	}

	record := p.exec.GetExecution(id)
	if record == nil {
		return
	}

	if record.Status.Terminal() {
		p.Stop()
		return
	}

	if record.RunID == 0 {
		p.correlateRun(ctx, record)
	} else {
		p.trackRun(ctx, record)
	}

	if updated := p.exec.GetExecution(id); updated != nil && updated.Status.Terminal() {
		p.Stop()
		return
	}

	// reaching the cap is a silent timeout: the last observed status
	// stays in place and polling just stops
	if running && ticks >= p.maxTicks {
		utils.LogOut.Debugf("giving up polling execution %s after %d ticks\n", id, ticks)
		p.Stop()
	}
}

// correlateRun is phase A: the dispatch returned no run id, so list
// recent runs and pick the one created close to the dispatch attempt.
func (p *Poller) correlateRun(ctx context.Context, record *ExecutionResult) {
	runs, err := p.gw.ListWorkflowRuns(ctx, record.Owner, record.Repo, record.WorkflowID, 10)
	if err != nil {
		// a single transient lookup failure must not abort reconciliation
		utils.LogOut.Debugf("run lookup failed for execution %s: %v\n", record.ID, err)
		return
	}

	for _, run := range runs {
		delta := run.CreatedAt.Sub(record.TriggeredAt)
		if delta < 0 {
			delta = -delta
		}
		if delta < correlationWindow {
			if updated := p.exec.UpdateStatus(record.ID, StatusRunning, run.ID, ""); updated != nil {
				p.notify(updated)
			}
			return
		}
	}
}

// trackRun is phase B: the run id is known, fetch its details and
// translate the remote status into the local one.
func (p *Poller) trackRun(ctx context.Context, record *ExecutionResult) {
	run, err := p.gw.GetWorkflowRun(ctx, record.Owner, record.Repo, record.RunID)
	if err != nil {
		utils.LogOut.Debugf("run fetch failed for execution %s: %v\n", record.ID, err)
		return
	}

	var (
		status ExecutionStatus
		errMsg string
	)

	switch run.Status {
	case "completed":
		if run.Conclusion == "success" {
			status = StatusCompleted
		} else {
			status = StatusFailed
			errMsg = "workflow run failed"
		}
	case "in_progress", "queued":
		status = StatusRunning
	case "cancelled":
		status = StatusCancelled
	default:
		// unknown remote status leaves the local status unchanged
		return
	}

	if status == record.Status {
		return
	}

	if updated := p.exec.UpdateStatus(record.ID, status, run.ID, errMsg); updated != nil {
		p.notify(updated)
	}
}

func (p *Poller) notify(record *ExecutionResult) {
	if p.onUpdate != nil {
		p.onUpdate(record)
	}
}
