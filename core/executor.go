package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/actionforge/actportal-cli/github"
	"github.com/actionforge/actportal-cli/utils"
)

// ExecutionStatus is the local status of one dispatch attempt.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "PENDING"
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusCompleted ExecutionStatus = "COMPLETED"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusCancelled ExecutionStatus = "CANCELLED"
)

// Terminal reports whether no further transitions occur.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ExecutionResult is one record per dispatch attempt. The coordinator
// owns it exclusively; everyone else works on snapshots.
type ExecutionResult struct {
	ID          string
	Owner       string
	Repo        string
	WorkflowID  string
	Ref         string
	Inputs      map[string]string
	Status      ExecutionStatus
	TriggeredAt time.Time
	RunID       int64 // 0 until the run has been reconciled
	CompletedAt time.Time
	Error       string
}

func (r *ExecutionResult) snapshot() *ExecutionResult {
	cp := *r
	cp.Inputs = make(map[string]string, len(r.Inputs))
	for k, v := range r.Inputs {
		cp.Inputs[k] = v
	}
	return &cp
}

// Gateway is the slice of the API client the coordinator and poller
// depend on.
type Gateway interface {
	CheckWritePermission(ctx context.Context, owner, repo string) (bool, error)
	DispatchWorkflow(ctx context.Context, owner, repo, workflowID, ref string, inputs map[string]string) error
	ListWorkflowRuns(ctx context.Context, owner, repo, workflowID string, perPage int) ([]github.WorkflowRun, error)
	GetWorkflowRun(ctx context.Context, owner, repo string, runID int64) (*github.WorkflowRun, error)
}

// Executor submits workflow dispatches and keeps the in-memory history
// of execution records. Construct one per application assembly and
// share that instance; two executors never see each other's history.
type Executor struct {
	gw Gateway

	mux     sync.Mutex
	history map[string]*ExecutionResult

	// now is swapped out in tests
	now func() time.Time
}

func NewExecutor(gw Gateway) *Executor {
	return &Executor{
		gw:      gw,
		history: map[string]*ExecutionResult{},
		now:     time.Now,
	}
}

// Execute authorizes, normalizes and submits one workflow dispatch, and
// records the attempt. On success the stored record is RUNNING; on
// dispatch failure it is FAILED and the classified error is returned.
func (e *Executor) Execute(ctx context.Context, action *CatalogAction, values map[string]any, ref string) (*ExecutionResult, error) {
	owner, repo, err := SplitRepository(action.Repository)
	if err != nil {
		return nil, err
	}

	workflowID := WorkflowIDFromPath(action.WorkflowPath)
	if workflowID == "" {
		return nil, &github.ApiError{
			Type:    github.ErrValidation,
			Message: fmt.Sprintf("action '%s' has no usable workflow path", action.ID),
		}
	}

	// Fail closed: a permission lookup that errors out counts as no
	// permission, the raw failure is not propagated.
	allowed, err := e.gw.CheckWritePermission(ctx, owner, repo)
	if err != nil {
		utils.LogOut.Debugf("permission check failed for %s/%s: %v\n", owner, repo, err)
		allowed = false
	}
	if !allowed {
		return nil, &github.ApiError{
			Type:    github.ErrPermission,
			Message: fmt.Sprintf("you don't have permission to trigger workflows in %s/%s", owner, repo),
		}
	}

	inputs := CoerceInputs(values)

	record := e.record(owner, repo, workflowID, ref, inputs)

	if err := e.gw.DispatchWorkflow(ctx, owner, repo, workflowID, ref, inputs); err != nil {
		e.UpdateStatus(record.ID, StatusFailed, 0, err.Error())
		if apiErr, ok := github.AsApiError(err); ok {
			return nil, apiErr
		}
		return nil, &github.ApiError{
			Type:    github.ErrUnknown,
			Message: fmt.Sprintf("dispatch failed: %v", err),
		}
	}

	updated := e.UpdateStatus(record.ID, StatusRunning, 0, "")
	utils.LogOut.Infof("dispatched %s/%s %s on %s (execution %s)\n", owner, repo, workflowID, ref, record.ID)
	return updated, nil
}

// record creates and stores the PENDING execution record. The id is
// unique even for rapid repeated dispatches of the same action.
func (e *Executor) record(owner, repo, workflowID, ref string, inputs map[string]string) *ExecutionResult {
	e.mux.Lock()
	defer e.mux.Unlock()

	triggeredAt := e.now()
	ts := triggeredAt.UnixMilli()

	var id string
	for {
		id = fmt.Sprintf("%s_%s_%s_%d", owner, repo, workflowID, ts)
		if _, exists := e.history[id]; !exists {
			break
		}
		ts++
	}

	record := &ExecutionResult{
		ID:          id,
		Owner:       owner,
		Repo:        repo,
		WorkflowID:  workflowID,
		Ref:         ref,
		Inputs:      inputs,
		Status:      StatusPending,
		TriggeredAt: triggeredAt,
	}
	e.history[id] = record
	return record.snapshot()
}

// UpdateStatus applies an idempotent partial update to a record. An
// unknown id returns nil, it neither throws nor creates a record.
func (e *Executor) UpdateStatus(id string, status ExecutionStatus, runID int64, errMsg string) *ExecutionResult {
	e.mux.Lock()
	defer e.mux.Unlock()

	record, ok := e.history[id]
	if !ok {
		return nil
	}

	record.Status = status
	if runID != 0 {
		record.RunID = runID
	}
	if errMsg != "" {
		record.Error = errMsg
	}
	if status.Terminal() && record.CompletedAt.IsZero() {
		record.CompletedAt = e.now()
	}

	return record.snapshot()
}

// GetExecution returns a snapshot of one record, or nil.
func (e *Executor) GetExecution(id string) *ExecutionResult {
	e.mux.Lock()
	defer e.mux.Unlock()

	record, ok := e.history[id]
	if !ok {
		return nil
	}
	return record.snapshot()
}

// GetAllExecutions returns snapshots of every record, unordered.
func (e *Executor) GetAllExecutions() []*ExecutionResult {
	e.mux.Lock()
	defer e.mux.Unlock()

	out := make([]*ExecutionResult, 0, len(e.history))
	for _, record := range e.history {
		out = append(out, record.snapshot())
	}
	return out
}

// GetRecentExecutions returns up to limit records, newest first.
func (e *Executor) GetRecentExecutions(limit int) []*ExecutionResult {
	out := e.GetAllExecutions()
	sort.Slice(out, func(i, j int) bool {
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ClearHistory drops all records.
func (e *Executor) ClearHistory() {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.history = map[string]*ExecutionResult{}
}

// SplitRepository parses "owner/name" into its two segments.
func SplitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &github.ApiError{
			Type:    github.ErrValidation,
			Message: fmt.Sprintf("invalid repository '%s', expected owner/name", repository),
		}
	}
	return parts[0], parts[1], nil
}

// WorkflowIDFromPath derives the workflow id the dispatch endpoint
// accepts: the final segment of the workflow path.
func WorkflowIDFromPath(workflowPath string) string {
	trimmed := strings.Trim(workflowPath, "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}

// CoerceInputs flattens a raw value map into the string-to-string map
// the dispatch endpoint requires. Booleans become "true"/"false", lists
// are comma-joined and nil values are omitted entirely.
func CoerceInputs(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))

	for name, value := range values {
		switch v := value.(type) {
		case nil:
			// omitted, never the string "null"
		case string:
			out[name] = v
		case bool:
			out[name] = strconv.FormatBool(v)
		case []string:
			out[name] = strings.Join(v, ",")
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			out[name] = strings.Join(parts, ",")
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[name] = fmt.Sprintf("%v", v)
		}
	}

	return out
}
