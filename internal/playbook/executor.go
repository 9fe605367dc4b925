package playbook

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/opsgate/opsgate/internal/config"
)

var (
	// ErrNotFound is returned for unknown execution or playbook IDs.
	ErrNotFound = errors.New("not found")
	// ErrStateError is returned when an operation is invalid for the
	// execution's current state.
	ErrStateError = errors.New("invalid state")
	// ErrResourceExhausted is returned when the concurrent execution cap
	// is reached.
	ErrResourceExhausted = errors.New("concurrent execution limit reached")
	// ErrHandlerMissing is returned when an action kind has no handler.
	ErrHandlerMissing = errors.New("no handler for action kind")
	// ErrValidation is returned for structurally invalid requests.
	ErrValidation = errors.New("validation failed")
)

// PrerequisiteCheck verifies an environmental precondition before any
// action runs, e.g. "the provider gateway is started".
type PrerequisiteCheck func(ctx context.Context, f Finding) error

// Recorder receives executions when they park awaiting approval and when
// they reach a terminal state. The audit store implements it; a nil
// recorder disables recording.
type Recorder interface {
	Record(ex Execution) error
}

// HistoryFilter narrows History results. Zero values match everything.
type HistoryFilter struct {
	PlaybookID string
	FindingID  string
}

// Executor owns playbook executions end to end: approval gating, ordered
// action dispatch, rollback, and retained history. Safe for concurrent
// use.
type Executor struct {
	registry *Registry
	recorder Recorder
	writer   io.Writer
	maxLive  int

	mu         sync.Mutex
	executions map[string]*Execution
	// plans retains the playbook and finding behind each execution so
	// approval and rollback can resume them later.
	plans   map[string]executionPlan
	prereqs map[string]PrerequisiteCheck
	live    int
	order   []string
}

type executionPlan struct {
	playbook *Playbook
	finding  Finding
}

// ExecutorOption customizes an executor.
type ExecutorOption func(*Executor)

// WithRecorder attaches an audit sink for terminal executions.
func WithRecorder(r Recorder) ExecutorOption {
	return func(e *Executor) { e.recorder = r }
}

// WithWriter routes handler progress notes to w.
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) { e.writer = w }
}

// NewExecutor builds an executor around the given handler registry.
func NewExecutor(reg *Registry, limits config.Limits, opts ...ExecutorOption) *Executor {
	if reg == nil {
		reg = NewRegistry()
	}
	maxLive := limits.MaxExecutions
	if maxLive <= 0 {
		maxLive = config.DefaultMaxExecutions
	}
	e := &Executor{
		registry:   reg,
		maxLive:    maxLive,
		executions: make(map[string]*Execution),
		plans:      make(map[string]executionPlan),
		prereqs:    make(map[string]PrerequisiteCheck),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the handler registry for registration at startup.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// RegisterPrerequisite installs a named prerequisite check that playbooks
// can reference.
func (e *Executor) RegisterPrerequisite(name string, check PrerequisiteCheck) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prereqs[name] = check
}

// Validate checks that every action kind in p resolves to a registered
// handler and that rollback references resolve when rollback is enabled.
func (e *Executor) Validate(p *Playbook) error {
	if p == nil {
		return fmt.Errorf("%w: nil playbook", ErrValidation)
	}
	for _, a := range p.Actions() {
		if _, ok := e.registry.Resolve(a.Kind); !ok {
			return fmt.Errorf("%w: action %q kind %q", ErrHandlerMissing, a.Name, a.Kind)
		}
		if p.RollbackEnabled() {
			ref := a.RollbackRef
			if ref == "" {
				ref = a.Kind
			}
			if _, ok := e.registry.ResolveRollback(ref); !ok {
				return fmt.Errorf("%w: action %q rollback %q", ErrHandlerMissing, a.Name, ref)
			}
		}
	}
	return nil
}

// Execute starts a playbook run against a finding. When the playbook
// requires approval the execution parks in AWAITING_APPROVAL and no
// action runs until Approve; otherwise actions run synchronously before
// Execute returns. dryRun propagates to every handler.
func (e *Executor) Execute(ctx context.Context, p *Playbook, f Finding, initiator string, dryRun bool) (Execution, error) {
	if err := e.Validate(p); err != nil {
		return Execution{}, err
	}
	if initiator == "" {
		return Execution{}, fmt.Errorf("%w: initiator is required", ErrValidation)
	}

	now := time.Now().UTC()
	ex := &Execution{
		ExecutionID:  executionID(p.ID(), now),
		PlaybookID:   p.ID(),
		PlaybookName: p.Name(),
		FindingID:    f.ID,
		Finding:      f,
		Initiator:    initiator,
		StartedAt:    now,
		Status:       StatusPending,
		DryRun:       dryRun,
	}

	e.mu.Lock()
	if e.live >= e.maxLive {
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w (%d)", ErrResourceExhausted, e.maxLive)
	}
	e.live++
	e.executions[ex.ExecutionID] = ex
	e.plans[ex.ExecutionID] = executionPlan{playbook: p, finding: f}
	e.order = append(e.order, ex.ExecutionID)

	if p.RequiresApproval() {
		ex.Status = StatusAwaitingApproval
		snapshot := ex.clone()
		e.mu.Unlock()
		// Parked executions are recorded too, so another process can pick
		// the approval up later via Adopt.
		e.record(snapshot)
		return snapshot, nil
	}
	ex.Status = StatusRunning
	e.mu.Unlock()

	e.runActions(ctx, ex.ExecutionID)
	return e.Get(ex.ExecutionID)
}

// Adopt restores a previously recorded execution, typically loaded from
// the audit store by a fresh process, so Approve, Reject, and Rollback
// work across invocations. p must be the playbook the execution was
// started from; a non-terminal execution counts against the concurrency
// cap again.
func (e *Executor) Adopt(ex Execution, p *Playbook) error {
	if err := e.Validate(p); err != nil {
		return err
	}
	if ex.ExecutionID == "" {
		return fmt.Errorf("%w: execution has no ID", ErrValidation)
	}
	if ex.PlaybookID != p.ID() {
		return fmt.Errorf("%w: execution %s belongs to playbook %s, not %s", ErrValidation, ex.ExecutionID, ex.PlaybookID, p.ID())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.executions[ex.ExecutionID]; ok {
		return fmt.Errorf("%w: execution %s is already tracked", ErrStateError, ex.ExecutionID)
	}
	if !ex.Status.Terminal() {
		if e.live >= e.maxLive {
			return fmt.Errorf("%w (%d)", ErrResourceExhausted, e.maxLive)
		}
		e.live++
	}
	adopted := ex.clone()
	e.executions[ex.ExecutionID] = &adopted
	e.plans[ex.ExecutionID] = executionPlan{playbook: p, finding: ex.Finding}
	e.order = append(e.order, ex.ExecutionID)
	return nil
}

// Approve resumes an AWAITING_APPROVAL execution and runs its actions
// synchronously.
func (e *Executor) Approve(ctx context.Context, executionID, approver string) (Execution, error) {
	if approver == "" {
		return Execution{}, fmt.Errorf("%w: approver is required", ErrValidation)
	}

	e.mu.Lock()
	ex, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: execution %s", ErrNotFound, executionID)
	}
	if ex.Status != StatusAwaitingApproval {
		status := ex.Status
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: cannot approve execution in state %s", ErrStateError, status)
	}
	ex.Approver = approver
	ex.Status = StatusRunning
	e.mu.Unlock()

	e.runActions(ctx, executionID)
	return e.Get(executionID)
}

// Reject finalizes an AWAITING_APPROVAL execution as REJECTED. No action
// runs.
func (e *Executor) Reject(executionID, approver, reason string) (Execution, error) {
	e.mu.Lock()
	ex, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: execution %s", ErrNotFound, executionID)
	}
	if ex.Status != StatusAwaitingApproval {
		status := ex.Status
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: cannot reject execution in state %s", ErrStateError, status)
	}
	ex.Approver = approver
	ex.RejectionReason = reason
	e.finalizeLocked(ex, StatusRejected)
	e.live--
	snapshot := ex.clone()
	e.mu.Unlock()

	e.record(snapshot)
	return snapshot, nil
}

// Rollback reverses a COMPLETED execution by consuming rollback tokens in
// reverse action order. Actions without a token are noted and skipped.
// Per-action rollback failures set RollbackDirty but the execution still
// transitions to ROLLED_BACK.
func (e *Executor) Rollback(ctx context.Context, executionID string) (Execution, error) {
	e.mu.Lock()
	ex, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: execution %s", ErrNotFound, executionID)
	}
	plan := e.plans[executionID]
	if ex.Status != StatusCompleted {
		status := ex.Status
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: cannot roll back execution in state %s", ErrStateError, status)
	}
	if !plan.playbook.RollbackEnabled() {
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: rollback disabled for playbook %s", ErrStateError, ex.PlaybookID)
	}
	if ex.DryRun {
		e.mu.Unlock()
		return Execution{}, fmt.Errorf("%w: dry-run executions record no rollback tokens", ErrStateError)
	}
	ex.Status = StatusRunning
	results := append([]ActionResult(nil), ex.ActionResults...)
	e.mu.Unlock()

	actionsByName := make(map[string]Action)
	for _, a := range plan.playbook.Actions() {
		actionsByName[a.Name] = a
	}
	hctx := &HandlerContext{Finding: plan.finding, Writer: e.writer}

	dirty := false
	for i := len(results) - 1; i >= 0; i-- {
		ar := &results[i]
		if ar.Status != ActionCompleted {
			continue
		}
		if ar.RollbackToken == "" {
			ar.RollbackNote = "no rollback token recorded; skipped"
			continue
		}
		action := actionsByName[ar.Name]
		ref := action.RollbackRef
		if ref == "" {
			ref = action.Kind
		}
		rb, ok := e.registry.ResolveRollback(ref)
		if !ok {
			ar.RollbackNote = fmt.Sprintf("no rollback handler for %q", ref)
			dirty = true
			continue
		}
		if err := rb(ctx, action, ar.RollbackToken, hctx); err != nil {
			ar.RollbackNote = fmt.Sprintf("rollback failed: %v", err)
			dirty = true
			continue
		}
		ar.Status = ActionRolledBack
		ar.RollbackNote = "rolled back"
	}

	e.mu.Lock()
	ex.ActionResults = results
	ex.RollbackDirty = dirty
	e.finalizeLocked(ex, StatusRolledBack)
	snapshot := ex.clone()
	e.mu.Unlock()

	e.record(snapshot)
	return snapshot, nil
}

// Get returns a copy of one execution.
func (e *Executor) Get(executionID string) (Execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ex, ok := e.executions[executionID]
	if !ok {
		return Execution{}, fmt.Errorf("%w: execution %s", ErrNotFound, executionID)
	}
	return ex.clone(), nil
}

// History returns retained executions matching the filter, newest first.
// limit <= 0 means no limit.
func (e *Executor) History(filter HistoryFilter, limit int) []Execution {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Execution, 0, len(e.order))
	for i := len(e.order) - 1; i >= 0; i-- {
		ex := e.executions[e.order[i]]
		if filter.PlaybookID != "" && ex.PlaybookID != filter.PlaybookID {
			continue
		}
		if filter.FindingID != "" && ex.FindingID != filter.FindingID {
			continue
		}
		out = append(out, ex.clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// runActions drives one RUNNING execution to a terminal state. The lock
// is never held while a handler or prerequisite check runs.
func (e *Executor) runActions(ctx context.Context, executionID string) {
	e.mu.Lock()
	ex := e.executions[executionID]
	plan := e.plans[executionID]
	e.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, plan.playbook.Timeout())
	defer cancel()

	hctx := &HandlerContext{Finding: plan.finding, Writer: e.writer}

	for _, name := range plan.playbook.Prerequisites() {
		e.mu.Lock()
		check, ok := e.prereqs[name]
		e.mu.Unlock()
		if !ok {
			e.fail(ex, plan.playbook.Actions(), fmt.Sprintf("prerequisite check %q is not registered", name))
			return
		}
		if err := check(runCtx, plan.finding); err != nil {
			e.fail(ex, plan.playbook.Actions(), fmt.Sprintf("prerequisite %q failed: %v", name, err))
			return
		}
	}

	actions := plan.playbook.Actions()
	results := make([]ActionResult, 0, len(actions))
	failedAt := -1

	for i, action := range actions {
		ar := ActionResult{Name: action.Name, Kind: action.Kind, StartedAt: time.Now().UTC()}

		if failedAt >= 0 {
			ar.Status = ActionSkipped
			ar.Message = "skipped: earlier action failed"
			ar.EndedAt = ar.StartedAt
			results = append(results, ar)
			continue
		}
		if action.Predicate != nil && !action.Predicate(plan.finding) {
			ar.Status = ActionSkipped
			ar.Message = "skipped: predicate did not match finding"
			ar.EndedAt = time.Now().UTC()
			results = append(results, ar)
			continue
		}
		if err := runCtx.Err(); err != nil {
			ar.Status = ActionFailed
			ar.Error = fmt.Sprintf("playbook timeout exceeded: %v", err)
			ar.EndedAt = time.Now().UTC()
			results = append(results, ar)
			failedAt = i
			continue
		}

		handler, _ := e.registry.Resolve(action.Kind)
		got := handler(runCtx, action, ex.DryRun, hctx)
		if got.Name == "" {
			got.Name = action.Name
		}
		if got.Kind == "" {
			got.Kind = action.Kind
		}
		if got.StartedAt.IsZero() {
			got.StartedAt = ar.StartedAt
		}
		if got.EndedAt.IsZero() {
			got.EndedAt = time.Now().UTC()
		}
		results = append(results, got)
		if got.Status == ActionFailed {
			failedAt = i
		}
	}

	e.mu.Lock()
	ex.ActionResults = results
	if failedAt >= 0 {
		ex.FailureReason = results[failedAt].Error
		e.finalizeLocked(ex, StatusFailed)
	} else {
		e.finalizeLocked(ex, StatusCompleted)
	}
	e.live--
	snapshot := ex.clone()
	e.mu.Unlock()

	e.record(snapshot)
}

// fail finalizes an execution before any action ran. Every action is
// still accounted for in ActionResults as SKIPPED.
func (e *Executor) fail(ex *Execution, actions []Action, reason string) {
	now := time.Now().UTC()
	results := make([]ActionResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, ActionResult{
			Name:      a.Name,
			Kind:      a.Kind,
			Status:    ActionSkipped,
			Message:   "skipped: prerequisite failed",
			StartedAt: now,
			EndedAt:   now,
		})
	}

	e.mu.Lock()
	ex.ActionResults = results
	ex.FailureReason = reason
	e.finalizeLocked(ex, StatusFailed)
	e.live--
	snapshot := ex.clone()
	e.mu.Unlock()
	e.record(snapshot)
}

// finalizeLocked stamps a terminal status. Callers decrement live where
// the execution first leaves the live set; a COMPLETED → ROLLED_BACK
// re-finalization must not decrement again.
func (e *Executor) finalizeLocked(ex *Execution, status Status) {
	ex.Status = status
	now := time.Now().UTC()
	ex.EndedAt = &now
}

func (e *Executor) record(ex Execution) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ex); err != nil && e.writer != nil {
		_, _ = fmt.Fprintf(e.writer, "[playbook] audit record failed for %s: %v\n", ex.ExecutionID, err)
	}
}

// executionID derives a readable, unique ID from the playbook and start
// time.
func executionID(playbookID string, at time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d", playbookID, at.UnixNano())))
	return fmt.Sprintf("%s-%s-%s", playbookID, at.Format("20060102150405"), hex.EncodeToString(sum[:])[:6])
}
