package playbook

import "time"

// Status is the playbook execution state machine's node set.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"
	StatusRunning          Status = "RUNNING"
	StatusCompleted        Status = "COMPLETED"
	StatusFailed           Status = "FAILED"
	StatusRejected         Status = "REJECTED"
	StatusRolledBack       Status = "ROLLED_BACK"
)

// Terminal reports whether no further transitions are possible, except
// Completed → RolledBack via Rollback.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected, StatusRolledBack:
		return true
	}
	return false
}

// ActionStatus is the per-action state.
type ActionStatus string

const (
	ActionPending    ActionStatus = "PENDING"
	ActionRunning    ActionStatus = "RUNNING"
	ActionCompleted  ActionStatus = "COMPLETED"
	ActionFailed     ActionStatus = "FAILED"
	ActionSkipped    ActionStatus = "SKIPPED"
	ActionRolledBack ActionStatus = "ROLLED_BACK"
)

// ActionResult records the outcome of one action within an execution.
// RollbackToken is captured by the handler at success and consumed by the
// rollback sub-handler; RollbackNote annotates what happened to this
// action during a rollback pass.
type ActionResult struct {
	Name          string       `json:"name"`
	Kind          string       `json:"kind"`
	Status        ActionStatus `json:"status"`
	StartedAt     time.Time    `json:"started_at"`
	EndedAt       time.Time    `json:"ended_at"`
	Message       string       `json:"message"`
	Error         string       `json:"error,omitempty"`
	RollbackToken string       `json:"rollback_token,omitempty"`
	RollbackNote  string       `json:"rollback_note,omitempty"`
}

// Execution is the mutable record of one playbook run. Callers receive
// copies; the executor owns the live record.
type Execution struct {
	ExecutionID     string         `json:"execution_id"`
	PlaybookID      string         `json:"playbook_id"`
	PlaybookName    string         `json:"playbook_name"`
	FindingID       string         `json:"finding_id"`
	Finding         Finding        `json:"finding"`
	Initiator       string         `json:"initiator"`
	StartedAt       time.Time      `json:"started_at"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
	Status          Status         `json:"status"`
	DryRun          bool           `json:"dry_run"`
	ActionResults   []ActionResult `json:"action_results"`
	Approver        string         `json:"approver,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	FailureReason   string         `json:"failure_reason,omitempty"`
	// RollbackDirty flags a rollback pass that hit per-action failures and
	// needs inspection; the terminal status stays ROLLED_BACK.
	RollbackDirty bool `json:"rollback_dirty,omitempty"`
}

func (e *Execution) clone() Execution {
	out := *e
	out.ActionResults = append([]ActionResult(nil), e.ActionResults...)
	if e.EndedAt != nil {
		ended := *e.EndedAt
		out.EndedAt = &ended
	}
	return out
}
