package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/opsgate/opsgate/internal/playbook"
	"github.com/opsgate/opsgate/internal/provider"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListCommands(t *testing.T) {
	s := newTestStore(t)

	entries := []CommandEntry{
		{Provider: provider.AWS, Command: "aws s3 ls", Status: "success", ExitCode: 0, ElapsedMS: 120},
		{Provider: provider.Azure, Command: "az vm list", Status: "error", ErrorKind: "auth_error", ExitCode: 1, Warnings: []string{"w1", "w2"}},
	}
	for _, e := range entries {
		if err := s.RecordCommand(e); err != nil {
			t.Fatalf("RecordCommand failed: %v", err)
		}
	}

	got, err := s.ListCommands(0)
	if err != nil {
		t.Fatalf("ListCommands failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListCommands length = %d, want 2", len(got))
	}

	// Newest first.
	if got[0].Command != "az vm list" {
		t.Errorf("first entry = %q, want az vm list", got[0].Command)
	}
	if got[0].ErrorKind != "auth_error" {
		t.Errorf("ErrorKind = %q, want auth_error", got[0].ErrorKind)
	}
	if len(got[0].Warnings) != 2 {
		t.Errorf("Warnings = %v, want two entries", got[0].Warnings)
	}
	if got[1].Provider != provider.AWS {
		t.Errorf("Provider = %s, want aws", got[1].Provider)
	}
	if got[1].CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}

func TestListCommandsLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.RecordCommand(CommandEntry{Provider: provider.AWS, Command: "aws s3 ls", Status: "success"}); err != nil {
			t.Fatalf("RecordCommand failed: %v", err)
		}
	}

	got, err := s.ListCommands(3)
	if err != nil {
		t.Fatalf("ListCommands failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ListCommands length = %d, want 3", len(got))
	}
}

func testExecution(id string, status playbook.Status) playbook.Execution {
	started := time.Now().UTC().Add(-time.Minute)
	ended := time.Now().UTC()
	return playbook.Execution{
		ExecutionID:  id,
		PlaybookID:   "pb-1",
		PlaybookName: "Test Playbook",
		FindingID:    "f-1",
		Finding:      playbook.Finding{ID: "f-1", Resource: "bucket-1", Category: "storage", Severity: "high"},
		Initiator:    "alice",
		StartedAt:    started,
		EndedAt:      &ended,
		Status:       status,
		ActionResults: []playbook.ActionResult{
			{Name: "a", Kind: "aws", Status: playbook.ActionCompleted, Message: "ok", RollbackToken: "undo"},
		},
	}
}

func TestRecordAndReadExecutions(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record(testExecution("ex-1", playbook.StatusCompleted)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := s.Executions("", 0)
	if err != nil {
		t.Fatalf("Executions failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Executions length = %d, want 1", len(got))
	}

	ex := got[0]
	if ex.ExecutionID != "ex-1" || ex.Status != playbook.StatusCompleted {
		t.Errorf("execution = %+v", ex)
	}
	if len(ex.ActionResults) != 1 || ex.ActionResults[0].RollbackToken != "undo" {
		t.Errorf("ActionResults = %+v, detail round-trip lost data", ex.ActionResults)
	}
}

func TestExecutionByID(t *testing.T) {
	s := newTestStore(t)

	// A parked execution has no end time yet.
	parked := testExecution("ex-parked", playbook.StatusAwaitingApproval)
	parked.EndedAt = nil
	parked.ActionResults = nil
	if err := s.Record(parked); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := s.Execution("ex-parked")
	if err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	if got.Status != playbook.StatusAwaitingApproval {
		t.Errorf("Status = %s, want AWAITING_APPROVAL", got.Status)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil on a parked execution", got.EndedAt)
	}
	// The finding survives the round trip so a fresh process can adopt
	// and resume the execution.
	if got.Finding.Resource != "bucket-1" || got.Finding.Severity != "high" {
		t.Errorf("Finding = %+v, round-trip lost data", got.Finding)
	}

	if _, err := s.Execution("ex-missing"); err == nil {
		t.Error("Execution for unknown ID = nil error, want not-found")
	}
}

func TestRecordUpsertsOnRollback(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record(testExecution("ex-1", playbook.StatusCompleted)); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	// The same execution reaches a second terminal state after rollback.
	if err := s.Record(testExecution("ex-1", playbook.StatusRolledBack)); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	got, err := s.Executions("", 0)
	if err != nil {
		t.Fatalf("Executions failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Executions length = %d, want 1 (upsert, not insert)", len(got))
	}
	if got[0].Status != playbook.StatusRolledBack {
		t.Errorf("Status = %s, want ROLLED_BACK", got[0].Status)
	}
}

func TestExecutionsFilterByPlaybook(t *testing.T) {
	s := newTestStore(t)

	ex := testExecution("ex-1", playbook.StatusCompleted)
	if err := s.Record(ex); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	other := testExecution("ex-2", playbook.StatusFailed)
	other.PlaybookID = "pb-other"
	if err := s.Record(other); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := s.Executions("pb-1", 0)
	if err != nil {
		t.Fatalf("Executions failed: %v", err)
	}
	if len(got) != 1 || got[0].PlaybookID != "pb-1" {
		t.Errorf("filtered executions = %+v, want only pb-1", got)
	}
}
