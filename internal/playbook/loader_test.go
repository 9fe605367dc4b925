package playbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opsgate/opsgate/internal/config"
)

func TestLoadCatalog(t *testing.T) {
	playbooks, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(playbooks) < 3 {
		t.Fatalf("catalog has %d playbooks, want at least 3", len(playbooks))
	}

	byID := make(map[string]*Playbook)
	for _, p := range playbooks {
		byID[p.ID()] = p
	}

	s3, ok := byID["s3-public-access-lockdown"]
	if !ok {
		t.Fatal("catalog missing s3-public-access-lockdown")
	}
	if !s3.RequiresApproval() {
		t.Error("s3 lockdown must require approval")
	}
	if !s3.RollbackEnabled() {
		t.Error("s3 lockdown must support rollback")
	}
	if s3.Timeout() != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", s3.Timeout())
	}

	actions := s3.Actions()
	if len(actions) != 3 {
		t.Fatalf("s3 lockdown actions = %d, want 3", len(actions))
	}
	if actions[0].Kind != "aws" {
		t.Errorf("first action kind = %q, want aws", actions[0].Kind)
	}
	command, _ := actions[0].Params["command"].(string)
	if !strings.Contains(command, "{resource}") {
		t.Errorf("command = %q, want a {resource} placeholder", command)
	}
	if actions[2].Kind != "notification" {
		t.Errorf("last action kind = %q, want notification", actions[2].Kind)
	}
}

func TestLoadCatalogHandlersResolvable(t *testing.T) {
	playbooks, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	reg := NewRegistry()
	RegisterBuiltins(reg, nil, nil)
	e := NewExecutor(reg, config.DefaultLimits())

	for _, p := range playbooks {
		if err := e.Validate(p); err != nil {
			t.Errorf("catalog playbook %s fails validation: %v", p.ID(), err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	content := `playbooks:
  - id: custom-pb
    name: Custom Playbook
    category: network
    severity: medium
    requires_approval: false
    rollback_enabled: false
    timeout: 90s
    actions:
      - name: check
        kind: azure
        params:
          command: az network nsg show --name {resource}
      - name: notify
        kind: notification
        when:
          severity: high
        params:
          message: "nsg {resource} inspected"
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	playbooks, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(playbooks) != 1 {
		t.Fatalf("playbooks length = %d, want 1", len(playbooks))
	}

	p := playbooks[0]
	if p.RequiresApproval() {
		t.Error("requires_approval: false not honored")
	}
	if p.RollbackEnabled() {
		t.Error("rollback_enabled: false not honored")
	}
	if p.Timeout() != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", p.Timeout())
	}

	actions := p.Actions()
	if actions[1].Predicate == nil {
		t.Fatal("when clause produced no predicate")
	}
	if actions[1].Predicate(Finding{Severity: "low"}) {
		t.Error("predicate matched a low-severity finding")
	}
	if !actions[1].Predicate(Finding{Severity: "HIGH"}) {
		t.Error("predicate must match case-insensitively")
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "{{{{"},
		{"empty catalog", "playbooks: []"},
		{"duplicate ids", `playbooks:
  - id: dup
    name: One
    actions:
      - name: a
        kind: aws
        params: {command: aws s3 ls}
  - id: dup
    name: Two
    actions:
      - name: a
        kind: aws
        params: {command: aws s3 ls}
`},
		{"bad timeout", `playbooks:
  - id: pb
    name: Bad Timeout
    timeout: soon
    actions:
      - name: a
        kind: aws
        params: {command: aws s3 ls}
`},
		{"no actions", `playbooks:
  - id: pb
    name: Empty
    actions: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write catalog: %v", err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("LoadFile succeeded, want error")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFile on missing file succeeded, want error")
	}
}
