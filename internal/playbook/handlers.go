package playbook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opsgate/opsgate/internal/cliexec"
	"github.com/opsgate/opsgate/internal/gateway"
	"github.com/opsgate/opsgate/internal/pipeline"
	"github.com/opsgate/opsgate/internal/provider"
)

// RegisterBuiltins installs the aws, gcp, azure, notification, and script
// handlers plus their rollback counterparts. gateways maps each provider
// to its started gateway; runner backs the script kind for non-provider
// commands.
func RegisterBuiltins(reg *Registry, gateways map[provider.Kind]*gateway.Gateway, runner cliexec.Runner) {
	for _, kind := range []provider.Kind{provider.AWS, provider.GCP, provider.Azure} {
		kind := kind
		reg.Register(string(kind), providerHandler(kind, gateways))
		reg.RegisterRollback(string(kind), providerRollback(kind, gateways))
	}
	reg.Register("notification", notificationHandler)
	reg.RegisterRollback("notification", func(context.Context, Action, string, *HandlerContext) error {
		// Notifications have nothing to undo.
		return nil
	})
	reg.Register("script", scriptHandler(gateways, runner))
	reg.RegisterRollback("script", scriptRollback(gateways, runner))
}

// providerHandler runs params["command"] through the provider's gateway,
// so policy, pipeline validation, and context injection all apply to
// playbook actions exactly as they do to interactive commands.
func providerHandler(kind provider.Kind, gateways map[provider.Kind]*gateway.Gateway) Handler {
	return func(ctx context.Context, action Action, dryRun bool, hctx *HandlerContext) ActionResult {
		ar := ActionResult{Name: action.Name, Kind: action.Kind, StartedAt: time.Now().UTC()}

		command, err := commandParam(action, "command", hctx.Finding)
		if err != nil {
			return failed(ar, err.Error())
		}

		if dryRun {
			ar.Status = ActionCompleted
			ar.Message = fmt.Sprintf("[DRY-RUN] would execute: %s", command)
			ar.EndedAt = time.Now().UTC()
			return ar
		}

		gw, ok := gateways[kind]
		if !ok || gw == nil {
			return failed(ar, fmt.Sprintf("no %s gateway configured", kind))
		}

		res := gw.ExecuteCommand(ctx, command)
		if res.Status != cliexec.StatusSuccess {
			return failed(ar, res.Output)
		}

		ar.Status = ActionCompleted
		ar.Message = summarize(res.Output)
		if rollback, ok := action.Params["rollback_command"].(string); ok && rollback != "" {
			ar.RollbackToken = substitute(rollback, hctx.Finding)
		}
		ar.EndedAt = time.Now().UTC()
		return ar
	}
}

// providerRollback executes the recorded rollback command through the
// same gateway.
func providerRollback(kind provider.Kind, gateways map[provider.Kind]*gateway.Gateway) RollbackHandler {
	return func(ctx context.Context, action Action, token string, hctx *HandlerContext) error {
		gw, ok := gateways[kind]
		if !ok || gw == nil {
			return fmt.Errorf("no %s gateway configured", kind)
		}
		res := gw.ExecuteCommand(ctx, token)
		if res.Status != cliexec.StatusSuccess {
			return fmt.Errorf("rollback command failed: %s", res.Output)
		}
		return nil
	}
}

// notificationHandler records the message that would be sent. Delivery
// transports hang off params["channel"] when one is wired in.
func notificationHandler(_ context.Context, action Action, dryRun bool, hctx *HandlerContext) ActionResult {
	ar := ActionResult{Name: action.Name, Kind: action.Kind, StartedAt: time.Now().UTC()}

	message, err := commandParam(action, "message", hctx.Finding)
	if err != nil {
		return failed(ar, err.Error())
	}

	if dryRun {
		ar.Message = fmt.Sprintf("[DRY-RUN] would notify: %s", message)
	} else {
		ar.Message = fmt.Sprintf("notification recorded: %s", message)
		if hctx.Writer != nil {
			_, _ = fmt.Fprintf(hctx.Writer, "[notify] %s\n", message)
		}
	}
	ar.Status = ActionCompleted
	ar.EndedAt = time.Now().UTC()
	return ar
}

// scriptHandler runs params["command"]. Provider-prefixed commands route
// through the matching gateway; anything else is parsed and handed to the
// runner directly, still with no shell involved.
func scriptHandler(gateways map[provider.Kind]*gateway.Gateway, runner cliexec.Runner) Handler {
	return func(ctx context.Context, action Action, dryRun bool, hctx *HandlerContext) ActionResult {
		ar := ActionResult{Name: action.Name, Kind: action.Kind, StartedAt: time.Now().UTC()}

		command, err := commandParam(action, "command", hctx.Finding)
		if err != nil {
			return failed(ar, err.Error())
		}

		if dryRun {
			ar.Status = ActionCompleted
			ar.Message = fmt.Sprintf("[DRY-RUN] would execute: %s", command)
			ar.EndedAt = time.Now().UTC()
			return ar
		}

		res := runScript(ctx, gateways, runner, command)
		if res.Status != cliexec.StatusSuccess {
			return failed(ar, res.Output)
		}

		ar.Status = ActionCompleted
		ar.Message = summarize(res.Output)
		if rollback, ok := action.Params["rollback_command"].(string); ok && rollback != "" {
			ar.RollbackToken = substitute(rollback, hctx.Finding)
		}
		ar.EndedAt = time.Now().UTC()
		return ar
	}
}

func scriptRollback(gateways map[provider.Kind]*gateway.Gateway, runner cliexec.Runner) RollbackHandler {
	return func(ctx context.Context, _ Action, token string, _ *HandlerContext) error {
		res := runScript(ctx, gateways, runner, token)
		if res.Status != cliexec.StatusSuccess {
			return fmt.Errorf("rollback command failed: %s", res.Output)
		}
		return nil
	}
}

func runScript(ctx context.Context, gateways map[provider.Kind]*gateway.Gateway, runner cliexec.Runner, command string) cliexec.Result {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return cliexec.ValidationFailure("empty command")
	}
	first := strings.ToLower(fields[0])
	for kind, gw := range gateways {
		if gw == nil {
			continue
		}
		for _, prefix := range kind.Prefixes() {
			if first == prefix {
				return gw.ExecuteCommand(ctx, command)
			}
		}
	}

	if runner == nil {
		return cliexec.ValidationFailure("no runner configured for script actions")
	}
	stages, err := pipeline.Parse(command)
	if err != nil {
		return cliexec.ValidationFailure(err.Error())
	}
	return runner.Run(ctx, stages, cliexec.Options{})
}

// commandParam fetches a required string param and expands finding
// placeholders in it.
func commandParam(action Action, key string, f Finding) (string, error) {
	raw, ok := action.Params[key].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("action %q is missing required param %q", action.Name, key)
	}
	return substitute(raw, f), nil
}

// substitute expands {resource}, {finding_id}, {category}, and {severity}
// placeholders from the finding.
func substitute(s string, f Finding) string {
	r := strings.NewReplacer(
		"{resource}", f.Resource,
		"{finding_id}", f.ID,
		"{category}", f.Category,
		"{severity}", f.Severity,
	)
	return r.Replace(s)
}

func failed(ar ActionResult, msg string) ActionResult {
	ar.Status = ActionFailed
	ar.Error = msg
	ar.EndedAt = time.Now().UTC()
	return ar
}

// summarize keeps action messages short; full output belongs to the
// command audit trail, not the execution record.
func summarize(output string) string {
	out := strings.TrimSpace(output)
	if out == "" {
		return "completed"
	}
	if len(out) > 200 {
		return out[:200] + "..."
	}
	return out
}
