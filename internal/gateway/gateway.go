// Package gateway exposes one façade per cloud provider. A gateway owns
// its execution context (profile, subscription, or project), interprets
// natural language, enforces policy, and hands validated pipelines to the
// process executor.
package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/opsgate/opsgate/internal/cliexec"
	"github.com/opsgate/opsgate/internal/config"
	"github.com/opsgate/opsgate/internal/nlp"
	"github.com/opsgate/opsgate/internal/pipeline"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/opsgate/opsgate/internal/provider"
)

// ContextInfo identifies which account a gateway operates against. Only
// the fields for the gateway's provider are consulted.
type ContextInfo struct {
	Provider       provider.Kind `json:"provider"`
	Profile        string        `json:"profile,omitempty"`
	Region         string        `json:"region,omitempty"`
	SubscriptionID string        `json:"subscription_id,omitempty"`
	TenantID       string        `json:"tenant_id,omitempty"`
	ProjectID      string        `json:"project_id,omitempty"`
}

// Gateway mediates every command sent to one provider CLI. Safe for
// concurrent use.
type Gateway struct {
	kind     provider.Kind
	policy   *policy.Engine
	interp   *nlp.Interpreter
	runner   cliexec.Runner
	binCheck func(provider.Kind) error
	writer   io.Writer
	debug    bool

	mu       sync.Mutex
	ctxInfo  ContextInfo
	contexts []ContextInfo
	running  bool
}

// Option customizes a gateway at construction.
type Option func(*Gateway)

// WithRunner substitutes the process executor, used by tests and by the
// playbook engine's dry-run plumbing.
func WithRunner(r cliexec.Runner) Option {
	return func(g *Gateway) { g.runner = r }
}

// WithBinaryCheck substitutes the PATH lookup performed at Start.
func WithBinaryCheck(fn func(provider.Kind) error) Option {
	return func(g *Gateway) { g.binCheck = fn }
}

// WithDebug routes progress notes to w.
func WithDebug(w io.Writer) Option {
	return func(g *Gateway) { g.writer = w; g.debug = w != nil }
}

// New builds a gateway for kind with the given security configuration.
func New(kind provider.Kind, cfg config.Config, opts ...Option) *Gateway {
	g := &Gateway{
		kind:     kind,
		policy:   policy.New(cfg.Mode),
		interp:   nlp.New(),
		runner:   cliexec.New(cfg.Limits),
		binCheck: cliexec.CheckBinary,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kind returns the gateway's provider.
func (g *Gateway) Kind() provider.Kind {
	return g.kind
}

// Start verifies the provider binary is installed and records the desired
// context. Calling Start on a running gateway replaces the context.
func (g *Gateway) Start(ctx ContextInfo) error {
	if err := g.binCheck(g.kind); err != nil {
		return fmt.Errorf("gateway start failed: %w", err)
	}

	ctx.Provider = g.kind

	g.mu.Lock()
	defer g.mu.Unlock()
	g.ctxInfo = ctx
	g.appendContextLocked(ctx)
	g.running = true

	if g.debug {
		_, _ = fmt.Fprintf(g.writer, "[gateway] %s started\n", g.kind)
	}
	return nil
}

// Stop is idempotent. Outstanding ExecuteCommand calls are self-contained
// and unaffected.
func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
}

// IsRunning reports whether Start has succeeded and Stop has not been
// called since.
func (g *Gateway) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// CurrentContext returns the context recorded by the last Start.
func (g *Gateway) CurrentContext() ContextInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctxInfo
}

// ListContexts returns every context this gateway has been started with.
func (g *Gateway) ListContexts() []ContextInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ContextInfo, len(g.contexts))
	copy(out, g.contexts)
	return out
}

// ExecuteCommand resolves, validates, and runs one command. Expected
// failures come back as structured results, never as errors.
func (g *Gateway) ExecuteCommand(ctx context.Context, text string) cliexec.Result {
	g.mu.Lock()
	running := g.running
	info := g.ctxInfo
	g.mu.Unlock()

	if !running {
		return cliexec.ValidationFailure("gateway not started; call Start first")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return cliexec.ValidationFailure("empty command")
	}

	// A provider prefix takes precedence: malformed CLI text is reported
	// as-is rather than reinterpreted as natural language.
	if !g.hasProviderPrefix(text) {
		interpreted, ok := g.interp.Interpret(g.kind, text)
		if !ok {
			return cliexec.ValidationFailure(fmt.Sprintf("cannot interpret %q; use %s CLI syntax or a different phrase", text, g.kind))
		}
		if g.debug {
			_, _ = fmt.Fprintf(g.writer, "[gateway] interpreted %q as %q\n", text, interpreted)
		}
		text = interpreted
	}

	stages, err := pipeline.Parse(text)
	if err != nil {
		return cliexec.ValidationFailure(err.Error())
	}
	if err := pipeline.Validate(g.kind, stages); err != nil {
		return cliexec.ValidationFailure(err.Error())
	}

	decision := g.policy.Validate(g.kind, stages[0].Args)
	if !decision.Allowed {
		return cliexec.ValidationFailure(decision.Reason)
	}

	extraArgs, env := g.injection(info, stages[0].Args)
	res := g.runner.Run(ctx, stages, cliexec.Options{
		Provider:  g.kind,
		ExtraArgs: extraArgs,
		Env:       env,
		Writer:    g.writer,
		Debug:     g.debug,
	})
	if decision.Warning != "" {
		res.Warnings = append(res.Warnings, decision.Warning)
	}
	return res
}

func (g *Gateway) hasProviderPrefix(text string) bool {
	first := strings.ToLower(strings.Fields(text)[0])
	for _, p := range g.kind.Prefixes() {
		if first == p {
			return true
		}
	}
	return false
}

// injection computes the context arguments and environment overlay for
// the provider stage. Nothing is injected when the user already supplied
// the equivalent flag.
func (g *Gateway) injection(info ContextInfo, stage0 []string) (extraArgs, env []string) {
	switch g.kind {
	case provider.AWS:
		if info.Profile != "" && !hasFlag(stage0, "--profile") {
			extraArgs = append(extraArgs, "--profile", info.Profile)
		}
		if info.Region != "" && !hasFlag(stage0, "--region") {
			extraArgs = append(extraArgs, "--region", info.Region)
		}
	case provider.Azure:
		if info.SubscriptionID != "" && !hasFlag(stage0, "--subscription") {
			extraArgs = append(extraArgs, "--subscription", info.SubscriptionID)
		}
		if info.TenantID != "" {
			env = append(env, "AZURE_TENANT_ID="+info.TenantID)
		}
	case provider.GCP:
		// gcloud and gsutil both honor the project environment; gsutil has
		// no --project flag, so the environment is the common path.
		if info.ProjectID != "" && !hasFlag(stage0, "--project") {
			env = append(env,
				"GOOGLE_CLOUD_PROJECT="+info.ProjectID,
				"CLOUDSDK_CORE_PROJECT="+info.ProjectID,
			)
		}
	}
	return extraArgs, env
}

func (g *Gateway) appendContextLocked(ctx ContextInfo) {
	for _, existing := range g.contexts {
		if existing == ctx {
			return
		}
	}
	g.contexts = append(g.contexts, ctx)
}

func hasFlag(args []string, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range args {
		lower := strings.ToLower(strings.TrimSpace(a))
		if lower == name || strings.HasPrefix(lower, name+"=") {
			return true
		}
	}
	return false
}
