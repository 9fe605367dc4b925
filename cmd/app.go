package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/cliexec"
	"github.com/opsgate/opsgate/internal/config"
	"github.com/opsgate/opsgate/internal/gateway"
	"github.com/opsgate/opsgate/internal/playbook"
	"github.com/opsgate/opsgate/internal/provider"
)

// app wires the gateways, the playbook engine, and the audit store from
// the resolved configuration. Commands build one per invocation.
type app struct {
	cfg      config.Config
	runner   *cliexec.Executor
	gateways map[provider.Kind]*gateway.Gateway
	executor *playbook.Executor
	catalog  []*playbook.Playbook
	store    *audit.Store
	writer   io.Writer
	debug    bool
}

func buildApp() (*app, error) {
	cfg := config.Load()
	debug := viper.GetBool("debug")

	a := &app{
		cfg:      cfg,
		runner:   cliexec.New(cfg.Limits),
		gateways: make(map[provider.Kind]*gateway.Gateway),
		writer:   os.Stderr,
		debug:    debug,
	}

	var opts []gateway.Option
	opts = append(opts, gateway.WithRunner(a.runner))
	if debug {
		opts = append(opts, gateway.WithDebug(a.writer))
	}
	for _, kind := range provider.Kinds() {
		a.gateways[kind] = gateway.New(kind, cfg, opts...)
	}

	if dbPath := viper.GetString("audit.db"); dbPath != "" {
		store, err := audit.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		a.store = store
	}

	catalog, err := playbook.LoadCatalog()
	if err != nil {
		return nil, err
	}
	if extra := viper.GetString("playbooks.catalog"); extra != "" {
		more, err := playbook.LoadFile(extra)
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, more...)
	}
	a.catalog = catalog

	registry := playbook.NewRegistry()
	playbook.RegisterBuiltins(registry, a.gateways, a.runner)

	var execOpts []playbook.ExecutorOption
	if a.store != nil {
		execOpts = append(execOpts, playbook.WithRecorder(a.store))
	}
	if debug {
		execOpts = append(execOpts, playbook.WithWriter(a.writer))
	}
	a.executor = playbook.NewExecutor(registry, cfg.Limits, execOpts...)

	return a, nil
}

func (a *app) close() {
	for _, gw := range a.gateways {
		gw.Stop()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// startGateway starts one provider gateway with context resolved from
// viper (config file keys like aws.profile) unless already overridden.
func (a *app) startGateway(kind provider.Kind, info gateway.ContextInfo) error {
	if info.Profile == "" {
		info.Profile = viper.GetString("aws.profile")
	}
	if info.Region == "" {
		info.Region = viper.GetString("aws.region")
	}
	if info.SubscriptionID == "" {
		info.SubscriptionID = viper.GetString("azure.subscription")
	}
	if info.TenantID == "" {
		info.TenantID = viper.GetString("azure.tenant")
	}
	if info.ProjectID == "" {
		info.ProjectID = viper.GetString("gcp.project")
	}
	return a.gateways[kind].Start(info)
}

// startAllGateways starts every gateway whose CLI binary is installed.
// Missing binaries are reported but do not abort; actions that need the
// missing provider fail with a clear message instead.
func (a *app) startAllGateways() {
	for _, kind := range provider.Kinds() {
		if err := a.startGateway(kind, gateway.ContextInfo{}); err != nil {
			fmt.Fprintf(a.writer, "warning: %v\n", err)
		}
	}
}

// adoptExecution loads a persisted execution from the audit store and
// hands it to this process's executor. Each CLI invocation starts with
// an empty engine, so approve/reject/rollback rehydrate through here.
func (a *app) adoptExecution(executionID string) error {
	if a.store == nil {
		return fmt.Errorf("no audit store configured; set --audit-db or OPSGATE_AUDIT_DB")
	}
	ex, err := a.store.Execution(executionID)
	if err != nil {
		return err
	}
	p, err := a.findPlaybook(ex.PlaybookID)
	if err != nil {
		return err
	}
	return a.executor.Adopt(ex, p)
}

// findPlaybook resolves a catalog entry by ID.
func (a *app) findPlaybook(id string) (*playbook.Playbook, error) {
	for _, p := range a.catalog {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown playbook %q; run 'opsgate playbook list'", id)
}

// recordCommand appends a command entry to the audit store when one is
// configured.
func (a *app) recordCommand(kind provider.Kind, command string, res cliexec.Result) {
	if a.store == nil {
		return
	}
	err := a.store.RecordCommand(audit.CommandEntry{
		Provider:  kind,
		Command:   command,
		Status:    string(res.Status),
		ErrorKind: string(res.ErrorKind),
		ExitCode:  res.ExitCode,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Warnings:  res.Warnings,
	})
	if err != nil && a.debug {
		fmt.Fprintf(a.writer, "warning: audit record failed: %v\n", err)
	}
}
