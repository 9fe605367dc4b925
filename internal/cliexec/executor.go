// Package cliexec runs validated provider commands as direct child
// processes. No shell is ever invoked: each pipeline stage is spawned with
// an explicit argv and stages are wired together with OS pipes. Every run
// is bounded in wall-clock time and output size.
package cliexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/opsgate/opsgate/internal/config"
	"github.com/opsgate/opsgate/internal/pipeline"
	"github.com/opsgate/opsgate/internal/provider"
)

// terminateGrace is how long a child gets between SIGTERM and SIGKILL
// once the deadline fires.
const terminateGrace = 500 * time.Millisecond

// Options shapes a single Run call.
type Options struct {
	// Provider selects the auth-error patterns applied to stage 0 stderr.
	Provider provider.Kind
	// ExtraArgs are appended to the provider stage (context injection such
	// as --profile or --subscription).
	ExtraArgs []string
	// Env entries are overlaid on the inherited environment.
	Env []string
	// Writer receives debug notes when Debug is set.
	Writer io.Writer
	Debug  bool
}

// Runner is the execution seam: the gateway and the playbook handlers
// depend on it so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, stages []pipeline.Stage, opts Options) Result
}

// Executor spawns bounded child processes. Safe for concurrent use; the
// children semaphore caps how many child processes run at once across all
// callers.
type Executor struct {
	limits   config.Limits
	children chan struct{}
}

// New builds an executor with the given limits.
func New(limits config.Limits) *Executor {
	if limits.MaxWallClock <= 0 {
		limits.MaxWallClock = config.DefaultMaxWallClock
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = config.DefaultMaxOutputBytes
	}
	if limits.MaxChildren <= 0 {
		limits.MaxChildren = config.DefaultMaxChildren
	}
	return &Executor{
		limits:   limits,
		children: make(chan struct{}, limits.MaxChildren),
	}
}

// Limits returns the executor's resource bounds.
func (e *Executor) Limits() config.Limits {
	return e.limits
}

// Run executes the stages as one pipeline under a shared deadline. The
// call blocks until every child has been reaped.
func (e *Executor) Run(ctx context.Context, stages []pipeline.Stage, opts Options) Result {
	start := time.Now()

	if len(stages) == 0 {
		return ValidationFailure("empty command")
	}

	if !e.acquire(len(stages)) {
		return Result{
			Status:    StatusError,
			ErrorKind: ErrKindResourceExhausted,
			Output:    fmt.Sprintf("concurrent child process limit (%d) reached", e.limits.MaxChildren),
			ExitCode:  -1,
			Elapsed:   time.Since(start),
		}
	}
	defer e.release(len(stages))

	runCtx, cancel := context.WithTimeout(ctx, e.limits.MaxWallClock)
	defer cancel()

	cmds := make([]*exec.Cmd, len(stages))
	stderrs := make([]*cappedBuffer, len(stages))
	stdout := &cappedBuffer{max: e.limits.MaxOutputBytes}

	for i, st := range stages {
		args := st.Args
		if i == 0 && len(opts.ExtraArgs) > 0 {
			args = append(append([]string{}, args...), opts.ExtraArgs...)
		}

		cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
		cmd.Env = append(os.Environ(), opts.Env...)
		cmd.WaitDelay = terminateGrace
		cmd.Cancel = func() error {
			// SIGTERM first; WaitDelay escalates to SIGKILL.
			return cmd.Process.Signal(syscall.SIGTERM)
		}

		stderrs[i] = &cappedBuffer{max: e.limits.MaxOutputBytes}
		cmd.Stderr = stderrs[i]
		cmds[i] = cmd
	}
	cmds[len(cmds)-1].Stdout = stdout

	// Wire stage N's stdout to stage N+1's stdin through OS pipes. The
	// parent closes its copies after start so EOF propagates.
	var parentClose []*os.File
	for i := 0; i < len(cmds)-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			return Result{
				Status:    StatusError,
				ErrorKind: ErrKindExecutionError,
				Output:    fmt.Sprintf("failed to create pipe: %v", err),
				ExitCode:  -1,
				Elapsed:   time.Since(start),
			}
		}
		cmds[i].Stdout = pw
		cmds[i+1].Stdin = pr
		parentClose = append(parentClose, pr, pw)
	}

	started := 0
	var startErr error
	for _, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			startErr = err
			break
		}
		started++
	}
	for _, f := range parentClose {
		_ = f.Close()
	}
	if startErr != nil {
		cancel()
		for i := 0; i < started; i++ {
			_ = cmds[i].Wait()
		}
		return Result{
			Status:    StatusError,
			ErrorKind: ErrKindExecutionError,
			Output:    fmt.Sprintf("failed to start %q: %v", stages[started].Args[0], startErr),
			ExitCode:  -1,
			Elapsed:   time.Since(start),
		}
	}

	if opts.Debug && opts.Writer != nil {
		_, _ = fmt.Fprintf(opts.Writer, "[exec] running %d stage(s): %s\n", len(stages), stages[0].Raw)
	}

	exitCodes := make([]int, len(cmds))
	for i, cmd := range cmds {
		err := cmd.Wait()
		exitCodes[i] = exitCode(cmd, err)
	}

	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Status:    StatusError,
			ErrorKind: ErrKindTimeout,
			Output:    fmt.Sprintf("command timed out after %s", e.limits.MaxWallClock),
			ExitCode:  exitCodes[len(exitCodes)-1],
			Elapsed:   elapsed,
		}
	}

	// The provider stage's stderr decides auth failures even when a later
	// utility stage succeeded.
	providerStderr := stderrs[0].String()
	if opts.Provider != "" && opts.Provider.IsAuthError(providerStderr) {
		return Result{
			Status:    StatusError,
			ErrorKind: ErrKindAuthError,
			Output:    fmt.Sprintf("authentication error: %s (hint: %s)", strings.TrimSpace(providerStderr), opts.Provider.LoginHint()),
			ExitCode:  exitCodes[0],
			Truncated: stderrs[0].Truncated(),
			Elapsed:   elapsed,
		}
	}

	for i, code := range exitCodes {
		if code == 0 {
			continue
		}
		// grep exits 1 on no match; that is a result, not a failure.
		if i > 0 && stages[i].Args[0] == "grep" && code == 1 {
			continue
		}
		errOut := strings.TrimSpace(stderrs[i].String())
		if errOut == "" {
			errOut = fmt.Sprintf("command %q failed with exit code %d", stages[i].Args[0], code)
		}
		return Result{
			Status:    StatusError,
			ErrorKind: ErrKindExecutionError,
			Output:    errOut,
			ExitCode:  code,
			Truncated: stderrs[i].Truncated(),
			Elapsed:   elapsed,
		}
	}

	res := Result{
		Status:    StatusSuccess,
		Output:    stdout.String(),
		ExitCode:  0,
		Truncated: stdout.Truncated(),
		Elapsed:   elapsed,
	}
	if !res.Truncated {
		if structured, ok := parseJSON(res.Output); ok {
			res.Structured = structured
		}
	}
	return res
}

// CheckBinary verifies the provider binary is reachable via PATH.
func CheckBinary(kind provider.Kind) error {
	if _, err := exec.LookPath(kind.Binary()); err != nil {
		return fmt.Errorf("%s CLI not found in PATH: %w", kind.Binary(), err)
	}
	return nil
}

func (e *Executor) acquire(n int) bool {
	for i := 0; i < n; i++ {
		select {
		case e.children <- struct{}{}:
		default:
			e.release(i)
			return false
		}
	}
	return true
}

func (e *Executor) release(n int) {
	for i := 0; i < n; i++ {
		<-e.children
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func parseJSON(output string) (any, bool) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, false
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// CLIs sometimes append status text after a JSON document. Only a
	// single document with nothing behind it counts as structured.
	if dec.Decode(new(any)) != io.EOF {
		return nil, false
	}
	return v, true
}
