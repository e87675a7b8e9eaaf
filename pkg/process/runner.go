// Package process runs external commands and captures their combined output.
//
// A Runner never returns an error value: launch failures are reported as a
// Result with exit code 1 and no PID, so callers only ever inspect the exit
// code and output of a Result.
package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/holon-run/version-check/pkg/log"
)

// Result is the outcome of one external command invocation.
type Result struct {
	// Stdout holds stdout and stderr merged in write order.
	Stdout string
	// Stderr is always empty because stderr is merged into Stdout. It is kept
	// so callers can treat Result like any other command capture.
	Stderr   string
	ExitCode int
	// PID is 0 when the process could not be launched.
	PID int
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Launched reports whether a process was actually started.
func (r Result) Launched() bool {
	return r.PID != 0
}

// Runner executes an argument vector.
type Runner interface {
	Run(ctx context.Context, argv []string) Result
}

// ExecRunner runs commands as subprocesses via os/exec.
type ExecRunner struct {
	// Env is appended to the current process environment.
	Env []string
	// Timeout bounds each invocation. Zero means no timeout.
	Timeout time.Duration
}

// NewExecRunner returns an ExecRunner with the given extra environment.
func NewExecRunner(timeout time.Duration, env ...string) *ExecRunner {
	return &ExecRunner{Env: env, Timeout: timeout}
}

// Run launches argv[0] with argv[1:] and blocks until it exits.
func (r *ExecRunner) Run(ctx context.Context, argv []string) Result {
	if len(argv) == 0 || argv[0] == "" {
		return launchFailure(errors.New("no command given"))
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return launchFailure(err)
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return launchFailure(err)
	}
	pid := cmd.Process.Pid

	res := Result{PID: pid}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = 1
			out.WriteString(err.Error())
		}
		if ctxErr := ctx.Err(); ctxErr != nil && res.ExitCode <= 0 {
			res.ExitCode = 1
			out.WriteString(ctxErr.Error())
		}
	}

	res.Stdout = decode(out.Bytes(), &res)

	log.Debug("command finished",
		"argv", strings.Join(argv, " "),
		"pid", pid,
		"exit_code", res.ExitCode,
		"duration", time.Since(start),
	)
	return res
}

func launchFailure(err error) Result {
	log.Debug("command failed to launch", "error", err)
	return Result{
		Stdout:   err.Error(),
		Stderr:   "",
		ExitCode: 1,
	}
}

// decode converts raw output to text. Output that is not valid UTF-8 turns a
// successful result into a failed one.
func decode(raw []byte, res *Result) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if res.ExitCode == 0 {
		res.ExitCode = 1
	}
	return strings.ToValidUTF8(string(raw), "�")
}
