package git

import (
	"fmt"
	"strings"

	"github.com/holon-run/version-check/pkg/process"
)

// CommandError is returned when a git command exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
}

func newCommandError(args []string, res process.Result) *CommandError {
	return &CommandError{
		Args:     append([]string(nil), args...),
		ExitCode: res.ExitCode,
		Output:   strings.TrimSpace(res.Stdout),
	}
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}
