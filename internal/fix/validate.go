package fix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTestCommand validates fixes when the configuration names none.
var DefaultTestCommand = []string{"npm", "test"}

// DefaultValidationTimeout bounds one run of the test command.
const DefaultValidationTimeout = 5 * time.Minute

const outputTail = 2000

// CommandValidator runs the project's test command. Exit code 0 passes.
type CommandValidator struct {
	Cmd     []string
	Dir     string
	Timeout time.Duration
}

// NewCommandValidator creates a validator for cmd, falling back to npm test.
func NewCommandValidator(cmd []string, dir string) *CommandValidator {
	if len(cmd) == 0 {
		cmd = DefaultTestCommand
	}
	return &CommandValidator{Cmd: cmd, Dir: dir, Timeout: DefaultValidationTimeout}
}

// TestFailedError carries the output of a failing test run.
type TestFailedError struct {
	ExitCode int
	Output   string
}

func (e *TestFailedError) Error() string {
	return fmt.Sprintf("test command exited with code %d", e.ExitCode)
}

// Run executes the command and returns its combined output. A non-zero exit
// yields *TestFailedError; failure to start or a timeout is returned as is.
func (v *CommandValidator) Run(ctx context.Context) (string, error) {
	if len(v.Cmd) == 0 {
		return "", errors.New("test command is empty")
	}
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	log.Debug().Strs("cmd", v.Cmd).Str("dir", v.Dir).Msg("running test command")
	cmd := exec.CommandContext(ctx, v.Cmd[0], v.Cmd[1:]...)
	cmd.Dir = v.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out.String(), fmt.Errorf("test command: %w", ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.String(), &TestFailedError{ExitCode: exitErr.ExitCode(), Output: tail(out.String(), outputTail)}
	}
	if err != nil {
		return out.String(), fmt.Errorf("run test command %s: %w", strings.Join(v.Cmd, " "), err)
	}
	return out.String(), nil
}

// Validate runs the command; the filename is not passed to it.
func (v *CommandValidator) Validate(ctx context.Context, _ string) error {
	_, err := v.Run(ctx)
	return err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
