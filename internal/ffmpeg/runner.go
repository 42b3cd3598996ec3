package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result captures one external process invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Tail returns the last few lines of stderr, the part worth logging.
func (r Result) Tail() string {
	s := strings.TrimSpace(r.Stderr)
	lines := strings.Split(s, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes external media commands. Abstracted for tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands via os/exec, distinguishing timeouts from
// non-zero exits from spawn failures.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, fmt.Errorf("%s exited with code %d", name, res.ExitCode)
	}

	// Spawn failure: binary missing, permissions, etc.
	res.ExitCode = -1
	return res, fmt.Errorf("start %s: %w", name, err)
}
