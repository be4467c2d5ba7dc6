// Package command runs external tools behind an interface so callers can be
// tested without spawning processes.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrToolFailure is returned when a tool exits non-zero or cannot start.
	ErrToolFailure = errors.New("external tool failed")
	// ErrTimeout is returned when a tool does not finish before its deadline.
	ErrTimeout = errors.New("external tool timed out")
)

// ExitError describes a tool that ran and exited non-zero.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrToolFailure) succeed.
func (e *ExitError) Unwrap() error { return ErrToolFailure }

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// ExecRunner runs commands with os/exec. A zero Timeout means the caller's
// context is the only deadline.
type ExecRunner struct {
	Timeout time.Duration
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Run executes name with args and returns stdout.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			if r.Timeout > 0 {
				return stdout.Bytes(), fmt.Errorf("%w: %s after %s", ErrTimeout, name, r.Timeout)
			}
			return stdout.Bytes(), fmt.Errorf("%w: %s: caller deadline exceeded", ErrTimeout, name)
		}
		return stdout.Bytes(), ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{
				Name:     name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.Bytes(), fmt.Errorf("%w: %s: %w", ErrToolFailure, name, err)
	}

	return stdout.Bytes(), nil
}

// Call records one invocation made through a Recorder.
type Call struct {
	Name string
	Args []string
}

// Recorder is a Runner that records calls and answers from a script.
// It is meant for tests of packages that shell out.
type Recorder struct {
	Calls []Call
	// Respond produces the result for a call; nil means success with no output.
	Respond func(call Call) ([]byte, error)
}

// Run records the call and returns the scripted response.
func (r *Recorder) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	r.Calls = append(r.Calls, call)
	if r.Respond == nil {
		return nil, nil
	}
	return r.Respond(call)
}
