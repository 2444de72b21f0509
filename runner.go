package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// waitDelay bounds how long Wait keeps reading output after the command
// was killed or exited
const waitDelay = 2 * time.Second

// CommandResult is the outcome of one external command
type CommandResult struct {
	OK       bool
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Diagnostic returns the most useful failure text of the result
func (r CommandResult) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner runs external commands
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) CommandResult
}

// ExecRunner implements Runner using os/exec
type ExecRunner struct {
	timeout time.Duration
	dryRun  bool
	out     io.Writer
}

// NewExecRunner creates a runner bounding each command by timeout. In dry-run
// mode commands are printed to out instead of executed.
func NewExecRunner(timeout time.Duration, dryRun bool, out io.Writer) *ExecRunner {
	return &ExecRunner{
		timeout: timeout,
		dryRun:  dryRun,
		out:     out,
	}
}

// Run executes a command in dir and captures its output. Spawn errors and
// timeouts are reported in the result, never returned or panicked.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) CommandResult {
	debugLog("executing %s %s (dir=%s)", name, strings.Join(args, " "), dir)

	if r.dryRun {
		fmt.Fprintf(r.out, "[dry-run] %s %s\n", name, strings.Join(args, " "))
		return CommandResult{OK: true}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	// Grandchildren (npm → sh → node) are killed with the group, and Wait
	// stops waiting on pipes they still hold after waitDelay
	killProcessGroup(c)
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Err = fmt.Errorf("%s timed out after %s", name, r.timeout)
		result.Stderr = strings.TrimSpace(result.Stderr + "\n" + result.Err.Error())
	case err != nil:
		result.Err = err
	default:
		result.OK = true
	}

	debugLog("%s finished: ok=%t exit=%d", name, result.OK, result.ExitCode)
	return result
}

// splitCommand splits a command line using shell word rules
func splitCommand(line string, extra ...string) (string, []string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return "", nil, fmt.Errorf("parsing command %q: %w", line, err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	for _, e := range extra {
		if e != "" {
			words = append(words, e)
		}
	}
	return words[0], words[1:], nil
}
