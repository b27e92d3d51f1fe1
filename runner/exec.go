package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"
)

// waitDelay bounds how long Wait keeps pipes open after the child is killed.
const waitDelay = 2 * time.Second

// procOptions are the settings shared by the buffered runners.
type procOptions struct {
	dir     string
	env     map[string]string
	timeout time.Duration
}

// procResult is the raw result of one subprocess invocation.
type procResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	cancel   error // set when the caller's context ended the run
	duration time.Duration
	startErr error
}

// splitCommandLine parses an interpreter command line such as "python3 -u"
// into argv using shell quoting rules.
func splitCommandLine(line string) ([]string, error) {
	argv, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse command line %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	return argv, nil
}

// runProcess starts argv, waits for it and captures stdout and stderr
// separately. On timeout the whole process group is killed.
func runProcess(ctx context.Context, argv []string, opts procOptions) procResult {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.dir
	cmd.Env = childEnv(opts.env)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := procResult{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		duration: time.Since(start),
	}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && cmd.Process != nil:
		res.timedOut = true
		res.exitCode = -1
	case ctx.Err() != nil && cmd.Process != nil:
		res.cancel = ctx.Err()
		res.exitCode = -1
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
	default:
		res.startErr = err
		res.exitCode = -1
	}
	return res
}

// failureText renders the diagnostic for a failed procResult. exitFormat
// receives the exit code and stderr.
func failureText(res procResult, timeout time.Duration, exitFormat string) string {
	switch {
	case res.startErr != nil:
		return fmt.Sprintf("Failed to start process: %v", res.startErr)
	case res.cancel != nil:
		msg := fmt.Sprintf("Process cancelled: %v", res.cancel)
		if partial := combine(res.stdout, res.stderr); partial != "" {
			msg += "\nPartial output:\n" + partial
		}
		return msg
	case res.timedOut:
		msg := fmt.Sprintf("Process timed out after %s", timeout)
		if partial := combine(res.stdout, res.stderr); partial != "" {
			msg += "\nPartial output:\n" + partial
		}
		return msg
	default:
		return fmt.Sprintf(exitFormat, res.exitCode, res.stderr)
	}
}

func (r procResult) ok() bool {
	return r.startErr == nil && r.cancel == nil && !r.timedOut && r.exitCode == 0
}

func combine(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n" + stderr
}
