package runner

import (
	"context"
	"time"
)

// Status is the terminal state of one run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the uniform result every Runner returns. Failures carry a
// human-readable Output; they are never Go errors.
type Outcome struct {
	Status   Status        `json:"status"`
	Output   string        `json:"output"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

func success(output string) Outcome {
	return Outcome{Status: StatusSuccess, Output: output}
}

func failure(output string, exitCode int) Outcome {
	return Outcome{Status: StatusFailure, Output: output, ExitCode: exitCode}
}

// Runner executes one unit of code or command in a single dialect.
type Runner interface {
	Run(ctx context.Context, code string) Outcome
}

// Func adapts an ordinary function to the Runner interface.
type Func func(ctx context.Context, code string) Outcome

// Run calls f(ctx, code).
func (f Func) Run(ctx context.Context, code string) Outcome {
	return f(ctx, code)
}
