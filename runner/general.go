package runner

import (
	"context"
	"runtime"
	"time"
)

// DefaultShell is the command line General and Stream prefix to the code.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe /c"
	}
	return "/bin/sh -c"
}

// General runs code as a shell command and waits for it to finish.
type General struct {
	Shell   string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// NewGeneral returns a General runner using the platform shell.
func NewGeneral(timeout time.Duration) *General {
	return &General{Shell: DefaultShell(), Timeout: timeout}
}

func (g *General) Run(ctx context.Context, code string) Outcome {
	shell, err := splitCommandLine(g.Shell)
	if err != nil {
		return failure(err.Error(), -1)
	}
	res := runProcess(ctx, append(shell, code), procOptions{dir: g.Dir, env: g.Env, timeout: g.Timeout})
	return finish(res, g.Timeout, "Execution complete. "+res.stdout, "Exit with code: %d\nError Output:\n%s")
}

func finish(res procResult, timeout time.Duration, successText, exitFormat string) Outcome {
	var out Outcome
	if res.ok() {
		out = success(successText)
	} else {
		out = failure(failureText(res, timeout, exitFormat), res.exitCode)
		out.TimedOut = res.timedOut
	}
	out.Duration = res.duration
	return out
}
