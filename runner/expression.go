package runner

import (
	"context"
	"time"
)

// Expression passes code as the final argument of Interpreter, for example
// "osascript -e". The code is never reparsed by a shell.
type Expression struct {
	Interpreter string
	Dir         string
	Env         map[string]string
	Timeout     time.Duration
}

func (e *Expression) Run(ctx context.Context, code string) Outcome {
	argv, err := splitCommandLine(e.Interpreter)
	if err != nil {
		return failure(err.Error(), -1)
	}
	res := runProcess(ctx, append(argv, code), procOptions{dir: e.Dir, env: e.Env, timeout: e.Timeout})
	return finish(res, e.Timeout, res.stdout, "Exit with code: %d\nError Output:\n%s")
}
