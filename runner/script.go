package runner

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Script writes code to a temporary file and runs Interpreter on it. The
// file is removed before Run returns, whatever the outcome.
type Script struct {
	Interpreter string
	Extension   string
	TempDir     string
	Dir         string
	Env         map[string]string
	Timeout     time.Duration
}

func (s *Script) Run(ctx context.Context, code string) Outcome {
	interpreter, err := splitCommandLine(s.Interpreter)
	if err != nil {
		return failure(err.Error(), -1)
	}

	path, err := s.writeSource(code)
	if err != nil {
		return failure(fmt.Sprintf("Failed to write script: %v", err), -1)
	}
	defer os.Remove(path)

	res := runProcess(ctx, append(interpreter, path), procOptions{dir: s.Dir, env: s.Env, timeout: s.Timeout})
	return finish(res, s.Timeout, "Output:\n"+res.stdout, "Script exited with code %d\nError Output:\n%s")
}

func (s *Script) writeSource(code string) (string, error) {
	f, err := os.CreateTemp(s.TempDir, "execagent-*"+s.Extension)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
