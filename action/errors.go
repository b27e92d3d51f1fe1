package action

import (
	"encoding/json"
	"errors"

	"github.com/martinemde/execagent/runner"
)

var (
	ErrNotFound      = errors.New("action not found")
	ErrAlreadyExists = errors.New("action already registered")
	ErrEmptyName     = errors.New("action name is empty")
)

// ValidationError rejects a call before the action does any work.
type ValidationError struct {
	Parameter string
	Message   string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ExecutionError reports code that ran and failed. Its Error text is the
// JSON object handed back to the model.
type ExecutionError struct {
	Language string
	Outcome  runner.Outcome
}

func (e *ExecutionError) Error() string {
	body := map[string]interface{}{"message": e.Outcome.Output}
	if e.Outcome.ExitCode != 0 {
		body["exit_code"] = e.Outcome.ExitCode
	}
	if e.Outcome.TimedOut {
		body["timed_out"] = true
	}
	b, err := json.Marshal(body)
	if err != nil {
		return e.Outcome.Output
	}
	return string(b)
}
