package agent

import (
	"context"
	"fmt"

	"github.com/martinemde/execagent/action"
	"github.com/martinemde/execagent/policy"
)

// DecisionRequest is what the decision source sees on each turn.
type DecisionRequest struct {
	SystemPrompt string
	History      []Message
	Actions      []action.Definition
}

// Decision is either final text (no ActionRequests) or a list of action
// requests, optionally with accompanying text.
type Decision struct {
	Text           string
	ActionRequests []ActionRequest
}

// DecisionSource chooses the next step of the conversation. It is usually
// a language model.
type DecisionSource interface {
	Decide(ctx context.Context, req DecisionRequest) (Decision, error)
}

// DecisionFunc adapts a function to DecisionSource.
type DecisionFunc func(ctx context.Context, req DecisionRequest) (Decision, error)

func (f DecisionFunc) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	return f(ctx, req)
}

// DecisionError wraps a failure of the decision source. It ends the
// current Send.
type DecisionError struct {
	Err error
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("decision source: %v", e.Err)
}

func (e *DecisionError) Unwrap() error {
	return e.Err
}

// Display shows text to the user.
type Display interface {
	Display(text string)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(text string)

func (f DisplayFunc) Display(text string) { f(text) }

// ConfirmRequest describes an action waiting for the user's approval.
type ConfirmRequest struct {
	Prompt     string
	ActionName string
	Args       action.Args
}

// Confirmer asks the user to approve an action.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, req ConfirmRequest) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

// Gate decides whether an action may run. policy.Engine implements it.
type Gate interface {
	Evaluate(ctx context.Context, in policy.Input) (policy.Decision, error)
}

// TranscriptStore persists a session's full history.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, sessionID string, history []Message) error
}
