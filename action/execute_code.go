package action

import (
	"context"
	"fmt"
	"slices"

	"github.com/martinemde/execagent/runner"
)

// ExecuteCodeName is the name the model uses to request code execution.
const ExecuteCodeName = "execute_code"

// ExecuteCode runs code through the runner registered for its language.
// Languages outside the allow-list are rejected before any runner is
// resolved.
type ExecuteCode struct {
	runners   runner.Resolver
	languages []string
}

// NewExecuteCode creates the action. languages is the allow-list and the
// enum advertised to the model.
func NewExecuteCode(runners runner.Resolver, languages []string) *ExecuteCode {
	return &ExecuteCode{runners: runners, languages: slices.Clone(languages)}
}

func (e *ExecuteCode) Definition() Definition {
	return Definition{
		Name:        ExecuteCodeName,
		Description: "Execute code in a specific language",
		Parameters: []ParameterSpec{
			{
				Name:        "language",
				Type:        TypeString,
				Description: "Language or shell to run the code with",
				Required:    true,
				Enum:        slices.Clone(e.languages),
			},
			{
				Name:        "code",
				Type:        TypeString,
				Description: "Source code or command to execute",
				Required:    true,
			},
		},
	}
}

func (e *ExecuteCode) Run(ctx context.Context, args Args) (string, error) {
	language, _ := args.String("language")
	code, _ := args.String("code")
	if !slices.Contains(e.languages, language) {
		return "", &ValidationError{
			Parameter: "language",
			Message:   fmt.Sprintf("Unsupported language: %s", language),
		}
	}

	rn, err := e.runners.Resolve(language)
	if err != nil {
		return "", fmt.Errorf("resolve runner for %s: %w", language, err)
	}

	out := rn.Run(ctx, code)
	if !out.OK() {
		return "", &ExecutionError{Language: language, Outcome: out}
	}
	return "output is: " + out.Output, nil
}
