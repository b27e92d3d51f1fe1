// Package policy decides whether a requested action may run, needs the
// user's confirmation, or is blocked. Decisions come from a rego module
// evaluated with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the verdict for one action request.
type Decision string

const (
	Allow   Decision = "allow"
	Confirm Decision = "confirm"
	Block   Decision = "block"
)

// Input is the document a policy sees as `input`.
type Input struct {
	Action             string
	Args               map[string]interface{}
	AllowCodeExecution bool
	SessionID          string
}

func (in Input) document() map[string]interface{} {
	args := in.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	return map[string]interface{}{
		"action":               in.Action,
		"args":                 args,
		"allow_code_execution": in.AllowCodeExecution,
		"session_id":           in.SessionID,
	}
}

// Query is the rule every policy module must define.
const Query = "data.action_policy.decision"

// DefaultPolicy lets everything run except code execution, which needs
// confirmation unless it was pre-authorized.
const DefaultPolicy = `
package action_policy

default decision = "allow"

decision = "confirm" {
	input.action == "execute_code"
	not input.allow_code_execution
}
`

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles module, which must define data.action_policy.decision.
func NewEngine(ctx context.Context, module string) (*Engine, error) {
	r := rego.New(
		rego.Query(Query),
		rego.Module("action_policy.rego", module),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// NewEngineFromConfig loads cfg.File, or DefaultPolicy when it is empty.
func NewEngineFromConfig(ctx context.Context, cfg Config) (*Engine, error) {
	module := DefaultPolicy
	if cfg.File != "" {
		b, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("read policy %s: %w", cfg.File, err)
		}
		module = string(b)
	}
	return NewEngine(ctx, module)
}

// Evaluate returns the decision for in. A policy that produces no value
// yields Confirm.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in.document()))
	if err != nil {
		return "", fmt.Errorf("evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Confirm, nil
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("policy decision is %T, want string", results[0].Expressions[0].Value)
	}
	switch d := Decision(s); d {
	case Allow, Confirm, Block:
		return d, nil
	default:
		return "", fmt.Errorf("unknown policy decision %q", s)
	}
}

// Config locates a custom policy module.
type Config struct {
	File string `yaml:"file" json:"file"`
}

// Merge applies non-zero fields from source onto c.
func (c *Config) Merge(source *Config) {
	if source.File != "" {
		c.File = source.File
	}
}
