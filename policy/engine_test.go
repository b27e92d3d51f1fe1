package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input Input
		want  Decision
	}{
		{"code needs confirmation", Input{Action: "execute_code"}, Confirm},
		{"pre-authorized code runs", Input{Action: "execute_code", AllowCodeExecution: true}, Allow},
		{"memory actions run", Input{Action: "remember"}, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomPolicyReadsArgs(t *testing.T) {
	ctx := context.Background()
	module := `
package action_policy

default decision = "allow"

decision = "block" {
	input.action == "execute_code"
	input.args.language == "shell"
	contains(input.args.code, "rm -rf")
}
`
	path := filepath.Join(t.TempDir(), "policy.rego")
	require.NoError(t, os.WriteFile(path, []byte(module), 0o600))

	engine, err := NewEngineFromConfig(ctx, Config{File: path})
	require.NoError(t, err)

	got, err := engine.Evaluate(ctx, Input{
		Action: "execute_code",
		Args:   map[string]interface{}{"language": "shell", "code": "rm -rf /"},
	})
	require.NoError(t, err)
	assert.Equal(t, Block, got)

	got, err = engine.Evaluate(ctx, Input{
		Action: "execute_code",
		Args:   map[string]interface{}{"language": "shell", "code": "ls"},
	})
	require.NoError(t, err)
	assert.Equal(t, Allow, got)
}

func TestPolicyErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewEngine(ctx, "package action_policy\ndecision = ")
	assert.Error(t, err)

	_, err = NewEngineFromConfig(ctx, Config{File: filepath.Join(t.TempDir(), "missing.rego")})
	assert.Error(t, err)

	engine, err := NewEngine(ctx, "package action_policy\n\ndefault decision = \"maybe\"\n")
	require.NoError(t, err)
	_, err = engine.Evaluate(ctx, Input{Action: "x"})
	assert.ErrorContains(t, err, `unknown policy decision "maybe"`)

	engine, err = NewEngine(ctx, "package action_policy\n\ndecision = \"allow\" {\n\tinput.action == \"never\"\n}\n")
	require.NoError(t, err)
	got, err := engine.Evaluate(ctx, Input{Action: "x"})
	require.NoError(t, err)
	assert.Equal(t, Confirm, got)
}
