package action

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/execagent/runner"
)

// spyResolver records every resolution and never spawns anything.
type spyResolver struct {
	resolved []string
	outcome  runner.Outcome
	codes    []string
}

func (s *spyResolver) Resolve(language string) (runner.Runner, error) {
	s.resolved = append(s.resolved, language)
	return runner.Func(func(_ context.Context, code string) runner.Outcome {
		s.codes = append(s.codes, code)
		return s.outcome
	}), nil
}

var defaultLanguages = []string{"python", "shell", "bash", "applescript", "AppleScript"}

func TestDefinitionRequiredMatchesParameters(t *testing.T) {
	defs := []Definition{
		NewExecuteCode(&spyResolver{}, defaultLanguages).Definition(),
		{Name: "none", Parameters: []ParameterSpec{{Name: "a", Type: TypeString}}},
		{Name: "mixed", Parameters: []ParameterSpec{
			{Name: "a", Type: TypeString, Required: true},
			{Name: "b", Type: TypeInteger},
			{Name: "c", Type: TypeBoolean, Required: true},
		}},
	}
	for _, a := range MemoryActions(newFakeFacts()) {
		defs = append(defs, a.Definition())
	}

	for _, d := range defs {
		t.Run(d.Name, func(t *testing.T) {
			var want []string
			for _, p := range d.Parameters {
				if p.Required {
					want = append(want, p.Name)
				}
			}
			got := d.Schema()["required"].([]string)
			assert.ElementsMatch(t, want, got)
			assert.Len(t, d.Schema()["properties"], len(d.Parameters))
		})
	}
}

func TestSchemaRoundTripsThroughJSON(t *testing.T) {
	d := Definition{
		Name: "tagged",
		Parameters: []ParameterSpec{
			{Name: "mode", Type: TypeString, Description: "mode", Required: true, Enum: []string{"fast", "slow"}},
			{Name: "tags", Type: TypeArray, Items: &ParameterSpec{Type: TypeString, Enum: []string{"x", "y"}}},
		},
	}
	raw, err := json.Marshal(d.Schema())
	require.NoError(t, err)

	var decoded struct {
		Type       string `json:"type"`
		Required   []string
		Properties map[string]struct {
			Type        string
			Description string
			Enum        []string
			Items       *struct {
				Type string
				Enum []string
			}
		}
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "object", decoded.Type)
	assert.Equal(t, []string{"mode"}, decoded.Required)
	assert.Equal(t, []string{"fast", "slow"}, decoded.Properties["mode"].Enum)
	assert.Equal(t, "mode", decoded.Properties["mode"].Description)
	require.NotNil(t, decoded.Properties["tags"].Items)
	assert.Equal(t, "string", decoded.Properties["tags"].Items.Type)
	assert.Equal(t, []string{"x", "y"}, decoded.Properties["tags"].Items.Enum)
}

func TestSchemaWithoutRequiredParameters(t *testing.T) {
	raw, err := json.Marshal(Definition{Name: "empty"}.Schema())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{},"required":[]}`, string(raw))
}

func TestValidate(t *testing.T) {
	d := Definition{
		Name: "v",
		Parameters: []ParameterSpec{
			{Name: "s", Type: TypeString, Required: true},
			{Name: "n", Type: TypeInteger},
			{Name: "f", Type: TypeNumber},
			{Name: "b", Type: TypeBoolean},
			{Name: "e", Type: TypeString, Enum: []string{"a", "b"}},
			{Name: "l", Type: TypeArray, Items: &ParameterSpec{Type: TypeInteger}},
			{Name: "o", Type: TypeObject},
		},
	}

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"minimal", `{"s":"x"}`, ""},
		{"all valid", `{"s":"x","n":3,"f":1.5,"b":true,"e":"a","l":[1,2],"o":{}}`, ""},
		{"missing required", `{}`, "Missing required parameter: s"},
		{"null required", `{"s":null}`, "Missing required parameter: s"},
		{"wrong type", `{"s":1}`, "Invalid parameter s: expected string, got number"},
		{"fractional integer", `{"s":"x","n":1.5}`, "Invalid parameter n: expected integer, got number"},
		{"enum violation", `{"s":"x","e":"c"}`, "Unsupported e: c"},
		{"bad array item", `{"s":"x","l":[1,"two"]}`, "Invalid parameter l[1]: expected integer, got string"},
		{"object type", `{"s":"x","o":[]}`, "Invalid parameter o: expected object, got array"},
		{"unknown args ignored", `{"s":"x","zzz":1}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := ParseArgs(tt.raw)
			require.NoError(t, err)
			err = d.Validate(args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Error())
		})
	}
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseArgs("null")
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = ParseArgs(`{"language": "shell"`)
	assert.ErrorContains(t, err, "invalid action arguments")

	args, err = ParseArgs(`{"s":"v","n":4,"b":true}`)
	require.NoError(t, err)
	s, ok := args.String("s")
	assert.True(t, ok)
	assert.Equal(t, "v", s)
	n, ok := args.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	b, ok := args.Bool("b")
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = args.String("n")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	exec := NewExecuteCode(&spyResolver{}, defaultLanguages)
	reg, err := NewRegistry(exec)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Register(exec), ErrAlreadyExists)
	assert.ErrorIs(t, reg.Register(&stubAction{}), ErrEmptyName)

	for _, a := range MemoryActions(newFakeFacts()) {
		require.NoError(t, reg.Register(a))
	}
	assert.Equal(t, []string{"execute_code", "remember", "recall", "forget"}, reg.Names())

	defs := reg.Definitions()
	require.Len(t, defs, 4)
	assert.Equal(t, "execute_code", defs[0].Name)

	got, err := reg.Get("execute_code")
	require.NoError(t, err)
	assert.Same(t, exec, got)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Dispatch(context.Background(), "missing", Args{})
	assert.ErrorIs(t, err, ErrNotFound)
}

type stubAction struct {
	def Definition
	ran bool
}

func (s *stubAction) Definition() Definition { return s.def }

func (s *stubAction) Run(context.Context, Args) (string, error) {
	s.ran = true
	return "ran", nil
}

func TestDispatchRejectsBeforeRun(t *testing.T) {
	stub := &stubAction{def: Definition{
		Name:       "stub",
		Parameters: []ParameterSpec{{Name: "q", Type: TypeString, Required: true}},
	}}
	reg, err := NewRegistry(stub)
	require.NoError(t, err)

	_, err = reg.Dispatch(context.Background(), "stub", Args{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "q", verr.Parameter)
	assert.False(t, stub.ran)

	out, err := reg.Dispatch(context.Background(), "stub", Args{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, "ran", out)
	assert.True(t, stub.ran)
}

func TestExecuteCodeUnsupportedLanguage(t *testing.T) {
	for _, lang := range []string{"ruby", "Python", "", "sh"} {
		t.Run(lang, func(t *testing.T) {
			spy := &spyResolver{}
			exec := NewExecuteCode(spy, defaultLanguages)

			_, err := exec.Run(context.Background(), Args{"language": lang, "code": "puts 1"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Unsupported language")

			reg, rerr := NewRegistry(exec)
			require.NoError(t, rerr)
			_, err = reg.Dispatch(context.Background(), ExecuteCodeName, Args{"language": lang, "code": "puts 1"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Unsupported language")

			assert.Empty(t, spy.resolved, "runner resolved for unsupported language")
			assert.Empty(t, spy.codes, "code ran for unsupported language")
		})
	}
}

func TestExecuteCodeSuccess(t *testing.T) {
	spy := &spyResolver{outcome: runner.Outcome{Status: runner.StatusSuccess, Output: "Execution complete. a.txt\n"}}
	exec := NewExecuteCode(spy, defaultLanguages)

	out, err := exec.Run(context.Background(), Args{"language": "shell", "code": "ls"})
	require.NoError(t, err)
	assert.Equal(t, "output is: Execution complete. a.txt\n", out)
	assert.Equal(t, []string{"shell"}, spy.resolved)
	assert.Equal(t, []string{"ls"}, spy.codes)
}

func TestExecuteCodeFailureIsJSONObject(t *testing.T) {
	spy := &spyResolver{outcome: runner.Outcome{
		Status:   runner.StatusFailure,
		Output:   "Exit with code: 2\nError Output:\nboom",
		ExitCode: 2,
	}}
	exec := NewExecuteCode(spy, defaultLanguages)

	_, err := exec.Run(context.Background(), Args{"language": "python", "code": "raise"})
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "python", execErr.Language)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(err.Error()), &body))
	assert.Equal(t, "Exit with code: 2\nError Output:\nboom", body["message"])
	assert.Equal(t, float64(2), body["exit_code"])
}

func TestExecuteCodeDefinitionAdvertisesAllowList(t *testing.T) {
	langs := []string{"python", "shell"}
	exec := NewExecuteCode(&spyResolver{}, langs)
	langs[0] = "mutated"

	def := exec.Definition()
	assert.Equal(t, ExecuteCodeName, def.Name)
	props := def.Schema()["properties"].(map[string]interface{})
	lang := props["language"].(map[string]interface{})
	assert.Equal(t, []string{"python", "shell"}, lang["enum"])
}
