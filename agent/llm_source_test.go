package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/execagent/action"
	"github.com/martinemde/execagent/llm"
)

type fakeCompleter struct {
	responses []*llm.Response
	errs      []error
	requests  []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func TestLLMSourceTranslatesRequestAndResponse(t *testing.T) {
	client := &fakeCompleter{responses: []*llm.Response{{
		Message: llm.AssistantMessage("checking",
			llm.ToolCall{ID: "call_7", Name: action.ExecuteCodeName, Arguments: `{"language":"shell","code":"ls"}`},
			llm.ToolCall{Name: "recall", Arguments: `{"key":"editor"}`},
		),
	}}}
	cfg := llm.DefaultConfig()
	cfg.Model = "gpt-4o-mini"
	src := NewLLMSource(client, cfg)

	prior := request("call_1", "remember", `{"key":"editor","value":"vim"}`)
	decision, err := src.Decide(context.Background(), DecisionRequest{
		SystemPrompt: "be useful",
		History: []Message{
			UserMessage("remember my editor"),
			AssistantMessage("", prior),
			ToolMessage(prior, "Remembered editor"),
			UserMessage("list files"),
		},
		Actions: []action.Definition{action.NewExecuteCode(&spyResolver{}, []string{"shell"}).Definition()},
	})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, "openai", req.Provider)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 4096, *req.MaxTokens)
	assert.Equal(t, &llm.ToolChoice{Mode: "auto"}, req.ToolChoice)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, action.ExecuteCodeName, req.Tools[0].Name)
	assert.Equal(t, "object", req.Tools[0].Parameters["type"])

	assert.Equal(t, []llm.Message{
		llm.SystemMessage("be useful"),
		llm.UserMessage("remember my editor"),
		llm.AssistantMessage("", llm.ToolCall{ID: "call_1", Name: "remember", Arguments: `{"key":"editor","value":"vim"}`}),
		llm.ToolResultMessage("call_1", "remember", "Remembered editor"),
		llm.UserMessage("list files"),
	}, req.Messages)

	assert.Equal(t, "checking", decision.Text)
	require.Len(t, decision.ActionRequests, 2)
	assert.Equal(t, request("call_7", action.ExecuteCodeName, `{"language":"shell","code":"ls"}`), decision.ActionRequests[0])
	assert.Equal(t, "recall", decision.ActionRequests[1].ActionName)
	assert.NotEmpty(t, decision.ActionRequests[1].ID)
}

func TestLLMSourceRetriesTransientErrors(t *testing.T) {
	client := &fakeCompleter{
		errs:      []error{&llm.ServerError{ProviderError: llm.ProviderError{Retryable: true}}},
		responses: []*llm.Response{nil, {Message: llm.AssistantMessage("ok")}},
	}
	cfg := llm.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	src := NewLLMSource(client, cfg)

	decision, err := src.Decide(context.Background(), DecisionRequest{History: []Message{UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "ok", decision.Text)
	assert.Len(t, client.requests, 2)
	assert.Nil(t, client.requests[0].Tools)
	assert.Nil(t, client.requests[0].ToolChoice)
}

func TestLLMSourceGivesUpOnPermanentErrors(t *testing.T) {
	client := &fakeCompleter{errs: []error{&llm.AuthenticationError{}}}
	src := NewLLMSource(client, llm.DefaultConfig())

	_, err := src.Decide(context.Background(), DecisionRequest{})
	var authErr *llm.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Len(t, client.requests, 1)
}
