package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/martinemde/execagent/llm"
)

// Completer is the part of llm.Client the LLM decision source needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// LLMSource asks a language model for decisions.
type LLMSource struct {
	client      Completer
	provider    string
	model       string
	maxTokens   *int
	temperature *float64
	retry       llm.RetryPolicy
}

// NewLLMSource creates a decision source using cfg's provider, model and
// retry settings.
func NewLLMSource(client Completer, cfg llm.Config) *LLMSource {
	src := &LLMSource{
		client:      client,
		provider:    cfg.Provider,
		model:       cfg.ResolvedModel(),
		temperature: cfg.Temperature,
		retry:       cfg.RetryPolicy(),
	}
	if cfg.MaxTokens > 0 {
		n := cfg.MaxTokens
		src.maxTokens = &n
	}
	return src
}

func (s *LLMSource) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	request := llm.Request{
		Model:       s.model,
		Provider:    s.provider,
		Messages:    toLLMMessages(req.SystemPrompt, req.History),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}
	if len(req.Actions) > 0 {
		request.ToolChoice = &llm.ToolChoice{Mode: "auto"}
		for _, def := range req.Actions {
			request.Tools = append(request.Tools, llm.ToolDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema(),
			})
		}
	}

	resp, err := llm.Retry(ctx, s.retry, func(ctx context.Context) (*llm.Response, error) {
		return s.client.Complete(ctx, request)
	})
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Text: resp.Text()}
	for _, tc := range resp.ToolCalls() {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		decision.ActionRequests = append(decision.ActionRequests, ActionRequest{
			ID:           id,
			ActionName:   tc.Name,
			RawArguments: tc.Arguments,
		})
	}
	return decision, nil
}

func toLLMMessages(systemPrompt string, history []Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, llm.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, llm.SystemMessage(m.Content))
		case RoleUser:
			msgs = append(msgs, llm.UserMessage(m.Content))
		case RoleAssistant:
			var calls []llm.ToolCall
			for _, r := range m.ActionRequests {
				calls = append(calls, llm.ToolCall{ID: r.ID, Name: r.ActionName, Arguments: r.RawArguments})
			}
			msgs = append(msgs, llm.AssistantMessage(m.Content, calls...))
		case RoleTool:
			msgs = append(msgs, llm.ToolResultMessage(m.RequestID, m.ActionName, m.Content))
		}
	}
	return msgs
}
