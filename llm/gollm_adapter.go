package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter implements Provider on top of a gollm.LLM. gollm exchanges a
// single prompt per call, so the conversation is rendered into a transcript
// and tool calls are recovered from the JSON the model writes back.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
	mu       sync.Mutex // SetOption mutates the shared LLM
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the default model.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.model = model }
}

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.maxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.temperature = t }
}

// WithGollmOptions passes extra options straight to gollm.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmAdapter creates an adapter for provider. With an empty apiKey
// gollm reads the provider's usual environment variable.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		model = DefaultModel(provider)
	}
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("no model configured for provider %s", provider),
		}}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // Retry handles this
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}
	return &GollmAdapter{provider: provider, llm: llm, model: model}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete renders req into a gollm prompt, generates, and parses the reply.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)

	a.mu.Lock()
	a.applyRequestOptions(req)
	text, err := a.llm.Generate(ctx, prompt)
	a.mu.Unlock()
	if err != nil {
		return nil, a.translateError(err)
	}
	return a.buildResponse(req, text), nil
}

func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	system, transcript := renderConversation(req.Messages)

	var promptOpts []gollm.PromptOption
	if system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}
	if req.ToolChoice != nil {
		promptOpts = append(promptOpts, gollm.WithToolChoice(req.ToolChoice.Mode))
	}
	return gollm.NewPrompt(transcript, promptOpts...)
}

// renderConversation flattens messages into a system prompt and a
// transcript. Tool calls and results keep their ids so the model can
// correlate them.
func renderConversation(messages []Message) (string, string) {
	var system []string
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleUser:
			parts = append(parts, "[User]: "+msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, fmt.Sprintf("[Assistant called %s (id %s)]: %s", tc.Name, tc.ID, tc.Arguments))
			}
		case RoleTool:
			parts = append(parts, fmt.Sprintf("[Tool Result %s (id %s)]: %s", msg.Name, msg.ToolCallID, msg.Content))
		}
	}
	transcript := strings.Join(parts, "\n")
	if transcript == "" {
		transcript = "Hello"
	}
	return strings.TrimSpace(strings.Join(system, "\n")), transcript
}

func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	calls, remaining := parseToolCalls(text)
	finish := FinishStop
	if len(calls) > 0 {
		finish = FinishToolCalls
	}

	in := estimateTokens(req)
	out := len(text) / 4
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      AssistantMessage(remaining, calls...),
		FinishReason: finish,
		// gollm does not report usage; these are estimates.
		Usage: Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

var toolCallMarkers = []string{`{"tool_calls"`, `[{"name"`, `[{"id"`, `[{"type"`, `{"name"`}

// parseToolCalls extracts tool calls the model wrote as JSON and returns
// them with the surrounding text.
func parseToolCalls(text string) ([]ToolCall, string) {
	start := -1
	for _, marker := range toolCallMarkers {
		if idx := strings.Index(text, marker); idx != -1 && (start == -1 || idx < start) {
			start = idx
		}
	}
	if start == -1 {
		return nil, text
	}

	dec := json.NewDecoder(strings.NewReader(text[start:]))
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, text
	}

	var elems []interface{}
	switch v := raw.(type) {
	case []interface{}:
		elems = v
	case map[string]interface{}:
		if list, ok := v["tool_calls"].([]interface{}); ok {
			elems = list
		} else if _, ok := v["arguments"]; ok {
			elems = []interface{}{v}
		}
	}
	if len(elems) == 0 {
		return nil, text
	}

	calls := make([]ToolCall, 0, len(elems))
	for _, e := range elems {
		call, ok := toolCallFromJSON(e)
		if !ok {
			return nil, text
		}
		calls = append(calls, call)
	}

	end := start + int(dec.InputOffset())
	remaining := strings.TrimSpace(strings.TrimSpace(text[:start]) + " " + strings.TrimSpace(text[end:]))
	return calls, remaining
}

func toolCallFromJSON(v interface{}) (ToolCall, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return ToolCall{}, false
	}
	body := obj
	if fn, ok := obj["function"].(map[string]interface{}); ok {
		body = fn
	}
	name, _ := body["name"].(string)
	if name == "" {
		return ToolCall{}, false
	}

	var args string
	switch a := body["arguments"].(type) {
	case nil:
		args = "{}"
	case string:
		args = a
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return ToolCall{}, false
		}
		args = string(b)
	}

	id, _ := obj["id"].(string)
	if id == "" {
		id = "call_" + uuid.New().String()[:8]
	}
	return ToolCall{ID: id, Name: name, Arguments: args}, true
}

var statusCodePattern = regexp.MustCompile(`\b([45]\d\d)\b`)

// translateError classifies a gollm error, preferring an HTTP status code
// found in the message and falling back to keywords.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return ErrorFromStatusCode(code, msg, a.provider, err)
	}

	pe := ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: a.provider}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(lower, "forbidden"):
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	case strings.Contains(lower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{ProviderError: pe}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &RequestTimeoutError{SDKError: pe.SDKError}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return &NetworkError{SDKError: pe.SDKError}
	default:
		pe.Retryable = true
		return &pe
	}
}

func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
		for _, tc := range msg.ToolCalls {
			total += len(tc.Arguments) / 4
		}
	}
	if total == 0 {
		total = 10
	}
	return total
}
