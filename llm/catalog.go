package llm

// ModelInfo describes a known model.
type ModelInfo struct {
	ID            string
	Provider      string
	ContextWindow int
	SupportsTools bool
	Aliases       []string
}

// Models is the catalog, newest first within each provider.
var Models = []ModelInfo{
	{ID: "gpt-4o", Provider: "openai", ContextWindow: 128000, SupportsTools: true},
	{ID: "gpt-4o-mini", Provider: "openai", ContextWindow: 128000, SupportsTools: true, Aliases: []string{"mini"}},
	{ID: "gpt-4-turbo", Provider: "openai", ContextWindow: 128000, SupportsTools: true},
	{ID: "claude-sonnet-4-5", Provider: "anthropic", ContextWindow: 200000, SupportsTools: true, Aliases: []string{"sonnet"}},
	{ID: "claude-haiku-4-5", Provider: "anthropic", ContextWindow: 200000, SupportsTools: true, Aliases: []string{"haiku"}},
	{ID: "llama3.1", Provider: "ollama", ContextWindow: 128000, SupportsTools: true},
}

// GetModelInfo returns the catalog entry for a model ID or alias, or nil.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// DefaultModel returns the first catalog model for provider, or "".
func DefaultModel(provider string) string {
	for _, m := range Models {
		if m.Provider == provider {
			return m.ID
		}
	}
	return ""
}
