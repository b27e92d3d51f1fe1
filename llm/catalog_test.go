package llm

import "testing"

func TestGetModelInfo(t *testing.T) {
	info := GetModelInfo("gpt-4o-mini")
	if info == nil {
		t.Fatal("expected to find gpt-4o-mini")
	}
	if info.Provider != "openai" || !info.SupportsTools {
		t.Errorf("unexpected entry %+v", info)
	}

	info = GetModelInfo("sonnet")
	if info == nil || info.ID != "claude-sonnet-4-5" {
		t.Errorf("expected alias lookup to find claude-sonnet-4-5, got %+v", info)
	}

	if info := GetModelInfo("nonexistent-model"); info != nil {
		t.Errorf("expected nil for unknown model, got %v", info)
	}
}

func TestDefaultModel(t *testing.T) {
	if got := DefaultModel("openai"); got != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %q", got)
	}
	if got := DefaultModel("unknown"); got != "" {
		t.Errorf("expected empty default, got %q", got)
	}
}

func TestConfigMergeAndRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ResolvedModel() != "gpt-4o" {
		t.Errorf("expected catalog default model, got %q", cfg.ResolvedModel())
	}

	zero := 0
	cfg.Merge(&Config{Provider: "anthropic", MaxRetries: &zero})
	if cfg.Provider != "anthropic" || cfg.ResolvedModel() != "claude-sonnet-4-5" {
		t.Errorf("unexpected merged config %+v", cfg)
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("expected max tokens to survive merge, got %d", cfg.MaxTokens)
	}
	if p := cfg.RetryPolicy(); p.MaxRetries != 0 {
		t.Errorf("expected retries disabled, got %d", p.MaxRetries)
	}
}
