package runner

import (
	"fmt"
	"time"
)

// Kind selects the Runner variant for a language.
type Kind string

const (
	KindGeneral    Kind = "general"
	KindScript     Kind = "script"
	KindStream     Kind = "stream"
	KindExpression Kind = "expression"
)

// LanguageConfig describes one language identifier and the runner that
// serves it. Command is the shell for general and stream runners and the
// interpreter for script and expression runners.
type LanguageConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Kind      Kind              `yaml:"kind" json:"kind"`
	Command   string            `yaml:"command,omitempty" json:"command,omitempty"`
	Extension string            `yaml:"extension,omitempty" json:"extension,omitempty"`
	Env       map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// Config holds runner settings.
type Config struct {
	Shell         string           `yaml:"shell" json:"shell"`
	WorkDir       string           `yaml:"work_dir" json:"work_dir"`
	TempDir       string           `yaml:"temp_dir" json:"temp_dir"`
	Timeout       time.Duration    `yaml:"timeout" json:"timeout"`
	StreamMaxWait time.Duration    `yaml:"stream_max_wait" json:"stream_max_wait"`
	Fallback      Kind             `yaml:"fallback" json:"fallback"` // "general" or "none"
	Languages     []LanguageConfig `yaml:"languages" json:"languages"`
}

// DefaultConfig returns the built-in language table.
func DefaultConfig() Config {
	return Config{
		Shell:         DefaultShell(),
		Timeout:       2 * time.Minute,
		StreamMaxWait: DefaultMaxWait,
		Fallback:      KindGeneral,
		Languages: []LanguageConfig{
			{Name: "python", Kind: KindScript, Command: "python3", Extension: ".py",
				Env: map[string]string{"PYTHONIOENCODING": "utf-8"}},
			{Name: "shell", Kind: KindStream},
			{Name: "bash", Kind: KindStream, Command: "bash -c"},
			{Name: "applescript", Kind: KindExpression, Command: "osascript -e"},
			{Name: "AppleScript", Kind: KindExpression, Command: "osascript -e"},
		},
	}
}

// Merge applies non-zero fields from source onto c. Languages merge by
// name: a source entry replaces the entry with the same name, new names are
// appended.
func (c *Config) Merge(source *Config) {
	if source.Shell != "" {
		c.Shell = source.Shell
	}
	if source.WorkDir != "" {
		c.WorkDir = source.WorkDir
	}
	if source.TempDir != "" {
		c.TempDir = source.TempDir
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.StreamMaxWait > 0 {
		c.StreamMaxWait = source.StreamMaxWait
	}
	if source.Fallback != "" {
		c.Fallback = source.Fallback
	}
	for _, lang := range source.Languages {
		replaced := false
		for i := range c.Languages {
			if c.Languages[i].Name == lang.Name {
				c.Languages[i] = lang
				replaced = true
				break
			}
		}
		if !replaced {
			c.Languages = append(c.Languages, lang)
		}
	}
}

// NewRegistryFromConfig builds a Registry for cfg. onLine, when non-nil,
// receives the live output of stream runners.
func NewRegistryFromConfig(cfg Config, onLine func(Line)) (*Registry, error) {
	var opts []RegistryOption
	switch cfg.Fallback {
	case KindGeneral:
		opts = append(opts, WithFallback(&General{Shell: cfg.Shell, Dir: cfg.WorkDir, Timeout: cfg.Timeout}))
	case "", "none":
	default:
		return nil, fmt.Errorf("runner fallback %q: must be general or none", cfg.Fallback)
	}

	reg := NewRegistry(opts...)
	for _, lang := range cfg.Languages {
		rn, err := newRunner(cfg, lang, onLine)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(lang.Name, rn); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newRunner(cfg Config, lang LanguageConfig, onLine func(Line)) (Runner, error) {
	shell := lang.Command
	if shell == "" {
		shell = cfg.Shell
	}
	switch lang.Kind {
	case KindGeneral:
		return &General{Shell: shell, Dir: cfg.WorkDir, Env: lang.Env, Timeout: cfg.Timeout}, nil
	case KindStream:
		env := map[string]string{"PYTHONIOENCODING": "utf-8"}
		for k, v := range lang.Env {
			env[k] = v
		}
		return &Stream{Shell: shell, Dir: cfg.WorkDir, Env: env, MaxWait: cfg.StreamMaxWait, OnLine: onLine}, nil
	case KindScript:
		if lang.Command == "" {
			return nil, fmt.Errorf("language %s: script runner needs a command", lang.Name)
		}
		return &Script{Interpreter: lang.Command, Extension: lang.Extension, TempDir: cfg.TempDir,
			Dir: cfg.WorkDir, Env: lang.Env, Timeout: cfg.Timeout}, nil
	case KindExpression:
		if lang.Command == "" {
			return nil, fmt.Errorf("language %s: expression runner needs a command", lang.Name)
		}
		return &Expression{Interpreter: lang.Command, Dir: cfg.WorkDir, Env: lang.Env, Timeout: cfg.Timeout}, nil
	default:
		return nil, fmt.Errorf("language %s: unknown runner kind %q", lang.Name, lang.Kind)
	}
}
