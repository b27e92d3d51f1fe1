package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/execagent/config"
)

// options are the flags shared by every command.
type options struct {
	configPath    string
	allowCode     bool
	systemMessage string
	provider      string
	model         string
	maxTurns      int
	sessionID     string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "execagent",
		Short: "Chat with an agent that runs code to get things done",
		Long: `execagent asks a language model what to do with your request and runs the
code it proposes on this machine, feeding the results back until the model
answers in plain text.

Type "quit" or "exit" to leave and "/new" to start a fresh conversation.

Examples:
  execagent                           # interactive session
  execagent --allow-code-execution    # run code without asking
  execagent --session 3f2a...         # resume a stored conversation
  execagent serve                     # HTTP API`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runChat(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath+" when present)")
	f.BoolVar(&opts.allowCode, "allow-code-execution", false, "run code without asking for confirmation")
	f.StringVar(&opts.systemMessage, "system-message", "", "replace the default system message")
	f.StringVar(&opts.provider, "llm", "", "LLM provider (openai, anthropic, ollama, ...)")
	f.StringVar(&opts.model, "model", "", "model name or alias")
	f.IntVar(&opts.maxTurns, "max-turns", 0, "maximum decisions per message, negative for no limit")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "resume the stored session with this id")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSessionsCmd(opts))
	return cmd
}

// loadConfig reads the config file, then applies the environment and the
// flags, in that order of precedence.
func loadConfig(opts *options, getenv func(string) string) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	if opts.allowCode {
		cfg.Agent.AllowCodeExecution = true
	}
	if opts.systemMessage != "" {
		cfg.Agent.SystemMessage = opts.systemMessage
	}
	if opts.provider != "" {
		cfg.LLM.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
	}
	if opts.maxTurns != 0 {
		cfg.Agent.MaxTurns = opts.maxTurns
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

// newLogger logs to stderr at the configured level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// setup loads the configuration and builds the application.
func setup(ctx context.Context, opts *options, deps appDeps) (*app, error) {
	cfg, err := loadConfig(opts, os.Getenv)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return newApp(ctx, cfg, logger, deps)
}
