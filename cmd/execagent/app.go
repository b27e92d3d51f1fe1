package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/martinemde/execagent/action"
	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/config"
	"github.com/martinemde/execagent/llm"
	"github.com/martinemde/execagent/policy"
	"github.com/martinemde/execagent/runner"
	"github.com/martinemde/execagent/store"
)

// appDeps lets callers replace pieces of the application.
type appDeps struct {
	source agent.DecisionSource // nil: the configured LLM
	onLine func(runner.Line)    // live output of stream runners
}

// app holds everything sessions share. Sessions themselves are never
// shared.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	actions *action.Registry
	gate    *policy.Engine
	source  agent.DecisionSource
	client  *llm.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps appDeps) (*app, error) {
	a := &app{cfg: cfg, logger: logger, source: deps.source}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = st

	runners, err := runner.NewRegistryFromConfig(cfg.Runner, deps.onLine)
	if err != nil {
		a.Close()
		return nil, err
	}
	actions := []action.Action{action.NewExecuteCode(runners, runners.Languages())}
	actions = append(actions, action.MemoryActions(st)...)
	if a.actions, err = action.NewRegistry(actions...); err != nil {
		a.Close()
		return nil, err
	}

	if a.gate, err = policy.NewEngineFromConfig(ctx, cfg.Policy); err != nil {
		a.Close()
		return nil, err
	}

	if a.source == nil {
		client, err := llm.NewClientFromConfig(cfg.LLM, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("llm client: %w", err)
		}
		a.client = client
		a.source = agent.NewLLMSource(client, cfg.LLM)
	}
	return a, nil
}

// newSession creates a session. An empty id starts a new conversation.
func (a *app) newSession(id string, history []agent.Message, extra ...agent.Option) *agent.Session {
	opts := []agent.Option{
		agent.WithConfig(a.cfg.Agent),
		agent.WithLogger(a.logger),
		agent.WithGate(a.gate),
		agent.WithFacts(a.store),
		agent.WithTranscripts(a.store),
		agent.WithHistory(history),
	}
	if id != "" {
		opts = append(opts, agent.WithID(id))
	}
	s := agent.NewSession(a.source, a.actions, append(opts, extra...)...)
	go agent.LogEvents(context.Background(), s.Events(), a.logger)
	return s
}

// resume loads the stored history of id.
func (a *app) resume(ctx context.Context, id string, extra ...agent.Option) (*agent.Session, error) {
	history, err := a.store.LoadTranscript(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.newSession(id, history, extra...), nil
}

func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("close llm client", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", "error", err)
		}
	}
}
