package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/martinemde/execagent/action"
	"github.com/martinemde/execagent/policy"
)

var (
	ErrMaxTurns      = errors.New("maximum number of turns reached")
	ErrSessionClosed = errors.New("session is closed")
)

// State is the position of a session in the orchestration loop.
type State string

const (
	StateAwaitingDecision State = "awaiting_decision"
	StateHandlingActions  State = "handling_actions"
	StateTerminated       State = "terminated"
)

// Status is the result of the last completed action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// LastAction is the session's single-slot memory of the most recent
// completed action. The zero value means no action has completed.
type LastAction struct {
	Name   string `json:"name,omitempty"`
	Status Status `json:"status,omitempty"`
}

const (
	confirmPrompt   = "Do you want to execute the code?"
	declinedMessage = "Code execution cancelled for current action only"
)

// Result is the outcome of one Send.
type Result struct {
	Text  string
	Turns int
}

// Session is one conversation with the decision source.
type Session struct {
	id      string
	source  DecisionSource
	actions *action.Registry
	config  Config
	logger  *slog.Logger
	emitter *EventEmitter

	display     Display
	confirmer   Confirmer
	gate        Gate
	facts       action.FactStore
	transcripts TranscriptStore
	now         func() time.Time

	run sync.Mutex // serializes Send

	mu      sync.Mutex
	history []Message
	memory  LastAction
	state   State
	closed  bool
}

// Option configures a Session.
type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

func WithConfig(cfg Config) Option {
	return func(s *Session) { s.config = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithDisplay(d Display) Option {
	return func(s *Session) { s.display = d }
}

// WithConfirmer sets who approves actions the gate marks for confirmation.
// Without one, such actions are declined.
func WithConfirmer(c Confirmer) Option {
	return func(s *Session) { s.confirmer = c }
}

// WithGate replaces the built-in rule that asks for confirmation before
// execute_code unless code execution is pre-authorized.
func WithGate(g Gate) Option {
	return func(s *Session) { s.gate = g }
}

// WithFacts exposes remembered facts in the system prompt.
func WithFacts(f action.FactStore) Option {
	return func(s *Session) { s.facts = f }
}

// WithTranscripts persists the history after every Send.
func WithTranscripts(t TranscriptStore) Option {
	return func(s *Session) { s.transcripts = t }
}

// WithHistory resumes a previous conversation.
func WithHistory(history []Message) Option {
	return func(s *Session) { s.history = append([]Message(nil), history...) }
}

// NewSession creates a session that asks source for decisions and
// dispatches through actions.
func NewSession(source DecisionSource, actions *action.Registry, opts ...Option) *Session {
	s := &Session{
		id:      uuid.New().String(),
		source:  source,
		actions: actions,
		config:  DefaultConfig(),
		state:   StateTerminated,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("session_id", s.id)
	s.emitter = NewEventEmitter(s.id, s.config.EventBuffer)
	s.emitter.Emit(EventSessionStart, map[string]interface{}{"resumed_messages": len(s.history)})
	return s
}

func (s *Session) ID() string { return s.id }

// Events returns the session's event channel.
func (s *Session) Events() <-chan Event {
	return s.emitter.Events()
}

// History returns a copy of the full conversation history.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// LastAction returns the last-action memory.
func (s *Session) LastAction() LastAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close ends the session. Later calls to Send fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	n := len(s.history)
	s.mu.Unlock()

	s.emitter.Emit(EventSessionEnd, map[string]interface{}{"messages": n})
	s.emitter.Close()
}

// Send runs the loop for one user message and returns the final text.
// A decision source failure is returned as *DecisionError; running out of
// turns returns ErrMaxTurns. Either way the history keeps everything that
// happened.
func (s *Session) Send(ctx context.Context, input string) (*Result, error) {
	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	defer s.persist(ctx)
	defer s.setState(StateTerminated)

	s.append(UserMessage(input))
	s.emitter.Emit(EventUserInput, map[string]interface{}{"content": input})

	for turn := 1; ; turn++ {
		if s.config.MaxTurns > 0 && turn > s.config.MaxTurns {
			s.emitter.Emit(EventTurnLimit, map[string]interface{}{"max_turns": s.config.MaxTurns})
			return nil, ErrMaxTurns
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.setState(StateAwaitingDecision)
		decision, err := s.source.Decide(ctx, s.decisionRequest(ctx))
		if err != nil {
			s.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			return nil, &DecisionError{Err: err}
		}
		s.emitter.Emit(EventDecision, map[string]interface{}{
			"turn":            turn,
			"text":            decision.Text,
			"action_requests": len(decision.ActionRequests),
		})

		if len(decision.ActionRequests) == 0 {
			s.append(AssistantMessage(decision.Text))
			s.show(decision.Text)
			return &Result{Text: decision.Text, Turns: turn}, nil
		}

		s.append(AssistantMessage(decision.Text, decision.ActionRequests...))
		s.show(decision.Text)

		s.setState(StateHandlingActions)
		for _, req := range decision.ActionRequests {
			s.append(s.handle(ctx, req))
		}
	}
}

func (s *Session) decisionRequest(ctx context.Context) DecisionRequest {
	s.mu.Lock()
	history := window(s.history, s.config.HistoryWindow)
	memory := s.memory
	s.mu.Unlock()

	env := senseEnvironment(s.config.AgentName, s.now())
	if memory.Name != "" {
		name, status := memory.Name, string(memory.Status)
		env.LastAction, env.LastActionStatus = &name, &status
	}
	if s.facts != nil {
		facts, err := s.facts.Facts(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "load facts", "error", err)
		}
		env.Facts = facts
	}

	return DecisionRequest{
		SystemPrompt: buildSystemPrompt(s.config.SystemMessage, env),
		History:      history,
		Actions:      s.actions.Definitions(),
	}
}

// handle resolves one action request into its tool message. It never
// fails: every problem becomes the message content.
func (s *Session) handle(ctx context.Context, req ActionRequest) Message {
	logger := s.logger.With("action", req.ActionName, "request_id", req.ID)

	if last := s.LastAction(); last.Name == req.ActionName && last.Status == StatusFailure {
		logger.InfoContext(ctx, "skipping action that just failed")
		s.emitter.Emit(EventActionSkipped, map[string]interface{}{"action": req.ActionName, "request_id": req.ID})
		return ToolMessage(req, fmt.Sprintf("Skipped %s: the previous %s call failed. Try a different approach.", req.ActionName, req.ActionName))
	}

	s.emitter.Emit(EventActionStart, map[string]interface{}{"action": req.ActionName, "request_id": req.ID})
	content, status := s.dispatch(ctx, req, logger)
	if status != "" {
		s.remember(LastAction{Name: req.ActionName, Status: status})
	}
	content = TruncateOutput(ScrubCredentials(content), s.config.ToolOutputLimit)
	s.emitter.Emit(EventActionEnd, map[string]interface{}{
		"action":     req.ActionName,
		"request_id": req.ID,
		"status":     string(status),
		"output":     content,
	})
	return ToolMessage(req, content)
}

// dispatch returns the result text and the status to remember. An empty
// status leaves the memory untouched.
func (s *Session) dispatch(ctx context.Context, req ActionRequest, logger *slog.Logger) (string, Status) {
	args, err := action.ParseArgs(req.RawArguments)
	if err != nil {
		logger.WarnContext(ctx, "parse action arguments", "error", err)
		return err.Error(), ""
	}
	if _, err := s.actions.Get(req.ActionName); err != nil {
		logger.WarnContext(ctx, "unknown action")
		return err.Error(), ""
	}

	decision, err := s.authorize(ctx, req.ActionName, args)
	if err != nil {
		logger.ErrorContext(ctx, "authorize action", "error", err)
		return fmt.Sprintf("Action not authorized: %v", err), ""
	}
	switch decision {
	case policy.Block:
		logger.InfoContext(ctx, "action blocked by policy")
		return "Action blocked by policy: " + req.ActionName, ""
	case policy.Confirm:
		if !s.confirm(ctx, req.ActionName, args, logger) {
			return declinedMessage, ""
		}
	}

	s.show("Executing action " + req.ActionName)
	start := s.now()
	out, err := s.actions.Dispatch(ctx, req.ActionName, args)
	logger = logger.With("duration", s.now().Sub(start))
	if err != nil {
		logger.InfoContext(ctx, "action failed", "error", err)
		return err.Error(), StatusFailure
	}
	logger.DebugContext(ctx, "action succeeded")
	return out, StatusSuccess
}

func (s *Session) authorize(ctx context.Context, name string, args action.Args) (policy.Decision, error) {
	if s.gate == nil {
		if name == action.ExecuteCodeName && !s.config.AllowCodeExecution {
			return policy.Confirm, nil
		}
		return policy.Allow, nil
	}
	return s.gate.Evaluate(ctx, policy.Input{
		Action:             name,
		Args:               args,
		AllowCodeExecution: s.config.AllowCodeExecution,
		SessionID:          s.id,
	})
}

func (s *Session) confirm(ctx context.Context, name string, args action.Args, logger *slog.Logger) bool {
	if s.confirmer == nil {
		logger.InfoContext(ctx, "no confirmer, declining action")
		return false
	}
	ok, err := s.confirmer.Confirm(ctx, ConfirmRequest{Prompt: confirmPrompt, ActionName: name, Args: args})
	if err != nil {
		logger.WarnContext(ctx, "confirmation failed", "error", err)
		return false
	}
	return ok
}

func (s *Session) show(text string) {
	if s.display != nil && text != "" {
		s.display.Display(text)
	}
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
}

func (s *Session) remember(m LastAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = m
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) persist(ctx context.Context) {
	if s.transcripts == nil {
		return
	}
	// The turn may have ended because ctx was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := s.transcripts.SaveTranscript(ctx, s.id, s.History()); err != nil {
		s.logger.ErrorContext(ctx, "save transcript", "error", err)
	}
}
