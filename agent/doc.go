// Package agent implements the orchestration loop that turns a user
// message into decisions, action dispatches and a final answer.
//
// A Session owns one conversation. Each call to Send appends the user
// message, then alternates between asking the DecisionSource what to do and
// dispatching the requested actions through an action.Registry, until the
// source answers with plain text or the turn limit is reached.
//
// Every action request produces exactly one tool message, appended in the
// order the requests were issued. The session remembers the last action and
// whether it succeeded; a request for an action that just failed is skipped
// so the model cannot retry it blindly in the same way.
//
// The session reports progress on a buffered event channel (see
// EventEmitter) and logs through log/slog.
package agent
