package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/store"
)

// CreateSessionRequest optionally names a stored session to resume.
type CreateSessionRequest struct {
	ID string `json:"id,omitempty"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID         string           `json:"id"`
	History    []agent.Message  `json:"history"`
	LastAction agent.LastAction `json:"last_action"`
}

// SendMessageRequest is the body of POST /v1/sessions/:id/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse carries the final text of one Send.
type SendMessageResponse struct {
	Text  string `json:"text"`
	Turns int    `json:"turns"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// CreateSession starts a new session, or resumes a stored one.
// POST /v1/sessions
func (s *Server) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body")
		}
	}

	if req.ID != "" {
		session, err := s.lookup(ctx, req.ID)
		if errors.Is(err, store.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "session not found")
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "resume session", "session_id", req.ID, "error", err)
			return errorJSON(c, http.StatusInternalServerError, "failed to resume session")
		}
		return c.JSON(http.StatusOK, describe(session))
	}

	id := s.newID()
	session := s.factory(id, nil)
	s.sessions.Add(id, session)
	return c.JSON(http.StatusCreated, describe(session))
}

// GetSession returns a session's history.
// GET /v1/sessions/:id
func (s *Server) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	session, err := s.lookup(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "load session", "session_id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load session")
	}
	return c.JSON(http.StatusOK, describe(session))
}

// SendMessage runs the loop for one user message.
// POST /v1/sessions/:id/messages
func (s *Server) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return errorJSON(c, http.StatusBadRequest, "content is required")
	}

	session, err := s.lookup(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "load session", "session_id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load session")
	}

	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	res, err := session.Send(ctx, req.Content)
	var decisionErr *agent.DecisionError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, SendMessageResponse{Text: res.Text, Turns: res.Turns})
	case errors.As(err, &decisionErr):
		s.logger.WarnContext(ctx, "decision source failed", "session_id", id, "error", err)
		return errorJSON(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, agent.ErrMaxTurns):
		return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, agent.ErrSessionClosed):
		return errorJSON(c, http.StatusGone, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return errorJSON(c, http.StatusGatewayTimeout, "request timed out")
	default:
		s.logger.ErrorContext(ctx, "send message", "session_id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to process message")
	}
}

// DeleteSession closes a pooled session. Its transcript stays stored.
// DELETE /v1/sessions/:id
func (s *Server) DeleteSession(c echo.Context) error {
	if !s.sessions.Remove(c.Param("id")) {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func describe(session *agent.Session) SessionResponse {
	history := session.History()
	if history == nil {
		history = []agent.Message{}
	}
	return SessionResponse{ID: session.ID(), History: history, LastAction: session.LastAction()}
}
