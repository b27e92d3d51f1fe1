package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/execagent/action"
	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/store"
)

func echoSource(_ context.Context, req agent.DecisionRequest) (agent.Decision, error) {
	last := req.History[len(req.History)-1]
	if last.Content == "fail" {
		return agent.Decision{}, errors.New("model unavailable")
	}
	return agent.Decision{Text: "you said: " + last.Content}, nil
}

func newTestServer(t *testing.T, maxSessions int) (*Server, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	reg, err := action.NewRegistry()
	require.NoError(t, err)

	factory := func(id string, history []agent.Message) *agent.Session {
		return agent.NewSession(agent.DecisionFunc(echoSource), reg,
			agent.WithID(id),
			agent.WithHistory(history),
			agent.WithTranscripts(st),
		)
	}
	s, err := New(Config{MaxSessions: maxSessions}, factory, st, nil)
	require.NoError(t, err)
	return s, st
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[SessionResponse](t, rec)
	require.NotEmpty(t, resp.ID)
	assert.Empty(t, resp.History)
	return resp.ID
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, 10)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	s, st := newTestServer(t, 10)
	id := createSession(t, s)

	rec := do(t, s, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, SendMessageResponse{Text: "you said: hello", Turns: 1}, decode[SendMessageResponse](t, rec))

	rec = do(t, s, http.MethodGet, "/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SessionResponse](t, rec)
	assert.Equal(t, []agent.Message{agent.UserMessage("hello"), agent.AssistantMessage("you said: hello")}, resp.History)

	rec = do(t, s, http.MethodDelete, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored, err := st.LoadTranscript(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// A deleted session resumes from its transcript.
	rec = do(t, s, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"content":"again"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Len(t, decode[SessionResponse](t, rec).History, 4)
}

func TestEvictionPersistsTranscript(t *testing.T) {
	s, st := newTestServer(t, 1)
	first := createSession(t, s)
	rec := do(t, s, http.MethodPost, "/v1/sessions/"+first+"/messages", `{"content":"one"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	second := createSession(t, s)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, s.sessions.Len())
	assert.False(t, s.sessions.Contains(first))

	stored, err := st.LoadTranscript(context.Background(), first)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	rec = do(t, s, http.MethodPost, "/v1/sessions", `{"id":"`+first+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[SessionResponse](t, rec).History, 2)
}

// slowTranscripts delays loads so concurrent resumes overlap.
type slowTranscripts struct {
	*store.Memory
	delay time.Duration
}

func (s slowTranscripts) LoadTranscript(ctx context.Context, id string) ([]agent.Message, error) {
	time.Sleep(s.delay)
	return s.Memory.LoadTranscript(ctx, id)
}

func TestConcurrentResumeSharesOneSession(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.SaveTranscript(context.Background(), "abc", []agent.Message{agent.UserMessage("earlier")}))
	reg, err := action.NewRegistry()
	require.NoError(t, err)

	var created atomic.Int32
	factory := func(id string, history []agent.Message) *agent.Session {
		created.Add(1)
		return agent.NewSession(agent.DecisionFunc(echoSource), reg, agent.WithID(id), agent.WithHistory(history))
	}
	s, err := New(Config{MaxSessions: 10}, factory, slowTranscripts{Memory: st, delay: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	const n = 20
	sessions := make([]*agent.Session, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := s.lookup(context.Background(), "abc")
			assert.NoError(t, err)
			sessions[i] = session
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, session := range sessions {
		assert.Same(t, sessions[0], session)
	}
	assert.Equal(t, 1, s.sessions.Len())
}

func TestUnknownSession(t *testing.T) {
	s, _ := newTestServer(t, 10)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/sessions/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/v1/sessions/nope/messages", `{"content":"hi"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/v1/sessions", `{"id":"nope"}`).Code)
}

func TestSendMessageErrors(t *testing.T) {
	s, _ := newTestServer(t, 10)
	id := createSession(t, s)

	rec := do(t, s, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/sessions/"+id+"/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"content":"fail"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "model unavailable")
}

func TestShutdownReleasesSessions(t *testing.T) {
	s, st := newTestServer(t, 10)
	id := createSession(t, s)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Zero(t, s.sessions.Len())
	_, err := st.LoadTranscript(context.Background(), id)
	assert.NoError(t, err)
}

func TestConfigMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{Addr: ":9999"})
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 100, cfg.MaxSessions)
}
