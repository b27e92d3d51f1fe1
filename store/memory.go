package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/martinemde/execagent/agent"
)

// Memory is an in-process Store. Its contents are lost on exit.
type Memory struct {
	mu          sync.RWMutex
	facts       map[string]string
	transcripts map[string]memoryTranscript
	now         func() time.Time
}

type memoryTranscript struct {
	history   []agent.Message
	updatedAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		facts:       make(map[string]string),
		transcripts: make(map[string]memoryTranscript),
		now:         time.Now,
	}
}

func (m *Memory) SetFact(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[key] = value
	return nil
}

func (m *Memory) Fact(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.facts[key]
	return v, ok, nil
}

func (m *Memory) DeleteFact(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.facts, key)
	return nil
}

func (m *Memory) Facts(context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.facts), nil
}

func (m *Memory) SaveTranscript(_ context.Context, sessionID string, history []agent.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[sessionID] = memoryTranscript{history: slices.Clone(history), updatedAt: m.now()}
	return nil
}

func (m *Memory) LoadTranscript(_ context.Context, sessionID string) ([]agent.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transcripts[sessionID]
	if !ok {
		return nil, fmt.Errorf("transcript %s: %w", sessionID, ErrNotFound)
	}
	return slices.Clone(t.history), nil
}

func (m *Memory) ListSessions(context.Context) ([]SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SessionInfo, 0, len(m.transcripts))
	for id, t := range m.transcripts {
		out = append(out, SessionInfo{ID: id, Messages: len(t.history), Preview: preview(t.history), UpdatedAt: t.updatedAt})
	}
	slices.SortFunc(out, func(a, b SessionInfo) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (m *Memory) DeleteTranscript(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transcripts[sessionID]; !ok {
		return fmt.Errorf("transcript %s: %w", sessionID, ErrNotFound)
	}
	delete(m.transcripts, sessionID)
	return nil
}

func (m *Memory) Close() error { return nil }
