// Package store persists remembered facts and session transcripts.
//
// SQLite is the durable backend; Memory keeps everything in process and is
// used when no database path is configured.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/martinemde/execagent/agent"
)

// ErrNotFound is returned when a transcript does not exist.
var ErrNotFound = errors.New("not found")

// SessionInfo summarizes a stored transcript.
type SessionInfo struct {
	ID        string    `json:"id"`
	Messages  int       `json:"messages"`
	Preview   string    `json:"preview"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is implemented by SQLite and Memory.
type Store interface {
	SetFact(ctx context.Context, key, value string) error
	Fact(ctx context.Context, key string) (string, bool, error)
	DeleteFact(ctx context.Context, key string) error
	Facts(ctx context.Context) (map[string]string, error)

	SaveTranscript(ctx context.Context, sessionID string, history []agent.Message) error
	LoadTranscript(ctx context.Context, sessionID string) ([]agent.Message, error)
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	DeleteTranscript(ctx context.Context, sessionID string) error

	Close() error
}

// Config selects the backend. An empty Path keeps data in memory.
type Config struct {
	Path string `yaml:"path" json:"path"`
}

// Merge applies non-zero fields from source onto c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// Open returns the store described by cfg.
func Open(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return NewMemory(), nil
	}
	return NewSQLite(cfg.Path)
}

const previewLength = 60

// preview is the first user message, shortened for listings.
func preview(history []agent.Message) string {
	for _, m := range history {
		if m.Role != agent.RoleUser {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if r := []rune(text); len(r) > previewLength {
			text = string(r[:previewLength-3]) + "..."
		}
		return text
	}
	return ""
}
