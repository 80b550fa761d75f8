package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// ErrEmptyKey is returned when an empty key is stored.
var ErrEmptyKey = errors.New("gemini api key is required")

// KeyStore persists the selected Gemini key.
type KeyStore interface {
	GeminiAPIKey(ctx context.Context) (string, error)
	SetGeminiAPIKey(ctx context.Context, key string) error
}

// Store keeps provider tokens in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	return s.upsert(ctx, ProviderGemini, key, map[string]any{
		"selected_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// MemoryStore keeps the key in process memory for deployments without Postgres.
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

// NewMemoryStore seeds the store with key, which may be empty.
func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{key: strings.TrimSpace(key)}
}

func (m *MemoryStore) GeminiAPIKey(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key, nil
}

func (m *MemoryStore) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	m.key = key
	m.mu.Unlock()
	return nil
}

var (
	_ KeyStore = (*Store)(nil)
	_ KeyStore = (*MemoryStore)(nil)
)
