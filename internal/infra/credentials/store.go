package credentials

import (
	"context"
	"errors"
	"strings"

	"aicam/internal/infra"
	"aicam/internal/sqlinline"
)

const (
	ProviderDoubao = "doubao"
	ProviderOpenAI = "openai"
)

// Store reads and writes provider API keys persisted in the database.
// Keys from the environment take precedence; the store is the fallback
// so a deployment can rotate keys without a restart.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) DoubaoAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderDoubao)
}

func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderOpenAI)
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

func (s *Store) SetDoubaoAPIKey(ctx context.Context, key string) error {
	return s.set(ctx, ProviderDoubao, key)
}

func (s *Store) SetOpenAIAPIKey(ctx context.Context, key string) error {
	return s.set(ctx, ProviderOpenAI, key)
}

func (s *Store) set(ctx context.Context, provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New(provider + " api key is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, key)
	return err
}
