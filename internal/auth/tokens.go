package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purpose separates confirmation tokens from password reset tokens.
type Purpose string

const (
	PurposeConfirm Purpose = "confirm"
	PurposeReset   Purpose = "reset"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrNoTokenStorage = errors.New("token storage not configured")
)

// TokenStore keeps one-shot account tokens in redis. Each token maps to the
// email it was issued for and expires on its own.
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

var randomTokenFn = randomToken

func (s *TokenStore) Issue(ctx context.Context, purpose Purpose, email string, ttl time.Duration) (string, error) {
	if !s.ready() {
		return "", ErrNoTokenStorage
	}
	token, err := randomTokenFn()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, tokenKey(purpose, token), email, ttl).Err(); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}
	return token, nil
}

// Lookup returns the email a token was issued for.
func (s *TokenStore) Lookup(ctx context.Context, purpose Purpose, token string) (string, error) {
	if !s.ready() {
		return "", ErrNoTokenStorage
	}
	email, err := s.rdb.Get(ctx, tokenKey(purpose, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s token: %w", purpose, err)
	}
	return email, nil
}

func (s *TokenStore) Revoke(ctx context.Context, purpose Purpose, token string) error {
	if !s.ready() {
		return ErrNoTokenStorage
	}
	return s.rdb.Del(ctx, tokenKey(purpose, token)).Err()
}

func (s *TokenStore) ready() bool {
	return s != nil && s.rdb != nil
}

func tokenKey(purpose Purpose, token string) string {
	return "account:" + string(purpose) + ":" + token
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
