package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pkg/errors"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
)

// TokenKey is the key the bearer token lives under in the persisted store.
const TokenKey = "auth.token"

var (
	// errors
	ErrKeyNotFound = errors.New("key not found")
	ErrNoToken     = errors.New("no session token")
)

type (
	// Store is a persisted client-side key-value store. Backends live in
	// storage/kvstore.
	Store interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		Delete(ctx context.Context, key string) error
	}

	// Claims represents the authorization claims transmitted via a JWT.
	Claims struct {
		jwt.RegisteredClaims
		Username string   `json:"username,omitempty"`
		Email    string   `json:"email,omitempty"`
		Roles    []string `json:"roles,omitempty"`
	}

	// Session holds the current caller's identity and role. It is read-only
	// from the engine's perspective; only the sign-in collaborator writes to it.
	Session struct {
		store  Store
		secret []byte
	}
)

func (c *Claims) HasPrivilege() bool {
	return resource.HasPrivilege(c.Roles)
}

func New(store Store, conf *core.Config) *Session {
	return &Session{store: store, secret: []byte(conf.SecretKey)}
}

// Token returns the persisted bearer token, or ErrNoToken.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", ErrNoToken
		}
		return "", pkgerrors.Wrap(err, "reading session token")
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Claims parses and verifies the persisted token. A missing, malformed or
// expired token surfaces as an Unauthenticated failure.
func (s *Session) Claims(ctx context.Context) (*Claims, error) {
	tokenStr, err := s.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, core.WrapFailure(core.FailureUnauthenticated, err, "not signed in")
		}
		return nil, err
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(5*time.Second))
	if err != nil || !token.Valid {
		return nil, core.WrapFailure(core.FailureUnauthenticated, err, "session expired")
	}
	return claims, nil
}

// SetToken persists a freshly issued bearer token. Called by the sign-in
// collaborator (e.g. the admin CLI), never by the engine.
func (s *Session) SetToken(ctx context.Context, token string) error {
	return pkgerrors.Wrap(s.store.Set(ctx, TokenKey, token), "persisting session token")
}

// Clear drops the persisted token (sign-out).
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, TokenKey); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return pkgerrors.Wrap(err, "clearing session")
	}
	return nil
}
