// Package session holds the client's credentials: a durable Token Store and
// the Session object that every API client receives explicitly.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
)

// Kind names one persisted credential. The values are the fixed storage keys.
type Kind string

const (
	AccessToken  Kind = "access_token"
	RefreshToken Kind = "refresh_token"
	UserID       Kind = "user_id"
)

// Kinds lists every key a store may hold, in a stable order.
var Kinds = []Kind{AccessToken, RefreshToken, UserID}

var (
	// ErrSealed indicates the session file is encrypted and no key was configured.
	ErrSealed = errors.New("session file is encrypted; set VIDCLIENT_SESSION_KEY")
	// ErrWrongKey indicates the configured key cannot open the session file.
	ErrWrongKey = errors.New("session key does not match session file")
	// ErrCorrupt indicates the sealed session file is truncated or malformed.
	ErrCorrupt = errors.New("session file is corrupt")
)

// Store is durable key/value storage for credentials. It performs no
// validation of token format or expiry.
type Store interface {
	Get(ctx context.Context, kind Kind) (string, bool, error)
	Set(ctx context.Context, kind Kind, value string) error
	Clear(ctx context.Context) error
}

// BatchStore is implemented by stores that can write several keys atomically.
type BatchStore interface {
	SetMany(ctx context.Context, values map[Kind]string) error
}

// Session is the single credential holder shared by the request client and
// the auth client.
type Session struct {
	store Store
}

// New wraps store in a Session.
func New(store Store) *Session {
	if store == nil {
		panic("session: store must not be nil")
	}
	return &Session{store: store}
}

// AccessToken returns the stored access token or "" when absent. Store
// failures are logged and treated as absence.
func (s *Session) AccessToken(ctx context.Context) string {
	return s.get(ctx, AccessToken)
}

// RefreshToken returns the stored refresh token or "".
func (s *Session) RefreshToken(ctx context.Context) string {
	return s.get(ctx, RefreshToken)
}

// UserID returns the stored user identifier or "".
func (s *Session) UserID(ctx context.Context) string {
	return s.get(ctx, UserID)
}

// Authenticated reports whether an access token is present. A refresh token
// alone does not count.
func (s *Session) Authenticated(ctx context.Context) bool {
	return s.AccessToken(ctx) != ""
}

// Save stores every non-empty credential in tokens. Empty fields leave the
// stored value untouched, so a refresh that does not rotate the refresh token
// keeps the old one.
func (s *Session) Save(ctx context.Context, tokens models.SessionTokens) error {
	values := make(map[Kind]string, len(Kinds))
	if v := strings.TrimSpace(tokens.AccessToken); v != "" {
		values[AccessToken] = v
	}
	if v := strings.TrimSpace(tokens.RefreshToken); v != "" {
		values[RefreshToken] = v
	}
	if v := strings.TrimSpace(tokens.UserID); v != "" {
		values[UserID] = v
	}
	if len(values) == 0 {
		return nil
	}

	if batch, ok := s.store.(BatchStore); ok {
		return batch.SetMany(ctx, values)
	}
	for _, kind := range Kinds {
		value, ok := values[kind]
		if !ok {
			continue
		}
		if err := s.store.Set(ctx, kind, value); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every stored credential.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

func (s *Session) get(ctx context.Context, kind Kind) string {
	value, ok, err := s.store.Get(ctx, kind)
	if err != nil {
		logging.FromContext(ctx).Warn("read session", "kind", string(kind), "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return value
}
