// Package auth signs the user in and out of the VidFriends backend and keeps
// the resulting credentials in the shared session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
	"github.com/vidfriends/vidclient/internal/session"
)

const (
	signInPath   = "/auth/sign-in"
	signUpPath   = "/auth/sign-up"
	validatePath = "/auth/api/validate/token"
	logoutPath   = "/auth/logout"

	// DefaultRole is the role every self-registered account receives.
	DefaultRole = "ROLE_MANAGER"
)

var (
	// ErrMissingFields indicates a required sign-in or sign-up field is empty.
	ErrMissingFields = errors.New("all fields are required")
	// ErrPasswordMismatch indicates the password confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNoAccessToken indicates the backend accepted the credentials but returned no token.
	ErrNoAccessToken = errors.New("response carried no access token")
)

// SignUpRequest is the registration form.
type SignUpRequest struct {
	Email           string
	Mobile          string
	Password        string
	ConfirmPassword string
}

// Validate checks the form before any request is made.
func (r SignUpRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.Mobile) == "" || r.Password == "" || r.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

type signUpPayload struct {
	UserName     string `json:"userName"`
	UserEmail    string `json:"userEmail"`
	UserMobileNo string `json:"userMobileNo"`
	UserPassword string `json:"userPassword"`
	UserRole     string `json:"userRole"`
}

// Service talks to the auth endpoints.
type Service struct {
	client  *httpclient.Client
	session *session.Session
}

// NewService constructs an auth service. The session must be the one the
// client was built with.
func NewService(client *httpclient.Client) *Service {
	return &Service{client: client, session: client.Session()}
}

// SignIn exchanges email and password (sent as Basic credentials) for tokens
// and stores them.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.SessionTokens, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.SessionTokens{}, ErrMissingFields
	}

	resp, err := s.client.Do(ctx, http.MethodPost, signInPath, nil, httpclient.WithBasicAuth(email, password))
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign in: %w", err)
	}
	return s.storeTokens(ctx, resp)
}

// SignUp registers an account and stores the tokens the backend returns.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (models.SessionTokens, error) {
	if err := req.Validate(); err != nil {
		return models.SessionTokens{}, err
	}

	email := strings.TrimSpace(req.Email)
	payload := signUpPayload{
		UserName:     email,
		UserEmail:    email,
		UserMobileNo: strings.TrimSpace(req.Mobile),
		UserPassword: req.Password,
		UserRole:     DefaultRole,
	}

	resp, err := s.client.Do(ctx, http.MethodPost, signUpPath, payload, httpclient.Anonymous())
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign up: %w", err)
	}
	return s.storeTokens(ctx, resp)
}

// Validate asks the backend whether the stored access token is still good.
// It makes no request when no access token is stored.
func (s *Service) Validate(ctx context.Context) (bool, error) {
	if !s.session.Authenticated(ctx) {
		return false, nil
	}

	resp, err := s.client.Do(ctx, http.MethodGet, validatePath, nil)
	if err != nil {
		return false, fmt.Errorf("validate token: %w", err)
	}
	if !resp.OK() {
		return false, nil
	}

	var body struct {
		Data struct {
			Authenticated bool `json:"authenticated"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return false, fmt.Errorf("decode validate response: %w", err)
	}
	return body.Data.Authenticated, nil
}

// Logout notifies the backend and clears the session whatever the outcome.
func (s *Service) Logout(ctx context.Context) error {
	if s.session.Authenticated(ctx) {
		resp, err := s.client.Do(ctx, http.MethodPost, logoutPath, nil)
		switch {
		case err != nil:
			logging.FromContext(ctx).Warn("logout request failed", slog.Any("error", err))
		case !resp.OK():
			logging.FromContext(ctx).Warn("logout rejected", slog.Int("status", resp.StatusCode))
		}
	}
	if err := s.session.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Service) storeTokens(ctx context.Context, resp *httpclient.Response) (models.SessionTokens, error) {
	if err := resp.Err(); err != nil {
		return models.SessionTokens{}, err
	}

	tokens, err := httpclient.ParseTokens(resp)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if tokens.AccessToken == "" {
		return models.SessionTokens{}, ErrNoAccessToken
	}
	// A new login replaces whatever an earlier account left behind.
	if err := s.session.Clear(ctx); err != nil {
		return models.SessionTokens{}, fmt.Errorf("clear previous session: %w", err)
	}
	if err := s.session.Save(ctx, tokens); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store tokens: %w", err)
	}
	return tokens, nil
}
