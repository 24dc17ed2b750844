package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/session"
)

func newService(t *testing.T, handler http.Handler) (*Service, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	client, err := httpclient.New(session.New(store), httpclient.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewService(client), store
}

func TestSignInUsesBasicAuthAndStoresNestedTokens(t *testing.T) {
	svc, store := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != signInPath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ada@example.com" || pass != "hunter2" {
			t.Errorf("expected basic credentials, got %q %q", user, pass)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"access_token": "a1", "refresh_token": "r1", "userId": 42},
		})
	}))

	tokens, err := svc.SignIn(context.Background(), " ada@example.com ", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if tokens.UserID != "42" {
		t.Fatalf("expected user id 42 got %q", tokens.UserID)
	}

	ctx := context.Background()
	for kind, want := range map[session.Kind]string{session.AccessToken: "a1", session.RefreshToken: "r1", session.UserID: "42"} {
		if got, _, _ := store.Get(ctx, kind); got != want {
			t.Fatalf("expected %s=%q got %q", kind, want, got)
		}
	}
}

func TestSignInSurfacesBackendMessage(t *testing.T) {
	svc, store := newService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))

	_, err := svc.SignIn(context.Background(), "ada@example.com", "wrong")
	var apiErr *httpclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Bad credentials" {
		t.Fatalf("expected backend message, got %v", err)
	}
	if store.Has(session.AccessToken) {
		t.Fatal("failed sign in must not store tokens")
	}
}

func TestSignUpValidatesBeforeRequest(t *testing.T) {
	var hits int32
	svc, _ := newService(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	cases := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"missing mobile", SignUpRequest{Email: "a@b.c", Password: "x", ConfirmPassword: "x"}, ErrMissingFields},
		{"mismatch", SignUpRequest{Email: "a@b.c", Mobile: "1", Password: "x", ConfirmPassword: "y"}, ErrPasswordMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignUp(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
	if hits != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

func TestSignUpSendsManagerRole(t *testing.T) {
	svc, store := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("sign up must not send credentials")
		}
		var payload signUpPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		want := signUpPayload{UserName: "ada@example.com", UserEmail: "ada@example.com", UserMobileNo: "555", UserPassword: "pw", UserRole: DefaultRole}
		if payload != want {
			t.Errorf("unexpected payload %+v", payload)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "a1", "userId": "u-9"})
	}))

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "ada@example.com", Mobile: "555", Password: "pw", ConfirmPassword: "pw"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if got, _, _ := store.Get(context.Background(), session.UserID); got != "u-9" {
		t.Fatalf("expected user id stored, got %q", got)
	}
}

func TestValidateWithoutTokenMakesNoRequest(t *testing.T) {
	var hits int32
	svc, _ := newService(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	ok, err := svc.Validate(context.Background())
	if err != nil || ok {
		t.Fatalf("expected false without error, got %v %v", ok, err)
	}
	if hits != 0 {
		t.Fatalf("expected no request, got %d", hits)
	}
}

func TestValidateReadsAuthenticatedFlag(t *testing.T) {
	svc, store := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"data":{"authenticated":true}}`))
	}))
	_ = store.Set(context.Background(), session.AccessToken, "a1")

	ok, err := svc.Validate(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected authenticated, got %v %v", ok, err)
	}
}

func TestLogoutClearsSessionEvenWhenRejected(t *testing.T) {
	svc, store := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != logoutPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	ctx := context.Background()
	_ = store.Set(ctx, session.AccessToken, "a1")
	_ = store.Set(ctx, session.RefreshToken, "r1")

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if store.Has(session.AccessToken) || store.Has(session.RefreshToken) {
		t.Fatal("expected session cleared")
	}
}

func TestInspectToken(t *testing.T) {
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: DefaultRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ada@example.com",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte("any-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	info, err := InspectToken(signed)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Subject != "ada@example.com" || len(info.Roles) != 1 || info.Roles[0] != DefaultRole {
		t.Fatalf("unexpected info %+v", info)
	}
	if !info.ExpiresAt.Equal(expires) || info.Expired(time.Now()) {
		t.Fatalf("unexpected expiry %v", info.ExpiresAt)
	}

	if _, err := InspectToken("not-a-jwt"); err == nil {
		t.Fatal("expected malformed token to fail")
	}
}
