package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/vidfriends/vidclient/internal/models"
)

func TestSessionSaveKeepsUnrotatedRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := New(store)

	if err := sess.Save(ctx, models.SessionTokens{AccessToken: "a1", RefreshToken: "r1", UserID: "42"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := sess.Save(ctx, models.SessionTokens{AccessToken: "a2"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if got := sess.AccessToken(ctx); got != "a2" {
		t.Fatalf("expected access token a2 got %q", got)
	}
	if got := sess.RefreshToken(ctx); got != "r1" {
		t.Fatalf("expected refresh token to survive got %q", got)
	}
	if got := sess.UserID(ctx); got != "42" {
		t.Fatalf("expected user id 42 got %q", got)
	}
}

func TestSessionAuthenticatedRequiresAccessToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := New(store)

	_ = store.Set(ctx, RefreshToken, "r1")
	if sess.Authenticated(ctx) {
		t.Fatal("refresh token alone must not count as authenticated")
	}

	_ = store.Set(ctx, AccessToken, "a1")
	if !sess.Authenticated(ctx) {
		t.Fatal("expected session to be authenticated")
	}

	if err := sess.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.Has(AccessToken) || store.Has(RefreshToken) {
		t.Fatal("expected clear to remove every token")
	}
}

type failingStore struct{ MemoryStore }

func (failingStore) Get(context.Context, Kind) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func TestSessionTreatsStoreErrorsAsAbsent(t *testing.T) {
	sess := New(&failingStore{})
	if sess.AccessToken(context.Background()) != "" {
		t.Fatal("expected empty token on store failure")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	store, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if _, ok, err := store.Get(ctx, AccessToken); err != nil || ok {
		t.Fatalf("expected missing token on fresh store, ok=%v err=%v", ok, err)
	}

	if err := store.SetMany(ctx, map[Kind]string{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("set many: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions got %v", info.Mode().Perm())
	}

	reopened, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, ok, err := reopened.Get(ctx, RefreshToken)
	if err != nil || !ok || value != "r1" {
		t.Fatalf("expected r1 after reopen got %q ok=%v err=%v", value, ok, err)
	}

	if err := reopened.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected session file removed, stat err = %v", err)
	}
}

func TestFileStoreSealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	store, err := NewFileStore(path, "correct horse")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Set(ctx, AccessToken, "secret-access"); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "secret-access") {
		t.Fatal("expected token to be sealed on disk")
	}

	value, ok, err := store.Get(ctx, AccessToken)
	if err != nil || !ok || value != "secret-access" {
		t.Fatalf("expected sealed round trip got %q ok=%v err=%v", value, ok, err)
	}

	wrong, _ := NewFileStore(path, "battery staple")
	if _, _, err := wrong.Get(ctx, AccessToken); !errors.Is(err, ErrWrongKey) {
		t.Fatalf("expected ErrWrongKey got %v", err)
	}

	none, _ := NewFileStore(path, "")
	if _, _, err := none.Get(ctx, AccessToken); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed got %v", err)
	}
}

func TestFileStoreCorruptSealedDocument(t *testing.T) {
	cases := map[string]string{
		"short nonce": `{"salt":"AAAAAAAAAAAAAAAAAAAAAA==","nonce":"AAAA","sealed":"AAAAAAAAAAAAAAAAAAAAAA=="}`,
		"short salt":  `{"salt":"AAAA","nonce":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA","sealed":"AAAAAAAAAAAAAAAAAAAAAA=="}`,
		"no nonce":    `{"salt":"AAAAAAAAAAAAAAAAAAAAAA==","sealed":"AAAAAAAAAAAAAAAAAAAAAA=="}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			store, err := NewFileStore(path, "correct horse")
			if err != nil {
				t.Fatalf("new file store: %v", err)
			}

			if _, _, err := store.Get(context.Background(), AccessToken); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt got %v", err)
			}

			sess := New(store)
			if got := sess.AccessToken(context.Background()); got != "" {
				t.Fatalf("expected no access token got %q", got)
			}
		})
	}
}

type fakeHash struct {
	fields  map[string]string
	deleted bool
}

func (f *fakeHash) HGet(_ context.Context, _ string, field string) *redis.StringCmd {
	value, ok := f.fields[field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeHash) HSet(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	for i := 0; i+1 < len(values); i += 2 {
		f.fields[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) Del(_ context.Context, _ ...string) *redis.IntCmd {
	f.deleted = true
	f.fields = map[string]string{}
	return redis.NewIntResult(1, nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	hash := &fakeHash{fields: map[string]string{}}
	store := NewRedisStore(hash, "")

	if store.key != "vidclient:session:default" {
		t.Fatalf("unexpected key %q", store.key)
	}

	if _, ok, err := store.Get(ctx, AccessToken); err != nil || ok {
		t.Fatalf("expected missing token, ok=%v err=%v", ok, err)
	}

	sess := New(store)
	if err := sess.Save(ctx, models.SessionTokens{AccessToken: "a1", UserID: "7"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if hash.fields["access_token"] != "a1" || hash.fields["user_id"] != "7" {
		t.Fatalf("unexpected hash contents: %+v", hash.fields)
	}

	if err := sess.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !hash.deleted {
		t.Fatal("expected hash to be deleted")
	}
}
