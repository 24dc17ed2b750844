package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidfriends/vidclient/internal/config"
	"github.com/vidfriends/vidclient/internal/session"
)

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		APIURL:       "http://localhost:8083",
		PageSize:     10,
		RateLimit:    5,
		RateBurst:    2,
		YTDLPPath:    "yt-dlp",
		YTDLPTimeout: time.Second,
		Session:      config.SessionConfig{Driver: config.SessionDriverMemory},
	}

	deps, cleanup, err := buildDependencies(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer cleanup()

	if deps.Session == nil || deps.Client == nil {
		t.Fatal("expected session and client to be configured")
	}
	if deps.Client.Session() != deps.Session {
		t.Fatal("expected client to share the session")
	}
	if deps.Auth == nil {
		t.Fatal("expected auth service to be configured")
	}
	if deps.Videos == nil || deps.Publisher == nil {
		t.Fatal("expected video services to be configured")
	}
	if deps.Tags == nil {
		t.Fatal("expected tag service to be configured")
	}
	if deps.Analytics == nil {
		t.Fatal("expected analytics service to be configured")
	}
}

func TestBuildDependenciesRejectsBadURL(t *testing.T) {
	cfg := config.Config{APIURL: "not a url", Session: config.SessionConfig{Driver: config.SessionDriverMemory}}
	if _, _, err := buildDependencies(context.Background(), cfg); err == nil {
		t.Fatal("expected invalid base url to fail")
	}
}

func TestNewSessionStoreFileDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidclient", "session.json")
	cfg := config.Config{Session: config.SessionConfig{Driver: config.SessionDriverFile, Path: path}}

	store, cleanup, err := newSessionStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	fileStore, ok := store.(*session.FileStore)
	if !ok {
		t.Fatalf("expected *session.FileStore, got %T", store)
	}
	if fileStore.Path() != path {
		t.Fatalf("expected path %s got %s", path, fileStore.Path())
	}
}

func TestNewSessionStoreUnknownDriver(t *testing.T) {
	cfg := config.Config{Session: config.SessionConfig{Driver: "etcd"}}
	if _, _, err := newSessionStore(context.Background(), cfg); err == nil {
		t.Fatal("expected unknown driver to fail")
	}
}
