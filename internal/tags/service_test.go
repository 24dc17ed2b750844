package tags

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/session"
)

func newService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := httpclient.New(session.New(session.NewMemoryStore()), httpclient.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewService(client)
}

func TestListReadsCatalogue(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != listPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"tags":[{"tag":"go"},{"tag":" "},{"tagName":"redis"},{"tag":"go"}]}`))
	})

	names, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"go", "redis"}) {
		t.Fatalf("unexpected tags %v", names)
	}
}

func TestFilterOptions(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tags":[{"tag":"go"}]}`))
	})
	if got := svc.FilterOptions(context.Background()); !slices.Equal(got, []string{"All", "go"}) {
		t.Fatalf("unexpected options %v", got)
	}
}

func TestFilterOptionsDegradesOnFailure(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if got := svc.FilterOptions(context.Background()); !slices.Equal(got, []string{"All"}) {
		t.Fatalf("expected only All, got %v", got)
	}
}
