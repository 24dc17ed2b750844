package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/session"
	"github.com/vidfriends/vidclient/internal/videos"
)

func newService(t *testing.T, handler http.HandlerFunc, opts Options) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := httpclient.New(session.New(session.NewMemoryStore()), httpclient.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return NewService(client, videos.NewService(client), opts)
}

func TestFetchPassesDocumentThrough(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, reportPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"totalViews":120,"top":[{"videoId":1}]}`))
	}, Options{})

	doc, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(120), doc["totalViews"])
	assert.Len(t, doc["top"], 1)
}

func TestCreatorVideosFiltersByUser(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(1), body["page"])
		assert.Equal(t, float64(DefaultPageSize), body["pageSize"])
		assert.Equal(t, []any{float64(7)}, body["userId"])
		_, _ = w.Write([]byte(`{"data":[{"videoId":4}],"totalResults":1,"totalPages":1}`))
	}, Options{})

	page, err := svc.CreatorVideos(context.Background(), 7, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(4), page.Data[0].ID)
}

func TestDeleteVideoRefreshesOnSuccess(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/auth/api/delete/video/42", r.URL.Path)
	}, Options{})

	var refreshed int32
	err := svc.DeleteVideo(context.Background(), 42, func(context.Context) error {
		atomic.AddInt32(&refreshed, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshed)
}

func TestDeleteVideoRejected(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"not the owner"}`))
	}

	t.Run("silent", func(t *testing.T) {
		svc := newService(t, handler, Options{})
		refreshed := false
		err := svc.DeleteVideo(context.Background(), 42, func(context.Context) error {
			refreshed = true
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, refreshed, "a rejected delete must not reload the table")
	})

	t.Run("reported", func(t *testing.T) {
		svc := newService(t, handler, Options{ReportDeleteErrors: true})
		err := svc.DeleteVideo(context.Background(), 42, nil)
		require.Error(t, err)
		assert.True(t, httpclient.IsStatus(err, http.StatusForbidden))
		assert.Contains(t, err.Error(), "not the owner")
	})
}
