package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/vidclient/internal/config"
	"github.com/vidfriends/vidclient/internal/models"
)

type testCLI struct {
	*CLI
	out    *bytes.Buffer
	errOut *bytes.Buffer
	deps   Dependencies
}

func newTestCLI(t *testing.T, handler http.Handler, input string, mutate ...func(*config.Config)) *testCLI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		APIURL:          srv.URL,
		PageSize:        2,
		RelatedPageSize: 5,
		YTDLPPath:       "yt-dlp",
		Session:         config.SessionConfig{Driver: config.SessionDriverMemory},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	deps, cleanup, err := buildDependencies(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testCLI{
		CLI:    NewCLI(cfg, deps, strings.NewReader(input), out, errOut),
		out:    out,
		errOut: errOut,
		deps:   deps,
	}
}

func (c *testCLI) signIn(t *testing.T) {
	t.Helper()
	err := c.deps.Session.Save(context.Background(), models.SessionTokens{AccessToken: "a1", RefreshToken: "r1", UserID: "7"})
	require.NoError(t, err)
}

// pagedVideos serves the filter endpoint from a fixed catalogue.
func pagedVideos(t *testing.T, titles []string, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Page     int `json:"page"`
			PageSize int `json:"pageSize"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}

		page := models.Page[models.Video]{TotalResults: len(titles)}
		for i := body.Page * body.PageSize; i < len(titles) && i < (body.Page+1)*body.PageSize; i++ {
			page.Data = append(page.Data, models.Video{ID: int64(i + 1), Title: titles[i]})
		}
		_ = json.NewEncoder(w).Encode(page)
	}
}

func TestFeedLoadsRequestedPages(t *testing.T) {
	var calls int32
	cli := newTestCLI(t, pagedVideos(t, []string{"One", "Two", "Three"}, &calls), "")
	cli.signIn(t)

	require.NoError(t, cli.Execute(context.Background(), []string{"feed", "--pages", "5"}))

	assert.Equal(t, int32(2), calls, "the list is exhausted after two pages")
	for _, title := range []string{"One", "Two", "Three"} {
		assert.Contains(t, cli.out.String(), title)
	}
}

func TestFeedLoadsMoreOnEnter(t *testing.T) {
	var calls int32
	cli := newTestCLI(t, pagedVideos(t, []string{"One", "Two", "Three"}, &calls), "\n")
	cli.signIn(t)

	require.NoError(t, cli.Execute(context.Background(), []string{"feed"}))

	assert.Equal(t, int32(2), calls)
	assert.Contains(t, cli.out.String(), "Three")
	assert.Contains(t, cli.errOut.String(), "Enter for more")
}

func TestFeedSurfacesFirstPageFailure(t *testing.T) {
	cli := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), "")
	cli.signIn(t)

	err := cli.Execute(context.Background(), []string{"feed", "--pages", "1"})
	require.Error(t, err)
}

func TestShowRendersDetailAndRelated(t *testing.T) {
	var views int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/api/get/video/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"data":{"videoId":1,"title":"Main video","comments":[{"commentId":3,"comment":"first!"}]}}}`))
	})
	mux.HandleFunc("/auth/api/view/video", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&views, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/auth/api/get/video/filter", pagedVideos(t, []string{"Main video", "Other video"}, nil))

	cli := newTestCLI(t, mux, "")
	cli.signIn(t)

	require.NoError(t, cli.Execute(context.Background(), []string{"show", "1"}))

	out := cli.out.String()
	assert.Equal(t, 1, strings.Count(out, "Main video"), "the current video is excluded from related")
	assert.Contains(t, out, "Other video")
	assert.Contains(t, out, "first!")
	assert.Equal(t, int32(1), views)
}

func TestLikeRequiresSignIn(t *testing.T) {
	cli := newTestCLI(t, http.NotFoundHandler(), "")
	err := cli.Execute(context.Background(), []string{"like", "4"})
	assert.True(t, errors.Is(err, ErrNotSignedIn))
}

func TestLoginPromptsForPassword(t *testing.T) {
	cli := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ada@example.com", user)
		assert.Equal(t, "s3cret", pass)
		_, _ = w.Write([]byte(`{"data":{"access_token":"a1","refresh_token":"r1","userId":7}}`))
	}), "s3cret\n")

	require.NoError(t, cli.Execute(context.Background(), []string{"login", "--email", "ada@example.com"}))
	assert.Contains(t, cli.out.String(), "Signed in as user 7")
	assert.Equal(t, "a1", cli.deps.Session.AccessToken(context.Background()))
}

func TestDeleteCommentPolicy(t *testing.T) {
	forbidden := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	t.Run("silent", func(t *testing.T) {
		cli := newTestCLI(t, forbidden, "")
		cli.signIn(t)
		require.NoError(t, cli.Execute(context.Background(), []string{"delete-comment", "3"}))
		assert.NotContains(t, cli.out.String(), "Deleted")
	})

	t.Run("reported", func(t *testing.T) {
		cli := newTestCLI(t, forbidden, "", func(cfg *config.Config) { cfg.ReportDeleteErrors = true })
		cli.signIn(t)
		assert.Error(t, cli.Execute(context.Background(), []string{"delete-comment", "3"}))
	})
}

func TestDeleteVideoReloadsCreatorTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/api/delete/video/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
	})
	mux.HandleFunc("/auth/api/get/video/filter", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{float64(7)}, body["userId"])
		_, _ = w.Write([]byte(`{"data":[{"videoId":8,"title":"Remaining"}],"totalResults":1,"totalPages":1}`))
	})

	cli := newTestCLI(t, mux, "")
	cli.signIn(t)

	require.NoError(t, cli.Execute(context.Background(), []string{"delete", "42"}))
	assert.Contains(t, cli.out.String(), "Deleted video 42")
	assert.Contains(t, cli.out.String(), "Remaining")
}

func TestUploadSendsDraft(t *testing.T) {
	var uploaded models.Video
	cli := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/api/upload/video", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&uploaded))
	}), "")
	cli.signIn(t)

	err := cli.Execute(context.Background(), []string{"upload",
		"--link", "https://youtu.be/x",
		"--title", "Channels",
		"--description", "Buffered and not",
		"--thumbnail", "https://img/x.jpg",
		"--duration", "04:20",
		"--tags", "go, channels",
		"--difficulty", "Easy",
		"--category", "Backend",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), uploaded.UserID)
	assert.Equal(t, "https://img/x.jpg", uploaded.ThumbnailURL)
	assert.Equal(t, []string{"go", "channels"}, uploaded.TagNames())
	assert.Contains(t, cli.out.String(), `Uploaded "Channels"`)
}

func TestAnalyticsRendersSummaryAndTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/api/analytics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalViews":12,"totalLikes":3}`))
	})
	mux.HandleFunc("/auth/api/get/video/filter", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"videoId":8,"title":"Mine"}],"totalResults":1,"totalPages":1}`))
	})

	cli := newTestCLI(t, mux, "")
	cli.signIn(t)

	require.NoError(t, cli.Execute(context.Background(), []string{"analytics"}))
	out := cli.out.String()
	assert.Contains(t, out, "totalViews:")
	assert.Contains(t, out, "Mine")
	assert.Contains(t, out, "Page 1 of 1")
}

func TestTagsListsFilterOptions(t *testing.T) {
	t.Run("catalogue", func(t *testing.T) {
		cli := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/api/tags", r.URL.Path)
			_, _ = w.Write([]byte(`{"tags":[{"tagName":"go"},{"tagName":"react"}]}`))
		}), "")
		cli.signIn(t)

		require.NoError(t, cli.Execute(context.Background(), []string{"tags"}))
		assert.Equal(t, "All\ngo\nreact\n", cli.out.String())
	})

	t.Run("unavailable", func(t *testing.T) {
		cli := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}), "")
		cli.signIn(t)

		require.NoError(t, cli.Execute(context.Background(), []string{"tags"}))
		assert.Equal(t, "All\n", cli.out.String())
	})
}

func TestParseWithID(t *testing.T) {
	cases := []struct {
		args    []string
		want    int64
		wantErr bool
	}{
		{args: []string{"12"}, want: 12},
		{args: []string{"12", "--x", "a"}, want: 12},
		{args: []string{"--x", "a", "12"}, want: 12},
		{args: []string{}, wantErr: true},
		{args: []string{"abc"}, wantErr: true},
		{args: []string{"-3"}, wantErr: true},
	}
	for _, tc := range cases {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		fs.String("x", "", "")
		got, err := parseWithID(fs, tc.args)
		if tc.wantErr {
			assert.Error(t, err, "args %v", tc.args)
			continue
		}
		require.NoError(t, err, "args %v", tc.args)
		assert.Equal(t, tc.want, got)
	}
}
