// Package analytics backs the creator dashboard: the backend's analytics
// document and the creator's own video table.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
	"github.com/vidfriends/vidclient/internal/videos"
)

const (
	reportPath = "/auth/api/analytics"

	// DefaultPageSize is the row count of the creator table.
	DefaultPageSize = 10
)

// Options tunes the service.
type Options struct {
	// ReportDeleteErrors surfaces failed deletes to the caller. When false a
	// non-2xx delete is logged and otherwise ignored.
	ReportDeleteErrors bool
	PageSize           int
}

// Service reads analytics and manages the creator's videos.
type Service struct {
	client *httpclient.Client
	videos *videos.Service
	opts   Options
}

// NewService constructs an analytics service.
func NewService(client *httpclient.Client, videoSvc *videos.Service, opts Options) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Service{client: client, videos: videoSvc, opts: opts}
}

// Fetch returns the raw analytics document. Its shape is owned by the
// backend, so it is passed through undecoded beyond JSON.
func (s *Service) Fetch(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := s.client.DoJSON(ctx, http.MethodGet, reportPath, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// CreatorVideos lists one page of userID's videos. page is 1-based, as the
// dashboard table numbers its pages.
func (s *Service) CreatorVideos(ctx context.Context, userID int64, page, pageSize int) (models.Page[models.Video], error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.opts.PageSize
	}
	return s.videos.List(ctx, page, pageSize, models.FilterSet{UserIDs: []int64{userID}})
}

// Report combines Fetch and the first page of CreatorVideos.
func (s *Service) Report(ctx context.Context, userID int64, page int) (models.AnalyticsReport, error) {
	summary, err := s.Fetch(ctx)
	if err != nil {
		return models.AnalyticsReport{}, err
	}
	list, err := s.CreatorVideos(ctx, userID, page, s.opts.PageSize)
	if err != nil {
		return models.AnalyticsReport{}, err
	}
	return models.AnalyticsReport{Summary: summary, Videos: list}, nil
}

// DeleteVideo deletes id and, on success, calls refresh so the table
// reloads. A rejected delete leaves the table untouched; it is only returned
// when ReportDeleteErrors is set. Transport errors are always returned.
func (s *Service) DeleteVideo(ctx context.Context, id int64, refresh func(context.Context) error) error {
	err := s.videos.Delete(ctx, id)
	if err != nil {
		var apiErr *httpclient.APIError
		if !errors.As(err, &apiErr) || s.opts.ReportDeleteErrors {
			return err
		}
		logging.FromContext(ctx).Warn("video delete rejected",
			slog.String("video_id", strconv.FormatInt(id, 10)),
			slog.Int("status", apiErr.Status),
		)
		return nil
	}
	if refresh == nil {
		return nil
	}
	return refresh(ctx)
}
