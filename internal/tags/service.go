// Package tags reads the tag catalogue used by the feed filters and the
// upload form.
package tags

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
)

const listPath = "/auth/api/tags"

// Service lists tags.
type Service struct {
	client *httpclient.Client
}

// NewService constructs a tag service.
func NewService(client *httpclient.Client) *Service {
	return &Service{client: client}
}

// List returns the tag names in catalogue order, skipping blanks and
// duplicates.
func (s *Service) List(ctx context.Context) ([]string, error) {
	var out struct {
		Tags []models.Tag `json:"tags"`
	}
	if err := s.client.DoJSON(ctx, http.MethodGet, listPath, nil, &out); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	seen := make(map[string]struct{}, len(out.Tags))
	names := make([]string, 0, len(out.Tags))
	for _, tag := range out.Tags {
		name := strings.TrimSpace(tag.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// FilterOptions returns the choices for the tag filter: "All" followed by
// the catalogue. A failed lookup still yields "All" so the filter stays
// usable.
func (s *Service) FilterOptions(ctx context.Context) []string {
	names, err := s.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("tag catalogue unavailable", slog.Any("error", err))
		return []string{models.AllOption}
	}
	return append([]string{models.AllOption}, names...)
}
