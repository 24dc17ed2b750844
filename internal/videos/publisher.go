package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
	"github.com/vidfriends/vidclient/internal/storage"
)

// Publisher turns drafts into upload and edit calls. Local files go to asset
// storage first so the backend only ever receives URLs.
type Publisher struct {
	videos   *Service
	storage  storage.AssetStorage
	metadata Provider
}

// NewPublisher constructs a Publisher. store and metadata may be nil: file
// sources then fail with storage.ErrAssetStorageUnavailable and link
// sources are sent as typed.
func NewPublisher(videos *Service, store storage.AssetStorage, metadata Provider) *Publisher {
	return &Publisher{videos: videos, storage: store, metadata: metadata}
}

// Prepare validates draft and builds the upload payload for userID. It
// uploads local files but sends nothing to the backend.
func (p *Publisher) Prepare(ctx context.Context, draft Draft, userID int64) (models.Video, error) {
	if err := draft.Validate(); err != nil {
		return models.Video{}, err
	}

	if draft.Link != "" {
		draft = p.prefill(ctx, draft)
	}

	videoURL, thumbURL, err := p.uploadAssets(ctx, draft)
	if err != nil {
		return models.Video{}, err
	}

	duration := strings.TrimSpace(draft.Duration)
	if duration == "" {
		duration = DefaultDuration
	}

	return models.Video{
		UserID:       userID,
		Title:        strings.TrimSpace(draft.Title),
		Description:  strings.TrimSpace(draft.Description),
		URL:          videoURL,
		ThumbnailURL: thumbURL,
		Duration:     duration,
		Category:     draft.Category,
		Difficulty:   draft.Difficulty,
		Tags:         ParseTags(draft.Tags),
		Comments:     []models.Comment{},
	}, nil
}

// Publish prepares and uploads draft.
func (p *Publisher) Publish(ctx context.Context, draft Draft, userID int64) (models.Video, error) {
	video, err := p.Prepare(ctx, draft, userID)
	if err != nil {
		return models.Video{}, err
	}
	if err := p.videos.Upload(ctx, video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// Edit applies the non-empty fields of changes to existing and sends the
// result. Edits skip wizard validation; the backend has the final word.
func (p *Publisher) Edit(ctx context.Context, existing models.Video, changes Draft, userID int64) (models.Video, error) {
	video := existing
	if video.UserID == 0 {
		video.UserID = userID
	}
	if v := strings.TrimSpace(changes.Title); v != "" {
		video.Title = v
	}
	if v := strings.TrimSpace(changes.Description); v != "" {
		video.Description = v
	}
	if changes.Category != "" {
		video.Category = changes.Category
	}
	if changes.Difficulty != "" {
		video.Difficulty = changes.Difficulty
	}
	if tags := ParseTags(changes.Tags); len(tags) > 0 {
		video.Tags = tags
	}
	if changes.ThumbnailURL != "" || changes.ThumbnailFile != "" {
		_, thumbURL, err := p.uploadAssets(ctx, Draft{ThumbnailFile: changes.ThumbnailFile, ThumbnailURL: changes.ThumbnailURL})
		if err != nil {
			return models.Video{}, err
		}
		video.ThumbnailURL = thumbURL
	}
	if video.Comments == nil {
		video.Comments = []models.Comment{}
	}
	video.NumberOfComments = len(video.Comments)

	if err := p.videos.Edit(ctx, video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// prefill fills blank fields of a link draft from the metadata provider.
// Lookup failures leave the draft as typed.
func (p *Publisher) prefill(ctx context.Context, draft Draft) Draft {
	if p.metadata == nil {
		return draft
	}
	if draft.Title != "" && draft.Description != "" && (draft.ThumbnailURL != "" || draft.ThumbnailFile != "") && draft.Duration != "" {
		return draft
	}

	meta, err := p.metadata.Lookup(ctx, draft.Link)
	if err != nil {
		logging.FromContext(ctx).Info("link metadata unavailable", slog.String("link", draft.Link), slog.Any("error", err))
		return draft
	}
	if draft.Title == "" {
		draft.Title = meta.Title
	}
	if draft.Description == "" {
		draft.Description = meta.Description
	}
	if draft.ThumbnailURL == "" && draft.ThumbnailFile == "" {
		draft.ThumbnailURL = meta.Thumbnail
	}
	if draft.Duration == "" {
		draft.Duration = meta.Duration
	}
	return draft
}

// uploadAssets stores local video and thumbnail files concurrently under a
// shared videos/<uuid>/ prefix, one sub-folder per asset, and returns the
// URLs to send.
func (p *Publisher) uploadAssets(ctx context.Context, draft Draft) (videoURL, thumbURL string, err error) {
	videoURL = strings.TrimSpace(draft.Link)
	thumbURL = strings.TrimSpace(draft.ThumbnailURL)

	type asset struct {
		dst    *string
		folder string
		path   string
	}
	var files []asset
	if draft.File != "" {
		files = append(files, asset{dst: &videoURL, folder: "video/", path: draft.File})
	}
	if draft.ThumbnailFile != "" {
		files = append(files, asset{dst: &thumbURL, folder: "thumbnail/", path: draft.ThumbnailFile})
	}
	if len(files) == 0 {
		return videoURL, thumbURL, nil
	}
	if p.storage == nil {
		return "", "", storage.ErrAssetStorageUnavailable
	}

	prefix := "videos/" + uuid.NewString() + "/"
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range files {
		g.Go(func() error {
			location, err := p.saveFile(gctx, prefix+a.folder, a.path)
			if err != nil {
				return err
			}
			*a.dst = location
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return videoURL, thumbURL, nil
}

func (p *Publisher) saveFile(ctx context.Context, prefix, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ValidationError{Field: "file", Message: fmt.Sprintf("%s does not exist", path)}
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ctx, span := logging.StartSpan(ctx, "upload asset")
	location, err := p.storage.Save(ctx, prefix+filepath.Base(path), f)
	span.End(err)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", filepath.Base(path), err)
	}
	return location, nil
}
