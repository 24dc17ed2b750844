// Package videos maps video operations onto the backend API and drives the
// upload and edit workflow.
package videos

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/models"
	"github.com/vidfriends/vidclient/internal/pagination"
)

const (
	filterPath        = "/auth/api/get/video/filter"
	getPathPrefix     = "/auth/api/get/video/"
	uploadPath        = "/auth/api/upload/video"
	editPath          = "/auth/api/edit/video"
	deletePathPrefix  = "/auth/api/delete/video/"
	likePath          = "/auth/api/like/video"
	commentPath       = "/auth/api/comment/video"
	commentsPrefix    = "/auth/api/get/comments/"
	deleteCommentPath = "/auth/api/delete/comment/"
	viewPath          = "/auth/api/view/video"
)

// Service is the video resource client. It holds no state beyond the
// request client.
type Service struct {
	client *httpclient.Client
}

// NewService constructs a video service.
func NewService(client *httpclient.Client) *Service {
	return &Service{client: client}
}

// List fetches one zero-based page of videos matching filters.
func (s *Service) List(ctx context.Context, page, pageSize int, filters models.FilterSet) (models.Page[models.Video], error) {
	var out models.Page[models.Video]
	if err := s.client.DoJSON(ctx, http.MethodPost, filterPath, FilterPayload(page, pageSize, filters), &out); err != nil {
		return models.Page[models.Video]{}, fmt.Errorf("list videos: %w", err)
	}
	return out, nil
}

// Fetcher adapts List for a pagination.Controller.
func (s *Service) Fetcher() pagination.Fetcher[models.Video, models.FilterSet] {
	return s.List
}

// Get fetches a single video with its comments.
func (s *Service) Get(ctx context.Context, id int64) (models.Video, error) {
	var out struct {
		Data struct {
			Data *models.Video `json:"data"`
		} `json:"data"`
	}
	if err := s.client.DoJSON(ctx, http.MethodGet, getPathPrefix+idPath(id), nil, &out); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("get video %d: %w", id, err)
	}
	if out.Data.Data == nil {
		return models.Video{}, ErrNotFound
	}
	video := *out.Data.Data
	if video.NumberOfComments == 0 {
		video.NumberOfComments = len(video.Comments)
	}
	return video, nil
}

// Upload creates a video from a complete payload.
func (s *Service) Upload(ctx context.Context, video models.Video) error {
	if err := s.client.DoJSON(ctx, http.MethodPost, uploadPath, video, nil); err != nil {
		return fmt.Errorf("upload video: %w", err)
	}
	return nil
}

// Edit replaces the stored fields of video.ID.
func (s *Service) Edit(ctx context.Context, video models.Video) error {
	if err := s.client.DoJSON(ctx, http.MethodPost, editPath, video, nil); err != nil {
		return fmt.Errorf("edit video %d: %w", video.ID, err)
	}
	return nil
}

// Delete removes a video.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.client.DoJSON(ctx, http.MethodDelete, deletePathPrefix+idPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete video %d: %w", id, err)
	}
	return nil
}

type interaction struct {
	VideoID  int64  `json:"videoId"`
	UserID   int64  `json:"userId"`
	Comment  string `json:"comment,omitempty"`
	Likes    *int   `json:"likes,omitempty"`
	Dislikes *int   `json:"dislikes,omitempty"`
}

// Like records a like and returns the new like count.
func (s *Service) Like(ctx context.Context, videoID, userID int64) (int, error) {
	var out struct {
		Data struct {
			Likes int `json:"likes"`
		} `json:"data"`
	}
	body := interaction{VideoID: videoID, UserID: userID}
	if err := s.client.DoJSON(ctx, http.MethodPost, likePath, body, &out); err != nil {
		return 0, fmt.Errorf("like video %d: %w", videoID, err)
	}
	return out.Data.Likes, nil
}

// Comment posts text and returns the video's full comment list.
func (s *Service) Comment(ctx context.Context, videoID, userID int64, text string) ([]models.Comment, error) {
	zero := 0
	body := interaction{VideoID: videoID, UserID: userID, Comment: text, Likes: &zero, Dislikes: &zero}

	var out commentsEnvelope
	if err := s.client.DoJSON(ctx, http.MethodPost, commentPath, body, &out); err != nil {
		return nil, fmt.Errorf("comment on video %d: %w", videoID, err)
	}
	return out.Data.Comments, nil
}

// Comments lists the comments on a video.
func (s *Service) Comments(ctx context.Context, videoID int64) ([]models.Comment, error) {
	var out commentsEnvelope
	if err := s.client.DoJSON(ctx, http.MethodGet, commentsPrefix+idPath(videoID), nil, &out); err != nil {
		return nil, fmt.Errorf("list comments of video %d: %w", videoID, err)
	}
	return out.Data.Comments, nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, id int64) error {
	if err := s.client.DoJSON(ctx, http.MethodDelete, deleteCommentPath+idPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

// View counts a view. Callers usually ignore the error.
func (s *Service) View(ctx context.Context, videoID, userID int64) error {
	body := interaction{VideoID: videoID, UserID: userID}
	if err := s.client.DoJSON(ctx, http.MethodPost, viewPath, body, nil); err != nil {
		return fmt.Errorf("count view of video %d: %w", videoID, err)
	}
	return nil
}

type commentsEnvelope struct {
	Data struct {
		Comments []models.Comment `json:"comments"`
	} `json:"data"`
}

// ExcludeVideo returns a page transform dropping the video with id, used by
// the related-videos panel.
func ExcludeVideo(id int64) func([]models.Video) []models.Video {
	return func(in []models.Video) []models.Video {
		out := make([]models.Video, 0, len(in))
		for _, v := range in {
			if v.ID != id {
				out = append(out, v)
			}
		}
		return out
	}
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
