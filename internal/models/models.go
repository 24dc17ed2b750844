package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Video is the server-owned representation of an uploaded video.
type Video struct {
	ID               int64     `json:"videoId,omitempty"`
	UserID           int64     `json:"userId,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	URL              string    `json:"url"`
	ThumbnailURL     string    `json:"thumbnailUrl"`
	Duration         string    `json:"duration"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty,omitempty"`
	Tags             []Tag     `json:"tags"`
	Likes            int       `json:"likes"`
	Views            int       `json:"views,omitempty"`
	NumberOfComments int       `json:"numberOfComments"`
	Comments         []Comment `json:"comments"`
	Active           bool      `json:"active,omitempty"`
	Restrictions     string    `json:"restrictions,omitempty"`
	Created          string    `json:"created,omitempty"`
}

// UnmarshalJSON accepts both "videoId" and the older "id" key.
func (v *Video) UnmarshalJSON(data []byte) error {
	type alias Video
	aux := struct {
		*alias
		FallbackID int64 `json:"id"`
	}{alias: (*alias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if v.ID == 0 {
		v.ID = aux.FallbackID
	}
	return nil
}

// CreatedAt parses the server timestamp. The backend is not consistent about
// including a zone, so both forms are tried.
func (v Video) CreatedAt() (time.Time, bool) {
	return parseTimestamp(v.Created)
}

// TagNames returns the names of the video's tags in order.
func (v Video) TagNames() []string {
	names := make([]string, 0, len(v.Tags))
	for _, tag := range v.Tags {
		if tag.Name != "" {
			names = append(names, tag.Name)
		}
	}
	return names
}

// Tag labels a video. The tag catalogue uses {"tag": ...} while video
// payloads use {"tagId": ..., "tagName": ...}; both decode into Tag.
type Tag struct {
	ID   int64  `json:"tagId,omitempty"`
	Name string `json:"tagName"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tag) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Name)
	}

	var aux struct {
		ID      int64  `json:"tagId"`
		TagName string `json:"tagName"`
		Tag     string `json:"tag"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.ID = aux.ID
	t.Name = aux.TagName
	if t.Name == "" {
		t.Name = aux.Tag
	}
	return nil
}

// Comment is a single comment left on a video.
type Comment struct {
	ID       int64  `json:"commentId,omitempty"`
	UserID   int64  `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
	Text     string `json:"comment"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
	Created  string `json:"created,omitempty"`
}

// UnmarshalJSON accepts "text" for the body and "id" for the identifier.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type alias Comment
	aux := struct {
		*alias
		FallbackID    int64  `json:"id"`
		FallbackText  string `json:"text"`
		CreatedByName string `json:"createdByName"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == 0 {
		c.ID = aux.FallbackID
	}
	if c.Text == "" {
		c.Text = aux.FallbackText
	}
	if aux.CreatedByName != "" {
		c.UserName = aux.CreatedByName
	}
	return nil
}

// CreatedAt parses the server timestamp.
func (c Comment) CreatedAt() (time.Time, bool) {
	return parseTimestamp(c.Created)
}

// AllOption is the pseudo-option that selects every tag or category.
const AllOption = "All"

// FilterSet scopes a video listing. Any change restarts pagination.
type FilterSet struct {
	SearchTerm string
	Categories []string
	Difficulty string
	Tags       []string
	UserIDs    []int64
}

// Equal reports whether two filter sets select the same listing.
func (f FilterSet) Equal(other FilterSet) bool {
	return strings.TrimSpace(f.SearchTerm) == strings.TrimSpace(other.SearchTerm) &&
		f.Difficulty == other.Difficulty &&
		slices.Equal(f.Categories, other.Categories) &&
		slices.Equal(f.Tags, other.Tags) &&
		slices.Equal(f.UserIDs, other.UserIDs)
}

// Page is one page of a paginated listing as returned by the backend.
type Page[T any] struct {
	Data         []T `json:"data"`
	TotalResults int `json:"totalResults"`
	TotalPages   int `json:"totalPages"`
}

// SessionTokens groups the credentials returned by sign-in, sign-up and refresh.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// AnalyticsReport is the creator dashboard: the raw analytics document the
// backend returns plus the creator's own videos.
type AnalyticsReport struct {
	Summary map[string]any
	Videos  Page[Video]
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
