package videos

import (
	"slices"
	"strings"

	"github.com/vidfriends/vidclient/internal/models"
)

// DefaultDuration is sent when no duration is known.
const DefaultDuration = "00:00"

var (
	// Difficulties lists the accepted difficulty levels.
	Difficulties = []string{"Easy", "Medium", "Hard"}
	// Categories lists the accepted categories.
	Categories = []string{"Frontend", "Backend", "DevOps", "System Design", "Other"}
)

// Draft is the upload or edit form. Exactly one of File and Link names the
// video source; ThumbnailFile wins over ThumbnailURL when both are set.
type Draft struct {
	File          string
	Link          string
	Title         string
	Description   string
	ThumbnailFile string
	ThumbnailURL  string
	Category      string
	Difficulty    string
	Tags          string
	Duration      string
}

// Validate checks the fields the upload wizard requires, in wizard order:
// source and title first, then tags, difficulty and category.
func (d Draft) Validate() error {
	file, link := strings.TrimSpace(d.File), strings.TrimSpace(d.Link)
	switch {
	case file == "" && link == "":
		return &ValidationError{Field: "source", Message: "a video file or link is required"}
	case file != "" && link != "":
		return &ValidationError{Field: "source", Message: "choose either a file or a link, not both"}
	}
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if len(ParseTags(d.Tags)) == 0 {
		return &ValidationError{Field: "tags", Message: "at least one tag is required"}
	}
	if d.Difficulty == "" {
		return &ValidationError{Field: "difficulty", Message: "is required"}
	}
	if !slices.Contains(Difficulties, d.Difficulty) {
		return &ValidationError{Field: "difficulty", Message: "must be one of " + strings.Join(Difficulties, ", ")}
	}
	if d.Category == "" {
		return &ValidationError{Field: "category", Message: "is required"}
	}
	if !slices.Contains(Categories, d.Category) {
		return &ValidationError{Field: "category", Message: "must be one of " + strings.Join(Categories, ", ")}
	}
	return nil
}

// ParseTags splits a comma separated list into tags, dropping blanks.
func ParseTags(raw string) []models.Tag {
	var tags []models.Tag
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		tags = append(tags, models.Tag{Name: name})
	}
	return tags
}
