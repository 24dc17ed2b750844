package videos

import (
	"strings"

	"github.com/vidfriends/vidclient/internal/models"
)

// FilterPayload builds the body of a filtered listing. Empty filters are
// left out entirely: the backend treats a present empty array differently
// from an absent key.
func FilterPayload(page, pageSize int, f models.FilterSet) map[string]any {
	payload := map[string]any{
		"page":     page,
		"pageSize": pageSize,
	}
	if term := strings.TrimSpace(f.SearchTerm); term != "" {
		payload["searchBox"] = term
	}
	if categories := nonEmpty(f.Categories); len(categories) > 0 {
		payload["category"] = categories
	}
	if difficulty := strings.TrimSpace(f.Difficulty); difficulty != "" {
		payload["difficulty"] = difficulty
	}
	if tags := nonEmpty(f.Tags); len(tags) > 0 {
		payload["tags"] = tags
	}
	if len(f.UserIDs) > 0 {
		payload["userId"] = f.UserIDs
	}
	return payload
}

// nonEmpty trims values and drops blanks and the "All" pseudo-option.
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == models.AllOption {
			continue
		}
		out = append(out, v)
	}
	return out
}
