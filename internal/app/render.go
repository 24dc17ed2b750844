package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vidfriends/vidclient/internal/auth"
	"github.com/vidfriends/vidclient/internal/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// renderVideos prints rows numbered from offset+1.
func renderVideos(w io.Writer, videos []models.Video, offset int) {
	if len(videos) == 0 {
		return
	}
	tw := newTable(w)
	if offset == 0 {
		fmt.Fprintln(tw, "#\tID\tTITLE\tCATEGORY\tDIFFICULTY\tDURATION\tLIKES")
	}
	for i, v := range videos {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%d\n",
			offset+i+1, v.ID, truncate(v.Title, 48), dash(v.Category), dash(v.Difficulty), dash(v.Duration), v.Likes)
	}
	_ = tw.Flush()
}

func renderVideo(w io.Writer, v models.Video) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Title:\t%s\n", v.Title)
	fmt.Fprintf(tw, "ID:\t%d\n", v.ID)
	fmt.Fprintf(tw, "URL:\t%s\n", dash(v.URL))
	if v.ThumbnailURL != "" {
		fmt.Fprintf(tw, "Thumbnail:\t%s\n", v.ThumbnailURL)
	}
	fmt.Fprintf(tw, "Category:\t%s\n", dash(v.Category))
	fmt.Fprintf(tw, "Difficulty:\t%s\n", dash(v.Difficulty))
	fmt.Fprintf(tw, "Duration:\t%s\n", dash(v.Duration))
	fmt.Fprintf(tw, "Tags:\t%s\n", dash(strings.Join(v.TagNames(), ", ")))
	fmt.Fprintf(tw, "Likes:\t%d\n", v.Likes)
	if created, ok := v.CreatedAt(); ok {
		fmt.Fprintf(tw, "Uploaded:\t%s\n", created.Format("2006-01-02"))
	}
	_ = tw.Flush()

	if desc := strings.TrimSpace(v.Description); desc != "" {
		fmt.Fprintf(w, "\n%s\n", desc)
	}
}

func renderComments(w io.Writer, comments []models.Comment) {
	fmt.Fprintf(w, "%d comment(s)\n", len(comments))
	if len(comments) == 0 {
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tBY\tCOMMENT\tLIKES")
	for _, c := range comments {
		by := c.UserName
		if by == "" && c.UserID != 0 {
			by = fmt.Sprintf("user %d", c.UserID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", c.ID, dash(by), c.Text, c.Likes)
	}
	_ = tw.Flush()
}

// renderSummary prints the analytics document one key per line. Nested
// values are printed as compact JSON.
func renderSummary(w io.Writer, summary map[string]any) {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := newTable(w)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, formatValue(summary[k]))
	}
	_ = tw.Flush()
}

func renderTokenInfo(w io.Writer, info auth.TokenInfo, now time.Time) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Subject:\t%s\n", dash(info.Subject))
	fmt.Fprintf(tw, "Roles:\t%s\n", dash(strings.Join(info.Roles, ", ")))
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if info.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(tw, "Expires:\t%s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
	}
	_ = tw.Flush()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
