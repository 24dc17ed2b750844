package videos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// YTDLPProvider pre-fills link uploads from yt-dlp's JSON dump.
type YTDLPProvider struct {
	Binary  string
	Args    []string
	Run     CommandRunner
	Timeout time.Duration
}

// NewYTDLPProvider constructs a Provider that shells out to binary.
func NewYTDLPProvider(binary string, timeout time.Duration) *YTDLPProvider {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YTDLPProvider{
		Binary:  binary,
		Args:    []string{"--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download"},
		Run:     runCommand,
		Timeout: timeout,
	}
}

type ytdlpDump struct {
	Title          string  `json:"title"`
	FullTitle      string  `json:"fulltitle"`
	Description    string  `json:"description"`
	Thumbnail      string  `json:"thumbnail"`
	Duration       float64 `json:"duration"`
	DurationString string  `json:"duration_string"`
}

// Lookup implements Provider. Only http and https links are passed to the
// binary.
func (p *YTDLPProvider) Lookup(ctx context.Context, link string) (Metadata, error) {
	if p == nil {
		return Metadata{}, ErrProviderUnavailable
	}
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Metadata{}, &ValidationError{Field: "link", Message: "must be an http or https URL"}
	}

	run := p.Run
	if run == nil {
		run = runCommand
	}
	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := run(runCtx, p.Binary, append(append([]string(nil), p.Args...), link)...)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return Metadata{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return Metadata{}, fmt.Errorf("yt-dlp %s: %w", link, err)
	}

	var dump ytdlpDump
	if err := json.Unmarshal(out, &dump); err != nil {
		return Metadata{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return dump.metadata()
}

func (d ytdlpDump) metadata() (Metadata, error) {
	meta := Metadata{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Thumbnail:   strings.TrimSpace(d.Thumbnail),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(d.FullTitle)
	}
	if meta.Title == "" && meta.Description == "" && meta.Thumbnail == "" {
		return Metadata{}, errors.New("yt-dlp returned empty metadata")
	}

	switch {
	case d.Duration > 0:
		meta.Duration = FormatDuration(time.Duration(math.Round(d.Duration)) * time.Second)
	case d.DurationString != "":
		meta.Duration = d.DurationString
	}
	return meta, nil
}

// FormatDuration renders d as mm:ss, or h:mm:ss from one hour up, matching
// the backend's duration strings.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}
