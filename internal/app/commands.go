package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vidfriends/vidclient/internal/auth"
	"github.com/vidfriends/vidclient/internal/config"
	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
	"github.com/vidfriends/vidclient/internal/pagination"
	"github.com/vidfriends/vidclient/internal/videos"
)

// ErrNotSignedIn is returned by commands that need a user id when the
// session has none.
var ErrNotSignedIn = errors.New("not signed in: run vidclient login")

// CLI runs commands against wired dependencies. Views go to out, prompts and
// inline notices to errOut.
type CLI struct {
	cfg    config.Config
	deps   Dependencies
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// NewCLI constructs a CLI.
func NewCLI(cfg config.Config, deps Dependencies, in io.Reader, out, errOut io.Writer) *CLI {
	return &CLI{
		cfg:    cfg,
		deps:   deps,
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		now:    time.Now,
	}
}

type command func(ctx context.Context, args []string) error

func (c *CLI) commands() map[string]command {
	return map[string]command{
		"login":          c.login,
		"signup":         c.signup,
		"logout":         c.logout,
		"status":         c.status,
		"feed":           c.feed,
		"show":           c.show,
		"like":           c.like,
		"comment":        c.comment,
		"comments":       c.comments,
		"delete-comment": c.deleteComment,
		"upload":         c.upload,
		"edit":           c.edit,
		"delete":         c.deleteVideo,
		"tags":           c.listTags,
		"analytics":      c.analytics,
	}
}

// Execute runs the command named by args[0].
func (c *CLI) Execute(ctx context.Context, args []string) (err error) {
	if len(args) == 0 {
		return errors.New("expected command; run vidclient help")
	}
	cmd, ok := c.commands()[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, span := logging.StartSpan(ctx, "command "+args[0])
	defer func() { span.End(err) }()

	return cmd(ctx, args[1:])
}

func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		*email = c.prompt("Email: ")
	}
	if *password == "" {
		*password = c.prompt("Password: ")
	}
	if *email == "" || *password == "" {
		return auth.ErrMissingFields
	}

	tokens, err := c.deps.Auth.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	if tokens.UserID != "" {
		fmt.Fprintf(c.out, "Signed in as user %s\n", tokens.UserID)
	} else {
		fmt.Fprintln(c.out, "Signed in")
	}
	return nil
}

func (c *CLI) signup(ctx context.Context, args []string) error {
	fs := c.flags("signup")
	var req auth.SignUpRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Mobile, "mobile", "", "mobile number")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.ConfirmPassword, "confirm", "", "password confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := c.deps.Auth.SignUp(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Account created for %s\n", req.Email)
	return nil
}

func (c *CLI) logout(ctx context.Context, _ []string) error {
	if err := c.deps.Auth.Logout(ctx); err != nil {
		// The local session is gone either way.
		logging.FromContext(ctx).Info("logout request failed", slog.Any("error", err))
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func (c *CLI) status(ctx context.Context, _ []string) error {
	sess := c.deps.Session
	if !sess.Authenticated(ctx) {
		fmt.Fprintln(c.out, "Not signed in")
		return nil
	}

	if id := sess.UserID(ctx); id != "" {
		fmt.Fprintf(c.out, "User: %s\n", id)
	}
	if info, err := auth.InspectToken(sess.AccessToken(ctx)); err == nil {
		renderTokenInfo(c.out, info, c.now())
	}

	valid, err := c.deps.Auth.Validate(ctx)
	if err != nil {
		return err
	}
	if valid {
		fmt.Fprintln(c.out, "Session: valid")
	} else {
		fmt.Fprintln(c.out, "Session: rejected by server")
	}
	return nil
}

func (c *CLI) feed(ctx context.Context, args []string) error {
	fs := c.flags("feed")
	search := fs.String("search", "", "search term")
	categories := fs.String("category", "", "comma separated categories")
	difficulty := fs.String("difficulty", "", "Easy, Medium or Hard")
	tagList := fs.String("tags", "", "comma separated tags")
	pages := fs.Int("pages", 0, "load this many pages and exit (0 reads Enter to load more)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filters := models.FilterSet{
		SearchTerm: *search,
		Categories: splitList(*categories),
		Difficulty: *difficulty,
		Tags:       splitList(*tagList),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := *pages <= 0
	view := &listView{out: c.out, errOut: c.errOut}
	ctrl := pagination.New(c.deps.Videos.Fetcher(), pagination.Options[models.Video, models.FilterSet]{
		PageSize: c.cfg.PageSize,
		OnChange: func(s pagination.State[models.Video, models.FilterSet]) {
			view.update(s)
			if interactive && !s.Loading {
				if s.HasMore {
					fmt.Fprintln(c.errOut, "-- Enter for more, q to quit --")
				} else {
					cancel()
				}
			}
		},
	})
	defer ctrl.Close()

	if err := ctrl.Start(ctx, filters); err != nil {
		if view.shown == 0 {
			return err
		}
	}

	if !interactive {
		for i := 1; i < *pages; i++ {
			if started, _ := ctrl.LoadMore(ctx); !started {
				break
			}
		}
		return nil
	}

	if err := ctrl.Subscribe(ctx, c.enterSignals(ctx)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// enterSignals emits one signal per empty input line and closes on "q" or
// end of input.
func (c *CLI) enterSignals(ctx context.Context) <-chan struct{} {
	signals := make(chan struct{})
	go func() {
		defer close(signals)
		for {
			line, err := c.in.ReadString('\n')
			if strings.TrimSpace(line) == "q" {
				return
			}
			if err != nil && line == "" {
				return
			}
			select {
			case signals <- struct{}{}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return signals
}

// listView prints items as pages arrive, keeping earlier rows on screen.
type listView struct {
	out    io.Writer
	errOut io.Writer
	shown  int
}

func (v *listView) update(s pagination.State[models.Video, models.FilterSet]) {
	if s.Loading {
		return
	}
	if len(s.Items) < v.shown {
		v.shown = 0
	}
	renderVideos(v.out, s.Items[v.shown:], v.shown)
	v.shown = len(s.Items)
	switch {
	case s.Err != nil && v.shown > 0:
		// Earlier pages stay on screen.
		fmt.Fprintf(v.errOut, "could not load more videos: %v\n", s.Err)
	case s.Err == nil && v.shown == 0:
		fmt.Fprintln(v.out, "No videos found")
	}
}

func (c *CLI) show(ctx context.Context, args []string) error {
	fs := c.flags("show")
	relatedPages := fs.Int("related-pages", 1, "pages of related videos to list")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	video, err := c.deps.Videos.Get(ctx, id)
	if err != nil {
		return err
	}
	renderVideo(c.out, video)

	if userID, err := c.userID(ctx); err == nil {
		if err := c.deps.Videos.View(ctx, id, userID); err != nil {
			logging.FromContext(ctx).Debug("view not counted", slog.Any("error", err))
		}
	}

	fmt.Fprintln(c.out)
	renderComments(c.out, video.Comments)

	fmt.Fprintln(c.out, "\nRelated")
	view := &listView{out: c.out, errOut: c.errOut}
	related := pagination.New(c.deps.Videos.Fetcher(), pagination.Options[models.Video, models.FilterSet]{
		PageSize:  c.cfg.RelatedPageSize,
		Transform: videos.ExcludeVideo(id),
		OnChange:  view.update,
	})
	defer related.Close()

	if err := related.Start(ctx, models.FilterSet{}); err != nil {
		fmt.Fprintf(c.errOut, "could not load related videos: %v\n", err)
		return nil
	}
	for i := 1; i < *relatedPages; i++ {
		if started, _ := related.LoadMore(ctx); !started {
			break
		}
	}
	return nil
}

func (c *CLI) like(ctx context.Context, args []string) error {
	id, err := parseWithID(c.flags("like"), args)
	if err != nil {
		return err
	}
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}
	likes, err := c.deps.Videos.Like(ctx, id, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Likes: %d\n", likes)
	return nil
}

func (c *CLI) comment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: vidclient comment <id> <text>")
	}
	id, err := parseWithID(c.flags("comment"), args[:1])
	if err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return errors.New("comment text is empty")
	}
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	comments, err := c.deps.Videos.Comment(ctx, id, userID, text)
	if err != nil {
		return err
	}
	renderComments(c.out, comments)
	return nil
}

func (c *CLI) comments(ctx context.Context, args []string) error {
	id, err := parseWithID(c.flags("comments"), args)
	if err != nil {
		return err
	}
	comments, err := c.deps.Videos.Comments(ctx, id)
	if err != nil {
		return err
	}
	renderComments(c.out, comments)
	return nil
}

func (c *CLI) deleteComment(ctx context.Context, args []string) error {
	id, err := parseWithID(c.flags("delete-comment"), args)
	if err != nil {
		return err
	}
	if err := c.deps.Videos.DeleteComment(ctx, id); err != nil {
		return c.deleteFailed(ctx, "comment", id, err)
	}
	fmt.Fprintf(c.out, "Deleted comment %d\n", id)
	return nil
}

// deleteFailed applies the report_delete_errors policy to a rejected
// delete. Transport failures are always returned.
func (c *CLI) deleteFailed(ctx context.Context, what string, id int64, err error) error {
	var apiErr *httpclient.APIError
	if c.cfg.ReportDeleteErrors || !errors.As(err, &apiErr) {
		return err
	}
	logging.FromContext(ctx).Warn(what+" delete rejected",
		slog.Int64("id", id),
		slog.Int("status", apiErr.Status),
	)
	return nil
}

func (c *CLI) draftFlags(name string, d *videos.Draft) (*flag.FlagSet, *string) {
	fs := c.flags(name)
	fs.StringVar(&d.Title, "title", "", "video title")
	fs.StringVar(&d.Description, "description", "", "video description")
	fs.StringVar(&d.Category, "category", "", strings.Join(videos.Categories, ", "))
	fs.StringVar(&d.Difficulty, "difficulty", "", strings.Join(videos.Difficulties, ", "))
	fs.StringVar(&d.Tags, "tags", "", "comma separated tags")
	thumbnail := fs.String("thumbnail", "", "thumbnail URL or local image file")
	return fs, thumbnail
}

func setThumbnail(d *videos.Draft, value string) {
	switch {
	case value == "":
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		d.ThumbnailURL = value
	default:
		d.ThumbnailFile = value
	}
}

func (c *CLI) upload(ctx context.Context, args []string) error {
	var draft videos.Draft
	fs, thumbnail := c.draftFlags("upload", &draft)
	fs.StringVar(&draft.File, "file", "", "local video file")
	fs.StringVar(&draft.Link, "link", "", "video link")
	fs.StringVar(&draft.Duration, "duration", "", "duration as mm:ss")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setThumbnail(&draft, *thumbnail)

	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	video, err := c.deps.Publisher.Publish(ctx, draft, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Uploaded %q\n%s\n", video.Title, video.URL)
	return nil
}

func (c *CLI) edit(ctx context.Context, args []string) error {
	var changes videos.Draft
	fs, thumbnail := c.draftFlags("edit", &changes)
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}
	setThumbnail(&changes, *thumbnail)

	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}
	existing, err := c.deps.Videos.Get(ctx, id)
	if err != nil {
		return err
	}

	video, err := c.deps.Publisher.Edit(ctx, existing, changes, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Updated %q\n", video.Title)
	return nil
}

func (c *CLI) deleteVideo(ctx context.Context, args []string) error {
	id, err := parseWithID(c.flags("delete"), args)
	if err != nil {
		return err
	}
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	return c.deps.Analytics.DeleteVideo(ctx, id, func(ctx context.Context) error {
		fmt.Fprintf(c.out, "Deleted video %d\n", id)
		list, err := c.deps.Analytics.CreatorVideos(ctx, userID, 1, 0)
		if err != nil {
			return err
		}
		renderCreatorTable(c.out, list, 1)
		return nil
	})
}

// listTags prints the tag filter choices. An unreachable catalogue still
// leaves "All".
func (c *CLI) listTags(ctx context.Context, _ []string) error {
	for _, name := range c.deps.Tags.FilterOptions(ctx) {
		fmt.Fprintln(c.out, name)
	}
	return nil
}

func (c *CLI) analytics(ctx context.Context, args []string) error {
	fs := c.flags("analytics")
	page := fs.Int("page", 1, "page of the video table, starting at 1")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	report, err := c.deps.Analytics.Report(ctx, userID, *page)
	if err != nil {
		return err
	}
	renderSummary(c.out, report.Summary)
	fmt.Fprintln(c.out)
	renderCreatorTable(c.out, report.Videos, max(*page, 1))
	return nil
}

func renderCreatorTable(w io.Writer, list models.Page[models.Video], page int) {
	if len(list.Data) == 0 {
		fmt.Fprintln(w, "No videos uploaded yet")
		return
	}
	renderVideos(w, list.Data, 0)
	fmt.Fprintf(w, "Page %d of %d (%d videos)\n", page, max(list.TotalPages, 1), list.TotalResults)
}

func (c *CLI) userID(ctx context.Context) (int64, error) {
	raw := c.deps.Session.UserID(ctx)
	if raw == "" {
		return 0, ErrNotSignedIn
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stored user id %q is not numeric: %w", raw, err)
	}
	return id, nil
}

func (c *CLI) prompt(label string) string {
	fmt.Fprint(c.errOut, label)
	line, _ := c.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// parseWithID parses fs and returns the numeric id given either before or
// after the flags.
func parseWithID(fs *flag.FlagSet, args []string) (int64, error) {
	var raw string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		raw, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if raw == "" {
		raw = fs.Arg(0)
	}
	if raw == "" {
		return 0, fmt.Errorf("%s: missing id", fs.Name())
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: invalid id %q", fs.Name(), raw)
	}
	return id, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
