package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vidfriends/vidclient/internal/analytics"
	"github.com/vidfriends/vidclient/internal/auth"
	"github.com/vidfriends/vidclient/internal/config"
	"github.com/vidfriends/vidclient/internal/db"
	"github.com/vidfriends/vidclient/internal/httpclient"
	"github.com/vidfriends/vidclient/internal/middleware"
	"github.com/vidfriends/vidclient/internal/repositories"
	"github.com/vidfriends/vidclient/internal/session"
	"github.com/vidfriends/vidclient/internal/storage"
	"github.com/vidfriends/vidclient/internal/tags"
	"github.com/vidfriends/vidclient/internal/videos"
)

// Dependencies holds the wired services a command may use.
type Dependencies struct {
	Session   *session.Session
	Client    *httpclient.Client
	Auth      *auth.Service
	Videos    *videos.Service
	Publisher *videos.Publisher
	Tags      *tags.Service
	Analytics *analytics.Service
}

// buildDependencies wires together concrete implementations used by the commands.
func buildDependencies(ctx context.Context, cfg config.Config) (Dependencies, func(), error) {
	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return Dependencies{}, nil, err
	}

	var limiter middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewHostRateLimiter(cfg.RateLimit, cfg.RateBurst, 0)
	}

	sess := session.New(store)
	client, err := httpclient.New(sess, httpclient.Options{
		BaseURL:    cfg.APIURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		RefreshOn:  cfg.RefreshOn,
		Limiter:    limiter,
	})
	if err != nil {
		closeStore()
		return Dependencies{}, nil, err
	}

	assets, err := storage.New(ctx, cfg.ObjectStore)
	if err != nil && !errors.Is(err, storage.ErrAssetStorageUnavailable) {
		closeStore()
		return Dependencies{}, nil, err
	}

	videoSvc := videos.NewService(client)
	metadata := videos.NewYTDLPProvider(cfg.YTDLPPath, cfg.YTDLPTimeout)

	return Dependencies{
		Session:   sess,
		Client:    client,
		Auth:      auth.NewService(client),
		Videos:    videoSvc,
		Publisher: videos.NewPublisher(videoSvc, assets, metadata),
		Tags:      tags.NewService(client),
		Analytics: analytics.NewService(client, videoSvc, analytics.Options{
			ReportDeleteErrors: cfg.ReportDeleteErrors,
			PageSize:           cfg.PageSize,
		}),
	}, closeStore, nil
}

// newSessionStore opens the token store selected by cfg.Session.Driver. The
// returned func releases any connection the store holds.
func newSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	noop := func() {}

	switch cfg.Session.Driver {
	case config.SessionDriverMemory:
		return session.NewMemoryStore(), noop, nil
	case config.SessionDriverFile, "":
		store, err := session.NewFileStore(cfg.Session.Path, cfg.Session.Key)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.SessionDriverRedis:
		client, err := session.NewRedisClient(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.Profile), func() { _ = client.Close() }, nil
	case config.SessionDriverPostgres:
		pool, err := db.Connect(ctx, cfg.Session.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewPostgresTokenStore(pool, cfg.Profile), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}
}
