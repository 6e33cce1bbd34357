package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chargemind/auth"
	"chargemind/client"
	"chargemind/config"
	"chargemind/db"
	"chargemind/dispute"
	"chargemind/disputerequest"
	"chargemind/evidence"
	"chargemind/evidencepdf"
	"chargemind/notify"
	"chargemind/proxy"
	"chargemind/shopify"
	"chargemind/tracking"
)

// app owns the process-wide connections and the services built on them.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	redisOpt asynq.RedisConnOpt
	tasks    *asynq.Client

	auth          *auth.Service
	clients       *client.Service
	disputes      *dispute.Service
	documents     *evidencepdf.Service
	editor        *evidence.Editor
	requests      *disputerequest.Service
	notifications *notify.NotificationsRepository
	emails        *notify.Queue
	tracking      *tracking.Service
	shopify       *shopify.Client
	installer     *shopify.Installer
	pages         *proxy.Service
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	redisOptions, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis uri for asynq: %w", err)
	}
	rdb := redis.NewClient(redisOptions)
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	httpClient := &http.Client{Timeout: 20 * time.Second}
	a := &app{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		redis:    rdb,
		redisOpt: redisOpt,
		tasks:    asynq.NewClient(redisOpt),
	}

	a.auth = auth.NewService(auth.NewRepository(pool), auth.NewRedisNonceStore(rdb), cfg.JWTSecret)
	a.clients = client.NewService(client.NewRepository(pool), log.Named("client"))

	disputeRepo := dispute.NewRepository(pool)
	a.disputes = dispute.NewService(pool, disputeRepo, disputeRepo, log.Named("dispute"))

	a.tracking = tracking.NewService(
		tracking.NewTrack123Client(cfg.Track123.APIKey, cfg.Track123.BaseURL, httpClient),
		tracking.NewRedisCache(rdb, cfg.Track123.CacheTTL),
		log.Named("tracking"))
	a.documents = evidencepdf.NewService(a.disputes, a.tracking, a.clients, log.Named("evidencepdf"))

	a.editor = evidence.NewEditor(evidence.NewRepository(pool), log.Named("evidence"))
	a.notifications = notify.NewNotificationsRepository(pool)
	a.requests = disputerequest.NewService(pool, disputerequest.NewRepository(pool), disputerequest.NewOutbox(pool),
		a.notifications, a.editor, log.Named("disputerequest"))

	a.emails = notify.NewQueue(a.tasks, log.Named("notify"))
	a.shopify = shopify.NewClient(cfg.Shopify.APIKey, cfg.Shopify.APISecret, cfg.Shopify.APIVersion, httpClient, log.Named("shopify"))
	a.installer = shopify.NewInstaller(shopify.InstallerConfig{
		APISecret:    cfg.Shopify.APISecret,
		Scopes:       cfg.Shopify.Scopes,
		RedirectURI:  redirectURI(cfg),
		MagicLinkURL: strings.TrimRight(cfg.DashboardURL, "/") + "/auth/magic",
		DashboardURL: cfg.DashboardURL,
	}, a.shopify, shopify.NewRedisStateStore(rdb), a.clients, a.auth, a.emails, log.Named("installer"))
	a.pages = proxy.NewService(a.clients, a.editor, cfg.Hub.APIBase, cfg.Hub.AssetURL, log.Named("proxy"))
	return a, nil
}

func redirectURI(cfg config.Config) string {
	if cfg.Shopify.RedirectURI != "" {
		return cfg.Shopify.RedirectURI
	}
	return strings.TrimRight(cfg.PublicURL, "/") + "/shopify/callback"
}

func (a *app) server() *Server {
	return &Server{
		authService:     a.auth,
		verifier:        a.auth,
		disputeService:  a.disputes,
		documents:       a.documents,
		clientService:   a.clients,
		editor:          a.editor,
		requestService:  a.requests,
		notifications:   a.notifications,
		installer:       a.installer,
		orders:          a.shopify,
		tracker:         a.tracking,
		pages:           a.pages,
		renderer:        proxy.NewRenderer(),
		shopifySecret:   a.cfg.Shopify.APISecret,
		enforceProxySig: a.cfg.Shopify.EnforceProxySignature,
		log:             a.log.Named("http"),
	}
}

func (a *app) Close() {
	if err := a.tasks.Close(); err != nil {
		a.log.Warn("close asynq client", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("close redis", zap.Error(err))
	}
	a.pool.Close()
}
