// Package app connects the API's backing services and assembles the
// application services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	authsvc "marketplace-backend/internal/application/auth"
	"marketplace-backend/internal/application/browse"
	"marketplace-backend/internal/application/changefeed"
	"marketplace-backend/internal/application/emails"
	"marketplace-backend/internal/application/health"
	lesvc "marketplace-backend/internal/application/listingevents"
	listsvc "marketplace-backend/internal/application/listings"
	msgsvc "marketplace-backend/internal/application/messages"
	"marketplace-backend/internal/application/notifications"
	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/application/unread"
	"marketplace-backend/internal/application/uploads"
	"marketplace-backend/internal/config"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/internal/platform/metrics"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Infra is the set of connected backing services.
type Infra struct {
	DB    *gorm.DB
	Rdb   *redis.Client
	Feed  changefeed.Feed
	Store uploads.BlobStore
	// NATS is set when the change feed runs over NATS.
	NATS *nats.Conn
}

// Runtime holds every application service the router mounts.
type Runtime struct {
	Config  *config.Config
	Infra   Infra
	Metrics *metrics.Metrics

	Events           *authsvc.Events
	Auth             *authsvc.Service
	Listings         *listsvc.Service
	Messages         *msgsvc.Service
	Registry         *unread.Registry
	Uploads          *uploads.Service
	History          search.HistoryStore
	ListingEvents    *lesvc.Service
	FunctionNotifier *notifications.EmailNotifier
	Checker          *health.Checker

	unsubscribe func()
}

// Connect opens the database, Redis, the change feed transport and the blob
// store described by cfg.
func Connect(ctx context.Context, cfg *config.Config) (Infra, error) {
	var infra Infra
	if cfg.DatabaseURL == "" {
		return infra, errors.New("DATABASE_URL is not set")
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return infra, fmt.Errorf("open database: %w", err)
	}
	infra.DB = db

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return infra, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	infra.Rdb = redis.NewClient(opt)

	switch cfg.ChangeFeedDriver {
	case "nats":
		nc, err := changefeed.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return infra, err
		}
		infra.NATS = nc
		infra.Feed = &changefeed.NATSFeed{Conn: nc}
	case "memory":
		infra.Feed = changefeed.NewMemoryFeed()
	default:
		infra.Feed = &changefeed.RedisFeed{Rdb: infra.Rdb}
	}

	switch {
	case cfg.SupabaseURL != "":
		infra.Store = &uploads.SupabaseStore{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey, Bucket: cfg.ListingBucket}
	case cfg.S3Endpoint != "":
		store, err := uploads.NewMinioStore(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.ListingBucket, cfg.S3UseSSL)
		if err != nil {
			return infra, err
		}
		infra.Store = store
	default:
		log.Warn().Msg("bootstrap: no blob store configured, listing images stay inline")
	}

	log.Info().Str("changefeed", cfg.ChangeFeedDriver).Bool("blob_store", infra.Store != nil).Msg("bootstrap: backing services ready")
	return infra, nil
}

// Wire assembles the application services over infra.
func Wire(cfg *config.Config, infra Infra) *Runtime {
	m := metrics.New()
	rt := &Runtime{Config: cfg, Infra: infra, Metrics: m}

	sender := emails.NewSender(emails.Options{
		BrevoAPIKey:  cfg.SendinblueAPIKey,
		MailFrom:     cfg.MailFrom,
		SiteURL:      cfg.FrontendURL,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	})
	rt.FunctionNotifier = &notifications.EmailNotifier{Sender: sender}
	var notifier msgsvc.Notifier = rt.FunctionNotifier
	if cfg.NotifyFunctionURL != "" {
		notifier = &notifications.HTTPNotifier{URL: cfg.NotifyFunctionURL, Key: cfg.FunctionsKey}
	}

	pipeline := browse.NewPipeline(cfg.SearchThreshold)
	pipeline.Search.OnBuild = m.IndexBuilt

	rt.History = &search.RedisHistory{Rdb: infra.Rdb}
	rt.Uploads = &uploads.Service{Store: infra.Store}
	rt.Events = authsvc.NewEvents()
	rt.Auth = &authsvc.Service{
		DB:          infra.DB,
		Rdb:         infra.Rdb,
		Mailer:      sender,
		Events:      rt.Events,
		CallbackURL: cfg.APIURL + "/api/v1/auth/callback",
	}
	rt.Listings = &listsvc.Service{
		DB:       infra.DB,
		Feed:     infra.Feed,
		Uploads:  rt.Uploads,
		Pipeline: pipeline,
		History:  rt.History,
		Metrics:  m,
	}
	rt.Messages = &msgsvc.Service{DB: infra.DB, Feed: infra.Feed, Notifier: notifier, Metrics: m}
	rt.ListingEvents = &lesvc.Service{DB: infra.DB}
	rt.Registry = unread.NewRegistry(infra.Feed, rt.Messages)
	stopRegistry := rt.Events.Subscribe(rt.Registry.HandleSessionEvent)
	rt.unsubscribe = stopRegistry
	if infra.Feed != nil {
		// Sign-outs on other instances must close this instance's live trackers.
		relay := &authsvc.Relay{Events: rt.Events, Feed: infra.Feed}
		if stopRelay, err := relay.Start(context.Background()); err != nil {
			log.Warn().Err(err).Msg("bootstrap: session relay disabled")
		} else {
			rt.unsubscribe = func() {
				stopRelay()
				stopRegistry()
			}
		}
	}

	rt.Checker = &health.Checker{
		DB:          dbPinger(infra.DB),
		Rdb:         infra.Rdb,
		FrontendURL: cfg.FrontendURL,
	}
	if infra.Store != nil {
		rt.Checker.Dependencies = append(rt.Checker.Dependencies, health.Dependency{Name: "storage", Pinger: infra.Store})
	}
	if infra.NATS != nil {
		nc := infra.NATS
		rt.Checker.Dependencies = append(rt.Checker.Dependencies, health.Dependency{
			Name:     "nats",
			Required: true,
			Pinger: health.PingFunc(func(ctx context.Context) error {
				if !nc.IsConnected() {
					return nats.ErrConnectionClosed
				}
				return nil
			}),
		})
	}
	return rt
}

func dbPinger(db *gorm.DB) health.Pinger {
	if db == nil {
		return nil
	}
	return health.PingFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

// Close stops live trackers, waits for pending notifications and closes the
// backing services.
func (rt *Runtime) Close() {
	if rt.unsubscribe != nil {
		rt.unsubscribe()
	}
	rt.Registry.CloseAll()
	rt.Messages.Wait()
	if err := rt.Listings.Pipeline.Search.Close(); err != nil {
		log.Warn().Err(err).Msg("bootstrap: close search index")
	}
	if rt.Infra.NATS != nil {
		if err := rt.Infra.NATS.Drain(); err != nil {
			log.Warn().Err(err).Msg("bootstrap: drain NATS")
		}
	}
	if rt.Infra.Rdb != nil {
		_ = rt.Infra.Rdb.Close()
	}
	if rt.Infra.DB != nil {
		if sqlDB, err := rt.Infra.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
