package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"teamhub/internal/config"
	"teamhub/internal/httpserver"
	"teamhub/internal/realtime"
	"teamhub/internal/realtime/redisrelay"
	"teamhub/internal/security"
	"teamhub/internal/service"
	"teamhub/internal/store"
	"teamhub/internal/store/postgres"
	"teamhub/internal/store/sqlite"
	"teamhub/internal/ws"
)

func loadConfig(c *cli.Context) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.LoadFile(c.String("env-file"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return cfg, logrus.WithField("app", cfg.AppName), nil
}

// openDatabase opens the configured driver and brings the schema up to date.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, store.Dialect, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, postgres.Dialect{}, nil
	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, sqlite.Dialect{}, nil
	}
}

func migrate(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, _, err := openDatabase(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.WithField("driver", cfg.DBDriver).Info("schema is up to date")
	return nil
}

type notifiers struct {
	notifications realtime.Notifier
	chat          realtime.Notifier
	calendar      realtime.Notifier
}

func localNotifiers(h *realtime.Hubs) notifiers {
	return notifiers{notifications: h.Notifications, chat: h.Chat, calendar: h.Calendar}
}

func serve(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Debug:       cfg.Debug,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL())
	hasher := security.NewPasswordHasher(0)
	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey), cfg.LegacyEncryptKeys)
	if err != nil {
		return fmt.Errorf("init encryptor: %w", err)
	}

	hubs := realtime.NewHubs(log)
	notify := localNotifiers(hubs)
	if cfg.RedisURL != "" {
		var client *redis.Client
		client, err = redisrelay.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		relay := redisrelay.New(client, hubs, log)
		notify = notifiers{
			notifications: relay.Notifier(realtime.DomainNotifications),
			chat:          relay.Notifier(realtime.DomainChat),
			calendar:      relay.Notifier(realtime.DomainCalendar),
		}
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Error("realtime relay stopped")
			}
		}()
	}

	repos := store.New(db, dialect)
	sessions := service.NewSessionResolver(repos.Users, repos.Roles)
	notes := service.NewNotificationService(repos.Notifications, notify.notifications, log)
	chat := service.NewChatService(service.ChatDeps{
		Users:    repos.Users,
		Friends:  repos.Friends,
		Teams:    repos.Teams,
		Chat:     repos.Chat,
		LLMKeys:  repos.LLMKeys,
		Cipher:   encryptor,
		Notifier: notify.chat,
	}, log)

	teams := service.NewTeamService(repos.Users, repos.Teams, notes, log)
	svc := httpserver.Services{
		Sessions:      sessions,
		Auth:          service.NewAuthService(repos.Users, tokens, hasher, log),
		Users:         service.NewUserService(repos.Users, teams, hubs, log),
		Friends:       service.NewFriendService(repos.Users, repos.Friends, notes, log),
		Teams:         teams,
		Invites:       service.NewInviteService(repos.Users, repos.Teams, repos.Invites, notes, log),
		Chat:          chat,
		Notifications: notes,
		Calendar:      service.NewCalendarService(repos.Users, repos.Calendar, notify.calendar, log),
	}

	sockets := ws.NewHandler(hubs, tokens, sessions, chat, ws.Config{
		AllowedOrigins: cfg.CORSOrigins,
		WriteTimeout:   cfg.WSWriteTimeout,
		PingInterval:   cfg.WSPingInterval,
	}, log)

	router := httpserver.NewRouter(httpserver.Options{
		AppName:     cfg.AppName,
		CORSOrigins: cfg.CORSOrigins,
		DB:          db,
		Tokens:      tokens,
		Sockets:     sockets,
		Log:         log,
	}, svc)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// hijacked sockets are not tracked by Shutdown
	srv.RegisterOnShutdown(hubs.CloseAll)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr(), "driver": cfg.DBDriver}).Info("starting teamhub server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
