package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/kestrel-broker/kestrel/internal/api"
	"github.com/kestrel-broker/kestrel/internal/archive"
	"github.com/kestrel-broker/kestrel/internal/config"
	"github.com/kestrel-broker/kestrel/internal/logging"
	"github.com/kestrel-broker/kestrel/internal/metrics"
	"github.com/kestrel-broker/kestrel/internal/observability"
	"github.com/kestrel-broker/kestrel/internal/queue"
	"github.com/kestrel-broker/kestrel/internal/store"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Kestrel control-plane daemon (HTTP API + janitor)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Daemon.HTTPAddr = httpAddr
			}

			logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer s.Close()

			notifier := wireNotifier(ctx, s, cfg)
			wireArchiver(ctx, s, cfg)
			applySeed(ctx, s, cfg)

			if cfg.Metrics.Enabled {
				metrics.Init(cfg.Metrics.Namespace)
			}
			if err := observability.Init(ctx, observability.Config{
				Enabled:     cfg.Tracing.Enabled,
				Endpoint:    cfg.Tracing.Endpoint,
				ServiceName: cfg.Tracing.ServiceName,
				SampleRate:  cfg.Tracing.SampleRate,
			}); err != nil {
				logging.Op().Warn("tracing init failed, continuing without it", "error", err)
			}
			defer observability.Shutdown(context.Background())

			stopJanitor := make(chan struct{})
			if cfg.Janitor.Enabled {
				go runJanitorLoop(ctx, s, cfg, stopJanitor)
			}

			// A nil *queue.RedisNotifier boxed directly into the api.Notifier
			// interface would be a non-nil interface holding a nil pointer, so
			// Handler's "h.Notifier != nil" long-poll gate would misfire. Only
			// assign the interface when a notifier was actually wired.
			var apiNotifier api.Notifier
			if notifier != nil {
				apiNotifier = notifier
			}
			handler := api.NewRouter(s, cfg.Defaults, apiNotifier)
			httpServer := &http.Server{Addr: cfg.Daemon.HTTPAddr, Handler: handler}

			go func() {
				logging.Op().Info("kestrel serving", "addr", cfg.Daemon.HTTPAddr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logging.Op().Error("http server error", "error", err)
				}
			}()

			<-ctx.Done()
			close(stopJanitor)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config/env)")
	return cmd
}

// wireNotifier installs the Redis fan-out notifier on the store (for
// Notify, called on publish) and returns it so the caller can also wire
// it into the API layer (for Wait, called by long-polling consumes).
// Returns nil if Redis is disabled or unreachable, in which case both
// sides fall back to plain polling.
func wireNotifier(ctx context.Context, s *store.PostgresStore, cfg *config.Config) *queue.RedisNotifier {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logging.Op().Warn("redis notifier disabled: ping failed", "error", err)
		return nil
	}
	notifier := queue.NewRedisNotifier(client)
	s.SetNotifier(notifier)
	logging.Op().Info("redis fan-out notifier enabled", "addr", cfg.Redis.Addr)
	return notifier
}

func wireArchiver(ctx context.Context, s *store.PostgresStore, cfg *config.Config) {
	if !cfg.Archive.Enabled {
		return
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Archive.Region))
	if err != nil {
		logging.Op().Warn("s3 archiver disabled: could not load AWS config", "error", err)
		return
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = aws.Bool(true) })
	s.SetArchiver(archive.NewS3Archiver(client, cfg.Archive.Bucket, cfg.Archive.Prefix))
	logging.Op().Info("s3 acked-message archiver enabled", "bucket", cfg.Archive.Bucket)
}

func applySeed(ctx context.Context, s *store.PostgresStore, cfg *config.Config) {
	for _, t := range cfg.Seed {
		if _, err := s.CreateTopic(ctx, t.ID); err != nil && !isAlreadyExists(err) {
			logging.Op().Warn("seed topic failed", "topic_id", t.ID, "error", err)
			continue
		}
		for _, sub := range t.Subscriptions {
			seedOneSubscription(ctx, s, cfg, t.ID, sub)
		}
	}
}

func isAlreadyExists(err error) bool {
	return err != nil && (store.IsAlreadyExists(err))
}
