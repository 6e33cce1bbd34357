package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chargemind/config"
	"chargemind/db"
	"chargemind/disputerequest"
	"chargemind/logging"
	"chargemind/monitor"
	"chargemind/notify"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "chargemind",
		Short:        "ChargeMind dispute management backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	load := func() (config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return config.Config{}, nil, err
		}
		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, log, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				defer log.Sync()
				return runServe(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Run the email worker and the dispute poll scheduler",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				defer log.Sync()
				return runWorker(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "relay",
			Short: "Publish outbox events to Kafka",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				defer log.Sync()
				return runRelay(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				defer log.Sync()
				pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				applied, err := db.Migrate(cmd.Context(), pool)
				if err != nil {
					return err
				}
				log.Info("migrations applied", zap.Strings("versions", applied))
				return nil
			},
		},
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(parent context.Context, cfg config.Config, log *zap.Logger) error {
	ctx, stop := signalContext(parent)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.server().Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func runWorker(parent context.Context, cfg config.Config, log *zap.Logger) error {
	ctx, stop := signalContext(parent)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := asynq.NewServer(app.redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			notify.QueueEmail: 6,
			"default":         3,
		},
	})
	mux := asynq.NewServeMux()
	mux.Handle(notify.TypeEmailSend, notify.NewHandler(notify.NewResendMailer(cfg.Resend.APIKey, cfg.Resend.From), log))
	mux.Handle(monitor.TypeDisputesPoll, monitor.NewPoller(app.clients, app.shopify, app.emails, cfg.AlertEmail, cfg.Monitor.Concurrency, log))

	scheduler := asynq.NewScheduler(app.redisOpt, nil)
	entryID, err := monitor.RegisterSchedule(scheduler, cfg.Monitor.Cron)
	if err != nil {
		return err
	}
	log.Info("dispute poll scheduled", zap.String("entry_id", entryID), zap.String("cron", cfg.Monitor.Cron))

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Shutdown()
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer srv.Shutdown()

	<-ctx.Done()
	log.Info("worker shutting down")
	return nil
}

func runRelay(parent context.Context, cfg config.Config, log *zap.Logger) error {
	ctx, stop := signalContext(parent)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	publisher, err := disputerequest.NewKafkaPublisher(cfg.Kafka.Brokers, map[string]string{
		disputerequest.TopicSubmitted:     cfg.Kafka.Topics.RequestSubmitted,
		disputerequest.TopicStatusChanged: cfg.Kafka.Topics.RequestStatusChanged,
	})
	if err != nil {
		return err
	}
	defer publisher.Close()

	relay := disputerequest.NewRelay(disputerequest.NewOutbox(pool), publisher, log)
	log.Info("outbox relay started", zap.Strings("brokers", cfg.Kafka.Brokers))
	if err := relay.Run(ctx, cfg.Kafka.RelayInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
