// Command docworker consumes OCR and transcription jobs from Redis queues.
//
// Subcommands:
//
//	run     start the worker pool and the admin HTTP server
//	check   print the readiness report and exit 1 when degraded
//	replay  re-enqueue one dead-letter entry as a new job
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// Sets GOMEMLIMIT from the cgroup memory limit.
	_ "github.com/KimMachineGun/automemlimit"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	transcribe "github.com/arpit-jain-mygit/doc-transcribe-worker"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/api"
	audithook "github.com/arpit-jain-mygit/doc-transcribe-worker/audit_hook"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/capability"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/engine"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/store/redis"
)

func main() {
	root := &cobra.Command{
		Use:   "docworker",
		Short: "docworker: queue consumer for document OCR and transcription",
		// Errors are logged with slog below.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		runCmd(),
		checkCmd(),
		replayCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// deps bundles what every subcommand needs.
type deps struct {
	cfg     *Config
	targets queue.Targets
	logger  *slog.Logger
	client  *goredis.Client
	store   *redis.Store
}

func setup() (*deps, error) {
	cfg, err := Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	targets, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.New("config: REDIS_URL is not a valid redis url")
	}
	client := goredis.NewClient(opts)

	return &deps{
		cfg:     cfg,
		targets: targets,
		logger:  logger,
		client:  client,
		store:   redis.New(client, redis.WithLogger(logger)),
	}, nil
}

// ── run ──────────────────────────────────────────────────────────────────────

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the worker pool and admin server",
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := e.store.Ping(ctx); err != nil {
		return err
	}

	caps, err := capabilities(e.cfg, e.logger)
	if err != nil {
		return err
	}

	w, err := transcribe.New(
		transcribe.WithConfig(e.cfg.Worker()),
		transcribe.WithStore(e.store),
		transcribe.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	opts := []engine.Option{engine.WithTargets(e.targets)}
	for id, c := range caps {
		opts = append(opts, engine.WithCapability(id, c))
	}
	if e.cfg.AuditLog {
		opts = append(opts, engine.WithExtension(
			audithook.New(audithook.LogRecorder(e.logger), audithook.WithLogger(e.logger)),
		))
	}
	eng, err := engine.Build(w, opts...)
	if err != nil {
		return err
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}
	e.logger.Info("worker started",
		slog.String("queue_mode", e.cfg.QueueMode),
		slog.Any("queues", e.targets.Queues()),
	)

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if e.cfg.AdminAddr != "" {
		srv = &http.Server{
			Addr:              e.cfg.AdminAddr,
			Handler:           api.New(eng, e.logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		g.Go(func() error {
			e.logger.Info("admin server started", slog.String("addr", e.cfg.AdminAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		stop()

		e.logger.Info("shutting down", slog.Duration("timeout", e.cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()

		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				e.logger.Error("admin server shutdown", slog.String("error", err.Error()))
			}
		}
		return eng.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	e.logger.Info("worker stopped")
	return nil
}

func capabilities(cfg *Config, logger *slog.Logger) (map[string]capability.Capability, error) {
	caps := make(map[string]capability.Capability, 2)
	for id, line := range map[string]string{
		capability.OCR:           cfg.OCRCommand,
		capability.Transcription: cfg.TranscribeCommand,
	} {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := capability.NewCommand(line, capability.WithCommandLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("%s command: %w", id, err)
		}
		caps[id] = c
	}
	if len(caps) == 0 {
		return nil, errors.New("config: OCR_COMMAND or TRANSCRIBE_COMMAND is required")
	}
	return caps, nil
}

// ── check ────────────────────────────────────────────────────────────────────

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print the readiness report; exit 1 when degraded",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.client.Close()

			rd := api.Check(cmd.Context(), e.store, e.targets)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rd); err != nil {
				return err
			}
			if !rd.OK() {
				return errors.New("worker is degraded")
			}
			return nil
		},
	}
}

// ── replay ───────────────────────────────────────────────────────────────────

func replayCmd() *cobra.Command {
	var (
		dlqName   string
		index     int64
		queueName string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-enqueue a dead-letter entry as a new job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.client.Close()

			if _, ok := e.targets.ByDLQ(dlqName); !ok {
				return fmt.Errorf("replay: %q is not a configured dlq", dlqName)
			}
			svc := dlq.NewService(e.store, e.store,
				dlq.WithLogger(e.logger),
				dlq.WithWorkerID(e.cfg.Worker().WorkerID),
			)
			rep, err := svc.Replay(cmd.Context(), dlqName, index, queueName)
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(rep)
		},
	}
	cmd.Flags().StringVar(&dlqName, "dlq", "", "dead-letter queue name")
	cmd.Flags().Int64Var(&index, "index", 0, "entry index, 0 is the newest")
	cmd.Flags().StringVar(&queueName, "queue", "", "target queue (defaults to the entry's origin queue)")
	_ = cmd.MarkFlagRequired("dlq")
	return cmd
}

// ── logging ──────────────────────────────────────────────────────────────────

func newLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
