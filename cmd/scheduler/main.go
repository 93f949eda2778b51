package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/instagram-agent/internal/agent/automation"
	"github.com/instagram-agent/internal/agent/executor"
	"github.com/instagram-agent/internal/ai"
	"github.com/instagram-agent/internal/config"
	"github.com/instagram-agent/internal/gateway"
	"github.com/instagram-agent/internal/gateway/instagram"
	"github.com/instagram-agent/internal/gateway/stub"
	"github.com/instagram-agent/internal/generator"
	"github.com/instagram-agent/internal/generator/anthropic"
	"github.com/instagram-agent/internal/generator/template"
	"github.com/instagram-agent/internal/inspiration/rss"
	"github.com/instagram-agent/internal/media/unsplash"
	"github.com/instagram-agent/internal/scheduler"
	"github.com/instagram-agent/internal/storage"
	"github.com/instagram-agent/internal/storage/sqlite"
	"github.com/instagram-agent/internal/tracker"
	"github.com/instagram-agent/pkg/logger"
	"github.com/instagram-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	store   storage.Store
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "instagram-scheduler",
		Short: "Background scheduler for the Instagram agent",
		Long: `Runs the daily content cycle, the due-entry sweep, retention cleanup,
and health checks on their configured cadences. This daemon should be run
as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting Instagram Agent Scheduler")

	store, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server for Render
	go startHealthServer()

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	gen, err := buildGenerator(cfg, limiter, log)
	if err != nil {
		return err
	}
	log.Info().Str("generator", gen.Name()).Msg("Content generator ready")

	gw, err := buildGateway(cfg, limiter, log)
	if err != nil {
		return err
	}
	log.Info().Str("gateway", gw.Name()).Msg("Posting gateway ready")

	mirror := buildTracker(cfg, log)

	// Create agents
	automationAgent := automation.NewAgent(store, gen, nil, log)
	executorAgent := executor.NewAgent(store, gw, mirror, cfg.Gateway.StageCommitDelay, log)

	// Create the scheduler and register jobs
	sched := scheduler.New(cfg.Scheduler.TickInterval, log)

	err = sched.AddJob("automation", cfg.Scheduler.AutomationCron, func(ctx context.Context) error {
		result, err := automationAgent.RunDailyCycle(ctx)
		if err != nil {
			return err
		}
		for _, e := range result.Errors {
			log.Error().Err(e).Msg("Automation error")
		}
		log.Info().
			Int("businesses", result.BusinessesProcessed).
			Int("created", result.ItemsCreated).
			Int("skipped", result.ItemsSkipped).
			Int("errors", len(result.Errors)).
			Msg("Daily content cycle completed")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule automation job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.AutomationCron).Msg("Automation job scheduled")

	err = sched.AddJob("sweep", cfg.Scheduler.SweepCron, func(ctx context.Context) error {
		result, err := executorAgent.ProcessDue(ctx, time.Now())
		if err != nil {
			return err
		}
		for _, e := range result.Errors {
			log.Error().Err(e).Msg("Sweep error")
		}
		if result.EntriesProcessed > 0 {
			log.Info().
				Int("processed", result.EntriesProcessed).
				Int("published", result.Published).
				Int("failed", result.Failed).
				Msg("Due-entry sweep completed")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.SweepCron).Msg("Sweep job scheduled")

	err = sched.AddJob("cleanup", cfg.Scheduler.CleanupCron, scheduler.CleanupJob(store, cfg.Retention.Policy(), log))
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.CleanupCron).Msg("Cleanup job scheduled")

	err = sched.AddJob("health", cfg.Scheduler.HealthCron, scheduler.HealthCheckJob(store, log))
	if err != nil {
		return fmt.Errorf("failed to schedule health job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.HealthCron).Msg("Health job scheduled")

	sched.Start()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	sched.Stop()

	return nil
}

// buildGenerator selects the content generator from config
func buildGenerator(cfg *config.Config, limiter *ratelimit.MultiLimiter, log *logger.Logger) (generator.Generator, error) {
	switch cfg.Generator.Provider {
	case config.GeneratorAnthropic:
		aiClient := ai.NewClient(cfg.Anthropic, limiter, log)

		var opts []anthropic.Option
		if cfg.Media.Enabled && cfg.Media.UnsplashAPIKey != "" {
			opts = append(opts, anthropic.WithImages(unsplash.NewClient(cfg.Media.UnsplashAPIKey, limiter, log)))
			log.Info().Msg("Image lookup enabled with Unsplash")
		}
		if cfg.Inspiration.Enabled && len(cfg.Inspiration.Feeds) > 0 {
			opts = append(opts, anthropic.WithHeadlines(rss.New(cfg.Inspiration, limiter, log)))
			log.Info().Int("feeds", len(cfg.Inspiration.Feeds)).Msg("RSS inspiration enabled")
		}

		return anthropic.New(aiClient, cfg.Media.PlaceholderURL, log, opts...), nil
	case config.GeneratorTemplate:
		return template.New(cfg.Media.PlaceholderURL, nil, log), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}
}

// buildGateway selects the posting gateway from config
func buildGateway(cfg *config.Config, limiter *ratelimit.MultiLimiter, log *logger.Logger) (gateway.PostingGateway, error) {
	switch cfg.Gateway.Provider {
	case config.GatewayInstagram:
		tokens := instagram.NewTokenManager(cfg.Instagram, log)
		return instagram.New(cfg.Instagram, tokens, limiter, log), nil
	case config.GatewayStub:
		return stub.New(log), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Gateway.Provider)
	}
}

// buildTracker wires the Google Sheets mirror when enabled. A broken tracker
// is logged and skipped; publishing never depends on it.
func buildTracker(cfg *config.Config, log *logger.Logger) tracker.Tracker {
	if !cfg.Tracker.Enabled {
		return nil
	}

	t, err := tracker.NewSheetsTracker(tracker.Config{
		Enabled:            cfg.Tracker.Enabled,
		SpreadsheetID:      cfg.Tracker.SpreadsheetID,
		SheetName:          cfg.Tracker.SheetName,
		CredentialsFile:    cfg.Tracker.CredentialsFile,
		ServiceAccountJSON: cfg.Tracker.ServiceAccountJSON,
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create tracker")
		return nil
	}
	if t == nil {
		return nil
	}

	if err := t.InitializeSheet(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracker sheet")
	}

	log.Info().Str("spreadsheet", cfg.Tracker.SpreadsheetID).Msg("Performance tracker enabled")
	return t
}

// startHealthServer starts a simple HTTP server for health checks (used by Render)
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.Counts(r.Context(), time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counts)
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Instagram Agent Scheduler"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
