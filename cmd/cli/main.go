package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
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
	"github.com/instagram-agent/internal/models"
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
		Use:   "instagram-agent",
		Short: "Instagram content automation for small businesses",
		Long: `An autonomous agent that generates social media content for small
businesses and publishes it to Instagram on a schedule using Claude AI.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(businessCmd())
	rootCmd.AddCommand(automationCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(trackerCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(cleanupCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	store, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// ============ BUSINESS COMMANDS ============

func businessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "business",
		Short: "Manage businesses the agent posts for",
	}

	cmd.AddCommand(businessAddCmd())
	cmd.AddCommand(businessListCmd())
	cmd.AddCommand(businessEnableCmd())
	cmd.AddCommand(businessDisableCmd())
	return cmd
}

func businessAddCmd() *cobra.Command {
	var (
		name        string
		industry    string
		audience    string
		voice       string
		themes      []string
		times       []string
		postsPerDay int
		enable      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new business",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			business := &models.Business{
				Name:           name,
				Industry:       industry,
				TargetAudience: audience,
				BrandVoice:     voice,
				AutoEnabled:    enable,
				PostsPerDay:    postsPerDay,
				PreferredTimes: models.StringSlice(times),
				ContentThemes:  models.StringSlice(themes),
			}
			business.ApplyDefaults()

			if err := business.Validate(); err != nil {
				return fmt.Errorf("invalid business: %w", err)
			}

			if err := store.CreateBusiness(ctx, business); err != nil {
				return fmt.Errorf("failed to create business: %w", err)
			}

			fmt.Printf("Business %d (%s) created\n", business.ID, business.Name)
			fmt.Printf("Industry:  %s\n", business.Industry)
			fmt.Printf("Posts/day: %d\n", business.DailyQuota())
			fmt.Printf("Times:     %s\n", strings.Join(business.PreferredTimes, ", "))

			if business.AutoEnabled {
				fmt.Println("\nAutomation is enabled - the daily cycle will pick this business up.")
			} else {
				fmt.Printf("\nAutomation is off. Run 'instagram-agent business enable %d' to turn it on.\n", business.ID)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Business name (required)")
	cmd.Flags().StringVar(&industry, "industry", "", "Industry, e.g. restaurant, fashion, fitness (required)")
	cmd.Flags().StringVar(&audience, "audience", "", "Target audience description")
	cmd.Flags().StringVar(&voice, "voice", "", "Brand voice for generated captions")
	cmd.Flags().StringSliceVar(&themes, "themes", nil, "Content themes to rotate through")
	cmd.Flags().StringSliceVar(&times, "times", nil, "Preferred publish times (HH:MM, 24h)")
	cmd.Flags().IntVar(&postsPerDay, "posts-per-day", 1, "Content items per day (max 3)")
	cmd.Flags().BoolVar(&enable, "enable", false, "Enable automation immediately")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("industry")

	return cmd
}

func businessListCmd() *cobra.Command {
	var industry string
	var enabledOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered businesses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultBusinessFilter()
			filter.Limit = limit

			if industry != "" {
				filter.Industry = &industry
			}
			if enabledOnly {
				t := true
				filter.AutoEnabled = &t
			}

			businesses, err := store.ListBusinesses(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Businesses (%d) ===\n\n", len(businesses))
			for _, b := range businesses {
				fmt.Printf("[%d] %s | %s | automation %s\n", b.ID, b.Name, b.Industry,
					map[bool]string{true: "on", false: "off"}[b.AutoEnabled])
				fmt.Printf("    Posts/day: %d | Times: %s\n", b.DailyQuota(), strings.Join(b.PreferredTimes, ", "))
				if len(b.ContentThemes) > 0 {
					fmt.Printf("    Themes: %s\n", strings.Join(b.ContentThemes, ", "))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&industry, "industry", "", "Filter by industry")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Show only automation-enabled businesses")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum businesses to show")

	return cmd
}

func businessEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable [business-id]",
		Short: "Enable automation for a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid business ID: %w", err)
			}
			return setAutomation(uint(id), true)
		},
	}
}

func businessDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [business-id]",
		Short: "Disable automation for a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid business ID: %w", err)
			}
			return setAutomation(uint(id), false)
		},
	}
}

func setAutomation(id uint, enabled bool) error {
	ctx := context.Background()

	business, err := store.GetBusinessByID(ctx, id)
	if err != nil {
		return fmt.Errorf("business not found: %w", err)
	}

	business.AutoEnabled = enabled
	if err := store.UpdateBusiness(ctx, business); err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}

	fmt.Printf("Business %d (%s): automation %s\n", business.ID, business.Name,
		map[bool]string{true: "enabled", false: "disabled"}[enabled])
	return nil
}

// ============ AUTOMATION COMMANDS ============

func automationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Content automation commands",
	}

	cmd.AddCommand(automationRunCmd())
	return cmd
}

func automationRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daily content cycle once",
		Long: `Generates content for every automation-enabled business that is still
under its daily quota and queues it for publishing at the next preferred time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			gen, err := buildGenerator(cfg, limiter, log)
			if err != nil {
				return err
			}

			agent := automation.NewAgent(store, gen, nil, log)

			result, err := agent.RunDailyCycle(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Daily Cycle Results ===\n")
			fmt.Printf("Businesses Processed: %d\n", result.BusinessesProcessed)
			fmt.Printf("Items Created:        %d\n", result.ItemsCreated)
			fmt.Printf("Items Skipped:        %d\n", result.ItemsSkipped)
			fmt.Printf("Duration:             %s\n", result.Duration)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}
}

// ============ CONTENT COMMANDS ============

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "List and preview generated content",
	}

	cmd.AddCommand(contentListCmd())
	cmd.AddCommand(contentPreviewCmd())
	return cmd
}

func contentListCmd() *cobra.Command {
	var businessID uint
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultContentFilter()
			filter.Limit = limit

			if businessID > 0 {
				filter.BusinessID = &businessID
			}
			if status != "" {
				s := models.ContentStatus(status)
				filter.Status = &s
			}

			items, err := store.ListContentItems(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Content Items (%d) ===\n\n", len(items))
			for _, c := range items {
				fmt.Printf("[%d] %s | %s | business %d\n", c.ID, c.Status, c.ContentType, c.BusinessID)
				fmt.Printf("    Caption: %s\n", truncateStr(c.Caption, 100))
				if len(c.Hashtags) > 0 {
					fmt.Printf("    Hashtags: %s\n", strings.Join(c.Hashtags, " "))
				}
				fmt.Printf("    Created: %s\n", c.CreatedAt.Format(time.RFC1123))
				if c.PublishedAt != nil {
					fmt.Printf("    Published: %s\n", c.PublishedAt.Format(time.RFC1123))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&businessID, "business-id", 0, "Filter by business")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, scheduled, published, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum items to show")

	return cmd
}

func contentPreviewCmd() *cobra.Command {
	var businessID uint

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Generate content for a business without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			business, err := store.GetBusinessByID(ctx, businessID)
			if err != nil {
				return fmt.Errorf("business not found: %w", err)
			}

			limiter := ratelimit.NewDefaultLimiter()
			gen, err := buildGenerator(cfg, limiter, log)
			if err != nil {
				return err
			}

			bundle, err := gen.Generate(ctx, business)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			fmt.Printf("\n=== Preview for %s (%s generator) ===\n\n", business.Name, gen.Name())
			fmt.Println(bundle.Caption)
			if len(bundle.Hashtags) > 0 {
				fmt.Printf("\n%s\n", strings.Join(bundle.Hashtags, " "))
			}
			fmt.Printf("\nImage: %s\n", bundle.ImageRef)
			fmt.Println("\nPreview only - nothing was saved.")

			return nil
		},
	}

	cmd.Flags().UintVar(&businessID, "business-id", 0, "Business to generate for (required)")
	cmd.MarkFlagRequired("business-id")

	return cmd
}

// ============ SCHEDULE COMMANDS ============

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect and run the publishing queue",
	}

	cmd.AddCommand(scheduleListCmd())
	cmd.AddCommand(scheduleSweepCmd())
	cmd.AddCommand(scheduleCancelCmd())
	return cmd
}

func scheduleListCmd() *cobra.Command {
	var businessID uint
	var status string
	var due bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedule entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultScheduleFilter()
			filter.Limit = limit

			if businessID > 0 {
				filter.BusinessID = &businessID
			}
			if status != "" {
				s := models.ScheduleStatus(status)
				filter.Status = &s
			}
			if due {
				now := time.Now()
				pending := models.ScheduleStatusPending
				filter.Status = &pending
				filter.Before = &now
			}

			entries, err := store.ListScheduleEntries(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Schedule Entries (%d) ===\n\n", len(entries))
			for _, e := range entries {
				fmt.Printf("[%d] %s | target %s\n", e.ID, e.Status, e.TargetTime.Format(time.RFC1123))
				if e.Content != nil {
					fmt.Printf("    Content %d: %s\n", e.ContentID, truncateStr(e.Content.Caption, 80))
				} else {
					fmt.Printf("    Content %d\n", e.ContentID)
				}
				if e.PlatformPostID != "" {
					fmt.Printf("    Post ID: %s\n", e.PlatformPostID)
				}
				if e.ErrorMessage != "" {
					fmt.Printf("    Error (attempt %d): %s\n", e.RetryCount, e.ErrorMessage)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&businessID, "business-id", 0, "Filter by business")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, completed, failed, cancelled)")
	cmd.Flags().BoolVar(&due, "due", false, "Show only entries due right now")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")

	return cmd
}

func scheduleSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Publish every due entry now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			gw, err := buildGateway(cfg, limiter, log)
			if err != nil {
				return err
			}

			agent := executor.NewAgent(store, gw, buildTracker(cfg, log), cfg.Gateway.StageCommitDelay, log)

			result, err := agent.ProcessDue(ctx, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Sweep Results ===\n")
			fmt.Printf("Entries Processed: %d\n", result.EntriesProcessed)
			fmt.Printf("Published:         %d\n", result.Published)
			fmt.Printf("Failed:            %d\n", result.Failed)
			fmt.Printf("Duration:          %s\n", result.Duration)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}
}

func scheduleCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [entry-id]",
		Short: "Cancel a pending entry and return its content to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry ID: %w", err)
			}

			err = store.Transaction(ctx, func(tx storage.Store) error {
				entry, err := tx.GetScheduleEntryByID(ctx, uint(id))
				if err != nil {
					return fmt.Errorf("entry not found: %w", err)
				}
				if entry.Status != models.ScheduleStatusPending {
					return fmt.Errorf("entry %d is %s; only pending entries can be cancelled", entry.ID, entry.Status)
				}

				now := time.Now()
				entry.Status = models.ScheduleStatusCancelled
				entry.CompletedAt = &now
				if err := tx.UpdateScheduleEntry(ctx, entry); err != nil {
					return fmt.Errorf("failed to cancel entry: %w", err)
				}
				return tx.UpdateContentStatus(ctx, entry.ContentID, models.ContentStatusDraft, nil)
			})
			if err != nil {
				return err
			}

			fmt.Printf("Schedule entry %d cancelled; content returned to draft\n", id)
			return nil
		},
	}
}

// ============ TRACKER COMMANDS ============

func trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Google Sheets performance mirror",
	}

	cmd.AddCommand(trackerInitCmd())
	cmd.AddCommand(trackerListCmd())
	cmd.AddCommand(trackerBackfillCmd())
	return cmd
}

func trackerInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the Google Sheet with headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			t, err := newSheetsTracker()
			if err != nil {
				return err
			}

			if err := t.InitializeSheet(ctx); err != nil {
				return fmt.Errorf("failed to initialize sheet: %w", err)
			}

			fmt.Println("Google Sheet initialized successfully!")
			fmt.Printf("Spreadsheet ID: %s\n", cfg.Tracker.SpreadsheetID)
			fmt.Printf("Sheet Name: %s\n", cfg.Tracker.SheetName)
			fmt.Println("\nColumns created:")
			for i, col := range tracker.SheetColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}

			return nil
		},
	}
}

func trackerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mirrored performance rows from the sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			t, err := newSheetsTracker()
			if err != nil {
				return err
			}

			records, err := t.ListMirrored(ctx)
			if err != nil {
				return fmt.Errorf("failed to read sheet: %w", err)
			}

			fmt.Printf("\n=== Mirrored Records (%d) ===\n\n", len(records))
			for _, r := range records {
				fmt.Printf("[%d] %s | %s\n", r.RecordID, r.Business, r.PlatformPostID)
				fmt.Printf("    Posted: %s\n", r.PostedAt.Format(time.RFC1123))
				fmt.Printf("    Likes: %d | Comments: %d | Reach: %d | Impressions: %d\n",
					r.Likes, r.Comments, r.Reach, r.Impressions)
				fmt.Println()
			}

			return nil
		},
	}
}

func trackerBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Mirror performance records missing from the sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			t, err := newSheetsTracker()
			if err != nil {
				return err
			}

			records, err := store.ListPerformanceRecords(ctx, storage.PerformanceFilter{Limit: 1000})
			if err != nil {
				return fmt.Errorf("failed to load performance records: %w", err)
			}

			businesses, err := store.ListBusinesses(ctx, storage.BusinessFilter{Limit: 1000})
			if err != nil {
				return fmt.Errorf("failed to load businesses: %w", err)
			}
			names := make(map[uint]string, len(businesses))
			for _, b := range businesses {
				names[b.ID] = b.Name
			}

			fmt.Printf("Found %d performance records in database, mirroring to Google Sheets...\n", len(records))

			added, err := t.Backfill(ctx, records, names)
			if err != nil {
				return fmt.Errorf("failed to backfill: %w", err)
			}

			fmt.Printf("\nBackfill complete!\n")
			fmt.Printf("  Added: %d new rows\n", added)
			fmt.Printf("\nView at: https://docs.google.com/spreadsheets/d/%s\n", cfg.Tracker.SpreadsheetID)

			return nil
		},
	}
}

func newSheetsTracker() (*tracker.SheetsTracker, error) {
	if !cfg.Tracker.Enabled {
		return nil, fmt.Errorf("tracker is not enabled in config - set tracker.enabled=true and tracker.spreadsheet_id")
	}

	t, err := tracker.NewSheetsTracker(tracker.Config{
		Enabled:            cfg.Tracker.Enabled,
		SpreadsheetID:      cfg.Tracker.SpreadsheetID,
		SheetName:          cfg.Tracker.SheetName,
		CredentialsFile:    cfg.Tracker.CredentialsFile,
		ServiceAccountJSON: cfg.Tracker.ServiceAccountJSON,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	return t, nil
}

// ============ STATS / VERIFY / CLEANUP ============

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue and publishing counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			counts, err := store.Counts(ctx, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Stats ===\n")
			fmt.Printf("Businesses:      %d (%d enabled)\n", counts.Businesses, counts.EnabledBusinesses)
			fmt.Printf("Pending Entries: %d\n", counts.PendingEntries)
			fmt.Printf("Due Now:         %d\n", counts.DueEntries)
			fmt.Printf("Published Today: %d\n", counts.PublishedToday)

			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check configuration, database, and gateway credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			fmt.Println("=== Configuration ===")
			if err := cfg.Validate(); err != nil {
				fmt.Printf("Config:    %v\n", err)
			} else {
				fmt.Println("Config:    OK")
			}
			fmt.Printf("Generator: %s\n", cfg.Generator.Provider)
			fmt.Printf("Gateway:   %s\n", cfg.Gateway.Provider)

			fmt.Println("\n=== Database ===")
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}
			fmt.Println("Database:  OK")

			fmt.Println("\n=== Gateway ===")
			limiter := ratelimit.NewDefaultLimiter()
			switch cfg.Gateway.Provider {
			case config.GatewayInstagram:
				tokens := instagram.NewTokenManager(cfg.Instagram, log)

				valid, expiresAt, err := tokens.Status()
				if err != nil {
					fmt.Println("Token:     not configured")
					fmt.Println("\nAuthorize the app in a browser, then set INSTAGRAM_INSTAGRAM_ACCESS_TOKEN:")
					fmt.Println(tokens.AuthURL("verify"))
					return nil
				}
				fmt.Printf("Token:     %s\n", map[bool]string{true: "valid", false: "expired"}[valid])
				fmt.Printf("Expires:   %s\n", expiresAt.Format(time.RFC1123))

				gw := instagram.New(cfg.Instagram, tokens, limiter, log)
				if err := gw.Verify(ctx); err != nil {
					return fmt.Errorf("gateway verification failed: %w", err)
				}
				fmt.Println("Account:   OK")
			case config.GatewayStub:
				fmt.Println("Stub gateway - nothing to verify.")
			}

			if cfg.Tracker.Enabled {
				fmt.Println("\n=== Tracker ===")
				t, err := newSheetsTracker()
				if err != nil {
					return err
				}
				if err := t.InitializeSheet(ctx); err != nil {
					return fmt.Errorf("tracker verification failed: %w", err)
				}
				fmt.Println("Tracker:   OK")
			}

			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge expired schedule entries per the retention policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			removed, err := store.PurgeExpiredEntries(ctx, time.Now(), cfg.Retention.Policy())
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d expired schedule entries\n", removed)
			return nil
		},
	}
}

// ============ WIRING HELPERS ============

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

	t, err := newSheetsTracker()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create tracker")
		return nil
	}
	return t
}

// Helper function to truncate strings
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
