package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/v-momentum/momentum/internal/alerting"
	"github.com/v-momentum/momentum/internal/ga4"
	"github.com/v-momentum/momentum/internal/metrics"
	"github.com/v-momentum/momentum/internal/notifier"
	"github.com/v-momentum/momentum/internal/scheduler"
	"github.com/v-momentum/momentum/internal/storage"
	"github.com/v-momentum/momentum/internal/web"
	"github.com/v-momentum/momentum/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "momentum-server",
	Short: "V-Momentum-Pro alerting server",
	Long: `V-Momentum-Pro alerting server evaluates GA4 traffic metrics
against per-site alert rules and notifies recipients by email.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("momentum-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))

	// Seed the default rule set before anything can list or toggle rules.
	if err := alerting.EnsureDefaultRules(cmd.Context(), store.Rules(), cfg.Alerts.Sites, logger); err != nil {
		return fmt.Errorf("seed default rules: %w", err)
	}

	coordinator, err := buildCoordinator(cfg, store, logger)
	if err != nil {
		return err
	}

	webCfg := &web.Config{
		Address:    cfg.Server.Address,
		CronSecret: cfg.Server.CronSecret,
		Verbose:    cfg.Verbose,
	}
	srv, err := web.New(webCfg, store, coordinator, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	sched, err := scheduler.New(&scheduler.Config{
		Schedule:   cfg.Alerts.Schedule,
		RunTimeout: cfg.Alerts.RunTimeout,
	}, coordinator, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting momentum-server",
		zap.String("version", config.Version),
		zap.Strings("sites", cfg.Alerts.Sites))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address, logger)
		g.Go(func() error { return metricsSrv.Start() })
		g.Go(func() error {
			<-gctx.Done()
			return metricsSrv.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildCoordinator wires the full alert pipeline from configuration.
func buildCoordinator(cfg *Config, store storage.Storage, logger *zap.Logger) (*web.Coordinator, error) {
	var credentials []byte
	if cfg.GA4.CredentialsFile != "" {
		var err error
		credentials, err = os.ReadFile(cfg.GA4.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read GA4 credentials: %w", err)
		}
	}

	ga4Client, err := ga4.NewHTTPClient(ga4.Config{
		ServiceAccountJSON: credentials,
		Properties:         cfg.GA4.Properties,
		Timeout:            cfg.GA4.Timeout,
	}, logger.Named("ga4"))
	if err != nil {
		return nil, fmt.Errorf("create GA4 client: %w", err)
	}

	var email *notifier.EmailNotifier
	if cfg.SMTP.Host != "" {
		email, err = notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, fmt.Errorf("create email notifier: %w", err)
		}
	} else {
		logger.Warn("SMTP not configured; alert emails will not be sent")
	}

	var slack *notifier.SlackNotifier
	if cfg.Slack.WebhookURL != "" {
		slack, err = notifier.NewSlackNotifier(notifier.SlackConfig{WebhookURL: cfg.Slack.WebhookURL})
		if err != nil {
			return nil, fmt.Errorf("create slack notifier: %w", err)
		}
	}

	limiter := notifier.NewRateLimiter(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Alerts.RateLimit.MaxPerWindow,
		Window:       cfg.Alerts.RateLimit.Window,
		Enabled:      !cfg.Alerts.RateLimit.Disabled,
	})
	dispatcher := notifier.NewDispatcher(email, slack, limiter, logger.Named("notifier"))

	engine := alerting.NewEngine(
		store.Rules(),
		alerting.NewDedupGate(store.Events()),
		alerting.NewRegistry(ga4Client),
		cfg.Alerts.Sites,
		logger.Named("alerting"),
	)

	checks := alerting.ChecksInput{
		Properties: cfg.GA4.Properties,
		SMTPHost:   cfg.SMTP.Host,
		SMTPPort:   cfg.SMTP.Port,
		SMTPUser:   cfg.SMTP.Username,
		SMTPPass:   cfg.SMTP.Password,
		FromEmail:  cfg.SMTP.From,
		Recipients: cfg.Alerts.Recipients,
		CronSecret: cfg.Server.CronSecret,
	}

	return web.NewCoordinator(
		engine,
		store,
		dispatcher,
		web.NewRecipientResolver(cfg.Alerts.SiteRecipients, cfg.Alerts.Recipients),
		checks,
		cfg.Alerts.Sites,
		logger.Named("coordinator"),
	), nil
}

// newLogger builds the process logger. Verbose switches to development
// encoding with debug level.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
