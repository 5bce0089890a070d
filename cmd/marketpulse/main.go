package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/alertguard"
	"github.com/mohamedkhairy/market-pulse/internal/auth"
	"github.com/mohamedkhairy/market-pulse/internal/baseline"
	"github.com/mohamedkhairy/market-pulse/internal/config"
	"github.com/mohamedkhairy/market-pulse/internal/dashboard"
	"github.com/mohamedkhairy/market-pulse/internal/feed"
	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/internal/monitor"
	"github.com/mohamedkhairy/market-pulse/internal/notify"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting market pulse",
		logger.String("feed_url", cfg.Feed.URL),
		logger.Int("symbols", len(cfg.Sentiments)),
		logger.Int("dashboard_port", cfg.Dashboard.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Authenticate: the feed is useless without a quote token, so a
	// failed login is fatal at startup.
	authClient := auth.NewClient(cfg.Auth.BaseURL, cfg.Auth.Username, cfg.Auth.Password, cfg.Auth.Timeout)
	if _, err := authClient.Login(ctx); err != nil {
		logger.Fatal("Login failed", logger.ErrorField(err))
	}
	quoteToken, err := authClient.QuoteToken(ctx)
	if err != nil {
		logger.Fatal("Failed to obtain quote token", logger.ErrorField(err))
	}
	logger.Info("Authenticated with brokerage")

	// Live state, sentiment registry, breakout levels.
	store := market.NewStore(cfg.Baseline.VolumeFloor)
	sentiments := market.NewSentiments(cfg.Sentiments)
	levels := monitor.NewLevelsStore()

	// Alert deduplication guard: Redis when configured, process-local otherwise.
	var guard alertguard.Guard
	if cfg.Redis.Host != "" {
		redisGuard, err := alertguard.NewRedisGuard(
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
		}
		defer redisGuard.Close()
		guard = redisGuard
	} else {
		guard = alertguard.NewMemoryGuard()
		logger.Info("Redis not configured, using in-memory alert guard")
	}

	// Notification sink.
	var notifier notify.Notifier
	if cfg.Email.Configured() {
		notifier = notify.NewEmailNotifier(cfg.Email.Host, cfg.Email.Port, cfg.Email.Sender, cfg.Email.Password, cfg.Email.Receiver)
	} else {
		notifier = notify.NewLogNotifier()
		logger.Warn("Email not configured, alerts will only be logged")
	}

	// Average-volume fallback chain, in priority order.
	sources := []baseline.VolumeSource{
		baseline.NewMetricsSource(cfg.Baseline.PrimaryURL, authClient.SessionToken, cfg.Baseline.LookbackDays, cfg.Baseline.Timeout),
	}
	var profile baseline.ProfileProvider
	if cfg.Baseline.SecondaryURL != "" {
		history := baseline.NewHistorySource(cfg.Baseline.SecondaryURL, cfg.Baseline.Timeout)
		sources = append(sources, history)
		profile = history
	}
	sources = append(sources, baseline.NewSnapshotSource(cfg.Baseline.SnapshotFile, cfg.Baseline.LookbackDays))

	options := baseline.NewOptionsClient(cfg.Baseline.PrimaryURL, authClient.SessionToken, cfg.Baseline.Timeout)
	loader := baseline.NewLoader(baseline.Config{
		VolumeFloor:     cfg.Baseline.VolumeFloor,
		ProfileDays:     cfg.Baseline.LookbackDays,
		PainInterval:    cfg.Baseline.PainInterval,
		ProfileInterval: cfg.Baseline.ProfileInterval,
	}, store, sources, profile, options)

	loader.SeedAverageVolume(ctx, sentiments.Symbols())

	// Dashboard push hub doubles as the feed's publish sink.
	hub := dashboard.NewHub()

	feedClient := feed.NewClient(feed.Config{
		URL:               cfg.Feed.URL,
		ChannelID:         cfg.Feed.ChannelID,
		KeepaliveInterval: cfg.Feed.KeepaliveInterval,
		KeepaliveTimeout:  cfg.Feed.KeepaliveTimeout,
		HandshakeTimeout:  cfg.Feed.HandshakeTimeout,
		WriteTimeout:      cfg.Feed.WriteTimeout,
		CloseGracePeriod:  cfg.Feed.CloseGracePeriod,
	}, store, hub, sentiments.Get)
	defer feedClient.Close()

	if err := feedClient.Subscribe(ctx, quoteToken, sentiments.Symbols()); err != nil {
		logger.Fatal("Failed to subscribe to feed", logger.ErrorField(err))
	}

	// Breakout monitor.
	mon := monitor.New(monitor.Config{
		Interval:        cfg.Monitor.Interval,
		HistorySize:     cfg.Monitor.HistorySize,
		AlertHourCST:    cfg.Monitor.AlertHourCST,
		AlertMinuteFrom: cfg.Monitor.AlertMinuteFrom,
		AlertMinuteTo:   cfg.Monitor.AlertMinuteTo,
		UTCOffsetHours:  cfg.Monitor.UTCOffsetHours,
	}, store, levels, notifier, guard)
	go mon.Run(ctx)

	// Background baseline refresh loops.
	go loader.RunPainLoop(ctx, sentiments.Symbols)
	go loader.RunProfileLoop(ctx, sentiments.Symbols)

	// Dashboard server.
	controller := &symbolController{
		auth:       authClient,
		sentiments: sentiments,
		loader:     loader,
		feed:       feedClient,
	}
	server := dashboard.NewServer(cfg.Dashboard, store, sentiments, levels, hub, controller)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Dashboard server exited", logger.ErrorField(err))
			cancel()
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Dashboard shutdown error", logger.ErrorField(err))
	}

	// Persist the session snapshot so tomorrow's baseline chain has a
	// last-resort volume source.
	if err := baseline.SaveSnapshot(cfg.Baseline.SnapshotFile, store); err != nil {
		logger.Warn("Failed to save daily snapshot", logger.ErrorField(err))
	} else {
		logger.Info("Daily snapshot saved", logger.String("path", cfg.Baseline.SnapshotFile))
	}

	logger.Info("Market pulse stopped")
}

// symbolController applies a watchlist replacement from the dashboard:
// refresh the session, update the sentiment registry, seed baselines for
// newly added symbols, and resubscribe the feed to the full set.
type symbolController struct {
	auth       *auth.Client
	sentiments *market.Sentiments
	loader     *baseline.Loader
	feed       *feed.Client
}

func (c *symbolController) SetSymbols(ctx context.Context, sentiments map[string]models.Sentiment) error {
	added := c.sentiments.Replace(sentiments)
	if len(added) > 0 {
		c.loader.SeedAverageVolume(ctx, added)
	}

	// The quote token is short-lived, so mint a fresh one before
	// resubscribing.
	if _, err := c.auth.Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	quoteToken, err := c.auth.QuoteToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain quote token: %w", err)
	}

	return c.feed.Subscribe(ctx, quoteToken, c.sentiments.Symbols())
}
