package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/config"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	appHTTP "github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/collector"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/settings"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/repository/sqlite"
	identityService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/identity"
	permissionService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/permission"
	trackingService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/tracking"
	uploadService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/upload"
	workhoursService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/workhours"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to the environment file")
	backgroundOnce := pflag.Bool("background-once", false, "run a single background delivery and exit")
	pflag.Parse()

	cfg, err := config.LoadAgent(*envFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.App.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *backgroundOnce); err != nil {
		slog.Error("Agent exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AgentConfig, backgroundOnce bool) error {
	db, err := database.NewSQLiteDB(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("error opening agent database: %w", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db); err != nil {
		return err
	}

	queueRepo := sqlite.NewOfflineQueueRepository(db)
	identityRepo := sqlite.NewIdentityRepository(db)
	stateRepo := sqlite.NewAgentStateRepository(db)

	sender, closeSender, err := newSender(cfg)
	if err != nil {
		return err
	}
	defer closeSender()

	tasks := platform.NewLoopRegistry()
	defer tasks.Close()

	appState := platform.NewAppState()
	remediator := permissionService.NewRemediator(platform.LogNavigator{})

	deps := trackingService.Deps{
		Settings:    workhoursService.NewSettingsCache(newSettingsSource(cfg), cfg.Tracking.VerdictTTL, time.Now),
		Permissions: permissionService.NewGate(platform.NewFilePermissions(cfg.Platform.PermissionFile, cfg.Platform.PermissionAutoGrant), cfg.Tracking.PermissionTTL, time.Now),
		Remediator:  remediator,
		Identity:    identityService.NewCache(identityRepo, cfg.Tracking.IdentityTTL, time.Now),
		Uploader: uploadService.NewUploader(
			sender,
			uploadService.NewOfflineQueue(queueRepo, cfg.Tracking.QueueCapacity),
			uploadService.Options{MaxAttempts: cfg.Tracking.UploadMaxAttempts},
		),
		State:    stateRepo,
		Location: platform.NewSimulatedLocation(cfg.Platform.OriginLatitude, cfg.Platform.OriginLongitude),
		Battery:  platform.NewSysfsBattery(cfg.Platform.BatteryRoot),
		Device:   platform.NewHostDevice(),
		AppState: appState,
		Tasks:    tasks,
	}
	opts := trackingService.Options{
		SampleInterval:           cfg.Tracking.SampleInterval,
		LowBatteryInterval:       cfg.Tracking.LowBatteryInterval,
		LowBatteryThreshold:      cfg.Tracking.LowBatteryThreshold,
		CaptureTimeout:           cfg.Tracking.CaptureTimeout,
		LowBatteryCaptureTimeout: cfg.Tracking.LowBatteryCaptureTimeout,
		LowBatteryMaxAge:         cfg.Tracking.LowBatteryMaxAge,
		SettingsPollInterval:     cfg.Tracking.SettingsPollInterval,
		PermissionPollInterval:   cfg.Tracking.PermissionPollInterval,
		DrainInterval:            cfg.Tracking.DrainInterval,
		WatchdogInterval:         cfg.Tracking.WatchdogInterval,
		BackgroundInterval:       cfg.Tracking.BackgroundInterval,
		DedupeWindow:             cfg.Tracking.DedupeWindow,
		DedupeDistance:           cfg.Tracking.DedupeDistance,
	}

	if backgroundOnce {
		err := trackingService.NewBackgroundDelivery(deps, opts).RunOnce(ctx)
		deps.Uploader.Wait()
		return err
	}

	session := trackingService.NewSession(deps, opts)
	sessionHandler := appHTTP.NewSessionHandler(session, remediator, appState)
	server := &http.Server{
		Addr:              cfg.ControlAddr,
		Handler:           appHTTP.NewControlRouter(sessionHandler, cfg.App.Env),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("Control API listening", "addr", cfg.ControlAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newSender(cfg *config.AgentConfig) (tracking.Sender, func(), error) {
	switch cfg.Collector.Transport {
	case "mqtt":
		sender, err := collector.NewMQTTSender(collector.MQTTConfig{
			Broker:      cfg.Collector.MQTTBroker,
			ClientID:    cfg.Collector.MQTTClientID,
			Username:    cfg.Collector.MQTTUsername,
			Password:    cfg.Collector.MQTTPassword,
			TopicPrefix: cfg.Collector.MQTTTopicPrefix,
			Timeout:     cfg.Collector.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return sender, sender.Close, nil
	default:
		client := collector.NewHTTPClient(cfg.Collector.Token, cfg.Collector.Timeout)
		return collector.NewHTTPSender(client, cfg.Collector.URL), func() {}, nil
	}
}

func newSettingsSource(cfg *config.AgentConfig) workhours.SettingsSource {
	if cfg.Settings.File != "" {
		return settings.NewFileSource(cfg.Settings.File)
	}
	client := collector.NewHTTPClient(cfg.Collector.Token, cfg.Collector.Timeout)
	return settings.NewHTTPSource(client, cfg.Settings.URL)
}
