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
	appHTTP "github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/settings"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/repository/postgresql"
	locationService "github.com/cmlabs-hris/hris-tracking-agent/internal/service/location"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to the environment file")
	issueToken := pflag.Bool("issue-token", false, "print a device token for <email> <role> and exit")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n       %s --issue-token <email> <role>\n\n", os.Args[0], os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	cfg, err := config.LoadCollector(*envFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.App.LogLevel),
	})))

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.TokenExpiration)

	if *issueToken {
		if pflag.NArg() != 2 {
			pflag.Usage()
			os.Exit(2)
		}
		email, role := pflag.Arg(0), pflag.Arg(1)
		if !tracking.Role(role).IsTracked() {
			fmt.Printf("Role %q is not tracked; use one of %v\n", role, tracking.TrackedRoleValues)
			os.Exit(2)
		}
		token, expiresAt, err := JWTService.GenerateDeviceToken(email, role)
		if err != nil {
			fmt.Println("Error issuing token:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		fmt.Println("Error preparing schema:", err)
		os.Exit(1)
	}

	sampleRepo := postgresql.NewLocationSampleRepository(db)
	collectorService := locationService.NewLocationService(sampleRepo, sse.NewHub(16))

	locationHandler := appHTTP.NewLocationHandler(collectorService)
	settingsHandler := appHTTP.NewSettingsHandler(settings.NewFileSource(cfg.SettingsFile))

	router := appHTTP.NewRouter(
		JWTService,
		locationHandler,
		settingsHandler,
		cfg.CORSOrigins,
		cfg.App.Env,
	)

	port := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Println("Server error:", err)
		os.Exit(1)
	}
}
