package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func newRequestLogger(app string, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", app),
		slog.String("version", "v1.0.0"),
		slog.String("env", env),
	)
}

// NewRouter builds the collector API.
func NewRouter(JWTService jwt.Service, locationHandler LocationHandler, settingsHandler SettingsHandler, allowedOrigins []string, env string) *chi.Mux {
	r := chi.NewRouter()
	logger := newRequestLogger("hris-tracking-collector", env)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/settings", settingsHandler.Get)

		// Requires a device token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireTrackedRole)

			r.Route("/locations", func(r chi.Router) {
				r.Post("/", locationHandler.Upload)
				r.Get("/me", locationHandler.ListMine)
				r.Get("/stream", locationHandler.Stream)
			})
		})
	})
	return r
}

// NewControlRouter builds the agent's local control API. It is meant to be
// bound to loopback only.
func NewControlRouter(sessionHandler SessionHandler, env string) *chi.Mux {
	r := chi.NewRouter()
	logger := newRequestLogger("hris-tracking-agent", env)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/session", func(r chi.Router) {
		r.Get("/", sessionHandler.Status)
		r.Post("/login", sessionHandler.Login)
		r.Post("/logout", sessionHandler.Logout)
		r.Post("/start", sessionHandler.Start)
		r.Post("/stop", sessionHandler.Stop)
	})

	r.Route("/navigation", func(r chi.Router) {
		r.Post("/ready", sessionHandler.NavigationReady)
		r.Post("/not-ready", sessionHandler.NavigationNotReady)
	})

	r.Post("/permissions/request", sessionHandler.RequestPermissions)
	r.Post("/app/state", sessionHandler.SetAppState)
	return r
}
