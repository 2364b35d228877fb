package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/quizhub/quiz-api/internal/application/auth"
	"github.com/quizhub/quiz-api/internal/application/notification"
	"github.com/quizhub/quiz-api/internal/application/problem"
	"github.com/quizhub/quiz-api/internal/application/user"
	"github.com/quizhub/quiz-api/internal/application/verification"
	"github.com/quizhub/quiz-api/internal/config"
	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
	"github.com/quizhub/quiz-api/internal/transport/http/handler"
	appmiddleware "github.com/quizhub/quiz-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.RateLimit.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestLogger(logger.WithModule("http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	authRL := deps.AuthLimiter
	if authRL == nil {
		authRL = appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	notifier := notification.NewService(deps.Mailer, cfg.Mail.Transport)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:             deps.UserRepo,
		RegistrationCodes:    verification.NewStore(deps.Cache, domain.PurposeRegistration),
		ResetCodes:           verification.NewStore(deps.Cache, domain.PurposePasswordReset),
		Markers:              deps.Cache,
		Notifier:             notifier,
		JWTProvider:          deps.JWTProvider,
		RegistrationTTL:      cfg.Verification.RegistrationTTL,
		ResetTTL:             cfg.Verification.ResetTTL,
		VerifiedEmailTTL:     cfg.Verification.VerifiedEmailTTL,
		RequireVerifiedEmail: cfg.Verification.RequireVerifiedEmail,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo, CourseRepo: deps.CourseRepo})
	problemSvc := problem.NewService(deps.ProblemRepo)

	healthH := handler.NewHealthHandler(deps.DBPing, deps.Cache)
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	problemH := handler.NewProblemHandler(problemSvc)

	r.Get("/", healthH.Welcome)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Use(authRL.Limit)
			r.Post("/send-email-verification", authH.SendEmailVerification)
			r.Post("/verify-email", authH.VerifyEmail)
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/send-password-reset-code", authH.SendPasswordResetCode)
			r.Post("/reset-password", authH.ResetPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMw)
			r.With(appmiddleware.RequireRole(domain.RoleAdmin)).Get("/", userH.List)
			r.Get("/{id}", userH.Get)
			r.Patch("/{id}", userH.Update)
			r.Get("/{id}/courses", userH.Courses)
			r.Get("/{id}/courses/{courseId}/progress", userH.CourseProgress)
		})

		r.Route("/problems", func(r chi.Router) {
			r.Get("/", problemH.List)
			r.Get("/{id}", problemH.Get)

			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Put("/{id}/status", problemH.UpdateStatus)
				r.Get("/{id}/status/{userId}", problemH.Status)
				r.Get("/user/{userId}/completed", problemH.Completed)
				r.Get("/user/{userId}/bookmarked", problemH.Bookmarked)
			})
		})
	})

	return r
}
