package http

import (
	"github.com/quizhub/quiz-api/internal/application/notification"
	"github.com/quizhub/quiz-api/internal/cache"
	jwtinfra "github.com/quizhub/quiz-api/internal/infrastructure/jwt"
	"github.com/quizhub/quiz-api/internal/infrastructure/mysql"
	"github.com/quizhub/quiz-api/internal/transport/http/handler"
	appmiddleware "github.com/quizhub/quiz-api/internal/transport/http/middleware"
)

// Deps holds the infrastructure the router wires into services.
type Deps struct {
	UserRepo    *mysql.UserRepo
	ProblemRepo *mysql.ProblemRepo
	CourseRepo  *mysql.CourseRepo
	Cache       cache.Client
	Mailer      notification.Mailer
	JWTProvider *jwtinfra.Provider
	// DBPing backs the database check on /api/health.
	DBPing handler.Pinger
	// AuthLimiter throttles /api/auth. The caller owns it and stops it on
	// shutdown; when nil the router builds one from config.
	AuthLimiter *appmiddleware.RateLimiter
}
