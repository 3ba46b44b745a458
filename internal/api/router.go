package api

import (
	"net/http"
	"time"

	"expense_tracker/internal/api/handler"
	"expense_tracker/internal/api/middleware"
	"expense_tracker/internal/app/service"
	"expense_tracker/internal/common/security"
	"expense_tracker/internal/domain/repository"
	"expense_tracker/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	expenseService *service.ExpenseService,
	tokenRepo repository.TokenRepository,
) http.Handler {
	cfg := config.AppConfig

	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// The frontend runs on another origin and sends the auth cookie.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Verifies the token if present (header or cookie) and puts claims in
	// context. Enforcement happens in middleware.Authenticator.
	r.Use(jwtauth.Verify(security.TokenAuth, jwtauth.TokenFromHeader, tokenFromCookie))

	authenticator := middleware.Authenticator(tokenRepo)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/users", func(users chi.Router) {
			users.Group(func(public chi.Router) {
				public.Use(httprate.LimitByIP(cfg.AuthRateLimit, cfg.AuthRateWindow))
				authHandler.RegisterPublicRoutes(public)
			})
			users.Group(func(protected chi.Router) {
				protected.Use(authenticator)
				authHandler.RegisterProtectedRoutes(protected)
			})
		})

		expenseHandler := handler.NewExpenseHandler(expenseService)
		v1.Route("/expenses", func(expenses chi.Router) {
			expenses.Use(authenticator)
			expenseHandler.RegisterRoutes(expenses)
		})
	})

	return r
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(config.AppConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
