package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrigenai/agrigen-backend/api/controllers"
	"github.com/agrigenai/agrigen-backend/api/middleware"
	"github.com/agrigenai/agrigen-backend/internal/session"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	sessions *session.Manager,
	analyzer controllers.Analyzer,
	limiter middleware.RateLimiter,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, sessions))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", controllers.SessionCreate(sessions, cfg.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Session, sessions, logg))

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(logg))
				r.With(middleware.AuthRateLimit(signupPolicy, limiter, logg)).Post("/signup", controllers.AuthSignup(logg))
				r.Post("/logout", controllers.AuthLogout(logg))
				r.Get("/me", controllers.AuthMe(logg))
			})

			r.Get("/language", controllers.LanguageFetch(logg))
			r.Put("/language", controllers.LanguageUpdate(logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireIdentity(logg))

				r.Route("/analysis", func(r chi.Router) {
					r.Post("/", controllers.AnalysisUpload(analyzer, cfg.Analysis.MaxUploadMB, logg))
					r.Put("/result", controllers.AnalysisLoadResult(logg))
					r.Route("/selection", func(r chi.Router) {
						r.Get("/", controllers.SelectionFetch(logg))
						r.Post("/adjust", controllers.SelectionAdjust(logg))
						r.Post("/commit", controllers.SelectionCommit(logg))
					})
				})

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartFetch(logg))
					r.Post("/items", controllers.CartAddItem(logg))
					r.Patch("/items/{itemId}", controllers.CartUpdateItem(logg))
					r.Delete("/items/{itemId}", controllers.CartRemoveItem(logg))
				})

				r.Route("/checkout", func(r chi.Router) {
					r.Get("/", controllers.CheckoutEnter(logg))
					r.Post("/", controllers.CheckoutPlace(logg))
				})
			})
		})
	})

	return r
}
