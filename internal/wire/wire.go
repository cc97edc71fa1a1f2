package wire

import (
	"context"
	"net/http"
	"time"

	"cleaning-booking/internal/adaptor"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/middleware"
	"cleaning-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the wired HTTP router.
type App struct {
	Router *chi.Mux
}

// Deps are the infrastructure pieces main builds. Provider and Publisher are
// optional and must be left nil (not a typed nil) when disabled.
type Deps struct {
	Repo      *repository.Repository
	Tx        usecase.Transactor
	Provider  usecase.PaymentProvider
	Publisher usecase.EventPublisher
	DB        Pinger
	Config    *utils.Config
	Log       *zap.Logger
}

// Wiring builds services and handlers and mounts every route.
func Wiring(d Deps) *App {
	service := usecase.NewService(usecase.Deps{
		Repo:      d.Repo,
		Tx:        d.Tx,
		Provider:  d.Provider,
		Publisher: d.Publisher,
		Config:    d.Config,
		Log:       d.Log,
	})
	handler := adaptor.NewHandler(service, d.Config, d.Log)

	return &App{
		Router: setupRouter(handler, d),
	}
}

func setupRouter(handler *adaptor.Handler, d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recover(d.Log))
	r.Use(middleware.CORS(d.Config.App.CORSOrigins))
	r.Use(middleware.Metrics)

	auth := middleware.Authenticate(d.Config.JWT.Secret, d.Log)
	limiter := middleware.NewRateLimiter(d.Config.RateLimit.RPS, d.Config.RateLimit.Burst)

	// Apply routes
	wireAuth(r, handler.Auth, auth, limiter)
	wireUser(r, handler.User, auth, d.Log)
	wireCatalog(r, handler.Catalog)
	wireBooking(r, handler.Booking, auth, d.Log)
	wirePayment(r, handler.Payment, auth, limiter, d.Log)
	wireReview(r, handler.Review, auth, d.Log)

	r.Get("/health", health(d.DB))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "Database unavailable", nil, nil)
				return
			}
		}
		utils.ResponseSuccess(w, "OK", nil)
	}
}
