// Package httpapi exposes the rate-limited HTTP surface: gated demo
// endpoints, a status probe, and admin inspect/reset for an identity.
package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/manenim/window-rate-limiter/internal/logger"
	"github.com/manenim/window-rate-limiter/internal/stats"
	"github.com/manenim/window-rate-limiter/pkg/limiter"
)

// LimiterInfo describes one configured link of the chain for /status.
type LimiterInfo struct {
	Algorithm     limiter.Algorithm `json:"algorithm"`
	Limit         int64             `json:"limit"`
	WindowSeconds int64             `json:"window_seconds"`
}

type Config struct {
	Limiter    *limiter.Chain
	Store      Pinger
	Stats      *stats.Recorder
	Logger     *slog.Logger
	FailOpen   bool
	TrustProxy bool
	// AdminToken, when set, is required as a bearer token on /admin routes.
	AdminToken string
	Limiters   []LimiterInfo
}

type Server struct {
	limiter    *limiter.Chain
	store      Pinger
	stats      *stats.Recorder
	log        *slog.Logger
	trustProxy bool
	limiters   []LimiterInfo
}

// NewRouter wires the handlers behind request ID, access logging and
// panic recovery.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.New()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = limiter.NewChain()
	}

	s := &Server{
		limiter:    cfg.Limiter,
		store:      cfg.Store,
		stats:      cfg.Stats,
		log:        cfg.Logger,
		trustProxy: cfg.TrustProxy,
		limiters:   cfg.Limiters,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(cfg.Logger, cfg.Stats))
	r.Use(chimw.Recoverer)

	r.Get("/status", s.status)

	r.Group(func(gated chi.Router) {
		gated.Use(RateLimit(RateLimitConfig{
			Limiter:  cfg.Limiter,
			FailOpen: cfg.FailOpen,
			Logger:   cfg.Logger,
			KeyFunc: func(r *http.Request) limiter.Identity {
				return limiter.Identity{Namespace: limiter.NamespaceIP, Key: ClientIP(r, cfg.TrustProxy)}
			},
		}))
		gated.Get("/", s.hello)
		gated.Get("/api/resource", s.resource)
		gated.Post("/api/echo", s.echo)
	})

	r.Route("/admin/limits", func(admin chi.Router) {
		admin.Use(requireToken(cfg.AdminToken))
		admin.Get("/{identity}", s.inspect)
		admin.Delete("/{identity}", s.reset)
	})

	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("Bearer " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
