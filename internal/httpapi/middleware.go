package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/manenim/window-rate-limiter/internal/logger"
	"github.com/manenim/window-rate-limiter/internal/stats"
	"github.com/manenim/window-rate-limiter/pkg/limiter"
)

const rateLimitExceededMessage = "rate limit exceeded"

type (
	requestIDKey struct{}
	decisionKey  struct{}
)

// RequestID assigns every request an ID, reusing an inbound X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// DecisionFromContext returns the admission decision the rate-limit
// middleware attached to the request.
func DecisionFromContext(ctx context.Context) (limiter.Decision, bool) {
	dec, ok := ctx.Value(decisionKey{}).(limiter.Decision)
	return dec, ok
}

// AccessLog counts every request in rec and logs its outcome.
func AccessLog(log *slog.Logger, rec *stats.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec.IncRequests()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			id, _ := RequestIDFromContext(r.Context())
			log.LogAttrs(r.Context(), slog.LevelInfo, "request completed",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.StatusCode(ww.Status()),
				logger.Latency(time.Since(start)),
				logger.RequestID(id),
			)
		})
	}
}

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	Limiter limiter.RateLimiter
	// KeyFunc extracts the identity (default: client IP from RemoteAddr).
	KeyFunc func(r *http.Request) limiter.Identity
	// FailOpen admits requests when the store is unavailable instead of
	// answering 503.
	FailOpen bool
	Logger   *slog.Logger
}

// RateLimit gates next behind cfg.Limiter. Denials answer 429 with
// rate-limit headers; store failures answer 503 unless FailOpen is set.
// Panics if no limiter is provided.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(r *http.Request) limiter.Identity {
			return limiter.Identity{Namespace: limiter.NamespaceIP, Key: ClientIP(r, false)}
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cfg.KeyFunc(r)

			dec, err := cfg.Limiter.Allow(r.Context(), id)
			if err != nil {
				cfg.Logger.ErrorContext(r.Context(), "rate limiter failed",
					logger.Component("ratelimit"),
					logger.ClientIP(id.Key),
					logger.Error(err),
				)
				switch {
				case errors.Is(err, limiter.ErrStoreUnavailable) && cfg.FailOpen:
					w.Header().Set("X-RateLimit-Degraded", "true")
					next.ServeHTTP(w, r)
				case errors.Is(err, limiter.ErrStoreUnavailable):
					writeError(w, r, http.StatusServiceUnavailable, "rate limiter unavailable")
				case errors.Is(err, limiter.ErrInvalidIdentity):
					writeError(w, r, http.StatusBadRequest, "cannot identify client")
				default:
					writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
				return
			}

			setRateLimitHeaders(w.Header(), dec)

			if !dec.Allow {
				reqID, _ := RequestIDFromContext(r.Context())
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Error:      rateLimitExceededMessage,
					RetryAfter: retryAfterSeconds(dec.RetryAfter),
					RequestID:  reqID,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), decisionKey{}, dec)))
		})
	}
}

// setRateLimitHeaders writes X-RateLimit-* and, on denial, Retry-After.
// A zero Limit (empty chain) writes nothing.
func setRateLimitHeaders(h http.Header, dec limiter.Decision) {
	if dec.Limit <= 0 {
		return
	}
	h.Set("X-RateLimit-Limit", strconv.FormatInt(dec.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, dec.Remaining), 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetTime.Unix(), 10))
	if !dec.Allow {
		h.Set("Retry-After", strconv.FormatInt(retryAfterSeconds(dec.RetryAfter), 10))
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
