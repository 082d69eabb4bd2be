package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/manenim/window-rate-limiter/internal/logger"
	"github.com/manenim/window-rate-limiter/pkg/limiter"
)

const maxEchoBody = 1 << 20

func (s *Server) hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Hello!!!")
}

func (s *Server) resource(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"message":  "ok",
		"identity": ClientIP(r, s.trustProxy),
	}
	if dec, ok := DecisionFromContext(r.Context()); ok && dec.Limit > 0 {
		body["remaining"] = dec.Remaining
		body["reset_at"] = dec.ResetTime.Unix()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	var payload any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEchoBody))
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"echo": payload})
}

// status reports store connectivity and process tallies. It is not gated.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"store":    "up",
		"limiters": s.limiters,
		"stats":    s.stats.Snapshot(),
	}
	if s.store == nil {
		body["store"] = "none"
		writeJSON(w, http.StatusOK, body)
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.WarnContext(r.Context(), "store ping failed", logger.Component("status"), logger.Error(err))
		body["status"] = "degraded"
		body["store"] = "down"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) inspect(w http.ResponseWriter, r *http.Request) {
	id := adminIdentity(r)
	usage, err := s.limiter.Inspect(r.Context(), id)
	if err != nil {
		s.adminError(w, r, "inspect", id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": id.Key,
		"usage":    usage,
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	id := adminIdentity(r)
	removed, err := s.limiter.Reset(r.Context(), id)
	if err != nil {
		s.adminError(w, r, "reset", id, err)
		return
	}
	s.log.InfoContext(r.Context(), "rate limit reset",
		logger.Component("admin"), logger.ClientIP(id.Key))
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": id.Key,
		"removed":  removed,
	})
}

func (s *Server) adminError(w http.ResponseWriter, r *http.Request, op string, id limiter.Identity, err error) {
	switch {
	case errors.Is(err, limiter.ErrInvalidIdentity):
		writeError(w, r, http.StatusBadRequest, "invalid identity")
	case errors.Is(err, limiter.ErrStoreUnavailable):
		s.log.ErrorContext(r.Context(), "admin "+op+" failed",
			logger.Component("admin"), logger.ClientIP(id.Key), logger.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// adminIdentity reads the operator-supplied identity override from the path.
func adminIdentity(r *http.Request) limiter.Identity {
	return limiter.Identity{
		Namespace: limiter.NamespaceIP,
		Key:       strings.TrimSpace(chi.URLParam(r, "identity")),
	}
}

// Pinger is the store health probe used by /status.
type Pinger interface {
	Ping(ctx context.Context) error
}
