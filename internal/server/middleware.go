package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
)

type ctxKey int

const actorKey ctxKey = iota

// actorFrom returns the authenticated actor placed by the auth middleware.
// Handlers behind the middleware can rely on it being present.
func actorFrom(ctx context.Context) auth.Actor {
	actor, _ := ctx.Value(actorKey).(auth.Actor)
	return actor
}

// clientIP prefers the first X-Forwarded-For hop; falls back to the socket.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// authenticate parses the bearer token, loads the user, and stores the
// actor on the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			respondErr(w, r, s.logger, apperr.New(apperr.KindUnauthenticated, "missing bearer token"))
			return
		}
		claims, err := s.deps.Tokens.Parse(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			respondErr(w, r, s.logger, err)
			return
		}
		user, err := s.deps.Users.User(r.Context(), claims.UserID)
		if err != nil {
			respondErr(w, r, s.logger, apperr.Wrap(apperr.KindInternal, err, "load user"))
			return
		}
		if user == nil || !user.IsActive {
			respondErr(w, r, s.logger, apperr.New(apperr.KindUnauthenticated, "account is not active"))
			return
		}
		actor := auth.Actor{User: user, IP: clientIP(r), UserAgent: r.UserAgent()}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// statusWriter captures the response code for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// observe logs every request and feeds the Prometheus instruments.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveRequest(route, r.Method, sw.status, elapsed)
		}
		s.logger.Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", sw.status).
			Dur("elapsed", elapsed).
			Str("ip", clientIP(r)).
			Msg("request")
	})
}
