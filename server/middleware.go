package server

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Melodia/logger"
	"Melodia/metrics"

	"github.com/gorilla/mux"
)

type contextKey string

const adminContextKey contextKey = "admin"

// AdminIdentity says who passed the admin gate.
type AdminIdentity struct {
	ID       string
	Username string
	// ViaKey is true when the shared x-admin-key was used instead of a token.
	ViaKey bool
}

// AdminFromContext returns the identity stored by AdminAuth.
func AdminFromContext(ctx context.Context) (AdminIdentity, bool) {
	id, ok := ctx.Value(adminContextKey).(AdminIdentity)
	return id, ok
}

// AdminAuth accepts either the shared admin key or a bearer token from /admin/login.
func (h *APIHandler) AdminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-admin-key"); key != "" {
			if h.cfg.AdminSecret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.AdminSecret)) != 1 {
				logger.Warn("[Auth] invalid admin key", logger.String("path", r.URL.Path))
				writeError(w, http.StatusForbidden, "Unauthorized: Invalid admin key")
				return
			}
			ctx := context.WithValue(r.Context(), adminContextKey, AdminIdentity{ViaKey: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusForbidden, "Unauthorized: Missing x-admin-key header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusForbidden, "Unauthorized: Invalid authorization header format")
			return
		}
		claims, err := h.tokens.Parse(parts[1])
		if err != nil {
			logger.Warn("[Auth] rejected token", logger.ErrorField(err))
			writeError(w, http.StatusForbidden, "Unauthorized: Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey, AdminIdentity{ID: claims.Subject, Username: claims.Username})
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// IPAllowlist limits mutating admin routes to WHITELISTED_IPS outside production.
// An empty list lets everything through.
func (h *APIHandler) IPAllowlist(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.IsProduction() || len(h.cfg.WhitelistedIPs) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		for _, allowed := range h.cfg.WhitelistedIPs {
			if ip == allowed {
				next.ServeHTTP(w, r)
				return
			}
		}
		logger.Warn("[Auth] ip not whitelisted", logger.String("ip", ip), logger.String("path", r.URL.Path))
		writeJSON(w, http.StatusForbidden, envelope{
			"success":  false,
			"error":    "Unauthorized: IP address " + ip + " is not whitelisted",
			"clientIp": ip,
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop and maps ::1 to 127.0.0.1.
func clientIP(r *http.Request) string {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}

// corsMiddleware allows the configured frontend origin with credentials.
func corsMiddleware(origin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-admin-key")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records latency per route template.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
