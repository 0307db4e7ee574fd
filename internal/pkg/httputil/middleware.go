package httputil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/opsportal/downtime-pipeline/internal/domain"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Id, X-User-Name, X-Correlation-Id")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// CallerKey stores the caller identity in the request context.
const CallerKey contextKey = "caller"

// Headers the upstream authentication layer attaches to every request.
const (
	HeaderUserID        = "X-User-Id"
	HeaderUserName      = "X-User-Name"
	HeaderCorrelationID = "X-Correlation-Id"
)

// CallerMiddleware collects the caller identity supplied by the upstream
// layer together with request provenance. Session validation itself happens
// upstream; here the identity is only carried for auditing.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		caller := domain.Caller{
			UserID:        r.Header.Get(HeaderUserID),
			UserName:      r.Header.Get(HeaderUserName),
			CorrelationID: correlationID,
			IPAddress:     r.RemoteAddr,
			UserAgent:     r.UserAgent(),
		}

		ctx := context.WithValue(r.Context(), CallerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCaller extracts the caller identity from context.
func GetCaller(ctx context.Context) domain.Caller {
	if caller, ok := ctx.Value(CallerKey).(domain.Caller); ok {
		return caller
	}
	return domain.Caller{}
}
