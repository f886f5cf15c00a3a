package identity

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/monitoring"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Middleware resolves the bearer token on every request and attaches the
// principal and request attribution to the context. Requests without a
// resolvable principal are rejected before reaching any handler.
type Middleware struct {
	resolver *Resolver
	logger   *logger.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(resolver *Resolver, log *logger.Logger) *Middleware {
	return &Middleware{resolver: resolver, logger: log}
}

// Authenticate is the mux middleware enforcing authentication.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			monitoring.RecordAuthAttempt("missing_token")
			writeAuthError(w, types.NewUnauthenticatedError("missing bearer token"))
			return
		}

		principal, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			monitoring.RecordAuthAttempt("rejected")
			writeAuthError(w, err)
			return
		}
		monitoring.RecordAuthAttempt("accepted")

		ctx := WithPrincipal(r.Context(), principal)
		ctx = WithRequestMeta(ctx, RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(types.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    string(types.KindOf(err)),
			"message": "authentication required",
		},
	})
}
