package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"issuerd/internal/config"
)

// BasicAuth enforces HTTP Basic authentication against the configured
// issuer credential pair. Comparison is constant-time over SHA-256 digests
// so neither length nor prefix of the expected values leaks through timing.
func BasicAuth(cfg config.IssuerConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	wantID := sha256.Sum256([]byte(cfg.ID))
	wantSecret := sha256.Sum256([]byte(cfg.Secret))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, secret, ok := r.BasicAuth()
			if ok {
				gotID := sha256.Sum256([]byte(id))
				gotSecret := sha256.Sum256([]byte(secret))
				idMatch := subtle.ConstantTimeCompare(gotID[:], wantID[:]) == 1
				secretMatch := subtle.ConstantTimeCompare(gotSecret[:], wantSecret[:]) == 1
				if idMatch && secretMatch {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.WarnContext(r.Context(), "authentication failed",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"credentials_present", ok,
			)

			w.Header().Set("WWW-Authenticate", `Basic realm="Login Required"`)
			http.Error(w, "Could not verify your access level for that URL.\nYou have to login with proper credentials", http.StatusUnauthorized)
		})
	}
}
