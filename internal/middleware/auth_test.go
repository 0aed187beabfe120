package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"issuerd/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("passed")) //nolint:errcheck
	})
}

func TestBasicAuth(t *testing.T) {
	cfg := config.IssuerConfig{ID: "issuer-1", Secret: "s3cret"}
	handler := BasicAuth(cfg, testLogger())(okHandler())

	t.Run("valid credentials pass through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get_license", nil)
		req.SetBasicAuth("issuer-1", "s3cret")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "passed", w.Body.String())
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name       string
			id, secret string
			noHeader   bool
		}{
			{name: "no credentials", noHeader: true},
			{name: "wrong id", id: "intruder", secret: "s3cret"},
			{name: "wrong secret", id: "issuer-1", secret: "guess"},
			{name: "both wrong", id: "intruder", secret: "guess"},
			{name: "swapped", id: "s3cret", secret: "issuer-1"},
			{name: "empty pair", id: "", secret: ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/get_license", nil)
				if !tt.noHeader {
					req.SetBasicAuth(tt.id, tt.secret)
				}
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				assert.Equal(t, http.StatusUnauthorized, w.Code)
				assert.Equal(t, `Basic realm="Login Required"`, w.Header().Get("WWW-Authenticate"))
				assert.Equal(t,
					"Could not verify your access level for that URL.\nYou have to login with proper credentials\n",
					w.Body.String())
			})
		}
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get_license", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
