// Package http contains the HTTP handlers of the issuer callback API. The
// handlers decode and validate requests, delegate to the license service,
// and hand every failure to the error-mapping boundary in internal/errors so
// all routes share identical failure formatting.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "issuerd/internal/errors"
	"issuerd/internal/middleware"
	"issuerd/internal/services"
	v1 "issuerd/pkg/contracts/api/v1"
	"issuerd/pkg/contracts/domain"
)

// defaultStorageTimeout bounds each storage round-trip when no explicit
// query timeout is configured.
const defaultStorageTimeout = 5 * time.Second

// LicenseHandler handles the license lifecycle endpoints.
type LicenseHandler struct {
	service        services.LicenseService
	issuerID       string
	storageTimeout time.Duration
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewLicenseHandler creates a new license handler. issuerID is rendered as
// the iss claim of every License object; storageTimeout bounds each storage
// round-trip and comes from DATABASE_QUERY_TIMEOUT.
func NewLicenseHandler(service services.LicenseService, issuerID string, storageTimeout time.Duration, logger *slog.Logger) *LicenseHandler {
	if storageTimeout <= 0 {
		storageTimeout = defaultStorageTimeout
	}
	return &LicenseHandler{
		service:        service,
		issuerID:       issuerID,
		storageTimeout: storageTimeout,
		validate:       validator.New(),
		logger:         logger.With(slog.String("handler", "license")),
	}
}

// RegisterRoutes mounts the license endpoints on the given router. The caller
// is expected to have applied the authentication middleware already.
func (h *LicenseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/get_license", h.GetLicense)
	r.Post("/add_license", h.AddLicense)
	r.Post("/remove_license", h.RemoveLicense)
}

// GetLicense handles GET /get_license?key=&aud=.
func (h *LicenseHandler) GetLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.get_license",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/get_license"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
		),
	)
	defer span.End()

	key := r.URL.Query().Get("key")
	productID := r.URL.Query().Get("aud")
	if key == "" || productID == "" {
		span.SetAttributes(attribute.String("error.type", "missing_params"))
		render.Render(w, r, apperrors.ErrMissingParams) //nolint:errcheck
		return
	}

	lookupCtx, cancel := h.storageContext(ctx)
	defer cancel()

	rec, err := h.service.GetLicense(lookupCtx, key, productID)
	if err != nil {
		span.RecordError(err)
		h.renderError(w, r, apperrors.MapGetError(err), err)
		return
	}

	span.SetAttributes(attribute.String("license.status", string(rec.Status)))
	render.JSON(w, r, domain.FormatLicense(rec, h.issuerID))
}

// AddLicense handles POST /add_license.
func (h *LicenseHandler) AddLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.add_license",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/add_license"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
		),
	)
	defer span.End()

	var req v1.AddLicenseRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		span.SetAttributes(attribute.String("error.type", "request_decode"))
		h.logger.WarnContext(ctx, "failed to decode add_license request",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.ErrMissingBody) //nolint:errcheck
		return
	}
	// An empty object counts as a missing body, not as missing fields.
	if req == (v1.AddLicenseRequest{}) {
		span.SetAttributes(attribute.String("error.type", "request_decode"))
		render.Render(w, r, apperrors.ErrMissingBody) //nolint:errcheck
		return
	}
	if err := h.validate.Struct(&req); err != nil || req.License.Aud == "" {
		span.SetAttributes(attribute.String("error.type", "request_validation"))
		render.Render(w, r, apperrors.ErrMissingAddFields) //nolint:errcheck
		return
	}

	assignCtx, cancel := h.storageContext(ctx)
	defer cancel()

	rec, err := h.service.AddLicense(assignCtx, req.License.Key, req.License.Aud, req.EntityID)
	if err != nil {
		span.RecordError(err)
		h.renderError(w, r, apperrors.MapAddError(err), err)
		return
	}

	span.SetAttributes(attribute.String("license.result", "granted"))
	render.JSON(w, r, domain.FormatLicenseCluster(rec, h.issuerID))
}

// RemoveLicense handles POST /remove_license. A successful response is a
// 200 with an empty body regardless of how many keys actually transitioned.
func (h *LicenseHandler) RemoveLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.remove_license",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/remove_license"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
		),
	)
	defer span.End()

	var req v1.RemoveLicenseRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		span.SetAttributes(attribute.String("error.type", "request_decode"))
		h.logger.WarnContext(ctx, "failed to decode remove_license request",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.ErrMissingBody) //nolint:errcheck
		return
	}

	keys := make([]string, 0, len(req.LicenseCluster.Licenses))
	for _, ref := range req.LicenseCluster.Licenses {
		keys = append(keys, ref.Key)
	}
	if len(keys) == 0 {
		span.SetAttributes(attribute.String("error.type", "no_licenses"))
		render.Render(w, r, apperrors.ErrNoLicenses) //nolint:errcheck
		return
	}

	releaseCtx, cancel := h.storageContext(ctx)
	defer cancel()

	released, err := h.service.RemoveLicense(releaseCtx, keys)
	if err != nil {
		span.RecordError(err)
		h.renderError(w, r, apperrors.MapRemoveError(err), err)
		return
	}

	span.SetAttributes(attribute.Int("license.released", released))
	w.WriteHeader(http.StatusOK)
}

// renderError logs the underlying cause and renders the mapped response.
// Internal failures are logged at error level; refused operations at info.
func (h *LicenseHandler) renderError(w http.ResponseWriter, r *http.Request, mapped *apperrors.APIError, cause error) {
	ctx := r.Context()
	if mapped.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("error", cause.Error()),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method))
	} else {
		h.logger.InfoContext(ctx, "request refused",
			slog.Int("status", mapped.StatusCode),
			slog.String("path", r.URL.Path))
	}
	render.Render(w, r, mapped) //nolint:errcheck
}

// storageContext derives the bounded context for a storage round-trip.
func (h *LicenseHandler) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.storageTimeout)
}
