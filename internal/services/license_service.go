// Package services holds the license state machine: the pure decision layer
// between the HTTP boundary and the store. It decides which transitions are
// allowed and tags every refusal, while the store supplies the atomicity that
// makes the decisions safe under concurrency. The service itself is stateless
// between calls.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	apperrors "issuerd/internal/errors"
	"issuerd/internal/infrastructure"
	"issuerd/internal/store"
	"issuerd/pkg/contracts/domain"
)

// LicenseService provides the license lifecycle operations.
type LicenseService interface {
	// GetLicense looks up a record by its (key, productID) pair.
	GetLicense(ctx context.Context, key, productID string) (*domain.LicenseRecord, error)

	// AddLicense assigns an available license to an entity. All three fields
	// are validated before any storage call is made.
	AddLicense(ctx context.Context, key, productID, entityID string) (*domain.LicenseRecord, error)

	// RemoveLicense releases the given keys back to available and returns the
	// number of records transitioned. Releasing an already-available or
	// unknown key is a silent no-op.
	RemoveLicense(ctx context.Context, keys []string) (int, error)
}

type licenseService struct {
	store   store.Store
	logger  *slog.Logger
	metrics *infrastructure.LicenseMetrics
}

// NewLicenseService creates the state machine over the given store. metrics
// may be nil when observability is disabled.
func NewLicenseService(s store.Store, logger *slog.Logger, metrics *infrastructure.LicenseMetrics) LicenseService {
	return &licenseService{
		store:   s,
		logger:  logger.With(slog.String("service", "license")),
		metrics: metrics,
	}
}

func (s *licenseService) GetLicense(ctx context.Context, key, productID string) (*domain.LicenseRecord, error) {
	if key == "" || productID == "" {
		return nil, apperrors.ErrMissingField
	}

	rec, err := s.store.Lookup(ctx, key, productID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.InfoContext(ctx, "no license found",
			slog.String("license_key", maskKey(key)),
			slog.String("product_id", productID))
		infrastructure.RecordOutcome(ctx, s.lookupCounter(), "not_found")
		return nil, apperrors.ErrLicenseNotFound
	}
	if err != nil {
		infrastructure.RecordOutcome(ctx, s.lookupCounter(), "error")
		return nil, fmt.Errorf("license lookup failed: %w", err)
	}

	infrastructure.RecordOutcome(ctx, s.lookupCounter(), "found")
	return rec, nil
}

func (s *licenseService) AddLicense(ctx context.Context, key, productID, entityID string) (*domain.LicenseRecord, error) {
	if key == "" || productID == "" || entityID == "" {
		return nil, apperrors.ErrMissingField
	}

	rec, err := s.store.Assign(ctx, key, productID, entityID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.InfoContext(ctx, "assignment refused, key not registered",
			slog.String("license_key", maskKey(key)),
			slog.String("product_id", productID))
		infrastructure.RecordOutcome(ctx, s.assignCounter(), "not_registered")
		return nil, apperrors.ErrLicenseNotRegistered
	case errors.Is(err, store.ErrNotAvailable):
		s.logger.InfoContext(ctx, "assignment refused, license not available",
			slog.String("license_key", maskKey(key)),
			slog.String("product_id", productID))
		infrastructure.RecordOutcome(ctx, s.assignCounter(), "unavailable")
		return nil, apperrors.ErrLicenseUnavailable
	case err != nil:
		infrastructure.RecordOutcome(ctx, s.assignCounter(), "error")
		return nil, fmt.Errorf("license assignment failed: %w", err)
	}

	s.logger.InfoContext(ctx, "license assigned to entity",
		slog.String("license_key", maskKey(key)),
		slog.String("product_id", productID),
		slog.String("entity_id", entityID))
	infrastructure.RecordOutcome(ctx, s.assignCounter(), "granted")
	return rec, nil
}

func (s *licenseService) RemoveLicense(ctx context.Context, keys []string) (int, error) {
	keys = normalizeKeys(keys)
	if len(keys) == 0 {
		return 0, apperrors.ErrMissingField
	}

	released, err := s.store.Release(ctx, keys)
	if err != nil {
		infrastructure.RecordOutcome(ctx, s.releaseCounter(), "error")
		return 0, fmt.Errorf("license release failed: %w", err)
	}

	s.logger.InfoContext(ctx, "release processed",
		slog.Int("requested", len(keys)),
		slog.Int("released", released))
	infrastructure.RecordOutcome(ctx, s.releaseCounter(), "released")
	return released, nil
}

// metricCounter lets the counter accessors return a typed nil when metrics
// are disabled.
type metricCounter = metric.Int64Counter

func (s *licenseService) lookupCounter() metricCounter {
	if s.metrics != nil {
		return s.metrics.LookupsTotal
	}
	return nil
}

func (s *licenseService) assignCounter() metricCounter {
	if s.metrics != nil {
		return s.metrics.AssignmentsTotal
	}
	return nil
}

func (s *licenseService) releaseCounter() metricCounter {
	if s.metrics != nil {
		return s.metrics.ReleasesTotal
	}
	return nil
}

// normalizeKeys drops empty entries while preserving order.
func normalizeKeys(keys []string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// maskKey masks a license key for logging.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
