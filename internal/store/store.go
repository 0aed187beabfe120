// Package store owns the durable license table and every state transition on
// it. All coordination between concurrent requests happens here through the
// database's transactional guarantees; no other component caches license
// state across requests.
package store

import (
	"context"
	"errors"

	"issuerd/pkg/contracts/domain"
)

// Storage sentinel errors. Callers distinguish a logically refused operation
// (these two) from an operation that could not be attempted (any other error).
var (
	// ErrNotFound means no row matches the (license_key, product_id) pair.
	ErrNotFound = errors.New("license record not found")

	// ErrNotAvailable means the row exists but its status does not permit
	// assignment.
	ErrNotAvailable = errors.New("license record not available")
)

// Store is the contract for the license table. Each operation is a single
// atomic unit of work.
type Store interface {
	// Lookup fetches a record by its (key, productID) pair. Read-only.
	Lookup(ctx context.Context, key, productID string) (*domain.LicenseRecord, error)

	// Assign transitions a record from available to assigned. The read of the
	// current status and the write of the new one happen inside one
	// transaction, so under concurrent callers for the same key exactly one
	// observes success and the rest observe ErrNotAvailable. Returns the
	// post-update record.
	Assign(ctx context.Context, key, productID, entityID string) (*domain.LicenseRecord, error)

	// Release transitions each assigned key back to available, clearing
	// entity_id and date_assigned. Unknown and already-available keys are
	// silently skipped. The batch commits as one transaction and returns the
	// number of records transitioned.
	Release(ctx context.Context, keys []string) (int, error)

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close()
}
