// Package errors defines the tagged error taxonomy of the issuer callback
// service and the single mapping boundary that converts a tagged error into
// the fixed external error shape: {"description": "..."} plus an HTTP status.
package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// Service-level sentinel errors. The state machine returns exactly one of
// these for every refused operation; the HTTP boundary maps them 1:1.
var (
	// ErrMissingField covers absent or empty request fields, checked before
	// any storage call is made.
	ErrMissingField = errors.New("missing required field")

	// ErrLicenseNotFound is returned by lookups for an unknown (key, aud) pair.
	ErrLicenseNotFound = errors.New("license not found")

	// ErrLicenseNotRegistered is returned by add for a key that does not
	// exist. The calling protocol expects a conflict here, not a 404.
	ErrLicenseNotRegistered = errors.New("license not registered")

	// ErrLicenseUnavailable is returned by add when the license exists but is
	// not in the available state. It covers "already assigned" and any future
	// non-available status uniformly.
	ErrLicenseUnavailable = errors.New("license not available")
)

// APIError is the external error representation. The body shape is fixed by
// the calling client: always {"description": "<message>"}.
type APIError struct {
	StatusCode  int    `json:"-"`
	Description string `json:"description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Description
}

// Render implements the render.Renderer interface for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError with the given status and description.
func New(statusCode int, description string) *APIError {
	return &APIError{StatusCode: statusCode, Description: description}
}

// Fixed description strings of the external contract.
var (
	ErrMissingParams    = New(http.StatusBadRequest, "Missing license key or product ID.")
	ErrKeyNotFound      = New(http.StatusNotFound, "License key not found for the specified product.")
	ErrMissingBody      = New(http.StatusBadRequest, "Request body is missing")
	ErrMissingAddFields = New(http.StatusBadRequest, "Request is missing key data or entity ID.")
	ErrKeyNotRegistered = New(http.StatusConflict, "The provided license key does not exist.")
	ErrKeyUnavailable   = New(http.StatusConflict, "This license key is not available to be added.")
	ErrNoLicenses       = New(http.StatusBadRequest, "No licenses specified for removal.")
	ErrInternal         = New(http.StatusInternalServerError, "An internal server error occurred.")
)

// MapGetError converts a tagged error from the get_license path. Anything
// outside the taxonomy (storage failure, timeout) degrades to the generic
// internal error so storage detail never reaches the client.
func MapGetError(err error) *APIError {
	switch {
	case errors.Is(err, ErrMissingField):
		return ErrMissingParams
	case errors.Is(err, ErrLicenseNotFound):
		return ErrKeyNotFound
	default:
		return ErrInternal
	}
}

// MapAddError converts a tagged error from the add_license path. Unknown key
// and not-available both map to 409 per the calling client's expectations.
func MapAddError(err error) *APIError {
	switch {
	case errors.Is(err, ErrMissingField):
		return ErrMissingAddFields
	case errors.Is(err, ErrLicenseNotRegistered):
		return ErrKeyNotRegistered
	case errors.Is(err, ErrLicenseUnavailable):
		return ErrKeyUnavailable
	default:
		return ErrInternal
	}
}

// MapRemoveError converts a tagged error from the remove_license path.
func MapRemoveError(err error) *APIError {
	if errors.Is(err, ErrMissingField) {
		return ErrNoLicenses
	}
	return ErrInternal
}
