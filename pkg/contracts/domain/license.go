// Package domain contains the external wire types consumed by the license
// management client. These types are the Single Source of Truth for every
// layer of the application; handlers and services must not invent their own
// response shapes.
package domain

import "time"

// LicenseStatus represents the lifecycle state of a stored license.
type LicenseStatus string

const (
	LicenseStatusAvailable LicenseStatus = "available"
	LicenseStatusAssigned  LicenseStatus = "assigned"
)

// LicenseRecord is the internal representation of one row of the licenses
// table. EntityID and DateAssigned are set iff Status is assigned.
type LicenseRecord struct {
	LicenseKey    string            `json:"license_key" db:"license_key"`
	ProductID     string            `json:"product_id" db:"product_id"`
	Status        LicenseStatus     `json:"status" db:"status"`
	EntityID      *string           `json:"entity_id,omitempty" db:"entity_id"`
	NumberOfSeats int               `json:"number_of_seats" db:"numberOfSeats"`
	Expiration    *time.Time        `json:"expiration,omitempty" db:"exp"`
	Editions      map[string]string `json:"editions" db:"editions"`
	DateCreated   time.Time         `json:"date_created" db:"date_created"`
	DateAssigned  *time.Time        `json:"date_assigned,omitempty" db:"date_assigned"`
}

// License is the wire object returned by get_license and wrapped by
// LicenseCluster for add_license. Exp is epoch seconds, rendered as an
// explicit null when the license does not expire.
type License struct {
	ID            string            `json:"id"`
	Key           string            `json:"key"`
	Aud           string            `json:"aud"`
	Iss           string            `json:"iss"`
	Exp           *int64            `json:"exp"`
	NumberOfSeats int               `json:"numberOfSeats"`
	Editions      map[string]string `json:"editions"`
}

// LicenseCluster is the calling client's wire format for a group of one or
// more License objects returned together.
type LicenseCluster struct {
	Licenses []License `json:"licenses"`
}

// FormatLicense maps a stored record into the external License shape for the
// given issuer identity. Pure and total over well-formed records.
func FormatLicense(rec *LicenseRecord, issuerID string) License {
	var exp *int64
	if rec.Expiration != nil {
		secs := rec.Expiration.Unix()
		exp = &secs
	}
	return License{
		ID:            rec.LicenseKey,
		Key:           rec.LicenseKey,
		Aud:           rec.ProductID,
		Iss:           issuerID,
		Exp:           exp,
		NumberOfSeats: rec.NumberOfSeats,
		Editions:      rec.Editions,
	}
}

// FormatLicenseCluster wraps a single formatted license in the cluster shape
// used by the add_license response.
func FormatLicenseCluster(rec *LicenseRecord, issuerID string) LicenseCluster {
	return LicenseCluster{Licenses: []License{FormatLicense(rec, issuerID)}}
}
