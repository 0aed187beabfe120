// Package v1 defines the request payloads of the issuer callback API.
package v1

// LicenseRef identifies one license inside a request payload. The calling
// client sends the same pair it received from get_license.
type LicenseRef struct {
	Key string `json:"key" validate:"required"`
	Aud string `json:"aud,omitempty"`
}

// AddLicenseRequest is the body of POST /add_license.
type AddLicenseRequest struct {
	License  LicenseRef `json:"license" validate:"required"`
	EntityID string     `json:"entityId" validate:"required"`
}

// LicenseClusterRef is the cluster wrapper the client sends on removal.
type LicenseClusterRef struct {
	Licenses []LicenseRef `json:"licenses"`
}

// RemoveLicenseRequest is the body of POST /remove_license.
type RemoveLicenseRequest struct {
	LicenseCluster LicenseClusterRef `json:"licenseCluster"`
}
