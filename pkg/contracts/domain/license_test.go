package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLicense(t *testing.T) {
	exp := time.Unix(1700000000, 0).UTC()

	tests := []struct {
		name    string
		record  LicenseRecord
		wantExp *int64
	}{
		{
			name: "expiring license",
			record: LicenseRecord{
				LicenseKey:    "ABC123",
				ProductID:     "PRODX",
				Status:        LicenseStatusAvailable,
				NumberOfSeats: 1,
				Expiration:    &exp,
				Editions:      map[string]string{"en": "Commercial", "de": "Kommerziell"},
			},
			wantExp: int64Ptr(1700000000),
		},
		{
			name: "non-expiring license",
			record: LicenseRecord{
				LicenseKey:    "DEF456",
				ProductID:     "PRODY",
				Status:        LicenseStatusAssigned,
				NumberOfSeats: 5,
				Editions:      map[string]string{"en": "Commercial"},
			},
			wantExp: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lic := FormatLicense(&tt.record, "issuer-1")

			assert.Equal(t, tt.record.LicenseKey, lic.ID)
			assert.Equal(t, tt.record.LicenseKey, lic.Key)
			assert.Equal(t, tt.record.ProductID, lic.Aud)
			assert.Equal(t, "issuer-1", lic.Iss)
			assert.Equal(t, tt.record.NumberOfSeats, lic.NumberOfSeats)
			assert.Equal(t, tt.record.Editions, lic.Editions)
			if tt.wantExp == nil {
				assert.Nil(t, lic.Exp)
			} else {
				require.NotNil(t, lic.Exp)
				assert.Equal(t, *tt.wantExp, *lic.Exp)
			}
		})
	}
}

func TestFormatLicenseWireShape(t *testing.T) {
	exp := time.Unix(1700000000, 0).UTC()
	rec := &LicenseRecord{
		LicenseKey:    "ABC123",
		ProductID:     "PRODX",
		Status:        LicenseStatusAvailable,
		NumberOfSeats: 1,
		Expiration:    &exp,
		Editions:      map[string]string{"en": "Commercial", "de": "Kommerziell"},
	}

	data, err := json.Marshal(FormatLicense(rec, "issuer-1"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "ABC123", got["id"])
	assert.Equal(t, "ABC123", got["key"])
	assert.Equal(t, "PRODX", got["aud"])
	assert.Equal(t, "issuer-1", got["iss"])
	assert.Equal(t, float64(1700000000), got["exp"])
	assert.Equal(t, float64(1), got["numberOfSeats"])
	assert.Equal(t, map[string]any{"en": "Commercial", "de": "Kommerziell"}, got["editions"])
}

func TestFormatLicenseNullExpRenderedExplicitly(t *testing.T) {
	rec := &LicenseRecord{
		LicenseKey:    "ABC123",
		ProductID:     "PRODX",
		NumberOfSeats: 1,
		Editions:      map[string]string{"en": "Commercial"},
	}

	data, err := json.Marshal(FormatLicense(rec, "issuer-1"))
	require.NoError(t, err)

	// exp must be present as an explicit null, not omitted.
	assert.Contains(t, string(data), `"exp":null`)
}

func TestFormatLicenseCluster(t *testing.T) {
	rec := &LicenseRecord{
		LicenseKey:    "ABC123",
		ProductID:     "PRODX",
		NumberOfSeats: 1,
		Editions:      map[string]string{"en": "Commercial"},
	}

	cluster := FormatLicenseCluster(rec, "issuer-1")

	require.Len(t, cluster.Licenses, 1)
	assert.Equal(t, "ABC123", cluster.Licenses[0].Key)

	data, err := json.Marshal(cluster)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"licenses":[`)
}

func int64Ptr(v int64) *int64 { return &v }
