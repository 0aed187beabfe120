package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEditions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "default single edition",
			raw:  `{"en": "Commercial"}`,
			want: map[string]string{"en": "Commercial"},
		},
		{
			name: "multiple locales",
			raw:  `{"en": "Commercial", "de": "Kommerziell"}`,
			want: map[string]string{"en": "Commercial", "de": "Kommerziell"},
		},
		{
			name: "empty column",
			raw:  "",
			want: map[string]string{},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: map[string]string{},
		},
		{
			name:    "malformed json",
			raw:     `{"en": `,
			wantErr: true,
		},
		{
			name:    "wrong value type",
			raw:     `{"en": 7}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEditions(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"ABCD-EFGH-IJKL", "ABCD****IJKL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskKey(tt.key))
	}
}

// TestSchemaColumns pins the deployed column set. The quoted camel-case
// columns are referenced verbatim in queries, so a rename here would break
// them silently in a fresh deployment.
func TestSchemaColumns(t *testing.T) {
	for _, col := range []string{
		"license_key",
		"product_id",
		"status",
		"entity_id",
		`"numberOfSeats"`,
		`"exp"`,
		`"editions"`,
		"date_created",
		"date_assigned",
	} {
		assert.Contains(t, schemaSQL, col)
	}

	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS licenses")
	assert.Contains(t, schemaSQL, `DEFAULT '{"en": "Commercial"}'`)
	assert.Contains(t, schemaSQL, "DEFAULT 'available'")

	// Every column the scanner expects appears in the select list, in order.
	cols := strings.Split(recordColumns, ", ")
	require.Len(t, cols, 9)
	assert.Equal(t, "license_key", cols[0])
	assert.Equal(t, "date_assigned", cols[8])
}
