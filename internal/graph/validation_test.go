package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		max     int
		wantErr string
	}{
		{"zero selects empty page", 0, 20, ""},
		{"within", 10, 20, ""},
		{"at max", 20, 20, ""},
		{"exceeds", 21, 20, "limit exceeds maximum of 20"},
		{"negative", -1, 20, "limit must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLimit(tt.limit, tt.max)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
