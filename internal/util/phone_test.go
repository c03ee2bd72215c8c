package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"already e164", "+14155550100", "+14155550100", false},
		{"missing plus", "14155550100", "+14155550100", false},
		{"whitespace", "  +14155550100 ", "+14155550100", false},
		{"uk number", "+442071838750", "+442071838750", false},
		{"empty", "", "", true},
		{"garbage", "not-a-number", "", true},
		{"too short", "+1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeE164(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
