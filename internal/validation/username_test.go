package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{name: "valid simple", username: "technician1", wantErr: false},
		{name: "valid with dot", username: "budi.santoso", wantErr: false},
		{name: "valid with underscore", username: "field_tech", wantErr: false},
		{name: "valid minimal length", username: "abc", wantErr: false},
		{name: "valid maximal length", username: strings.Repeat("a", 32), wantErr: false},
		{name: "empty", username: "", wantErr: true},
		{name: "too short", username: "ab", wantErr: true},
		{name: "too long", username: strings.Repeat("a", 33), wantErr: true},
		{name: "with space", username: "budi santoso", wantErr: true},
		{name: "with dash", username: "budi-santoso", wantErr: true},
		{name: "with cyrillic", username: "техник1", wantErr: true},
		{name: "with at sign", username: "budi@example", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.NoError(t, ValidatePassword("p"))
	assert.NoError(t, ValidatePassword("correct horse battery staple"))
}
