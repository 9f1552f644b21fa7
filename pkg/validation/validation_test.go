package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "user@example.com", false},
		{"valid with plus", "user+tag@example.com", false},
		{"empty", "", true},
		{"missing at", "userexample.com", true},
		{"missing tld", "user@example", true},
		{"too long", strings.Repeat("a", 250) + "@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNoteID(t *testing.T) {
	assert.NoError(t, ValidateNoteID("note_abc123"))
	assert.Error(t, ValidateNoteID(""))
	assert.Error(t, ValidateNoteID("note/../../etc"))
	assert.Error(t, ValidateNoteID(strings.Repeat("a", 101)))
}

func TestValidateClientID(t *testing.T) {
	assert.NoError(t, ValidateClientID("c1"))
	assert.Error(t, ValidateClientID(""))
	assert.Error(t, ValidateClientID("bad client id"))
}

func TestValidateNoteTitle(t *testing.T) {
	assert.NoError(t, ValidateNoteTitle(""))
	assert.NoError(t, ValidateNoteTitle("Groceries"))
	assert.Error(t, ValidateNoteTitle(strings.Repeat("t", 256)))
}

func TestValidateCategoryName(t *testing.T) {
	assert.NoError(t, ValidateCategoryName("Work"))
	assert.Error(t, ValidateCategoryName("   "))
	assert.Error(t, ValidateCategoryName(strings.Repeat("c", 101)))
}
