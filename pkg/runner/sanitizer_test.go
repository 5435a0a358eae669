package runner

import (
	"strings"
	"testing"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"under limit", DefaultMaxInputSize - 1, false},
		{"exact limit", DefaultMaxInputSize, false},
		{"over limit", DefaultMaxInputSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("a", tt.size))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"plain", "book me with Dr. Smith", "book me with Dr. Smith"},
		{"newline and tab", "line1\nline2\tx", "line1\nline2\tx"},
		{"crlf", "line1\r\nline2", "line1\nline2"},
		{"ansi escape", "\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"null and bell", "a\x00b\x07", "ab"},
		{"padding", "  hello \n", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_Rejects(t *testing.T) {
	_, err := SanitizeInput("\xbd\xb2\x3d\xbc")
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	_, err = SanitizeInput(" \x00\t ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.True(t, IsInputError(err))
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")
	assert.Equal(t, 10, MaxInputSize())

	_, err := SanitizeInput("12345678901")
	assert.ErrorIs(t, err, ErrInputTooLarge)
	_, err = SanitizeInput("12345")
	assert.NoError(t, err)

	t.Setenv(EnvMaxInputSize, "nope")
	assert.Equal(t, DefaultMaxInputSize, MaxInputSize())
}
