package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_NotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))

	render := NewRenderer(f)
	out, err := render("**Appointment ID:** 42")
	require.NoError(t, err)
	assert.Equal(t, "**Appointment ID:** 42", out)

	assert.Equal(t, "Approve?", NewStyle(f)("Approve?"))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "hospital support assistant v1.2.3")
}
