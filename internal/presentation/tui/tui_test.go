package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_PlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "The Cave")

	out := buf.String()
	assert.Contains(t, out, "The Cave")
	assert.NotContains(t, out, "\x1b[")
	assert.Equal(t, len(bannerLines)+4, strings.Count(out, "\n"))
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer(40)
	out, err := render("# Hall\n\nYou stand in a **hall**.")
	require.NoError(t, err)
	assert.Contains(t, out, "Hall")
	assert.Contains(t, out, "hall")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
	assert.Equal(t, 80, Width(&bytes.Buffer{}, 80))
}
