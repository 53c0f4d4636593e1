package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_RenderNarrow(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	out := NewHeader(40).Render()

	assert.Contains(t, out, "GAFFER")
	assert.NotContains(t, out, "█", "narrow mode must not use ASCII art")

	// Centered: (40 - 14) / 2 = 13 leading spaces.
	assert.True(t, strings.HasPrefix(out, strings.Repeat(" ", 13)))
}

func TestHeader_RenderWide(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	out := NewHeader(100).Render()

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, out, "█")

	// Logo is 49 columns, centered in 100: (100 - 49) / 2 = 25 leading
	// spaces on every line.
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, strings.Repeat(" ", 25)))
	}
}

func TestHeader_ZeroWidthFallsBackToNarrow(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	out := NewHeader(0).Render()
	assert.Contains(t, out, "GAFFER")
	assert.NotContains(t, out, "█")
}

func TestHeader_ExactThresholdUsesWide(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	out := NewHeader(wideThreshold).Render()
	assert.Contains(t, out, "█")
}

func TestRenderHeader(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	assert.Equal(t, NewHeader(60).Render(), RenderHeader(60))
}

func TestCenterText(t *testing.T) {
	t.Parallel()

	// Plain centering.
	assert.Equal(t, "  ab", centerText("ab", "ab", 6))

	// Wider than the terminal: returned unchanged.
	assert.Equal(t, "abcdef", centerText("abcdef", "abcdef", 4))

	// Zero width: returned unchanged.
	assert.Equal(t, "ab", centerText("ab", "ab", 0))

	// Styled text centers on the plain width.
	styled := "\x1b[36mab\x1b[0m"
	assert.Equal(t, "  "+styled, centerText(styled, "ab", 6))
}
