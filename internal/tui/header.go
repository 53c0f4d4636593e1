package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// ASCII art constants for the Gaffer header.
const (
	// asciiArtLogo is the wide mode ASCII art. Uses Unicode block characters
	// for a bold, 3D appearance. 6 lines tall, 49 chars wide, fits
	// comfortably in 80-col terminals.
	asciiArtLogo = ` ██████╗  █████╗ ███████╗███████╗███████╗██████╗
██╔════╝ ██╔══██╗██╔════╝██╔════╝██╔════╝██╔══██╗
██║  ███╗███████║█████╗  █████╗  █████╗  ██████╔╝
██║   ██║██╔══██║██╔══╝  ██╔══╝  ██╔══╝  ██╔══██╗
╚██████╔╝██║  ██║██║     ██║     ███████╗██║  ██║
 ╚═════╝ ╚═╝  ╚═╝╚═╝     ╚═╝     ╚══════╝╚═╝  ╚═╝`

	// narrowHeader is the simple text header for terminals < 80 columns.
	narrowHeader = "═══ GAFFER ═══"

	// wideThreshold is the minimum terminal width for displaying ASCII art.
	wideThreshold = 80
)

// Header renders the Gaffer header component. Supports wide mode (ASCII art)
// and narrow mode (simple text).
type Header struct {
	width int
}

// NewHeader creates a new Header with the specified terminal width.
// Width of 0 or less triggers narrow mode.
func NewHeader(width int) *Header {
	return &Header{width: width}
}

// Render returns the header string, centered for the current width. Wide
// mode (>= 80 cols) shows ASCII art; narrow mode shows simple text.
func (h *Header) Render() string {
	if h.width >= wideThreshold {
		return h.renderWide()
	}
	return h.renderNarrow()
}

// renderWide returns the ASCII art header with gradient colors, centered.
func (h *Header) renderWide() string {
	lines := strings.Split(asciiArtLogo, "\n")
	styledLines := make([]string, 0, len(lines))

	for i, line := range lines {
		colorIdx := i
		if colorIdx >= len(LogoGradientColors) {
			colorIdx = len(LogoGradientColors) - 1
		}
		style := lipgloss.NewStyle().Foreground(LogoGradientColors[colorIdx])

		styledLine := style.Render(line)
		centered := centerText(styledLine, line, h.width)
		styledLines = append(styledLines, centered)
	}

	return strings.Join(styledLines, "\n")
}

// renderNarrow returns the simple text header, centered.
func (h *Header) renderNarrow() string {
	style := lipgloss.NewStyle().Foreground(ColorPrimary)
	styledHeader := style.Render(narrowHeader)
	return centerText(styledHeader, narrowHeader, h.width)
}

// centerText centers styled text based on the original (unstyled) text
// visual width. The styled parameter contains ANSI codes while original is
// plain text for width calculation.
func centerText(styled, original string, totalWidth int) string {
	textWidth := runewidth.StringWidth(original)
	if totalWidth <= 0 || textWidth >= totalWidth {
		return styled
	}
	padding := (totalWidth - textWidth) / 2
	if padding <= 0 {
		return styled
	}
	return strings.Repeat(" ", padding) + styled
}

// TerminalWidth returns the current terminal width. Returns 0 if the width
// cannot be determined, which triggers narrow mode fallbacks.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// RenderHeader renders the Gaffer header at the specified width.
func RenderHeader(width int) string {
	return NewHeader(width).Render()
}

// RenderHeaderAuto renders the Gaffer header, auto-detecting terminal width.
// Uses narrow mode if width detection fails.
func RenderHeaderAuto() string {
	return NewHeader(TerminalWidth()).Render()
}
