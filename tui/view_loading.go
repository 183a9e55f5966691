package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

var logo = []string{
	" _         _             _",
	"(_)  __ _ | |  ___   __ _ (_) _ __",
	"| | / _` || | / _ \\ / _` || || '_ \\",
	"| || (_| || || (_) || (_| || || | | |",
	"|_| \\__, ||_| \\___/  \\__, ||_||_| |_|",
	"    |___/            |___/",
}

func (m Model) viewLoading() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("\n\n   %s %s\n\n", m.spinner.View(), m.status)
	}

	return renderLoadingScreen(m.width, m.height, m.spinner.View()+" "+m.status)
}

func renderLoadingScreen(width, height int, status string) string {
	block := append(append([]string{}, logo...), "", status)
	startRow := (height - len(block)) / 2

	var b strings.Builder
	for y := range height {
		line := strings.Repeat(" ", width)
		if y >= startRow && y < startRow+len(block) {
			line = center(block[y-startRow], width, y-startRow < len(logo))
		}
		b.WriteString(line)
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// center pads text to width, truncating it first if it doesn't fit
func center(text string, width int, styled bool) string {
	text = runewidth.Truncate(text, width, "")
	pad := width - runewidth.StringWidth(text)
	left := pad / 2
	if styled {
		text = titleStyle.Render(text)
	}
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}
