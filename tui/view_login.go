package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const indent = "    "

func (m Model) viewLogin() string {
	statusLine := m.spinner.View() + " Waiting for Instagram to redirect back..."
	if m.status != "" {
		statusLine = errorStyle.Render(m.status)
	}

	return block(
		titleStyle.Render("Log in to Instagram"),
		"",
		"Finish logging in in the browser window.",
		"",
		urlStyle.Render(truncate(m.authURL, m.width-len(indent))),
		"",
		statusLine,
		"",
		navStyle.Render("r: fresh session • q: cancel"),
	)
}

func (m Model) viewExchanging() string {
	return block(
		titleStyle.Render("Log in to Instagram"),
		"",
		m.spinner.View()+" Exchanging authorization code...",
	)
}

// block joins lines and indents every one of them
func block(lines ...string) string {
	return indent + strings.ReplaceAll(strings.Join(lines, "\n"), "\n", "\n"+indent)
}

// truncate shortens s to fit in width terminal cells
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
