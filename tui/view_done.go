package tui

import (
	"sort"

	"github.com/njyeung/iglogin/login"
)

func (m Model) viewDone() string {
	out := m.outcome
	if out == nil {
		return ""
	}
	help := navStyle.Render("enter/q: exit")

	if out.Success() {
		lines := []string{
			successStyle.Render("Logged in"),
			"",
			labelStyle.Render("credential ") + maskSecret(out.Credential),
		}
		if out.Token != nil && out.Token.UserID != "" {
			lines = append(lines, labelStyle.Render("user id    ")+out.Token.UserID)
		}
		return block(append(lines, "", help)...)
	}

	lines := []string{
		errorStyle.Render("Login failed: " + login.KindOf(out.Err).String()),
		"",
		truncate(out.Err.Error(), m.width-len(indent)),
	}
	if len(out.Params) > 0 {
		lines = append(lines, "")
		keys := make([]string, 0, len(out.Params))
		for k := range out.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, labelStyle.Render(k)+" "+truncate(out.Params[k], m.width-len(indent)-len(k)-1))
		}
	}
	return block(append(lines, "", help)...)
}

// maskSecret keeps only the first few characters of a credential
func maskSecret(s string) string {
	const keep = 6
	if len(s) <= keep {
		return s
	}
	return s[:keep] + "…"
}
