package tui

func (m Model) viewError() string {
	return "\n" + block(
		errorStyle.Render("Could not open the login page"),
		"",
		truncate(m.err.Error(), m.width-len(indent)),
		"",
		navStyle.Render("enter/q: exit"),
	)
}
