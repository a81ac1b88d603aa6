package router

import (
	"html"
	"sort"
	"strings"
)

// helpText renders the command list in Telegram HTML.
func (r *Router) helpText() string {
	r.mu.RLock()
	seen := map[*Command]bool{}
	cmds := make([]*Command, 0, len(r.cmds))
	for _, c := range r.cmds {
		if !seen[c] {
			seen[c] = true
			cmds = append(cmds, c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	lines := []string{"<b>Commands</b>"}
	for _, c := range cmds {
		line := "• <code>/" + html.EscapeString(c.Name) + "</code>"
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " - " + html.EscapeString(d)
		}
		lines = append(lines, line)
		if u := strings.TrimSpace(c.Usage); u != "" && u != "/"+c.Name {
			lines = append(lines, "  <code>"+html.EscapeString(u)+"</code>")
		}
	}
	lines = append(lines, "", "Any other text is saved as a note; .ics files are imported as events.")
	return strings.Join(lines, "\n")
}
