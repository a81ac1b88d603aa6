package alerts

import "strings"

const upcomingLayout = "Mon 2006-01-02 15:04"

// FormatUpcoming renders one "Mon 2024-01-01 09:00 Title" line per item.
func FormatUpcoming(items []DueItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(it.Due.Format(upcomingLayout))
		b.WriteByte(' ')
		b.WriteString(it.Title)
	}
	return b.String()
}
