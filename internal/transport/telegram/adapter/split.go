package adapter

import "strings"

const telegramTextLimit = 4000

// splitTelegramText cuts s into chunks of at most limit runes, preferring
// newline boundaries. It always returns at least one chunk.
//
// In HTML mode a cut never lands inside a tag, and elements still open at
// a cut are closed at the end of the chunk and reopened at the start of
// the next one, so every chunk is balanced on its own.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	html := strings.EqualFold(parseMode, "HTML")

	var (
		out   []string
		stack []openTag
	)
	start := 0
	for start < len(rs) {
		prefix := reopenTags(stack)
		budget := max(1, limit-runeLen(prefix))
		end := cutPoint(rs, start, budget, html)

		next := stack
		if html {
			for {
				next = trackTags(rs, start, end, stack)
				over := runeLen(prefix) + (end - start) + closeLen(next) - limit
				if over <= 0 || end-start <= 1 {
					break
				}
				// Back off to before the newest element opened in this chunk.
				if at := lastOpened(next); at > start {
					end = at
					continue
				}
				end = cutPoint(rs, start, max(1, end-start-over), true)
			}
		}

		body := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, prefix+body+closeTags(next))

		stack = make([]openTag, len(next))
		for i, t := range next {
			t.at = -1
			stack[i] = t
		}
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// openTag is an element left open at some point of the text. at is the
// rune offset of its tag, or -1 when it was opened by an earlier chunk.
type openTag struct {
	name string
	raw  string
	at   int
}

func cutPoint(rs []rune, start, budget int, html bool) int {
	end := min(start+budget, len(rs))
	if end < len(rs) {
		for i := end - 1; i-start >= budget/3; i-- {
			if rs[i] == '\n' {
				end = i + 1
				break
			}
		}
	}
	if html {
		end = avoidTag(rs, start, end)
	}
	return end
}

// avoidTag moves end back to the start of a tag it would otherwise split.
func avoidTag(rs []rune, start, end int) int {
	if end >= len(rs) {
		return end
	}
	open, closed := -1, -1
	for i := start; i < end; i++ {
		switch rs[i] {
		case '<':
			open = i
		case '>':
			closed = i
		}
	}
	if open > closed && open > start {
		return open
	}
	return end
}

// trackTags returns the open element stack after reading rs[from:to].
func trackTags(rs []rune, from, to int, stack []openTag) []openTag {
	out := append([]openTag(nil), stack...)
	for i := from; i < to; i++ {
		if rs[i] != '<' {
			continue
		}
		j := i + 1
		for j < to && rs[j] != '>' {
			j++
		}
		if j >= to {
			break
		}
		inner := string(rs[i+1 : j])
		switch {
		case strings.HasPrefix(inner, "/"):
			name := tagName(inner[1:])
			for k := len(out) - 1; k >= 0; k-- {
				if out[k].name == name {
					out = out[:k]
					break
				}
			}
		case strings.HasSuffix(inner, "/"):
		default:
			if name := tagName(inner); name != "" {
				out = append(out, openTag{name: name, raw: "<" + inner + ">", at: i})
			}
		}
		i = j
	}
	return out
}

func tagName(inner string) string {
	inner = strings.TrimSpace(inner)
	if i := strings.IndexAny(inner, " \t\n"); i >= 0 {
		inner = inner[:i]
	}
	return strings.ToLower(inner)
}

func lastOpened(stack []openTag) int {
	at := -1
	for _, t := range stack {
		at = max(at, t.at)
	}
	return at
}

func reopenTags(stack []openTag) string {
	var b strings.Builder
	for _, t := range stack {
		b.WriteString(t.raw)
	}
	return b.String()
}

func closeTags(stack []openTag) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i].name + ">")
	}
	return b.String()
}

func closeLen(stack []openTag) int {
	n := 0
	for _, t := range stack {
		n += runeLen(t.name) + 3
	}
	return n
}

func runeLen(s string) int { return len([]rune(s)) }
