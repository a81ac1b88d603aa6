package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTelegramText_Short(t *testing.T) {
	t.Parallel()

	got := splitTelegramText("hello", 10, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("split = %q", got)
	}
	if got := splitTelegramText("", 10, ""); len(got) != 1 || got[0] != "" {
		t.Fatalf("split(empty) = %q, want one empty chunk", got)
	}
}

func TestSplitTelegramText_PrefersNewlines(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	got := splitTelegramText(text, 12, "")
	if len(got) != 2 || got[0] != strings.Repeat("a", 8) || got[1] != strings.Repeat("b", 8) {
		t.Fatalf("split = %q", got)
	}
}

func TestSplitTelegramText_KeepsTagsWhole(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 9) + "<b>bold</b>"
	got := splitTelegramText(text, 12, "HTML")
	if got[0] != strings.Repeat("x", 9) {
		t.Fatalf("first chunk = %q, want the text before the tag", got[0])
	}
	if strings.Join(got, "") != text {
		t.Fatalf("chunks %q do not reassemble the input", got)
	}
}

func TestSplitTelegramText_RuneSafe(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("ä", 25)
	for _, c := range splitTelegramText(text, 10, "") {
		if !utf8.ValidString(c) || utf8.RuneCountInString(c) > 10 {
			t.Fatalf("bad chunk %q", c)
		}
	}
}

func TestSplitTelegramText_BalancesOpenElements(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 30 {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("z", i%7))
		b.WriteString("\n")
	}
	cases := []struct {
		name  string
		open  string
		close string
	}{
		{name: "pre", open: "<pre>", close: "</pre>"},
		{name: "nested", open: "<b><i>", close: "</i></b>"},
		{name: "attrs", open: `<a href="https://example.com/x">`, close: "</a>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			text := tc.open + b.String() + tc.close
			got := splitTelegramText(text, 60, "HTML")
			if len(got) < 2 {
				t.Fatalf("expected several chunks, got %q", got)
			}
			for i, c := range got {
				if n := utf8.RuneCountInString(c); n > 60 {
					t.Fatalf("chunk %d has %d runes: %q", i, n, c)
				}
				if !strings.HasPrefix(c, tc.open) || !strings.HasSuffix(c, tc.close) {
					t.Fatalf("chunk %d not balanced: %q", i, c)
				}
			}
		})
	}
}
