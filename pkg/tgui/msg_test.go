package tgui

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestBuilder_EscapesHTML(t *testing.T) {
	t.Parallel()

	m := New().Title("a<b").Line("x & y").KV("when", "<now>").Pre("1 < 2\n").Build()
	want := "<b>a&lt;b</b>\nx &amp; y\n<b>when</b>: &lt;now&gt;\n<pre>1 &lt; 2</pre>"
	if m.Text != want {
		t.Fatalf("Text = %q, want %q", m.Text, want)
	}
	if m.Opt.ParseMode != "HTML" || !m.Opt.DisablePreview {
		t.Fatalf("Opt = %+v, want HTML with preview disabled", m.Opt)
	}
	if m.Opt.ReplyMarkupAdapter != nil {
		t.Fatalf("markup set without Inline")
	}
}

func TestBuilder_Plain(t *testing.T) {
	t.Parallel()

	m := New().ParseMode("").Line("a<b").Build()
	if m.Text != "a<b" {
		t.Fatalf("Text = %q, want unescaped", m.Text)
	}
}

func TestInline_AttachesMarkup(t *testing.T) {
	t.Parallel()

	kb := NewInline().Row(Btn("+10m", "10m_cb"), Btn("+1h", "1h_cb")).Row(Btn("Save", "save_cb"))
	if got := len(kb.Rows()); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
	m := New().Line("x").Inline(kb).Build()
	rm, ok := m.Opt.ReplyMarkupAdapter.(*tele.ReplyMarkup)
	if !ok || rm != kb.Markup() {
		t.Fatalf("ReplyMarkupAdapter = %#v, want the keyboard markup", m.Opt.ReplyMarkupAdapter)
	}
	if got := kb.Rows()[1][0].Data; got != "save_cb" {
		t.Fatalf("save button data = %q", got)
	}
}
