// Package tgui builds Telegram HTML replies and inline keyboards.
//
// Builder escapes by default when ParseMode is HTML, so callers pass plain
// text unless they use RawLine or the H helpers.
package tgui
