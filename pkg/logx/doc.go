// Package logx configures noterelay's structured logging.
//
// Logger is a small value type over zerolog:
//   - console output stays readable (short timestamp + short caller)
//   - file output is JSON
//   - an optional Telegram sink forwards warnings to a log chat (min-level + rate limit)
package logx
