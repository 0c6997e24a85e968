// Package tgui provides small Telegram text helpers:
//   - HTML escaping and links for parse_mode=HTML
//   - Rune-aware truncation
//   - Splitting long messages into sendMessage-sized chunks without
//     breaking <a ...>...</a> links
package tgui
