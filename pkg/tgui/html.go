package tgui

import (
	"html"
	"strings"
)

// H is a string that is already safe for parse_mode=HTML.
type H string

func (h H) String() string { return string(h) }

// Esc escapes s for HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Link builds an <a href> element. Both text and url are escaped; an empty
// url degrades to the escaped text alone.
func Link(text, url string) H {
	if strings.TrimSpace(url) == "" {
		return Esc(text)
	}
	return H(`<a href="` + html.EscapeString(url) + `">` + html.EscapeString(text) + `</a>`)
}
