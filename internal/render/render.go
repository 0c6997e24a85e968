// Package render fills notification templates from lazily computed fields.
package render

import (
	"fmt"
	"strings"
	"sync"
)

// Provider computes the value for one placeholder.
type Provider func() (string, error)

// Fields maps a placeholder name (without braces) to its provider.
type Fields map[string]Provider

// Static returns a provider for an already known value.
func Static(v string) Provider {
	return func() (string, error) { return v, nil }
}

// Once wraps p so that it runs at most once, even when it backs several
// placeholders (e.g. the client IP behind {ip_address} and {country}).
func Once(p Provider) Provider {
	var (
		once sync.Once
		v    string
		err  error
	)
	return func() (string, error) {
		once.Do(func() { v, err = p() })
		return v, err
	}
}

// Render replaces every {name} in tpl whose name is present in fields.
//
// Providers are called only for placeholders that occur in tpl, and at most
// once per Render call. Unknown placeholders stay verbatim. Substituted values
// are never scanned again. The first provider error aborts rendering.
func Render(tpl string, fields Fields) (string, error) {
	if len(fields) == 0 || !strings.Contains(tpl, "{") {
		return tpl, nil
	}

	cache := make(map[string]string, len(fields))
	var b strings.Builder
	b.Grow(len(tpl))

	rest := tpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open+1:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		name := rest[open+1 : open+1+end]
		// A nested '{' means the outer one is literal text.
		if i := strings.IndexByte(name, '{'); i >= 0 {
			b.WriteString(rest[:open+1+i])
			rest = rest[open+1+i:]
			continue
		}

		b.WriteString(rest[:open])
		rest = rest[open+end+2:]

		p, ok := fields[name]
		if !ok || p == nil {
			b.WriteString("{" + name + "}")
			continue
		}
		v, done := cache[name]
		if !done {
			var err error
			if v, err = p(); err != nil {
				return "", fmt.Errorf("render {%s}: %w", name, err)
			}
			cache[name] = v
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
