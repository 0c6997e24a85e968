package tgui

import (
	"regexp"
	"unicode/utf8"
)

const (
	anchorOpen  = "<a "
	anchorClose = "</a>"
)

var lineBreak = regexp.MustCompile(`\r\n|[\n\r\v\f\x{85}\x{2028}\x{2029}]`)

// Split breaks msg into chunks of at most max runes.
//
// Whole lines are packed first, joined by "\n". A line that cannot fit on its
// own is cut by SplitLine. Chunks keep their original order. max <= 0 means
// MaxMessageLen.
func Split(msg string, max int) []string {
	if max <= 0 {
		max = MaxMessageLen
	}
	if utf8.RuneCountInString(msg) <= max {
		return []string{msg}
	}

	var (
		parts   []string
		current string
		open    bool // current holds a started chunk (it may be "")
	)
	flush := func() {
		if open {
			parts = append(parts, current)
		}
		current, open = "", false
	}

	for _, line := range lineBreak.Split(msg, -1) {
		candidate := line
		if open {
			candidate = current + "\n" + line
		}
		if utf8.RuneCountInString(candidate) <= max {
			current, open = candidate, true
			continue
		}

		flush()
		for _, piece := range SplitLine(line, max) {
			if !open {
				current, open = piece, true
			} else if joined := current + "\n" + piece; utf8.RuneCountInString(joined) <= max {
				current = joined
			} else {
				flush()
				current, open = piece, true
			}
			if utf8.RuneCountInString(current) == max {
				flush()
			}
		}
	}
	flush()
	return parts
}

// SplitLine cuts a single line (no line breaks) into pieces of at most max
// runes without breaking <a ...>...</a> links where possible.
//
// For every max-rune window the cut is, in order of preference:
//   - right after the last "</a>" that follows an "<a ";
//   - right before an "<a " whose "</a>" is outside the window;
//   - right before an "<a " that starts inside the window but ends past it;
//   - after the last space (the space stays on the left piece);
//   - exactly at max.
//
// A cut at the very start of the window falls back to max.
func SplitLine(line string, max int) []string {
	if max <= 0 {
		max = MaxMessageLen
	}
	rest := []rune(line)
	var out []string
	for len(rest) > max {
		window := rest[:max]
		cut := -1

		lastClose := lastIndex(window, anchorClose)
		lastOpen := lastIndex(window, anchorOpen)
		straddle := straddlingOpen(rest, max)
		switch {
		case lastOpen >= 0 && lastClose > lastOpen:
			cut = lastClose + len(anchorClose)
		case lastOpen >= 0:
			cut = lastOpen
		case straddle >= 0:
			cut = straddle
		default:
			if sp := lastIndex(window, " "); sp >= 1 {
				cut = sp + 1
			}
		}
		if cut < 1 || cut > max {
			cut = max
		}
		out = append(out, string(rest[:cut]))
		rest = rest[cut:]
	}
	return append(out, string(rest))
}

// lastIndex returns the rune offset of the last occurrence of sub in rs, or -1.
func lastIndex(rs []rune, sub string) int {
	pat := []rune(sub)
	for i := len(rs) - len(pat); i >= 0; i-- {
		match := true
		for j, r := range pat {
			if rs[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// straddlingOpen returns the offset of an "<a " that begins before max but
// ends after it, or -1.
func straddlingOpen(rest []rune, max int) int {
	end := min(len(rest), max+len(anchorOpen)-1)
	if end <= max {
		return -1
	}
	if i := lastIndex(rest[:end], anchorOpen); i >= 0 && i < max && i+len(anchorOpen) > max {
		return i
	}
	return -1
}
