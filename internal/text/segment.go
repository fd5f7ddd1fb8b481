package text

import (
	"unicode/utf8"

	"github.com/glowlink/glowlink/pkg/protocol"
)

// maxTextBytes is the firmware's per-command text limit; the wire format
// carries the text length in a single byte.
const maxTextBytes = 255

// Segment is a run of plain text or a single emoji codepoint. The badge
// firmware renders the two through different commands, so mixed strings
// have to be split before encoding.
type Segment struct {
	Text  string
	Emoji rune
}

// IsEmoji reports whether the rune falls in one of the codepoint ranges the
// badge firmware ships glyphs for.
func IsEmoji(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F300 && r <= 0x1F5FF: // misc symbols and pictographs
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x2600 && r <= 0x26FF: // misc symbols
		return true
	case r >= 0x2700 && r <= 0x27BF: // dingbats
		return true
	case r == 0x3030 || r == 0x303D:
		return true
	case r == 0x2122 || r == 0x2139:
		return true
	case r >= 0x2190 && r <= 0x21FF: // arrows
		return true
	case r >= 0x2460 && r <= 0x24FF: // enclosed alphanumerics
		return true
	}
	return false
}

// Segments splits a string into alternating text and emoji segments.
// Consecutive non-emoji runes collapse into a single text segment.
func Segments(s string) []Segment {
	var out []Segment
	var current []rune
	for _, r := range s {
		if IsEmoji(r) {
			if len(current) > 0 {
				out = append(out, Segment{Text: string(current)})
				current = current[:0]
			}
			out = append(out, Segment{Emoji: r})
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		out = append(out, Segment{Text: string(current)})
	}
	return out
}

// runeAdvance returns the horizontal advance of a rune in pixels. ASCII
// glyphs take one cell, everything else (CJK, emoji) takes two.
func runeAdvance(r rune, size protocol.FontSize) int {
	w := size.AdvanceX()
	if r > 0x7F || IsEmoji(r) {
		return w * 2
	}
	return w
}

// Wrap breaks text into lines that fit areaWidth pixels at the given font
// size. Explicit newlines are honored, and an empty paragraph produces an
// empty line so vertical spacing survives.
func Wrap(s string, areaWidth int, size protocol.FontSize) []string {
	var lines []string
	for _, paragraph := range splitLines(s) {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		var line []rune
		width := 0
		for _, r := range paragraph {
			w := runeAdvance(r, size)
			if width+w > areaWidth && len(line) > 0 {
				lines = append(lines, string(line))
				line = line[:0]
				width = 0
			}
			line = append(line, r)
			width += w
		}
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	return lines
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// LayoutLine converts one already-wrapped line into positioned Text and
// Emoji commands starting at (x, y). The cursor advances by glyph width so
// emoji land where their surrounding text leaves off.
func LayoutLine(line string, x, y int, size protocol.FontSize, color protocol.Color) []protocol.Command {
	var commands []protocol.Command
	cursor := x
	for _, seg := range Segments(line) {
		if seg.Emoji != 0 {
			commands = append(commands, protocol.Emoji{
				X:    clampByte(cursor),
				Y:    clampByte(y),
				Size: size.Byte(),
				Code: uint32(seg.Emoji),
			})
			cursor += size.AdvanceX() * 2
			continue
		}
		if seg.Text == "" {
			continue
		}
		for _, chunk := range splitTextChunks(seg.Text) {
			commands = append(commands, protocol.Text{
				X:     clampByte(cursor),
				Y:     clampByte(y),
				Size:  size,
				Color: color,
				Text:  chunk,
			})
			for _, r := range chunk {
				cursor += runeAdvance(r, size)
			}
		}
	}
	return commands
}

// splitTextChunks cuts a text run at rune boundaries so no chunk exceeds
// the one-byte wire length limit.
func splitTextChunks(s string) []string {
	if len(s) <= maxTextBytes {
		return []string{s}
	}
	var out []string
	var buf []rune
	bytes := 0
	for _, r := range s {
		n := utf8.RuneLen(r)
		if bytes+n > maxTextBytes {
			out = append(out, string(buf))
			buf = buf[:0]
			bytes = 0
		}
		buf = append(buf, r)
		bytes += n
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}

// Layout wraps text into the area and lays out every line, stacking lines
// by the font's pixel height.
func Layout(s string, x, y, areaWidth int, size protocol.FontSize, color protocol.Color) []protocol.Command {
	var commands []protocol.Command
	lineY := y
	for _, line := range Wrap(s, areaWidth, size) {
		commands = append(commands, LayoutLine(line, x, lineY, size, color)...)
		lineY += size.Pixels()
	}
	return commands
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
