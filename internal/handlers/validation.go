package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glowlink/glowlink/pkg/models"
	"github.com/glowlink/glowlink/pkg/protocol"
)

// namedColors covers the palette the badge UI documents. Lookup is
// case-insensitive.
var namedColors = map[string]protocol.Color{
	"black":     {R: 0, G: 0, B: 0},
	"white":     {R: 255, G: 255, B: 255},
	"red":       {R: 255, G: 0, B: 0},
	"green":     {R: 0, G: 255, B: 0},
	"blue":      {R: 0, G: 0, B: 255},
	"yellow":    {R: 255, G: 255, B: 0},
	"cyan":      {R: 0, G: 255, B: 255},
	"magenta":   {R: 255, G: 0, B: 255},
	"orange":    {R: 255, G: 165, B: 0},
	"purple":    {R: 128, G: 0, B: 128},
	"brown":     {R: 165, G: 42, B: 42},
	"pink":      {R: 255, G: 192, B: 203},
	"gray":      {R: 128, G: 128, B: 128},
	"grey":      {R: 128, G: 128, B: 128},
	"darkgreen": {R: 0, G: 100, B: 0},
	"darkcyan":  {R: 0, G: 139, B: 139},
	"maroon":    {R: 128, G: 0, B: 0},
	"navy":      {R: 0, G: 0, B: 128},
	"olive":     {R: 128, G: 128, B: 0},
	"lightgray": {R: 211, G: 211, B: 211},
	"lightgrey": {R: 211, G: 211, B: 211},
	"darkgray":  {R: 169, G: 169, B: 169},
	"darkgrey":  {R: 169, G: 169, B: 169},
	"teal":      {R: 0, G: 128, B: 128},
}

// ParseColor accepts a color name, "#RRGGBB" hex, or an "r,g,b" triple.
// Empty or unrecognized input falls back to white.
func ParseColor(s string) protocol.Color {
	s = strings.TrimSpace(s)
	if s == "" {
		return protocol.White
	}

	if c, ok := parseHexColor(s); ok {
		return c
	}
	if c, ok := parseRGBTriple(s); ok {
		return c
	}
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c
	}
	return protocol.White
}

func parseHexColor(s string) (protocol.Color, bool) {
	if len(s) != 7 || s[0] != '#' {
		return protocol.Color{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return protocol.Color{}, false
	}
	return protocol.Color{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, true
}

func parseRGBTriple(s string) (protocol.Color, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return protocol.Color{}, false
	}
	var vals [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return protocol.Color{}, false
		}
		vals[i] = uint8(v)
	}
	return protocol.Color{R: vals[0], G: vals[1], B: vals[2]}, true
}

// Selector addresses one or more devices: every device, a 1-based
// ordinal, or a literal device name.
type Selector struct {
	All     bool
	Ordinal int
	Name    string
}

// ParseSelector resolves a device field. Empty or "all" targets every
// device; a numeric string is an ordinal; anything else is a name.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return Selector{All: true}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Selector{Ordinal: n}
	}
	return Selector{Name: s}
}

// BuildDrawCommands converts draw primitives into protocol commands. The
// returned slice preserves request order.
func BuildDrawCommands(cmds []models.DrawCommand) ([]protocol.Command, error) {
	out := make([]protocol.Command, 0, len(cmds))
	for i, dc := range cmds {
		cmd, err := buildDrawCommand(dc)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		out = append(out, cmd)
	}
	return out, nil
}

func buildDrawCommand(dc models.DrawCommand) (protocol.Command, error) {
	color := ParseColor(dc.Color)

	switch strings.ToLower(dc.Type) {
	case "clear":
		return protocol.Clear{Color: color}, nil
	case "text":
		if dc.Text == "" {
			return nil, fmt.Errorf("text command requires text")
		}
		if len(dc.Text) > 255 {
			return nil, fmt.Errorf("text exceeds 255 bytes")
		}
		return protocol.Text{
			X:     clampCoord(dc.X),
			Y:     clampCoord(dc.Y),
			Size:  protocol.ParseFontSize(dc.Size),
			Color: color,
			Text:  dc.Text,
		}, nil
	case "line":
		width := dc.Width
		if width <= 0 {
			width = 1
		}
		return protocol.Line{
			X1:    clampCoord(dc.X),
			Y1:    clampCoord(dc.Y),
			X2:    clampCoord(dc.X2),
			Y2:    clampCoord(dc.Y2),
			Width: clampCoord(width),
			Color: color,
		}, nil
	case "rect":
		return protocol.Rect{
			X:     clampCoord(dc.X),
			Y:     clampCoord(dc.Y),
			W:     clampCoord(dc.Width),
			H:     clampCoord(dc.Height),
			Fill:  dc.Filled,
			Color: color,
		}, nil
	case "circle":
		return protocol.Circle{
			X:      clampCoord(dc.X),
			Y:      clampCoord(dc.Y),
			Radius: clampCoord(dc.Radius),
			Color:  color,
			Filled: dc.Filled,
		}, nil
	case "emoji":
		code, err := emojiCodepoint(dc.Emoji)
		if err != nil {
			return nil, err
		}
		return protocol.Emoji{
			X:    clampCoord(dc.X),
			Y:    clampCoord(dc.Y),
			Size: protocol.ParseFontSize(dc.Size).Byte(),
			Code: code,
		}, nil
	case "update":
		return protocol.Update{}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", dc.Type)
	}
}

// emojiCodepoint converts an emoji string to its leading codepoint.
// Composed sequences fall back to the first rune.
func emojiCodepoint(s string) (uint32, error) {
	for _, r := range s {
		return uint32(r), nil
	}
	return 0, fmt.Errorf("emoji command requires an emoji")
}

func clampCoord(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
