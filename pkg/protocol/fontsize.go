package protocol

// FontSize is one of the four firmware font scales.
type FontSize uint8

const (
	SizeSmall FontSize = iota + 1
	SizeMedium
	SizeLarge
	SizeXLarge
)

// ParseFontSize accepts either a digit or a size name; unknown values fall
// back to Medium, matching the badge firmware's default.
func ParseFontSize(s string) FontSize {
	switch s {
	case "1", "small":
		return SizeSmall
	case "2", "medium":
		return SizeMedium
	case "3", "large":
		return SizeLarge
	case "4", "xlarge", "extralarge":
		return SizeXLarge
	default:
		return SizeMedium
	}
}

// Byte returns the wire encoding of the size.
func (s FontSize) Byte() uint8 {
	switch s {
	case SizeSmall:
		return 1
	case SizeLarge:
		return 3
	case SizeXLarge:
		return 4
	default:
		return 2
	}
}

// Pixels returns the glyph height in pixels.
func (s FontSize) Pixels() int {
	switch s {
	case SizeSmall:
		return 8
	case SizeLarge:
		return 16
	case SizeXLarge:
		return 24
	default:
		return 12
	}
}

// AdvanceX returns the horizontal advance of an ASCII glyph in pixels.
// Double-width runes and emoji advance twice this.
func (s FontSize) AdvanceX() int {
	switch s {
	case SizeSmall:
		return 8
	case SizeLarge:
		return 16
	case SizeXLarge:
		return 20
	default:
		return 12
	}
}

// Grid returns the ASCII glyph width in cells of the badge's 32-unit
// layout grid. Double-width runes and emoji occupy twice this.
func (s FontSize) Grid() int {
	switch s {
	case SizeSmall:
		return 2
	case SizeLarge:
		return 4
	case SizeXLarge:
		return 5
	default:
		return 3
	}
}

func (s FontSize) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeLarge:
		return "large"
	case SizeXLarge:
		return "xlarge"
	default:
		return "medium"
	}
}
