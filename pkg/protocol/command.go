// Package protocol defines the drawing command model and its binary wire
// encoding shared with the badge firmware. Tag values and payload layouts
// are a fixed firmware contract and must not be renumbered.
package protocol

import "encoding/binary"

// Command tag bytes understood by the badge firmware.
const (
	TagClear  = 0x01
	TagText   = 0x02
	TagEmoji  = 0x03
	TagRect   = 0x04
	TagLine   = 0x05
	TagImage  = 0x06
	TagUpdate = 0x08
	TagRegion = 0x0A
	TagBatch  = 0x10

	// TagCircle shares the Line tag byte; the firmware distinguishes the two
	// by payload length (7 vs 8).
	TagCircle = 0x05
)

// Image format byte for raw little-endian RGB565 pixel data.
const ImageFormatRGB565 = 2

// BLE service and characteristic UUIDs for the command link.
const (
	ServiceUUID     = "12345678-1234-5678-1234-56789abcdef0"
	CommandCharUUID = "12345678-1234-5678-1234-56789abcdef1"
	StatusCharUUID  = "12345678-1234-5678-1234-56789abcdef2"
)

// Color is an 8-bit-per-channel RGB color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// Command is one drawing operation. The set of implementations is closed;
// every valid value has exactly one encoding.
type Command interface {
	// Encode returns the full wire frame: tag, little-endian 16-bit payload
	// length, payload. Update is the one exception and encodes as its tag
	// byte alone.
	Encode() []byte
}

// Clear fills the whole screen with a color.
type Clear struct {
	Color Color
}

// Text draws a string at a pixel position.
type Text struct {
	X, Y  uint8
	Size  FontSize
	Color Color
	Text  string // at most 255 bytes of UTF-8, enforced by callers
}

// Line draws a line segment.
type Line struct {
	X1, Y1, X2, Y2 uint8
	Width          uint8
	Color          Color
}

// Rect draws an outlined or filled rectangle.
type Rect struct {
	X, Y, W, H uint8
	Fill       bool
	Color      Color
}

// Circle draws an outlined or filled circle.
type Circle struct {
	X, Y, Radius uint8
	Color        Color
	Filled       bool
}

// Image blits raw pixel bytes at a position. The codec writes Data verbatim
// and never checks that len(Data) matches W*H*bytes-per-pixel; producing
// consistent geometry is the caller's job.
type Image struct {
	X, Y, W, H uint8
	Format     uint8
	Data       []byte
}

// Emoji draws a single emoji glyph by Unicode codepoint.
type Emoji struct {
	X, Y uint8
	Size uint8
	Code uint32
}

// Region positions child commands inside sub-rectangles of the screen.
type Region struct {
	Regions []RegionEntry
}

// RegionEntry is one sub-rectangle and its content.
type RegionEntry struct {
	X, Y, W, H uint8
	Content    Command
}

// Batch is an ordered sequence of commands applied as one unit.
type Batch struct {
	Commands []Command
}

// Update flushes the drawing buffer to the physical display. No payload.
type Update struct{}

// frame prepends the tag and little-endian payload length to payload.
func frame(tag byte, payload []byte) []byte {
	out := make([]byte, 0, 3+len(payload))
	out = append(out, tag, byte(len(payload)), byte(len(payload)>>8))
	return append(out, payload...)
}

func (c Clear) Encode() []byte {
	return frame(TagClear, []byte{c.Color.R, c.Color.G, c.Color.B})
}

func (t Text) Encode() []byte {
	text := []byte(t.Text)
	payload := make([]byte, 0, 7+len(text))
	payload = append(payload, t.X, t.Y, t.Size.Byte())
	payload = append(payload, t.Color.R, t.Color.G, t.Color.B)
	payload = append(payload, byte(len(text)))
	payload = append(payload, text...)
	return frame(TagText, payload)
}

func (l Line) Encode() []byte {
	return frame(TagLine, []byte{
		l.X1, l.Y1, l.X2, l.Y2, l.Width,
		l.Color.R, l.Color.G, l.Color.B,
	})
}

func (r Rect) Encode() []byte {
	fill := byte(0)
	if r.Fill {
		fill = 1
	}
	return frame(TagRect, []byte{
		r.X, r.Y, r.W, r.H, fill,
		r.Color.R, r.Color.G, r.Color.B,
	})
}

func (c Circle) Encode() []byte {
	filled := byte(0)
	if c.Filled {
		filled = 1
	}
	return frame(TagCircle, []byte{
		c.X, c.Y, c.Radius,
		c.Color.R, c.Color.G, c.Color.B,
		filled,
	})
}

func (i Image) Encode() []byte {
	payload := make([]byte, 0, 5+len(i.Data))
	payload = append(payload, i.X, i.Y, i.W, i.H, i.Format)
	payload = append(payload, i.Data...)
	return frame(TagImage, payload)
}

func (e Emoji) Encode() []byte {
	payload := make([]byte, 0, 7)
	payload = append(payload, e.X, e.Y, e.Size)
	payload = binary.LittleEndian.AppendUint32(payload, e.Code)
	return frame(TagEmoji, payload)
}

func (r Region) Encode() []byte {
	payload := []byte{byte(len(r.Regions))}
	for _, entry := range r.Regions {
		payload = append(payload, entry.X, entry.Y, entry.W, entry.H)
		content := entry.Content.Encode()
		payload = binary.LittleEndian.AppendUint16(payload, uint16(len(content)))
		payload = append(payload, content...)
	}
	return frame(TagRegion, payload)
}

func (b Batch) Encode() []byte {
	payload := []byte{byte(len(b.Commands))}
	for _, cmd := range b.Commands {
		payload = append(payload, cmd.Encode()...)
	}
	return frame(TagBatch, payload)
}

func (Update) Encode() []byte {
	return []byte{TagUpdate}
}
