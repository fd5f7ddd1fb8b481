package protocol

import (
	"bytes"
	"testing"
)

func TestClearEncoding(t *testing.T) {
	cmd := Clear{Color: Color{R: 0, G: 64, B: 0}}
	want := []byte{0x01, 0x03, 0x00, 0x00, 0x40, 0x00}
	if got := cmd.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Clear encoding = % 02x, want % 02x", got, want)
	}
}

func TestTextEncoding(t *testing.T) {
	cmd := Text{X: 5, Y: 10, Size: SizeMedium, Color: White, Text: "Hi"}
	got := cmd.Encode()

	if got[0] != TagText {
		t.Errorf("tag = 0x%02x, want 0x%02x", got[0], TagText)
	}
	payloadLen := int(got[1]) | int(got[2])<<8
	if payloadLen != 7+2 {
		t.Errorf("payload length = %d, want %d", payloadLen, 9)
	}
	// x, y, size byte, r, g, b, text length, utf8 bytes
	want := []byte{5, 10, 2, 255, 255, 255, 2, 'H', 'i'}
	if !bytes.Equal(got[3:], want) {
		t.Errorf("payload = % 02x, want % 02x", got[3:], want)
	}
}

func TestEmojiEncoding(t *testing.T) {
	cmd := Emoji{X: 3, Y: 4, Size: 2, Code: 0x1F600}
	got := cmd.Encode()

	want := []byte{TagEmoji, 7, 0, 3, 4, 2, 0x00, 0xF6, 0x01, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Emoji encoding = % 02x, want % 02x", got, want)
	}
}

func TestLineAndCircleShareTag(t *testing.T) {
	line := Line{X1: 1, Y1: 2, X2: 3, Y2: 4, Width: 1, Color: White}.Encode()
	circle := Circle{X: 1, Y: 2, Radius: 3, Color: White, Filled: true}.Encode()

	if line[0] != 0x05 || circle[0] != 0x05 {
		t.Fatalf("tags = 0x%02x/0x%02x, both must be 0x05", line[0], circle[0])
	}
	// The firmware tells them apart by payload length alone.
	if got := int(line[1]); got != 8 {
		t.Errorf("line payload length = %d, want 8", got)
	}
	if got := int(circle[1]); got != 7 {
		t.Errorf("circle payload length = %d, want 7", got)
	}
}

func TestRectEncoding(t *testing.T) {
	filled := Rect{X: 1, Y: 2, W: 3, H: 4, Fill: true, Color: Color{R: 9, G: 8, B: 7}}.Encode()
	want := []byte{TagRect, 8, 0, 1, 2, 3, 4, 1, 9, 8, 7}
	if !bytes.Equal(filled, want) {
		t.Errorf("Rect encoding = % 02x, want % 02x", filled, want)
	}
}

func TestImageEncoding(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78}
	cmd := Image{X: 10, Y: 20, W: 128, H: 128, Format: 0, Data: data}
	got := cmd.Encode()

	if got[0] != TagImage {
		t.Errorf("tag = 0x%02x, want 0x%02x", got[0], TagImage)
	}
	payloadLen := int(got[1]) | int(got[2])<<8
	if payloadLen != 5+len(data) {
		t.Errorf("payload length = %d, want %d", payloadLen, 5+len(data))
	}
	if !bytes.Equal(got[3:8], []byte{10, 20, 128, 128, 0}) {
		t.Errorf("image header = % 02x", got[3:8])
	}
	if !bytes.Equal(got[8:], data) {
		t.Errorf("pixel bytes = % 02x, want % 02x", got[8:], data)
	}
}

func TestImageEmptyData(t *testing.T) {
	got := Image{X: 0, Y: 0, W: 64, H: 64, Format: 1}.Encode()
	if len(got) != 8 {
		t.Errorf("encoded length = %d, want 8 (header + 5 parameter bytes)", len(got))
	}
}

func TestUpdateIsBareTag(t *testing.T) {
	if got := (Update{}).Encode(); !bytes.Equal(got, []byte{0x08}) {
		t.Errorf("Update encoding = % 02x, want 08", got)
	}
}

func TestBatchEncoding(t *testing.T) {
	children := []Command{
		Clear{Color: Color{G: 64}},
		Text{X: 5, Y: 10, Size: SizeMedium, Color: White, Text: "ok"},
		Update{},
	}
	got := Batch{Commands: children}.Encode()

	if got[0] != TagBatch {
		t.Fatalf("tag = 0x%02x, want 0x%02x", got[0], TagBatch)
	}
	if got[3] != byte(len(children)) {
		t.Errorf("count byte = %d, want %d", got[3], len(children))
	}

	// Payload length covers the count byte plus every child's full frame.
	sum := 1
	concat := []byte{byte(len(children))}
	for _, c := range children {
		enc := c.Encode()
		sum += len(enc)
		concat = append(concat, enc...)
	}
	payloadLen := int(got[1]) | int(got[2])<<8
	if payloadLen != sum {
		t.Errorf("payload length = %d, want %d", payloadLen, sum)
	}
	if !bytes.Equal(got[3:], concat) {
		t.Errorf("batch payload does not match concatenated child encodings")
	}
}

func TestRegionEncoding(t *testing.T) {
	child := Clear{Color: Black}
	got := Region{Regions: []RegionEntry{{X: 0, Y: 0, W: 64, H: 32, Content: child}}}.Encode()

	if got[0] != TagRegion {
		t.Fatalf("tag = 0x%02x, want 0x%02x", got[0], TagRegion)
	}
	childEnc := child.Encode()
	want := []byte{1, 0, 0, 64, 32, byte(len(childEnc)), 0}
	want = append(want, childEnc...)
	if !bytes.Equal(got[3:], want) {
		t.Errorf("region payload = % 02x, want % 02x", got[3:], want)
	}
}

func TestEncodingDeterministic(t *testing.T) {
	cmds := []Command{
		Clear{Color: Color{R: 1, G: 2, B: 3}},
		Text{X: 1, Y: 2, Size: SizeLarge, Color: White, Text: "same"},
		Batch{Commands: []Command{Update{}, Clear{}}},
		Image{X: 0, Y: 0, W: 2, H: 2, Format: ImageFormatRGB565, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, cmd := range cmds {
		if !bytes.Equal(cmd.Encode(), cmd.Encode()) {
			t.Errorf("%T encoded differently on repeat calls", cmd)
		}
	}
}

func TestParseFontSize(t *testing.T) {
	cases := []struct {
		in   string
		want FontSize
	}{
		{"1", SizeSmall},
		{"small", SizeSmall},
		{"medium", SizeMedium},
		{"3", SizeLarge},
		{"xlarge", SizeXLarge},
		{"extralarge", SizeXLarge},
		{"garbage", SizeMedium},
		{"", SizeMedium},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseFontSize(tc.in); got != tc.want {
				t.Errorf("ParseFontSize(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFontSizeMetrics(t *testing.T) {
	cases := []struct {
		size    FontSize
		pixels  int
		advance int
		grid    int
	}{
		{SizeSmall, 8, 8, 2},
		{SizeMedium, 12, 12, 3},
		{SizeLarge, 16, 16, 4},
		{SizeXLarge, 24, 20, 5},
	}
	for _, tc := range cases {
		t.Run(tc.size.String(), func(t *testing.T) {
			if got := tc.size.Pixels(); got != tc.pixels {
				t.Errorf("Pixels() = %d, want %d", got, tc.pixels)
			}
			if got := tc.size.AdvanceX(); got != tc.advance {
				t.Errorf("AdvanceX() = %d, want %d", got, tc.advance)
			}
			if got := tc.size.Grid(); got != tc.grid {
				t.Errorf("Grid() = %d, want %d", got, tc.grid)
			}
		})
	}
}
