package image

import "image"

// ToRGB565 converts an image to a row-major RGB565 pixel slice. Rounding is
// applied when narrowing the channels so mid-tones do not drift dark. Alpha
// is dropped; the badge displays have no transparency.
func ToRGB565(img image.Image) []uint16 {
	bounds := img.Bounds()
	out := make([]uint16, 0, bounds.Dx()*bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8 := uint16(r >> 8)
			g8 := uint16(g >> 8)
			b8 := uint16(b >> 8)

			r5 := (r8*31 + 127) / 255
			g6 := (g8*63 + 127) / 255
			b5 := (b8*31 + 127) / 255

			out = append(out, r5<<11|g6<<5|b5)
		}
	}
	return out
}

// RGB565Bytes serializes pixels little-endian, the byte order the badge
// firmware blits directly into its frame buffer.
func RGB565Bytes(pixels []uint16) []byte {
	out := make([]byte, 0, len(pixels)*2)
	for _, px := range pixels {
		out = append(out, byte(px), byte(px>>8))
	}
	return out
}
