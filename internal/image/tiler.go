package image

// TileHeight is the fixed tile height in pixels. The badge firmware blits
// incoming image commands through an 8-row line buffer, so every tile is at
// most 8 rows tall no matter how wide it is.
const TileHeight = 8

// Tile is one rectangular slice of a source raster, small enough to encode
// as a single Image command under the transport's packet ceiling.
type Tile struct {
	X, Y   int // origin within the source raster
	Width  int
	Height int
	Pixels []uint16 // row-major, exactly Width*Height entries
}

// SplitTiles cuts a row-major RGB565 raster into tiles of tileWidth x
// TileHeight, emitted row-major (all tiles of the first tile row left to
// right, then the next). Edge tiles are truncated to the raster bounds;
// no padding pixels are fabricated. The tiler guarantees geometry only;
// checking encoded tile size against the transport limit is the caller's
// responsibility.
func SplitTiles(pixels []uint16, width, height, tileWidth int) []Tile {
	if width <= 0 || height <= 0 || tileWidth <= 0 {
		return nil
	}

	tilesX := (width + tileWidth - 1) / tileWidth
	tilesY := (height + TileHeight - 1) / TileHeight

	tiles := make([]Tile, 0, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			startX := tx * tileWidth
			startY := ty * TileHeight
			endX := min(startX+tileWidth, width)
			endY := min(startY+TileHeight, height)

			data := make([]uint16, 0, (endX-startX)*(endY-startY))
			for y := startY; y < endY; y++ {
				for x := startX; x < endX; x++ {
					idx := y*width + x
					if idx < len(pixels) {
						data = append(data, pixels[idx])
					} else {
						// Short input raster: render black rather than panic.
						data = append(data, 0)
					}
				}
			}

			tiles = append(tiles, Tile{
				X:      startX,
				Y:      startY,
				Width:  endX - startX,
				Height: endY - startY,
				Pixels: data,
			})
		}
	}
	return tiles
}
