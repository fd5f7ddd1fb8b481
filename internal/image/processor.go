// Package image converts arbitrary uploaded images into the RGB565 tile
// sequences the badge transport can carry.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	// Registered decoders; format sniffing goes through image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// MaxInputBytes is the upload ceiling. Anything larger is rejected before
// decoding to keep a hostile upload from ballooning memory.
const MaxInputBytes = 10 * 1024 * 1024

// ErrUnsupportedFormat reports input that is not PNG, JPEG or GIF.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// TooLargeError reports an input exceeding MaxInputBytes.
type TooLargeError struct {
	Size int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image too large: %d bytes (max %d)", e.Size, MaxInputBytes)
}

// FitMode selects how a source image is mapped onto the target raster.
type FitMode string

const (
	FitNone      FitMode = "none"       // center crop, no scaling
	FitFill      FitMode = "fill"       // stretch, aspect ratio ignored
	FitContain   FitMode = "contain"    // letterbox on black
	FitCover     FitMode = "cover"      // scale to fill, crop overflow
	FitScaleDown FitMode = "scale-down" // contain, but never upscale
)

// ParseFitMode maps a request string to a FitMode, defaulting to contain.
func ParseFitMode(s string) FitMode {
	switch FitMode(s) {
	case FitNone, FitFill, FitContain, FitCover, FitScaleDown:
		return FitMode(s)
	default:
		return FitContain
	}
}

// Processed is a decoded, resized raster ready for tiling.
type Processed struct {
	Pixels         []uint16 // RGB565, row-major
	Width, Height  int
	OriginalFormat string
	Elapsed        time.Duration
}

// Processor runs the decode, resize and RGB565 stages.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Process validates, decodes and converts raw image bytes into an RGB565
// raster of exactly targetW x targetH.
func (p *Processor) Process(data []byte, targetW, targetH int, mode FitMode) (*Processed, error) {
	start := time.Now()

	if len(data) > MaxInputBytes {
		return nil, &TooLargeError{Size: len(data)}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedFormat
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	fitted := fit(src, targetW, targetH, mode)

	processed := &Processed{
		Pixels:         ToRGB565(fitted),
		Width:          targetW,
		Height:         targetH,
		OriginalFormat: format,
		Elapsed:        time.Since(start),
	}

	p.logger.Debug("Processed image",
		zap.String("format", format),
		zap.Int("input_bytes", len(data)),
		zap.Int("width", targetW),
		zap.Int("height", targetH),
		zap.String("fit", string(mode)),
		zap.Duration("elapsed", processed.Elapsed))

	return processed, nil
}

// fit maps src onto a targetW x targetH canvas according to mode. The canvas
// starts black, matching the badge's cleared screen.
func fit(src image.Image, targetW, targetH int, mode FitMode) image.Image {
	canvas := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()

	switch mode {
	case FitNone:
		// Center crop without scaling.
		offX := (srcW - targetW) / 2
		offY := (srcH - targetH) / 2
		draw.Draw(canvas, canvas.Bounds(), src, image.Pt(src.Bounds().Min.X+max(offX, 0), src.Bounds().Min.Y+max(offY, 0)), draw.Src)

	case FitFill:
		scaled := resize.Resize(uint(targetW), uint(targetH), src, resize.Lanczos3)
		draw.Draw(canvas, canvas.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	case FitCover:
		// Scale by the larger ratio and crop the overflow from the center.
		scaleW := float64(targetW) / float64(srcW)
		scaleH := float64(targetH) / float64(srcH)
		var scaled image.Image
		if scaleH > scaleW {
			scaled = resize.Resize(0, uint(targetH), src, resize.Lanczos3)
		} else {
			scaled = resize.Resize(uint(targetW), 0, src, resize.Lanczos3)
		}
		offX := (scaled.Bounds().Dx() - targetW) / 2
		offY := (scaled.Bounds().Dy() - targetH) / 2
		draw.Draw(canvas, canvas.Bounds(), scaled, scaled.Bounds().Min.Add(image.Pt(offX, offY)), draw.Src)

	case FitScaleDown:
		if srcW <= targetW && srcH <= targetH {
			// Small images sit centered on the black canvas unscaled.
			offX := (targetW - srcW) / 2
			offY := (targetH - srcH) / 2
			draw.Draw(canvas, image.Rect(offX, offY, offX+srcW, offY+srcH), src, src.Bounds().Min, draw.Src)
			break
		}
		fallthrough

	default: // FitContain
		scaled := resize.Thumbnail(uint(targetW), uint(targetH), src, resize.Lanczos3)
		offX := (targetW - scaled.Bounds().Dx()) / 2
		offY := (targetH - scaled.Bounds().Dy()) / 2
		draw.Draw(canvas, image.Rect(offX, offY, offX+scaled.Bounds().Dx(), offY+scaled.Bounds().Dy()), scaled, scaled.Bounds().Min, draw.Src)
	}

	return canvas
}
