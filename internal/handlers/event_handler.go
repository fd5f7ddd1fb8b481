package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/glowlink/glowlink/internal/ble"
	"github.com/glowlink/glowlink/internal/config"
	"github.com/glowlink/glowlink/internal/image"
	"github.com/glowlink/glowlink/internal/text"
	"github.com/glowlink/glowlink/pkg/models"
	"github.com/glowlink/glowlink/pkg/protocol"
)

// tilePacing is the gap between consecutive tile sends; the badge radio
// drops writes when frames arrive back to back.
const tilePacing = 10 * time.Millisecond

// DeviceSender is the slice of the device manager the delivery layer
// depends on.
type DeviceSender interface {
	SendToDevice(ctx context.Context, name string, cmd protocol.Command) error
	SendToAll(ctx context.Context, cmd protocol.Command) error
	SendByOrdinal(ctx context.Context, ordinal int, cmd protocol.Command) error
	DeviceNameByOrdinal(ordinal int) (string, bool)
	ListDevices(ctx context.Context) []ble.DeviceInfo
	SaveImageTiles(name string, tiles []protocol.Command)
	Statistics(ctx context.Context) ble.Statistics
}

// EventHandler turns display requests into device commands. Both the HTTP
// API and the Redis stream consumer dispatch through it.
type EventHandler struct {
	sender DeviceSender
	pool   *image.WorkerPool
	cache  *image.RedisCache
	logger *zap.Logger
	config *config.Config
}

// NewEventHandler creates a new event handler. cache may be nil when
// Redis is not configured.
func NewEventHandler(sender DeviceSender, pool *image.WorkerPool, cache *image.RedisCache, cfg *config.Config, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		sender: sender,
		pool:   pool,
		cache:  cache,
		logger: logger,
		config: cfg,
	}
}

// HandleSend renders a text message, wrapping and emoji segmentation
// included, and delivers it as one batch.
func (h *EventHandler) HandleSend(ctx context.Context, req *models.SendRequest) (int, error) {
	if req.Message == "" {
		return 0, fmt.Errorf("message is required")
	}

	color := ParseColor(req.Color)
	size := protocol.ParseFontSize(req.Size)
	background := protocol.Black
	if req.BgColor != "" {
		background = ParseColor(req.BgColor)
	}

	x, y := 5, 10
	if req.X != nil {
		x = *req.X
	}
	if req.Y != nil {
		y = *req.Y
	}

	var commands []protocol.Command
	commands = append(commands, protocol.Clear{Color: background})
	if req.Wrap {
		area := h.config.Image.TargetWidth - x
		commands = append(commands, text.Layout(req.Message, x, y, area, size, color)...)
	} else {
		commands = append(commands, text.LayoutLine(req.Message, x, y, size, color)...)
	}

	batch := protocol.Batch{Commands: commands}
	devices, err := h.dispatch(ctx, ParseSelector(req.Device), batch)
	recordDelivery("send", err)
	if err != nil {
		return devices, err
	}

	h.logger.Info("Delivered text message",
		zap.Int("devices", devices),
		zap.Int("commands", len(commands)))
	return devices, nil
}

// HandleDraw delivers an ordered list of drawing primitives as one batch.
func (h *EventHandler) HandleDraw(ctx context.Context, req *models.DrawRequest) (int, error) {
	if len(req.Commands) == 0 {
		return 0, fmt.Errorf("commands are required")
	}

	commands, err := BuildDrawCommands(req.Commands)
	if err != nil {
		return 0, err
	}

	devices, err := h.dispatch(ctx, ParseSelector(req.Device), protocol.Batch{Commands: commands})
	recordDelivery("draw", err)
	if err != nil {
		return devices, err
	}

	h.logger.Info("Delivered draw batch",
		zap.Int("devices", devices),
		zap.Int("commands", len(commands)))
	return devices, nil
}

// ImageDelivery reports how a picture was processed and tiled.
type ImageDelivery struct {
	Width  int
	Height int
	Tiles  int
}

// HandleImage decodes raw image bytes, fits them to the badge display,
// splits the raster into tiles under the packet ceiling, and streams the
// tiles out. On full success the tile sequence becomes the replay state
// of every targeted device.
func (h *EventHandler) HandleImage(ctx context.Context, data []byte, device, fit string) (*ImageDelivery, error) {
	targetW := h.config.Image.TargetWidth
	targetH := h.config.Image.TargetHeight
	mode := image.ParseFitMode(fit)

	pixels, width, height, err := h.processPixels(ctx, data, targetW, targetH, mode)
	if err != nil {
		return nil, err
	}

	tiles := image.SplitTiles(pixels, width, height, h.config.Bluetooth.TileWidth)
	sel := ParseSelector(device)

	tileCommands := make([]protocol.Command, 0, len(tiles))
	for i, tile := range tiles {
		cmd := protocol.Image{
			X:      clampCoord(tile.X),
			Y:      clampCoord(tile.Y),
			W:      clampCoord(tile.Width),
			H:      clampCoord(tile.Height),
			Format: protocol.ImageFormatRGB565,
			Data:   image.RGB565Bytes(tile.Pixels),
		}

		// Data plus the image header must stay under the radio ceiling.
		if size := len(cmd.Data) + 8; size > h.config.Bluetooth.MaxPacketBytes {
			return nil, fmt.Errorf("tile %d is %d bytes, exceeds the %d byte packet ceiling",
				i+1, size, h.config.Bluetooth.MaxPacketBytes)
		}
		tileCommands = append(tileCommands, cmd)
	}

	for i, cmd := range tileCommands {
		if _, err := h.dispatch(ctx, sel, cmd); err != nil {
			recordDelivery("image", err)
			return nil, fmt.Errorf("tile %d/%d: %w", i+1, len(tileCommands), err)
		}
		tilesDelivered.Inc()

		select {
		case <-time.After(tilePacing):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	recordDelivery("image", nil)

	for _, name := range h.targetNames(ctx, sel) {
		h.sender.SaveImageTiles(name, tileCommands)
	}

	h.logger.Info("Delivered image",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("tiles", len(tileCommands)))
	return &ImageDelivery{Width: width, Height: height, Tiles: len(tileCommands)}, nil
}

// Handle processes one request from the ingress stream.
func (h *EventHandler) Handle(ctx context.Context, req *models.DisplayRequest) *models.DisplayResult {
	result := &models.DisplayResult{
		Type:        "display_result",
		UUID:        req.UUID,
		ProcessedAt: time.Now(),
	}

	var err error
	switch {
	case req.Send != nil:
		result.Device = req.Send.Device
		_, err = h.HandleSend(ctx, req.Send)
	case req.Draw != nil:
		result.Device = req.Draw.Device
		_, err = h.HandleDraw(ctx, req.Draw)
	case req.Image != nil:
		result.Device = req.Image.Device
		var data []byte
		data, err = base64.StdEncoding.DecodeString(req.Image.Data)
		if err == nil {
			_, err = h.HandleImage(ctx, data, req.Image.Device, req.Image.Fit)
		}
	default:
		err = fmt.Errorf("request carries no send, draw, or image payload")
	}

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// dispatch routes one command per the selector and reports how many
// devices were addressed.
func (h *EventHandler) dispatch(ctx context.Context, sel Selector, cmd protocol.Command) (int, error) {
	switch {
	case sel.All:
		n := len(h.sender.ListDevices(ctx))
		return n, h.sender.SendToAll(ctx, cmd)
	case sel.Ordinal > 0:
		return 1, h.sender.SendByOrdinal(ctx, sel.Ordinal, cmd)
	default:
		return 1, h.sender.SendToDevice(ctx, sel.Name, cmd)
	}
}

// targetNames resolves a selector to concrete device names.
func (h *EventHandler) targetNames(ctx context.Context, sel Selector) []string {
	switch {
	case sel.All:
		devices := h.sender.ListDevices(ctx)
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, d.Name)
		}
		return names
	case sel.Ordinal > 0:
		if name, ok := h.sender.DeviceNameByOrdinal(sel.Ordinal); ok {
			return []string{name}
		}
		return nil
	default:
		return []string{sel.Name}
	}
}

// processPixels runs the image pipeline, consulting the Redis cache when
// one is wired in.
func (h *EventHandler) processPixels(ctx context.Context, data []byte, targetW, targetH int, mode image.FitMode) ([]uint16, int, int, error) {
	if h.cache != nil {
		pixels, ok, err := h.cache.Get(ctx, data, targetW, targetH, mode)
		if err != nil {
			h.logger.Warn("Image cache lookup failed", zap.Error(err))
		} else if ok {
			h.logger.Debug("Image cache hit")
			return pixels, targetW, targetH, nil
		}
	}

	processed, err := h.pool.Submit(ctx, data, targetW, targetH, mode)
	if err != nil {
		return nil, 0, 0, err
	}

	if h.cache != nil && processed.Width == targetW && processed.Height == targetH {
		if err := h.cache.Set(ctx, data, targetW, targetH, mode, processed.Pixels); err != nil {
			h.logger.Warn("Failed to cache processed image", zap.Error(err))
		}
	}
	return processed.Pixels, processed.Width, processed.Height, nil
}
