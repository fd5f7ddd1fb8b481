package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/glowlink/glowlink/internal/ble"
	"github.com/glowlink/glowlink/internal/config"
	glimage "github.com/glowlink/glowlink/internal/image"
	"github.com/glowlink/glowlink/pkg/models"
	"github.com/glowlink/glowlink/pkg/protocol"
)

// fakeSender records every dispatched command.
type fakeSender struct {
	mu         sync.Mutex
	devices    []ble.DeviceInfo
	toAll      []protocol.Command
	toDevice   map[string][]protocol.Command
	byOrdinal  map[int][]protocol.Command
	savedTiles map[string][]protocol.Command
	sendErr    error
}

func newFakeSender(names ...string) *fakeSender {
	s := &fakeSender{
		toDevice:   make(map[string][]protocol.Command),
		byOrdinal:  make(map[int][]protocol.Command),
		savedTiles: make(map[string][]protocol.Command),
	}
	for i, name := range names {
		s.devices = append(s.devices, ble.DeviceInfo{Name: name, Ordinal: i + 1, Connected: true})
	}
	return s
}

func (s *fakeSender) SendToDevice(ctx context.Context, name string, cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.toDevice[name] = append(s.toDevice[name], cmd)
	return nil
}

func (s *fakeSender) SendToAll(ctx context.Context, cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.toAll = append(s.toAll, cmd)
	return nil
}

func (s *fakeSender) SendByOrdinal(ctx context.Context, ordinal int, cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	if ordinal < 1 || ordinal > len(s.devices) {
		return ble.ErrDeviceNotFound("device")
	}
	s.byOrdinal[ordinal] = append(s.byOrdinal[ordinal], cmd)
	return nil
}

func (s *fakeSender) DeviceNameByOrdinal(ordinal int) (string, bool) {
	if ordinal < 1 || ordinal > len(s.devices) {
		return "", false
	}
	return s.devices[ordinal-1].Name, true
}

func (s *fakeSender) ListDevices(ctx context.Context) []ble.DeviceInfo {
	return s.devices
}

func (s *fakeSender) SaveImageTiles(name string, tiles []protocol.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedTiles[name] = tiles
}

func (s *fakeSender) Statistics(ctx context.Context) ble.Statistics {
	return ble.Statistics{TotalDevices: len(s.devices), ConnectedDevices: len(s.devices)}
}

func testConfig() *config.Config {
	return &config.Config{
		Bluetooth: config.BluetoothConfig{
			TileWidth:      16,
			MaxPacketBytes: 500,
		},
		Image: config.ImageConfig{
			TargetWidth:  16,
			TargetHeight: 16,
			DefaultFit:   "contain",
		},
	}
}

func testEvents(t *testing.T, sender DeviceSender) *EventHandler {
	t.Helper()
	logger := zap.NewNop()
	pool := glimage.NewWorkerPool(1, glimage.NewProcessor(logger), logger)
	pool.Start()
	t.Cleanup(pool.Stop)
	return NewEventHandler(sender, pool, nil, testConfig(), logger)
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHandleSendToAll(t *testing.T) {
	sender := newFakeSender("glow-a", "glow-b")
	h := testEvents(t, sender)

	devices, err := h.HandleSend(context.Background(), &models.SendRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("HandleSend: %v", err)
	}
	if devices != 2 {
		t.Errorf("devices = %d, want 2", devices)
	}
	if len(sender.toAll) != 1 {
		t.Fatalf("broadcast commands = %d, want 1", len(sender.toAll))
	}

	batch, ok := sender.toAll[0].(protocol.Batch)
	if !ok {
		t.Fatalf("broadcast is %T, want Batch", sender.toAll[0])
	}
	if _, ok := batch.Commands[0].(protocol.Clear); !ok {
		t.Error("batch should start with a clear")
	}
}

func TestHandleSendBackgroundColor(t *testing.T) {
	sender := newFakeSender("glow-a")
	h := testEvents(t, sender)

	req := &models.SendRequest{Message: "hi", Device: "glow-a", BgColor: "blue"}
	if _, err := h.HandleSend(context.Background(), req); err != nil {
		t.Fatalf("HandleSend: %v", err)
	}

	batch := sender.toDevice["glow-a"][0].(protocol.Batch)
	clear, ok := batch.Commands[0].(protocol.Clear)
	if !ok {
		t.Fatalf("first command is %T, want Clear", batch.Commands[0])
	}
	if clear.Color != (protocol.Color{B: 255}) {
		t.Errorf("clear color = %+v, want blue", clear.Color)
	}
}

func TestHandleSendByOrdinal(t *testing.T) {
	sender := newFakeSender("glow-a", "glow-b")
	h := testEvents(t, sender)

	if _, err := h.HandleSend(context.Background(), &models.SendRequest{Message: "hi", Device: "2"}); err != nil {
		t.Fatalf("HandleSend: %v", err)
	}
	if len(sender.byOrdinal[2]) != 1 {
		t.Error("command should have gone to ordinal 2")
	}
	if len(sender.toAll) != 0 {
		t.Error("nothing should have been broadcast")
	}
}

func TestHandleSendEmptyMessage(t *testing.T) {
	h := testEvents(t, newFakeSender("glow-a"))
	if _, err := h.HandleSend(context.Background(), &models.SendRequest{}); err == nil {
		t.Fatal("expected an error for an empty message")
	}
}

func TestHandleSendWrap(t *testing.T) {
	sender := newFakeSender("glow-a")
	h := testEvents(t, sender)

	// Target width is 16px, so small ASCII glyphs (8px) wrap every 2 runes.
	_, err := h.HandleSend(context.Background(), &models.SendRequest{
		Message: "abcd",
		Device:  "glow-a",
		Size:    "small",
		Wrap:    true,
		X:       intPtr(0),
		Y:       intPtr(0),
	})
	if err != nil {
		t.Fatalf("HandleSend: %v", err)
	}

	batch := sender.toDevice["glow-a"][0].(protocol.Batch)
	// Clear plus one Text per wrapped line.
	if len(batch.Commands) != 3 {
		t.Fatalf("batch commands = %d, want clear + 2 lines", len(batch.Commands))
	}
}

func TestHandleDraw(t *testing.T) {
	sender := newFakeSender("glow-a")
	h := testEvents(t, sender)

	devices, err := h.HandleDraw(context.Background(), &models.DrawRequest{
		Device: "glow-a",
		Commands: []models.DrawCommand{
			{Type: "clear"},
			{Type: "rect", Width: 10, Height: 10, Filled: true, Color: "red"},
			{Type: "update"},
		},
	})
	if err != nil {
		t.Fatalf("HandleDraw: %v", err)
	}
	if devices != 1 {
		t.Errorf("devices = %d, want 1", devices)
	}

	batch := sender.toDevice["glow-a"][0].(protocol.Batch)
	if len(batch.Commands) != 3 {
		t.Errorf("batch commands = %d, want 3", len(batch.Commands))
	}
}

func TestHandleDrawInvalidCommand(t *testing.T) {
	h := testEvents(t, newFakeSender("glow-a"))
	_, err := h.HandleDraw(context.Background(), &models.DrawRequest{
		Commands: []models.DrawCommand{{Type: "hexagon"}},
	})
	if err == nil {
		t.Fatal("expected an error for an unknown primitive")
	}
}

func TestHandleImageTilesAndSaves(t *testing.T) {
	sender := newFakeSender("glow-a")
	h := testEvents(t, sender)

	delivery, err := h.HandleImage(context.Background(), smallPNG(t), "glow-a", "fill")
	if err != nil {
		t.Fatalf("HandleImage: %v", err)
	}

	// 16x16 raster with 16-wide, 8-tall tiles gives 2 tiles.
	if delivery.Tiles != 2 {
		t.Errorf("tiles = %d, want 2", delivery.Tiles)
	}
	if delivery.Width != 16 || delivery.Height != 16 {
		t.Errorf("delivery geometry = %dx%d, want 16x16", delivery.Width, delivery.Height)
	}
	if got := len(sender.toDevice["glow-a"]); got != 2 {
		t.Errorf("sent commands = %d, want 2 tiles", got)
	}
	if len(sender.savedTiles["glow-a"]) != 2 {
		t.Error("tile sequence should be saved for replay")
	}

	for _, cmd := range sender.toDevice["glow-a"] {
		img, ok := cmd.(protocol.Image)
		if !ok {
			t.Fatalf("sent %T, want Image", cmd)
		}
		if img.Format != protocol.ImageFormatRGB565 {
			t.Errorf("format = %d, want %d", img.Format, protocol.ImageFormatRGB565)
		}
		if len(img.Data)+8 > 500 {
			t.Errorf("tile frame %d bytes exceeds ceiling", len(img.Data)+8)
		}
	}
}

func TestHandleImageSendFailureAborts(t *testing.T) {
	sender := newFakeSender("glow-a")
	sender.sendErr = ble.ErrDeviceNotConnected("link down")
	h := testEvents(t, sender)

	if _, err := h.HandleImage(context.Background(), smallPNG(t), "glow-a", ""); err == nil {
		t.Fatal("expected an error when tile delivery fails")
	}
	if len(sender.savedTiles) != 0 {
		t.Error("failed delivery must not update replay state")
	}
}

func TestHandleImageRejectsGarbage(t *testing.T) {
	h := testEvents(t, newFakeSender("glow-a"))
	if _, err := h.HandleImage(context.Background(), []byte("not an image"), "glow-a", ""); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestHandleStreamEnvelope(t *testing.T) {
	sender := newFakeSender("glow-a")
	h := testEvents(t, sender)

	t.Run("send", func(t *testing.T) {
		result := h.Handle(context.Background(), &models.DisplayRequest{
			Type: "display_request",
			UUID: "u-1",
			Send: &models.SendRequest{Message: "hi", Device: "glow-a"},
		})
		if !result.Success {
			t.Fatalf("result = %+v", result)
		}
		if result.UUID != "u-1" || result.Device != "glow-a" {
			t.Errorf("result identity = %+v", result)
		}
	})

	t.Run("image base64", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(smallPNG(t))
		result := h.Handle(context.Background(), &models.DisplayRequest{
			Image: &models.ImageRequest{Device: "glow-a", Data: encoded},
		})
		if !result.Success {
			t.Fatalf("result = %+v", result)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		result := h.Handle(context.Background(), &models.DisplayRequest{
			Image: &models.ImageRequest{Device: "glow-a", Data: "!!!"},
		})
		if result.Success {
			t.Fatal("expected failure for invalid base64")
		}
	})

	t.Run("empty envelope", func(t *testing.T) {
		result := h.Handle(context.Background(), &models.DisplayRequest{})
		if result.Success || result.Error == "" {
			t.Fatalf("result = %+v", result)
		}
	})
}

func intPtr(v int) *int { return &v }

func TestHandleSendLongMessageStaysEncodable(t *testing.T) {
	sender := newFakeSender("glow-a")
	h := testEvents(t, sender)

	// Unwrapped messages longer than the one-byte wire length limit must
	// be split across several text commands.
	req := &models.SendRequest{
		Message: strings.Repeat("a", 300),
		Device:  "glow-a",
	}
	if _, err := h.HandleSend(context.Background(), req); err != nil {
		t.Fatalf("HandleSend: %v", err)
	}

	batch := sender.toDevice["glow-a"][0].(protocol.Batch)
	texts := 0
	for _, cmd := range batch.Commands {
		txt, ok := cmd.(protocol.Text)
		if !ok {
			continue
		}
		texts++
		if len(txt.Text) > 255 {
			t.Errorf("text command carries %d bytes", len(txt.Text))
		}
	}
	if texts != 2 {
		t.Errorf("text commands = %d, want 2", texts)
	}
}
