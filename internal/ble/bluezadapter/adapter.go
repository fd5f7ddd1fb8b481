// Package bluezadapter implements the radio-facing side of the device
// manager on top of tinygo.org/x/bluetooth, which talks to BlueZ over
// D-Bus on Linux.
package bluezadapter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/glowlink/glowlink/internal/ble"
	"github.com/glowlink/glowlink/pkg/protocol"
)

// enable runs once per process; BlueZ rejects repeated power-on calls.
var enableOnce sync.Once
var enableErr error

func enableAdapter() error {
	enableOnce.Do(func() {
		enableErr = bluetooth.DefaultAdapter.Enable()
	})
	return enableErr
}

// Scanner discovers badges through the host's BlueZ stack.
type Scanner struct {
	adapter *bluetooth.Adapter
	logger  *zap.Logger

	mu    sync.Mutex
	found map[string]bluetooth.ScanResult

	maxWrite int
}

// NewScanner creates a scanner bound to the default host adapter.
// maxWrite caps a single GATT write; badges negotiate 512-byte MTUs.
func NewScanner(maxWrite int, logger *zap.Logger) (*Scanner, error) {
	if err := enableAdapter(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	if maxWrite <= 0 {
		maxWrite = 512
	}
	return &Scanner{
		adapter:  bluetooth.DefaultAdapter,
		logger:   logger,
		found:    make(map[string]bluetooth.ScanResult),
		maxWrite: maxWrite,
	}, nil
}

// Scan collects advertising devices whose local name starts with prefix
// until the timeout elapses.
func (s *Scanner) Scan(ctx context.Context, prefix string, timeout time.Duration) ([]ble.DeviceInfo, error) {
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if name == "" || !strings.HasPrefix(name, prefix) {
				return
			}
			s.mu.Lock()
			if _, seen := s.found[name]; !seen {
				s.logger.Debug("Discovered device",
					zap.String("device", name),
					zap.String("address", result.Address.String()),
					zap.Int16("rssi", result.RSSI))
			}
			s.found[name] = result
			s.mu.Unlock()
		})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
	case <-scanCtx.Done():
		if err := s.adapter.StopScan(); err != nil {
			s.logger.Warn("Failed to stop scan", zap.Error(err))
		}
		<-errCh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]ble.DeviceInfo, 0, len(s.found))
	for name, result := range s.found {
		infos = append(infos, ble.DeviceInfo{
			Name:         name,
			Address:      result.Address.String(),
			RSSI:         clampRSSI(result.RSSI),
			Capabilities: ble.DefaultCapabilities(),
		})
	}
	return infos, nil
}

// Connect opens a GATT link to a previously discovered device and resolves
// the command characteristic.
func (s *Scanner) Connect(ctx context.Context, info ble.DeviceInfo) (ble.Connection, error) {
	s.mu.Lock()
	result, ok := s.found[info.Name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("device %s was not discovered in this scan pass", info.Name)
	}

	conn := &Connection{
		adapter:  s.adapter,
		address:  result.Address,
		info:     info,
		maxWrite: s.maxWrite,
		logger:   s.logger,
	}
	if err := conn.establish(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// Stop ends any in-progress scan.
func (s *Scanner) Stop(ctx context.Context) error {
	// StopScan errors when no scan is running; that is fine here.
	_ = s.adapter.StopScan()
	return nil
}

// Connection is one GATT link to a badge. Large frames are split into
// maxWrite-sized chunks. BlueZ through this library only exposes
// write-without-response, so delivery errors surface on the next write or
// keepalive sweep rather than per frame.
type Connection struct {
	adapter  *bluetooth.Adapter
	address  bluetooth.Address
	info     ble.DeviceInfo
	maxWrite int
	logger   *zap.Logger

	mu        sync.Mutex
	device    bluetooth.Device
	commandCh bluetooth.DeviceCharacteristic
	live      atomic.Bool
}

func (c *Connection) establish(ctx context.Context) error {
	device, err := c.adapter.Connect(c.address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.info.Name, err)
	}

	serviceUUID, err := bluetooth.ParseUUID(protocol.ServiceUUID)
	if err != nil {
		return fmt.Errorf("parse service uuid: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(protocol.CommandCharUUID)
	if err != nil {
		return fmt.Errorf("parse characteristic uuid: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		_ = device.Disconnect()
		return fmt.Errorf("discover services on %s: %w", c.info.Name, err)
	}
	if len(services) == 0 {
		_ = device.Disconnect()
		return fmt.Errorf("device %s does not expose the command service", c.info.Name)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil {
		_ = device.Disconnect()
		return fmt.Errorf("discover characteristics on %s: %w", c.info.Name, err)
	}
	if len(chars) == 0 {
		_ = device.Disconnect()
		return fmt.Errorf("device %s does not expose the command characteristic", c.info.Name)
	}

	c.mu.Lock()
	c.device = device
	c.commandCh = chars[0]
	c.mu.Unlock()
	c.live.Store(true)

	c.logger.Info("Established GATT link",
		zap.String("device", c.info.Name),
		zap.String("address", c.address.String()))
	return nil
}

// Write delivers one encoded command frame, chunking to the link's MTU.
func (c *Connection) Write(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, chunk := range splitChunks(frame, c.maxWrite) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.commandCh.WriteWithoutResponse(chunk); err != nil {
			c.live.Store(false)
			return fmt.Errorf("write to %s: %w", c.info.Name, err)
		}
	}
	return nil
}

// splitChunks cuts a frame into max-sized slices of the original backing
// array. A nil or empty frame yields no chunks.
func splitChunks(frame []byte, max int) [][]byte {
	if max <= 0 {
		max = 512
	}
	chunks := make([][]byte, 0, (len(frame)+max-1)/max)
	for offset := 0; offset < len(frame); offset += max {
		end := min(offset+max, len(frame))
		chunks = append(chunks, frame[offset:end])
	}
	return chunks
}

// Connected reports whether the link is believed live. BlueZ does not push
// disconnect events through this API, so liveness degrades on the first
// failed write and recovers on Reconnect.
func (c *Connection) Connected(ctx context.Context) bool {
	return c.live.Load()
}

// Info returns the device's identity as discovered.
func (c *Connection) Info() ble.DeviceInfo {
	info := c.info
	info.Connected = c.live.Load()
	return info
}

// Disconnect tears the GATT link down.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live.Store(false)
	if err := c.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", c.info.Name, err)
	}
	return nil
}

// Reconnect drops the stale handle and establishes a fresh link to the
// same address.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	_ = c.device.Disconnect()
	c.mu.Unlock()
	c.live.Store(false)
	return c.establish(ctx)
}

func clampRSSI(rssi int16) int8 {
	if rssi < -128 {
		return -128
	}
	if rssi > 127 {
		return 127
	}
	return int8(rssi)
}
