package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/glowlink/glowlink/pkg/protocol"
)

// ManagerOptions tunes connection and recovery behavior. Zero values fall
// back to the defaults the badge firmware was tested against.
type ManagerOptions struct {
	ScanTimeout       time.Duration
	ConnectRetries    int
	RetryDelay        time.Duration
	KeepaliveInterval time.Duration
	SettleDelay       time.Duration
	DisableKeepalive  bool

	// Capabilities resolves a device name to its hardware profile. Nil
	// means every device gets DefaultCapabilities.
	Capabilities func(name string) Capabilities
}

func (o *ManagerOptions) applyDefaults() {
	if o.ScanTimeout <= 0 {
		o.ScanTimeout = 10 * time.Second
	}
	if o.ConnectRetries <= 0 {
		o.ConnectRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.KeepaliveInterval <= 0 {
		o.KeepaliveInterval = 5 * time.Second
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
}

// deviceEntry pairs a connection with its own send lock so commands to one
// badge serialize without blocking the rest of the registry.
type deviceEntry struct {
	mu   sync.Mutex
	conn Connection
}

// Manager owns every active badge connection. It assigns stable 1-based
// ordinals, routes commands to one, some, or all devices, and runs the
// keepalive sweep that heals dropped links.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*deviceEntry

	// order maps ordinal-1 to device name. Removal leaves an empty-string
	// tombstone so surviving ordinals never shift, and new devices always
	// append rather than refill gaps.
	order []string

	autoReconnectMu sync.Mutex
	autoReconnect   bool

	eventMu   sync.Mutex
	eventSink func(name, event string)

	statsMu            sync.Mutex
	totalCommandsSent  uint64
	totalErrors        uint64
	totalResponseTime  time.Duration
	commandCount       uint64
	startTime          time.Time

	replay *replayCache

	prefix         string
	scannerFactory ScannerFactory
	opts           ManagerOptions
	logger         *zap.Logger

	keepaliveOnce   sync.Once
	keepaliveCtx    context.Context
	keepaliveCancel context.CancelFunc
	keepaliveDone   chan struct{}
}

// NewManager creates a manager that discovers devices whose advertised
// name starts with prefix, using scanners from factory.
func NewManager(prefix string, factory ScannerFactory, opts ManagerOptions, logger *zap.Logger) *Manager {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		devices:         make(map[string]*deviceEntry),
		autoReconnect:   true,
		startTime:       time.Now(),
		replay:          newReplayCache(),
		prefix:          prefix,
		scannerFactory:  factory,
		opts:            opts,
		logger:          logger,
		keepaliveCtx:    ctx,
		keepaliveCancel: cancel,
		keepaliveDone:   make(chan struct{}),
	}
}

// RegisterDevice adds a connection under the given name. A new name takes
// the next ordinal; re-registering keeps the existing one. The welcome
// sequence is sent best-effort and becomes the device's initial replay
// state.
func (m *Manager) RegisterDevice(ctx context.Context, name string, conn Connection) error {
	m.mu.Lock()
	ordinal := m.ordinalOfLocked(name)
	if ordinal == 0 {
		m.order = append(m.order, name)
		ordinal = len(m.order)
	}
	entry := &deviceEntry{conn: conn}
	m.devices[name] = entry
	m.mu.Unlock()

	if m.opts.SettleDelay > 0 {
		select {
		case <-time.After(m.opts.SettleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	welcome := []protocol.Command{
		protocol.Clear{Color: protocol.Color{R: 0, G: 64, B: 0}},
		protocol.Text{X: 5, Y: 10, Size: protocol.SizeMedium, Color: protocol.White, Text: "Connected"},
		protocol.Text{X: 5, Y: 16, Size: protocol.SizeSmall, Color: protocol.White, Text: fmt.Sprintf("Device #%d", ordinal)},
	}

	entry.mu.Lock()
	for _, cmd := range welcome {
		if err := entry.conn.Write(ctx, cmd.Encode()); err != nil {
			m.logger.Warn("Failed to send welcome command",
				zap.String("device", name),
				zap.Error(err))
		}
	}
	entry.mu.Unlock()

	m.replay.saveCommand(name, protocol.Batch{Commands: welcome})

	m.logger.Info("Registered device",
		zap.String("device", name),
		zap.Int("ordinal", ordinal))
	m.notify(name, "connected")
	return nil
}

// RemoveDevice disconnects a device best-effort and vacates its ordinal
// slot. The slot is never reused.
func (m *Manager) RemoveDevice(ctx context.Context, name string) error {
	m.mu.Lock()
	entry, ok := m.devices[name]
	if !ok {
		m.mu.Unlock()
		return ErrDeviceNotFound(name)
	}
	delete(m.devices, name)
	for i, n := range m.order {
		if n == name {
			m.order[i] = ""
			break
		}
	}
	m.mu.Unlock()

	entry.mu.Lock()
	if err := entry.conn.Disconnect(ctx); err != nil {
		m.logger.Warn("Failed to disconnect device",
			zap.String("device", name),
			zap.Error(err))
	}
	entry.mu.Unlock()

	m.logger.Info("Removed device", zap.String("device", name))
	m.notify(name, "removed")
	return nil
}

// ConnectWithRetry attempts to open a connection, retrying on failure with
// a fixed delay. The last attempt's error is returned when all fail.
func (m *Manager) ConnectWithRetry(ctx context.Context, scanner Scanner, info DeviceInfo) (Connection, error) {
	var lastErr error

	for attempt := 1; attempt <= m.opts.ConnectRetries; attempt++ {
		m.logger.Info("Connection attempt",
			zap.String("device", info.Name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.opts.ConnectRetries))

		conn, err := scanner.Connect(ctx, info)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		m.logger.Warn("Connection attempt failed",
			zap.String("device", info.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < m.opts.ConnectRetries {
			select {
			case <-time.After(m.opts.RetryDelay):
			case <-ctx.Done():
				return nil, ErrTimeout(info.Name, ctx.Err())
			}
		}
	}

	return nil, ErrConnectionFailed(info.Name, lastErr)
}

// ScanAndConnectAll discovers every device matching the manager's prefix,
// connects to each with retry, and registers the successes. It returns the
// names now registered, including devices that were already connected.
// The keepalive sweep starts once at least one device is registered.
func (m *Manager) ScanAndConnectAll(ctx context.Context) ([]string, error) {
	m.logger.Info("Scanning for devices", zap.String("prefix", m.prefix))

	scanner, err := m.scannerFactory()
	if err != nil {
		return nil, err
	}

	found, err := scanner.Scan(ctx, m.prefix, m.opts.ScanTimeout)
	if err != nil {
		return nil, err
	}

	var connected []string
	for _, info := range found {
		if !strings.HasPrefix(info.Name, m.prefix) {
			continue
		}

		m.mu.RLock()
		_, exists := m.devices[info.Name]
		m.mu.RUnlock()
		if exists {
			m.logger.Info("Device already connected", zap.String("device", info.Name))
			connected = append(connected, info.Name)
			continue
		}

		conn, err := m.ConnectWithRetry(ctx, scanner, info)
		if err != nil {
			m.logger.Error("Failed to connect after all retries",
				zap.String("device", info.Name),
				zap.Error(err))
			continue
		}
		if err := m.RegisterDevice(ctx, info.Name, conn); err != nil {
			m.logger.Error("Failed to register device",
				zap.String("device", info.Name),
				zap.Error(err))
			continue
		}
		connected = append(connected, info.Name)
	}

	if err := scanner.Stop(ctx); err != nil {
		m.logger.Warn("Failed to stop scanner", zap.Error(err))
	}

	m.logger.Info("Scan complete", zap.Int("connected", len(connected)))

	if len(connected) > 0 {
		m.StartKeepalive()
	}
	return connected, nil
}

// SendToDevice encodes and delivers one command to a named device. On
// success the command becomes the device's replay state, except Image
// commands, which are only cached through SaveImageTiles once a full tile
// sequence completes. On failure an opportunistic reconnect runs in the
// background when auto-reconnect is on and the link reports dead.
func (m *Manager) SendToDevice(ctx context.Context, name string, cmd protocol.Command) error {
	m.mu.RLock()
	entry, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		m.recordError()
		return ErrDeviceNotFound(name)
	}

	entry.mu.Lock()
	start := time.Now()
	err := entry.conn.Write(ctx, cmd.Encode())
	elapsed := time.Since(start)
	entry.mu.Unlock()

	if err != nil {
		m.recordError()
		if m.AutoReconnect() && !entry.conn.Connected(ctx) {
			m.logger.Warn("Device disconnected, scheduling reconnect",
				zap.String("device", name))
			go m.tryReconnect(name, entry)
		}
		return ErrTransport(name, err)
	}

	m.recordSuccess(elapsed)
	if _, isImage := cmd.(protocol.Image); !isImage {
		m.replay.saveCommand(name, cmd)
	}
	return nil
}

// SendToAll delivers the command to every registered device sequentially,
// in ordinal order. All devices are attempted; the first error encountered
// is returned at the end.
func (m *Manager) SendToAll(ctx context.Context, cmd protocol.Command) error {
	names := m.registeredNames()
	if len(names) == 0 {
		return ErrDeviceNotConnected("no devices connected")
	}

	var firstErr error
	for _, name := range names {
		if err := m.SendToDevice(ctx, name, cmd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendByOrdinal delivers the command to the device holding the given
// 1-based ordinal.
func (m *Manager) SendByOrdinal(ctx context.Context, ordinal int, cmd protocol.Command) error {
	name, ok := m.DeviceNameByOrdinal(ordinal)
	if !ok {
		return ErrDeviceNotFound(fmt.Sprintf("device #%d", ordinal))
	}
	return m.SendToDevice(ctx, name, cmd)
}

// DeviceNameByOrdinal resolves a 1-based ordinal to a registered device
// name. Vacated slots resolve to nothing.
func (m *Manager) DeviceNameByOrdinal(ordinal int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ordinal < 1 || ordinal > len(m.order) {
		return "", false
	}
	name := m.order[ordinal-1]
	if name == "" {
		return "", false
	}
	if _, ok := m.devices[name]; !ok {
		return "", false
	}
	return name, true
}

// ListDevices returns info for every registered device in ordinal order.
func (m *Manager) ListDevices(ctx context.Context) []DeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []DeviceInfo
	for i, name := range m.order {
		if name == "" {
			continue
		}
		entry, ok := m.devices[name]
		if !ok {
			continue
		}
		info := entry.conn.Info()
		info.Ordinal = i + 1
		info.Connected = entry.conn.Connected(ctx)
		info.Capabilities = m.capabilitiesFor(name)
		out = append(out, info)
	}
	return out
}

func (m *Manager) capabilitiesFor(name string) Capabilities {
	if m.opts.Capabilities != nil {
		return m.opts.Capabilities(name)
	}
	return DefaultCapabilities()
}

// IsDeviceConnected reports whether a named device is registered and its
// link is live.
func (m *Manager) IsDeviceConnected(ctx context.Context, name string) bool {
	m.mu.RLock()
	entry, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return entry.conn.Connected(ctx)
}

// ReconnectDevice re-establishes a named device's link in place.
func (m *Manager) ReconnectDevice(ctx context.Context, name string) error {
	m.mu.RLock()
	entry, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		return ErrDeviceNotFound(name)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := entry.conn.Reconnect(ctx); err != nil {
		return err
	}
	m.notify(name, "reconnected")
	return nil
}

// SetEventSink installs a callback invoked after device lifecycle
// transitions (connected, reconnected, removed). Must be set before
// devices register.
func (m *Manager) SetEventSink(sink func(name, event string)) {
	m.eventMu.Lock()
	m.eventSink = sink
	m.eventMu.Unlock()
}

func (m *Manager) notify(name, event string) {
	m.eventMu.Lock()
	sink := m.eventSink
	m.eventMu.Unlock()
	if sink != nil {
		sink(name, event)
	}
}

// SetAutoReconnect toggles opportunistic reconnects after send failures.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.autoReconnectMu.Lock()
	m.autoReconnect = enabled
	m.autoReconnectMu.Unlock()
	m.logger.Info("Auto-reconnect set", zap.Bool("enabled", enabled))
}

// AutoReconnect reports the current auto-reconnect setting.
func (m *Manager) AutoReconnect() bool {
	m.autoReconnectMu.Lock()
	defer m.autoReconnectMu.Unlock()
	return m.autoReconnect
}

// DisconnectAll tears down every registered connection and clears the
// registry, ordinals included.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.mu.Lock()
	devices := m.devices
	m.devices = make(map[string]*deviceEntry)
	m.order = nil
	m.mu.Unlock()

	for name, entry := range devices {
		m.logger.Info("Disconnecting device", zap.String("device", name))
		entry.mu.Lock()
		if err := entry.conn.Disconnect(ctx); err != nil {
			m.logger.Warn("Failed to disconnect device",
				zap.String("device", name),
				zap.Error(err))
		}
		entry.mu.Unlock()
		m.replay.forget(name)
	}
	return nil
}

// SaveImageTiles records a completed image-tile sequence as the device's
// replay state, replacing any cached single command.
func (m *Manager) SaveImageTiles(name string, tiles []protocol.Command) {
	m.replay.saveTiles(name, tiles)
}

// Statistics returns a snapshot of delivery counters and connection
// counts.
func (m *Manager) Statistics(ctx context.Context) Statistics {
	m.mu.RLock()
	total := len(m.devices)
	connected := 0
	for _, entry := range m.devices {
		if entry.conn.Connected(ctx) {
			connected++
		}
	}
	m.mu.RUnlock()

	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	avg := 0.0
	if m.commandCount > 0 {
		avg = float64(m.totalResponseTime.Milliseconds()) / float64(m.commandCount)
	}
	return Statistics{
		TotalDevices:          total,
		ConnectedDevices:      connected,
		TotalCommandsSent:     m.totalCommandsSent,
		TotalErrors:           m.totalErrors,
		AverageResponseTimeMS: avg,
		UptimeSeconds:         uint64(time.Since(m.startTime).Seconds()),
	}
}

// Close stops the keepalive sweep and disconnects every device.
func (m *Manager) Close(ctx context.Context) error {
	m.StopKeepalive()
	return m.DisconnectAll(ctx)
}

// ordinalOfLocked returns the existing 1-based ordinal for name, or 0 if
// the name has no slot. Caller holds m.mu.
func (m *Manager) ordinalOfLocked(name string) int {
	for i, n := range m.order {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// registeredNames snapshots device names in ordinal order.
func (m *Manager) registeredNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for _, name := range m.order {
		if name == "" {
			continue
		}
		if _, ok := m.devices[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// tryReconnect is the best-effort recovery path after a failed send.
func (m *Manager) tryReconnect(name string, entry *deviceEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := entry.conn.Reconnect(ctx); err != nil {
		m.logger.Error("Failed to reconnect device",
			zap.String("device", name),
			zap.Error(err))
		return
	}
	m.logger.Info("Reconnected device", zap.String("device", name))
	m.notify(name, "reconnected")
}

func (m *Manager) recordSuccess(elapsed time.Duration) {
	m.statsMu.Lock()
	m.totalCommandsSent++
	m.totalResponseTime += elapsed
	m.commandCount++
	m.statsMu.Unlock()
}

func (m *Manager) recordError() {
	m.statsMu.Lock()
	m.totalErrors++
	m.statsMu.Unlock()
}
