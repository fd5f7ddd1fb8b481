package ble

import (
	"context"
	"time"
)

// Connection is one established link to a badge. Implementations own the
// underlying radio handle and must be safe for use from a single goroutine
// at a time; the Manager serializes access per device.
type Connection interface {
	// Write delivers one encoded command frame to the device.
	Write(ctx context.Context, frame []byte) error

	// Connected reports whether the link is still live.
	Connected(ctx context.Context) bool

	// Info returns the device's identity and capabilities.
	Info() DeviceInfo

	// Disconnect tears the link down.
	Disconnect(ctx context.Context) error

	// Reconnect re-establishes a dropped link in place.
	Reconnect(ctx context.Context) error
}

// Scanner discovers badges and opens Connections to them.
type Scanner interface {
	// Scan discovers devices whose advertised name starts with prefix,
	// collecting for at most timeout.
	Scan(ctx context.Context, prefix string, timeout time.Duration) ([]DeviceInfo, error)

	// Connect opens a link to a previously discovered device.
	Connect(ctx context.Context, info DeviceInfo) (Connection, error)

	// Stop ends any in-progress scan and releases the radio.
	Stop(ctx context.Context) error
}

// ScannerFactory builds a fresh Scanner per scan pass.
type ScannerFactory func() (Scanner, error)
