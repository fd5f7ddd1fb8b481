package ble

// DeviceInfo describes a discovered or connected badge.
type DeviceInfo struct {
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Connected    bool         `json:"connected"`
	Ordinal      int          `json:"number,omitempty"`
	RSSI         int8         `json:"signal_strength,omitempty"`
	BatteryLevel uint8        `json:"battery_level,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities describes what a badge's display hardware can do.
type Capabilities struct {
	Display       bool   `json:"display" yaml:"display"`
	Color         bool   `json:"color" yaml:"color"`
	Emoji         bool   `json:"emoji" yaml:"emoji"`
	Regions       bool   `json:"regions" yaml:"regions"`
	DisplayWidth  int    `json:"display_width" yaml:"display_width"`
	DisplayHeight int    `json:"display_height" yaml:"display_height"`
	ColorDepth    uint8  `json:"color_depth" yaml:"color_depth"`
	Profile       string `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// DefaultCapabilities is the ATOMS3-class badge profile assumed when a
// device advertises nothing more specific.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Display:       true,
		Color:         true,
		Emoji:         true,
		Regions:       true,
		DisplayWidth:  128,
		DisplayHeight: 128,
		ColorDepth:    16,
	}
}

// Statistics is a point-in-time snapshot of manager delivery counters.
type Statistics struct {
	TotalDevices          int     `json:"total_devices"`
	ConnectedDevices      int     `json:"connected_devices"`
	TotalCommandsSent     uint64  `json:"total_commands_sent"`
	TotalErrors           uint64  `json:"total_errors"`
	AverageResponseTimeMS float64 `json:"average_response_time_ms"`
	UptimeSeconds         uint64  `json:"uptime_seconds"`
}
