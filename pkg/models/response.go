package models

import "github.com/glowlink/glowlink/internal/ble"

// SendResponse reports the outcome of a delivery request.
type SendResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	Devices   int    `json:"devices,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DevicesResponse lists registered devices in ordinal order.
type DevicesResponse struct {
	Devices []ble.DeviceInfo `json:"devices"`
	Count   int              `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	ConnectedDevices int    `json:"connected_devices"`
	RedisConnected   bool   `json:"redis_connected,omitempty"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	ble.Statistics
}

// ImageResponse reports the outcome of an image delivery, including how
// the picture was tiled.
type ImageResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Tiles     int    `json:"tiles"`
	Error     string `json:"error,omitempty"`
}
