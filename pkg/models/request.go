package models

import "time"

// SendRequest is the body of POST /api/send: a text message for one or
// more devices.
type SendRequest struct {
	Message string `json:"message"`
	Device  string `json:"device,omitempty"`
	Color   string `json:"color,omitempty"`
	BgColor string `json:"bgcolor,omitempty"`
	Size    string `json:"size,omitempty"`
	X       *int   `json:"x,omitempty"`
	Y       *int   `json:"y,omitempty"`
	Wrap    bool   `json:"wrap,omitempty"`
}

// DrawCommand is one primitive inside a draw request.
type DrawCommand struct {
	Type   string `json:"type"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	X2     int    `json:"x2,omitempty"`
	Y2     int    `json:"y2,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Radius int    `json:"radius,omitempty"`
	Filled bool   `json:"filled,omitempty"`
	Color  string `json:"color,omitempty"`
	Size   string `json:"size,omitempty"`
	Text   string `json:"text,omitempty"`
	Emoji  string `json:"emoji,omitempty"`
}

// DrawRequest is the body of POST /api/draw: an ordered list of drawing
// primitives applied as one batch.
type DrawRequest struct {
	Device   string        `json:"device,omitempty"`
	Commands []DrawCommand `json:"commands"`
}

// ImageRequest is the body of POST /api/image when the image arrives as
// base64 JSON rather than a multipart upload.
type ImageRequest struct {
	Device string `json:"device,omitempty"`
	Data   string `json:"data"`
	Fit    string `json:"fit,omitempty"`
}

// DisplayRequest is the envelope consumed from the Redis ingress stream.
// Exactly one of Send, Draw, or Image is expected to be set.
type DisplayRequest struct {
	Type  string        `json:"type"`
	UUID  string        `json:"uuid,omitempty"`
	Send  *SendRequest  `json:"send,omitempty"`
	Draw  *DrawRequest  `json:"draw,omitempty"`
	Image *ImageRequest `json:"image,omitempty"`
}

// DisplayResult is published to a device channel after a stream request
// has been processed.
type DisplayResult struct {
	Type        string    `json:"type"`
	UUID        string    `json:"uuid,omitempty"`
	Device      string    `json:"device"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
