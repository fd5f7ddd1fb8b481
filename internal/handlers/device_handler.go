package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/glowlink/glowlink/internal/ble"
	"github.com/glowlink/glowlink/internal/image"
	"github.com/glowlink/glowlink/pkg/models"
)

// DeviceHandler exposes the delivery API over HTTP.
type DeviceHandler struct {
	events       *EventHandler
	sender       DeviceSender
	redisHealthy func() bool
	logger       *zap.Logger
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(events *EventHandler, sender DeviceSender, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		events: events,
		sender: sender,
		logger: logger,
	}
}

// SetRedisHealth installs a probe reported by the health endpoint. Without
// one the endpoint reports Redis as down.
func (h *DeviceHandler) SetRedisHealth(probe func() bool) {
	h.redisHealthy = probe
}

// RegisterRoutes registers the delivery API routes.
func (h *DeviceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/send", h.handleSend)
	mux.HandleFunc("/api/draw", h.handleDraw)
	mux.HandleFunc("/api/image", h.handleImage)
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.Handle("/metrics", promhttp.Handler())
}

// handleHealth handles GET /health - returns service health status
func (h *DeviceHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.sender.Statistics(r.Context())
	redisUp := h.redisHealthy != nil && h.redisHealthy()
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		ConnectedDevices: stats.ConnectedDevices,
		RedisConnected:   redisUp,
	})
}

// handleDevices handles GET /api/devices - lists registered devices
func (h *DeviceHandler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	devices := h.sender.ListDevices(r.Context())
	if devices == nil {
		devices = []ble.DeviceInfo{}
	}
	writeJSON(w, http.StatusOK, models.DevicesResponse{
		Devices: devices,
		Count:   len(devices),
	})
}

// handleSend handles /api/send - delivers a text message. POST takes a
// JSON body; GET takes the same fields as query parameters, with wrapping
// always on.
func (h *DeviceHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	var req models.SendRequest
	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Error("Failed to decode send request",
				zap.String("request_id", requestID),
				zap.Error(err))
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
	case http.MethodGet:
		q := r.URL.Query()
		req = models.SendRequest{
			Message: q.Get("text"),
			Device:  q.Get("device"),
			Color:   q.Get("color"),
			BgColor: q.Get("bgcolor"),
			Size:    q.Get("size"),
			Wrap:    true,
		}
		if req.Message == "" {
			req.Message = q.Get("message")
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	devices, err := h.events.HandleSend(r.Context(), &req)
	if err != nil {
		h.writeDeliveryError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendResponse{
		Success:   true,
		RequestID: requestID,
		Devices:   devices,
	})
}

// handleDraw handles POST /api/draw - delivers drawing primitives
func (h *DeviceHandler) handleDraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	var req models.DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode draw request",
			zap.String("request_id", requestID),
			zap.Error(err))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	devices, err := h.events.HandleDraw(r.Context(), &req)
	if err != nil {
		h.writeDeliveryError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendResponse{
		Success:   true,
		RequestID: requestID,
		Devices:   devices,
	})
}

// handleImage handles POST /api/image - accepts a multipart upload with a
// "file" field plus optional "device" and "fit" fields.
func (h *DeviceHandler) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()

	if err := r.ParseMultipartForm(image.MaxInputBytes); err != nil {
		h.logger.Error("Failed to parse image upload",
			zap.String("request_id", requestID),
			zap.Error(err))
		http.Error(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, image.MaxInputBytes+1))
	if err != nil {
		h.logger.Error("Failed to read image upload",
			zap.String("request_id", requestID),
			zap.Error(err))
		http.Error(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}

	device := r.FormValue("device")
	fit := r.FormValue("fit")

	delivery, err := h.events.HandleImage(r.Context(), data, device, fit)
	if err != nil {
		h.writeImageError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ImageResponse{
		Success:   true,
		RequestID: requestID,
		Width:     delivery.Width,
		Height:    delivery.Height,
		Tiles:     delivery.Tiles,
	})
}

// handleStats handles GET /api/stats - returns delivery statistics
func (h *DeviceHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, models.StatsResponse{
		Statistics: h.sender.Statistics(r.Context()),
	})
}

// writeDeliveryError maps manager errors onto HTTP statuses.
func (h *DeviceHandler) writeDeliveryError(w http.ResponseWriter, requestID string, err error) {
	h.logger.Error("Delivery failed",
		zap.String("request_id", requestID),
		zap.Error(err))

	writeJSON(w, deliveryStatus(err), models.SendResponse{
		RequestID: requestID,
		Error:     err.Error(),
	})
}

func (h *DeviceHandler) writeImageError(w http.ResponseWriter, requestID string, err error) {
	h.logger.Error("Image delivery failed",
		zap.String("request_id", requestID),
		zap.Error(err))

	status := deliveryStatus(err)
	var tooLarge *image.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, image.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	}

	writeJSON(w, status, models.ImageResponse{
		RequestID: requestID,
		Error:     err.Error(),
	})
}

func deliveryStatus(err error) int {
	switch {
	case ble.IsDeviceNotFound(err):
		return http.StatusNotFound
	case ble.IsDeviceNotConnected(err):
		return http.StatusServiceUnavailable
	case ble.IsConnectionFailed(err), ble.IsTransport(err):
		return http.StatusBadGateway
	case ble.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
