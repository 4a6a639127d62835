package transport

import (
	"github.com/Mars1836/drug-recognition/internal/metrics"
	"github.com/Mars1836/drug-recognition/internal/service"
)

// multipartOverhead covers part headers and boundaries on top of the image itself.
const multipartOverhead = 1 << 20

type DetectionHandler struct {
	service        service.DetectionService
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

func NewDetectionHandler(service service.DetectionService, m *metrics.Metrics, maxUploadBytes int64) *DetectionHandler {
	return &DetectionHandler{
		service:        service,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
	}
}

// maxJSONBodyBytes bounds a JSON body carrying a base64 image of maxUploadBytes.
func (h *DetectionHandler) maxJSONBodyBytes() int64 {
	return (h.maxUploadBytes+2)/3*4 + 64<<10
}
