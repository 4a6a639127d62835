package transport

import (
	"errors"
	"net/http"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/Mars1836/drug-recognition/internal/service"
	"github.com/Mars1836/drug-recognition/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DetectDrugUpload serves POST /api/detect-drug (multipart field "image").
func (h *DetectionHandler) DetectDrugUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			err = entity.ErrTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			err = entity.ErrNoImage
		}
		h.fail(c, entity.SourceMultipart, "", err)
		return
	}

	if file.Size > h.maxUploadBytes {
		h.fail(c, entity.SourceMultipart, "", entity.ErrTooLarge)
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, entity.SourceMultipart, "", err)
		return
	}
	defer src.Close()

	result, err := h.service.DetectUpload(c.Request.Context(), service.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	})
	if err != nil {
		h.fail(c, entity.SourceMultipart, "", err)
		return
	}

	h.metrics.RecordDetection(string(entity.SourceMultipart), "", "success", result.FileSize)
	c.JSON(http.StatusOK, result)
}

// DetectDrug serves POST /api/v1/detect-drug ({"image": base64, "type": mode}).
func (h *DetectionHandler) DetectDrug(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxJSONBodyBytes())

	var req entity.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, entity.SourceJSON, "", entity.ErrTooLarge)
			return
		}
		h.metrics.RecordDetection(string(entity.SourceJSON), "", "invalid", 0)
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.DetectEncoded(c.Request.Context(), req)
	if err != nil {
		h.fail(c, entity.SourceJSON, req.Type, err)
		return
	}

	h.metrics.RecordDetection(string(entity.SourceJSON), string(result.Mode), "success", result.FileSize)
	c.JSON(http.StatusOK, result)
}

// GetResult serves GET /api/v1/detect-drug/:process_id.
func (h *DetectionHandler) GetResult(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("process_id"))
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logFailure(c, err)
			message = "Failed to load result"
		}
		c.JSON(status, entity.ErrorResponse{Error: message})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DetectionHandler) fail(c *gin.Context, source entity.Source, mode string, err error) {
	status, message := statusFor(err)
	outcome := "invalid"
	if status >= http.StatusInternalServerError {
		outcome = "error"
		h.logFailure(c, err)
	}
	if _, modeErr := entity.ParseDetectionMode(mode); modeErr != nil {
		mode = ""
	}
	h.metrics.RecordDetection(string(source), mode, outcome, 0)
	c.JSON(status, entity.ErrorResponse{Error: message})
}

func (h *DetectionHandler) logFailure(c *gin.Context, err error) {
	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey),
		"path":       c.Request.URL.Path,
	}).WithError(err).Error("Error processing image")
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrNoImage):
		return http.StatusBadRequest, "No image provided"
	case errors.Is(err, entity.ErrNotImage):
		return http.StatusBadRequest, "File must be an image"
	case errors.Is(err, entity.ErrInvalidMode):
		return http.StatusBadRequest, "Invalid detection type"
	case errors.Is(err, entity.ErrInvalidEncoding):
		return http.StatusBadRequest, "Image must be base64 encoded"
	case errors.Is(err, entity.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, entity.ErrResultNotFound):
		return http.StatusNotFound, "Result not found"
	default:
		return http.StatusInternalServerError, "Failed to process image"
	}
}
