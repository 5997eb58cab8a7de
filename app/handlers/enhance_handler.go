// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/amirphl/ihancer-relay/app/dto"
	businessflow "github.com/amirphl/ihancer-relay/business_flow"
	"github.com/amirphl/ihancer-relay/config"
	"github.com/amirphl/ihancer-relay/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

const enhanceEndpoint = "/api/enhance"

// EnhanceHandlerInterface defines the contract for the upload relay handler
type EnhanceHandlerInterface interface {
	Enhance(c fiber.Ctx) error
}

// EnhanceHandler relays uploaded images to the enhancement provider
type EnhanceHandler struct {
	flow     businessflow.EnhanceFlow
	defaults dto.EnhanceDefaults
	maxBytes int64
	timeout  time.Duration
}

// NewEnhanceHandler creates a new enhance handler
func NewEnhanceHandler(flow businessflow.EnhanceFlow, upload config.UploadConfig, requestTimeout time.Duration) *EnhanceHandler {
	if requestTimeout <= 0 {
		requestTimeout = utils.DefaultEnhancerTimeout
	}
	return &EnhanceHandler{
		flow: flow,
		defaults: dto.EnhanceDefaults{
			Method: upload.DefaultMethod,
			Size:   upload.DefaultSize,
		},
		maxBytes: upload.MaxBytes,
		timeout:  requestTimeout,
	}
}

// EnhanceFailure is a transport-neutral rendering of a relay error
type EnhanceFailure struct {
	Status      int
	ContentType string
	Body        []byte
}

// NewEnhanceFailure maps a relay error onto the response the caller sees.
// Method and missing-upload errors are plain text, everything else is JSON.
func NewEnhanceFailure(err error) EnhanceFailure {
	switch {
	case businessflow.IsMethodNotAllowed(err):
		return plainFailure(fiber.StatusMethodNotAllowed, businessflow.ErrMethodNotAllowed.Error())
	case businessflow.IsMissingUpload(err):
		return plainFailure(fiber.StatusBadRequest, businessflow.ErrMissingUpload.Error())
	case businessflow.IsUploadTooLarge(err):
		return jsonFailure(fiber.StatusRequestEntityTooLarge, businessflow.PublicMessage(err))
	default:
		return jsonFailure(fiber.StatusInternalServerError, businessflow.PublicMessage(err))
	}
}

func plainFailure(status int, message string) EnhanceFailure {
	return EnhanceFailure{Status: status, ContentType: fiber.MIMETextPlainCharsetUTF8, Body: []byte(message)}
}

func jsonFailure(status int, message string) EnhanceFailure {
	body, err := json.Marshal(dto.ErrorResponse{Error: message})
	if err != nil {
		body = []byte(`{"error":"Internal server error"}`)
	}
	return EnhanceFailure{Status: status, ContentType: fiber.MIMEApplicationJSON, Body: body}
}

// LogEnhanceFailure writes one event line with the internal cause of a relay failure
func LogEnhanceFailure(requestID string, status int, err error) {
	if status < fiber.StatusInternalServerError && status != fiber.StatusRequestEntityTooLarge {
		return
	}
	log.Printf(`{"event":"enhance_failed","request_id":%q,"status":%d,"code":%q,"error":%q}`,
		requestID, status, businessflow.ErrorCode(err), err.Error())
}

// Enhance relays one uploaded image and returns the enhanced result
// @Summary Enhance image
// @Description Forward an uploaded image to the enhancement provider and return the enhanced JPEG
// @Tags Enhance
// @Accept mpfd
// @Produce jpeg
// @Param file formData file true "Image to enhance"
// @Param method formData int false "Enhancement method (1-4)" default(1)
// @Param size formData string false "Maximum output size (low, medium, high)" default(low)
// @Success 200 {file} binary "Enhanced image"
// @Failure 400 {string} string "No image uploaded."
// @Failure 405 {string} string "Method Not Allowed"
// @Failure 413 {object} dto.ErrorResponse "Uploaded file too large"
// @Failure 500 {object} dto.ErrorResponse "Validation or upstream failure"
// @Router /api/enhance [post]
func (h *EnhanceHandler) Enhance(c fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		c.Set(fiber.HeaderAllow, fiber.MethodPost)
		return h.failure(c, businessflow.NewBusinessError(businessflow.CodeMethodNotAllowed, businessflow.ErrMethodNotAllowed.Error(), businessflow.ErrMethodNotAllowed))
	}

	req, err := businessflow.ParseEnhanceUpload(bytes.NewReader(c.Body()), c.Get(fiber.HeaderContentType), h.defaults, h.maxBytes)
	if err != nil {
		return h.failure(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get(fiber.HeaderUserAgent))
	metadata.SetRequestID(requestid.FromContext(c))

	ctx, cancel := h.createRequestContext(c, enhanceEndpoint)
	defer cancel()

	result, err := h.flow.Enhance(ctx, req, metadata)
	if err != nil {
		return h.failure(c, err)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	return c.Status(fiber.StatusOK).Send(result.Data)
}

func (h *EnhanceHandler) failure(c fiber.Ctx, err error) error {
	f := NewEnhanceFailure(err)
	LogEnhanceFailure(requestid.FromContext(c), f.Status, err)
	c.Set(fiber.HeaderContentType, f.ContentType)
	return c.Status(f.Status).Send(f.Body)
}

func (h *EnhanceHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}
