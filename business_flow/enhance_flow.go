package businessflow

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/amirphl/ihancer-relay/app/dto"
	"github.com/amirphl/ihancer-relay/app/services"
	"github.com/amirphl/ihancer-relay/utils"
	"github.com/go-playground/validator/v10"
)

// EnhanceFlow handles the upload relay business logic
type EnhanceFlow interface {
	Enhance(ctx context.Context, req *dto.EnhanceRequest, metadata *ClientMetadata) (*dto.EnhanceResponse, error)
}

// EnhanceFlowImpl implements the enhance business flow
type EnhanceFlowImpl struct {
	provider  services.EnhancementProvider
	validator *validator.Validate
}

// NewEnhanceFlow creates a new enhance flow instance
func NewEnhanceFlow(provider services.EnhancementProvider) EnhanceFlow {
	return &EnhanceFlowImpl{
		provider:  provider,
		validator: validator.New(),
	}
}

// Enhance validates the upload and forwards it to the provider exactly once
func (f *EnhanceFlowImpl) Enhance(ctx context.Context, req *dto.EnhanceRequest, metadata *ClientMetadata) (*dto.EnhanceResponse, error) {
	if req == nil || !req.FileReceived {
		return nil, NewBusinessError(CodeMissingUpload, ErrMissingUpload.Error(), ErrMissingUpload)
	}

	opts, err := f.validateOptions(req)
	if err != nil {
		return nil, err
	}

	if format := DetectImageFormat(req.File); format != formatJPEG {
		if format == "" {
			format = "unknown"
		}
		log.Printf("enhance: forwarding %s content as .jpg request_id=%s endpoint=%s ip=%s filename=%q",
			format, requestID(ctx, metadata), endpoint(ctx), clientIP(metadata), req.Filename)
	}

	result, err := f.provider.Enhance(ctx, services.EnhanceInput{
		Image:        req.File,
		Method:       opts.Method,
		MaxImageSize: opts.Size,
	})
	if err != nil {
		return nil, NewBusinessError(CodeUpstreamFailure, "Failed to enhance image", fmt.Errorf("%w: %w", ErrUpstreamFailure, err))
	}

	return &dto.EnhanceResponse{
		Data:        result.Data,
		ContentType: utils.EnhancedContentType,
		Provider:    f.provider.Name(),
		SizeBytes:   len(result.Data),
	}, nil
}

// validateOptions checks size before method. Method must be a plain integer.
func (f *EnhanceFlowImpl) validateOptions(req *dto.EnhanceRequest) (*dto.EnhanceOptions, error) {
	opts := &dto.EnhanceOptions{Size: req.Size}
	if err := f.validator.StructPartial(opts, "Size"); err != nil {
		return nil, NewBusinessError(CodeValidationError, ErrInvalidSize.Error(), fmt.Errorf("%w: %s", ErrInvalidSize, validationDetail(err)))
	}

	method, err := strconv.Atoi(req.Method)
	if err != nil {
		return nil, NewBusinessError(CodeValidationError, ErrInvalidMethod.Error(), fmt.Errorf("%w: %q is not an integer", ErrInvalidMethod, req.Method))
	}
	opts.Method = method
	if err := f.validator.StructPartial(opts, "Method"); err != nil {
		return nil, NewBusinessError(CodeValidationError, ErrInvalidMethod.Error(), fmt.Errorf("%w: %s", ErrInvalidMethod, validationDetail(err)))
	}
	return opts, nil
}

// requestID prefers the ID the transport put on the context
func requestID(ctx context.Context, metadata *ClientMetadata) string {
	if id, ok := ctx.Value(utils.RequestIDKey).(string); ok && id != "" {
		return id
	}
	if metadata == nil {
		return ""
	}
	return metadata.RequestID
}

func endpoint(ctx context.Context) string {
	if ep, ok := ctx.Value(utils.EndpointKey).(string); ok {
		return ep
	}
	return ""
}

func clientIP(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.IPAddress
}
