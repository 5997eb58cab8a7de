// Package adapters provides adapter functions to bridge different layers of the application
package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/ihancer-relay/app/dto"
	"github.com/amirphl/ihancer-relay/app/handlers"
	businessflow "github.com/amirphl/ihancer-relay/business_flow"
	"github.com/amirphl/ihancer-relay/config"
	"github.com/amirphl/ihancer-relay/utils"
	"github.com/aws/aws-lambda-go/events"
)

// LambdaEnhanceAdapter serves the upload relay from API Gateway proxy events
type LambdaEnhanceAdapter struct {
	flow     businessflow.EnhanceFlow
	defaults dto.EnhanceDefaults
	maxBytes int64
	timeout  time.Duration
}

// NewLambdaEnhanceAdapter creates a new lambda adapter around the enhance flow
func NewLambdaEnhanceAdapter(flow businessflow.EnhanceFlow, upload config.UploadConfig, requestTimeout time.Duration) *LambdaEnhanceAdapter {
	if requestTimeout <= 0 {
		requestTimeout = utils.DefaultEnhancerTimeout
	}
	return &LambdaEnhanceAdapter{
		flow: flow,
		defaults: dto.EnhanceDefaults{
			Method: upload.DefaultMethod,
			Size:   upload.DefaultSize,
		},
		maxBytes: upload.MaxBytes,
		timeout:  requestTimeout,
	}
}

// Handle converts one proxy event into a relay call. Relay failures are rendered
// into the response; the returned error is always nil so API Gateway sees a normal reply.
func (a *LambdaEnhanceAdapter) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID

	if !strings.EqualFold(req.HTTPMethod, http.MethodPost) {
		resp := a.failure(requestID, businessflow.NewBusinessError(businessflow.CodeMethodNotAllowed, businessflow.ErrMethodNotAllowed.Error(), businessflow.ErrMethodNotAllowed))
		resp.Headers["Allow"] = http.MethodPost
		return resp, nil
	}

	body, err := decodeBody(req)
	if err != nil {
		return a.failure(requestID, businessflow.NewBusinessError(businessflow.CodeMalformedUpload, "Failed to parse upload", fmt.Errorf("%w: %w", businessflow.ErrMalformedUpload, err))), nil
	}

	upload, err := businessflow.ParseEnhanceUpload(bytes.NewReader(body), header(req, "Content-Type"), a.defaults, a.maxBytes)
	if err != nil {
		return a.failure(requestID, err), nil
	}

	metadata := businessflow.NewClientMetadata(req.RequestContext.Identity.SourceIP, header(req, "User-Agent"))
	metadata.SetRequestID(requestID)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	ctx = context.WithValue(ctx, utils.EndpointKey, req.Path)

	result, err := a.flow.Enhance(ctx, upload, metadata)
	if err != nil {
		return a.failure(requestID, err), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusOK,
		Headers:         map[string]string{"Content-Type": result.ContentType},
		Body:            base64.StdEncoding.EncodeToString(result.Data),
		IsBase64Encoded: true,
	}, nil
}

func (a *LambdaEnhanceAdapter) failure(requestID string, err error) events.APIGatewayProxyResponse {
	f := handlers.NewEnhanceFailure(err)
	handlers.LogEnhanceFailure(requestID, f.Status, err)
	return events.APIGatewayProxyResponse{
		StatusCode: f.Status,
		Headers:    map[string]string{"Content-Type": f.ContentType},
		Body:       string(f.Body),
	}
}

func decodeBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	data, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 body: %w", err)
	}
	return data, nil
}

// header looks a request header up case-insensitively in both header maps
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, values := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
