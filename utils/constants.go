package utils

import (
	"time"
)

// Upstream enhancement API constants
const (
	// IhancerEnhanceURL is the enhancement endpoint the relay forwards uploads to
	IhancerEnhanceURL = "https://ihancer.com/api/enhance"

	// IhancerUserAgent is the client identity the upstream expects
	IhancerUserAgent = "Dart/3.5 (dart:io)"

	// IhancerFilenamePrefix prefixes the synthesized upload filename
	IhancerFilenamePrefix = "ihancer"

	// EnhancedContentType is the content type of every relayed result
	EnhancedContentType = "image/jpeg"

	// DefaultEnhancerTimeout bounds one upstream round trip (2 minutes)
	DefaultEnhancerTimeout = 2 * time.Minute
)

// Upload constants
const (
	// DefaultEnhanceMethod is used when the upload carries no method field
	DefaultEnhanceMethod = "1"

	// DefaultEnhanceSize is used when the upload carries no size field
	DefaultEnhanceSize = "low"

	// DefaultMaxUploadBytes caps a single uploaded file (20MB)
	DefaultMaxUploadBytes = int64(20 * 1024 * 1024)

	// MultipartOverheadBytes is added on top of the file cap for the server body limit
	MultipartOverheadBytes = 64 * 1024
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
