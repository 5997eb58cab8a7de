package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/amirphl/ihancer-relay/config"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedUpstreamRequest struct {
	method      string
	userAgent   string
	encoding    string
	fields      map[string]string
	fieldOrder  []string
	filename    string
	partType    string
	fileContent []byte
}

// captureUpstream reads the multipart body part by part so field order is preserved
func captureUpstream(t *testing.T, r *http.Request) capturedUpstreamRequest {
	t.Helper()
	got := capturedUpstreamRequest{
		method:    r.Method,
		userAgent: r.Header.Get("User-Agent"),
		encoding:  r.Header.Get("Accept-Encoding"),
		fields:    map[string]string{},
	}
	mr, err := r.MultipartReader()
	require.NoError(t, err)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		got.fieldOrder = append(got.fieldOrder, part.FormName())
		if part.FileName() != "" {
			got.filename = part.FileName()
			got.partType = part.Header.Get("Content-Type")
			got.fileContent = data
			continue
		}
		got.fields[part.FormName()] = string(data)
	}
	return got
}

func newTestClient(url string) *IhancerClient {
	client := NewIhancerClient(config.EnhancerConfig{
		URL:     url,
		Timeout: 5 * time.Second,
	})
	client.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return client
}

func TestNewIhancerClientDefaults(t *testing.T) {
	client := NewIhancerClient(config.EnhancerConfig{})

	assert.Equal(t, "ihancer", client.Name())
	assert.Equal(t, "https://ihancer.com/api/enhance", client.URL)
	assert.Equal(t, "Dart/3.5 (dart:io)", client.UserAgent)
	assert.Equal(t, "ihancer", client.FilenamePrefix)
	assert.Equal(t, 2*time.Minute, client.HTTPClient.Timeout)
}

func TestIhancerClientEnhance(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	enhanced := []byte("enhanced-image-bytes")

	var captured capturedUpstreamRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = captureUpstream(t, r)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(enhanced)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Enhance(context.Background(), EnhanceInput{Image: image, Method: 2, MaxImageSize: "medium"})
	require.NoError(t, err)

	assert.Equal(t, enhanced, result.Data)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "Dart/3.5 (dart:io)", captured.userAgent)
	assert.Equal(t, "gzip", captured.encoding)
	assert.Equal(t, []string{"method", "is_pro_version", "is_enhancing_more", "max_image_size", "file"}, captured.fieldOrder)
	assert.Equal(t, map[string]string{
		"method":            "2",
		"is_pro_version":    "false",
		"is_enhancing_more": "false",
		"max_image_size":    "medium",
	}, captured.fields)
	assert.Equal(t, "ihancer_1700000000123.jpg", captured.filename)
	assert.Equal(t, "image/jpeg", captured.partType)
	assert.Equal(t, image, captured.fileContent)
}

func TestIhancerClientEscapesFilenamePrefix(t *testing.T) {
	var captured capturedUpstreamRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = captureUpstream(t, r)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.FilenamePrefix = `we"ird\name`

	_, err := client.Enhance(context.Background(), EnhanceInput{Image: []byte("x"), Method: 1, MaxImageSize: "low"})
	require.NoError(t, err)
	assert.Equal(t, []string{"method", "is_pro_version", "is_enhancing_more", "max_image_size", "file"}, captured.fieldOrder)
	assert.Equal(t, `we"ird\name_1700000000123.jpg`, captured.filename)
}

func TestIhancerClientFilenamePattern(t *testing.T) {
	client := NewIhancerClient(config.EnhancerConfig{})
	assert.Regexp(t, regexp.MustCompile(`^ihancer_\d{13}\.jpg$`), client.filename())
}

func TestIhancerClientDecodesGzip(t *testing.T) {
	enhanced := []byte("gzip-encoded-image")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "image/jpeg")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write(enhanced)
		_ = zw.Close()
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Enhance(context.Background(), EnhanceInput{Image: []byte("x"), Method: 1, MaxImageSize: "low"})
	require.NoError(t, err)
	assert.Equal(t, enhanced, result.Data)
}

func TestIhancerClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusBadGateway)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Enhance(context.Background(), EnhanceInput{Image: []byte("x"), Method: 1, MaxImageSize: "low"})
	require.Error(t, err)
	assert.Nil(t, result)

	var statusErr *UpstreamStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "quota exceeded", statusErr.Body)
	assert.Equal(t, "ihancer responded with status 502", err.Error())
}

func TestIhancerClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	result, err := newTestClient(url).Enhance(context.Background(), EnhanceInput{Image: []byte("x"), Method: 1, MaxImageSize: "low"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to send ihancer request")
}

func TestMockEnhancementProvider(t *testing.T) {
	mock := NewMockEnhancementProvider()
	ctx := context.Background()

	result, err := mock.Enhance(ctx, EnhanceInput{Image: []byte("echo"), Method: 3, MaxImageSize: "high"})
	require.NoError(t, err)
	assert.Equal(t, []byte("echo"), result.Data)
	assert.Equal(t, "image/jpeg", result.ContentType)

	mock.Response = []byte("canned")
	result, err = mock.Enhance(ctx, EnhanceInput{Image: []byte("echo"), Method: 1, MaxImageSize: "low"})
	require.NoError(t, err)
	assert.Equal(t, []byte("canned"), result.Data)

	calls := mock.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[0].Input.Method)
	assert.Equal(t, "high", calls[0].Input.MaxImageSize)

	mock.Err = errors.New("boom")
	_, err = mock.Enhance(ctx, EnhanceInput{})
	assert.EqualError(t, err, "boom")
	assert.Len(t, mock.GetCalls(), 3)

	mock.ClearCalls()
	assert.Empty(t, mock.GetCalls())
}

func TestNewEnhancementProvider(t *testing.T) {
	p, err := NewEnhancementProvider(config.EnhancerConfig{Provider: "ihancer"})
	require.NoError(t, err)
	assert.Equal(t, "ihancer", p.Name())

	p, err = NewEnhancementProvider(config.EnhancerConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = NewEnhancementProvider(config.EnhancerConfig{Provider: "other"})
	assert.EqualError(t, err, `unknown enhancement provider "other"`)
}
