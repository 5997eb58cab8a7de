package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/ihancer-relay/config"
	"github.com/amirphl/ihancer-relay/utils"
	"github.com/klauspost/compress/gzip"
)

// quoteEscaper matches the escaping multipart.Writer.CreateFormFile applies
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// maxErrorBodyBytes bounds how much of a failed upstream body is kept for logs
const maxErrorBodyBytes = 2048

// IhancerClient forwards images to the ihancer enhancement API.
type IhancerClient struct {
	URL            string
	UserAgent      string
	FilenamePrefix string
	HTTPClient     *http.Client
	now            func() time.Time
}

// NewIhancerClient creates an ihancer client from configuration
func NewIhancerClient(cfg config.EnhancerConfig) *IhancerClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = utils.DefaultEnhancerTimeout
	}
	url := cfg.URL
	if url == "" {
		url = utils.IhancerEnhanceURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = utils.IhancerUserAgent
	}
	prefix := cfg.FilenamePrefix
	if prefix == "" {
		prefix = utils.IhancerFilenamePrefix
	}
	return &IhancerClient{
		URL:            url,
		UserAgent:      userAgent,
		FilenamePrefix: prefix,
		HTTPClient:     &http.Client{Timeout: timeout},
		now:            utils.UTCNow,
	}
}

func (c *IhancerClient) Name() string { return "ihancer" }

// Enhance posts the image as multipart form data and returns the raw response bytes.
func (c *IhancerClient) Enhance(ctx context.Context, in EnhanceInput) (*EnhanceResult, error) {
	body, contentType, err := c.buildPayload(in)
	if err != nil {
		return nil, fmt.Errorf("failed to build ihancer payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	// Setting accept-encoding by hand disables the transport's transparent
	// decompression, so gzip bodies are decoded in readBody.
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.UserAgent)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.observe("transport_error", start)
		return nil, fmt.Errorf("failed to send ihancer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe("status_error", start)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &UpstreamStatusError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := readBody(resp)
	if err != nil {
		c.observe("transport_error", start)
		return nil, fmt.Errorf("failed to read ihancer response: %w", err)
	}
	c.observe("ok", start)
	upstreamResponseBytes.WithLabelValues(c.Name()).Observe(float64(len(data)))

	return &EnhanceResult{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// buildPayload writes the fields in the order the upstream form expects.
func (c *IhancerClient) buildPayload(in EnhanceInput) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"method", strconv.Itoa(in.Method)},
		{"is_pro_version", "false"},
		{"is_enhancing_more", "false"},
		{"max_image_size", in.MaxImageSize},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(c.filename())))
	header.Set("Content-Type", utils.EnhancedContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// filename is always declared as .jpg, whatever the uploaded format is.
func (c *IhancerClient) filename() string {
	return fmt.Sprintf("%s_%d.jpg", c.FilenamePrefix, c.now().UnixMilli())
}

func (c *IhancerClient) observe(outcome string, start time.Time) {
	upstreamRequestsTotal.WithLabelValues(c.Name(), outcome).Inc()
	upstreamRequestDuration.WithLabelValues(c.Name(), outcome).Observe(time.Since(start).Seconds())
}

func readBody(resp *http.Response) ([]byte, error) {
	if !strings.EqualFold(strings.TrimSpace(resp.Header.Get("Content-Encoding")), "gzip") {
		return io.ReadAll(resp.Body)
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
