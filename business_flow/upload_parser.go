package businessflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/amirphl/ihancer-relay/app/dto"
	"github.com/amirphl/ihancer-relay/utils"
)

const (
	fieldMethod = "method"
	fieldSize   = "size"
)

// ParseEnhanceUpload reads a multipart/form-data body into an EnhanceRequest.
// Any part whose Content-Disposition carries a filename parameter is taken as
// the image, whatever its field name; when several arrive the last one wins.
func ParseEnhanceUpload(body io.Reader, contentType string, defaults dto.EnhanceDefaults, maxBytes int64) (*dto.EnhanceRequest, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, malformedUpload(fmt.Errorf("invalid content type %q: %w", contentType, err))
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, malformedUpload(fmt.Errorf("unsupported content type %q", mediaType))
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, malformedUpload(errors.New("missing multipart boundary"))
	}
	if maxBytes <= 0 {
		maxBytes = utils.DefaultMaxUploadBytes
	}

	req := &dto.EnhanceRequest{
		Method: defaults.Method,
		Size:   defaults.Size,
	}

	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformedUpload(fmt.Errorf("failed to read part: %w", err))
		}

		if filename, ok := partFilename(part); ok {
			data, err := readLimited(part, maxBytes)
			_ = part.Close()
			if err != nil {
				if errors.Is(err, errPartTooLarge) {
					return nil, NewBusinessErrorf(CodeUploadTooLarge, "Uploaded file exceeds %d bytes", ErrUploadTooLarge, maxBytes)
				}
				return nil, malformedUpload(fmt.Errorf("failed to read file part: %w", err))
			}
			req.File = data
			req.FileReceived = true
			req.Filename = filename
			req.ContentType = part.Header.Get("Content-Type")
			continue
		}

		name := part.FormName()
		if name != fieldMethod && name != fieldSize {
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
			continue
		}
		value, err := readLimited(part, utils.MultipartOverheadBytes)
		_ = part.Close()
		if err != nil {
			return nil, malformedUpload(fmt.Errorf("failed to read field %s: %w", name, err))
		}
		switch name {
		case fieldMethod:
			req.Method = string(value)
		case fieldSize:
			req.Size = string(value)
		}
	}

	return req, nil
}

var errPartTooLarge = errors.New("part exceeds limit")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, errPartTooLarge
	}
	return buf.Bytes(), nil
}

// partFilename reports whether the part is a file part. Part.FileName cannot
// tell an empty filename="" apart from a plain field, so the header is parsed here.
func partFilename(part *multipart.Part) (string, bool) {
	disposition := part.Header.Get("Content-Disposition")
	if disposition == "" {
		return "", false
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", false
	}
	filename, ok := params["filename"]
	return filename, ok
}

func malformedUpload(err error) error {
	return NewBusinessError(CodeMalformedUpload, "Failed to parse upload", fmt.Errorf("%w: %w", ErrMalformedUpload, err))
}
