package dto

// EnhanceDefaults holds the option values used when an upload omits them.
type EnhanceDefaults struct {
	Method string
	Size   string
}

// EnhanceRequest is a parsed upload passed from transport to flow.
type EnhanceRequest struct {
	File         []byte `json:"-"`
	FileReceived bool   `json:"-"`
	Filename     string `json:"-"`
	ContentType  string `json:"-"`
	Method       string `json:"method"`
	Size         string `json:"size"`
}

// EnhanceOptions are the validated enhancement options.
type EnhanceOptions struct {
	Method int    `json:"method" validate:"oneof=1 2 3 4"`
	Size   string `json:"size" validate:"oneof=low medium high"`
}

// EnhanceResponse carries the enhanced image back to the transport layer.
type EnhanceResponse struct {
	Data        []byte `json:"-"`
	ContentType string `json:"-"`
	Provider    string `json:"provider"`
	SizeBytes   int    `json:"size_bytes"`
}
