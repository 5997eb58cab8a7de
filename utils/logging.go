package utils

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOutput describes where application logs are written
type LogOutput struct {
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// NewLogWriter builds the writer for the standard logger. File output is
// rotated by lumberjack; unknown outputs fall back to stdout.
func NewLogWriter(out LogOutput) (io.Writer, error) {
	switch out.Output {
	case "file":
		return newRotatingFile(out)
	case "both":
		file, err := newRotatingFile(out)
		if err != nil {
			return nil, err
		}
		return io.MultiWriter(os.Stdout, file), nil
	default:
		return os.Stdout, nil
	}
}

func newRotatingFile(out LogOutput) (*lumberjack.Logger, error) {
	if dir := filepath.Dir(out.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &lumberjack.Logger{
		Filename:   out.FilePath,
		MaxSize:    out.MaxSize,
		MaxBackups: out.MaxBackups,
		MaxAge:     out.MaxAge,
		Compress:   out.Compress,
	}, nil
}
