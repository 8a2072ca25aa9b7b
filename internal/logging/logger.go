// Package logging builds the service's zap logger.
package logging

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger at the given level. Unknown levels fall back to info.
func New(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Writer adapts a logger to io.Writer so line-oriented output, such as
// access logs, ends up in the structured log stream.
type Writer struct {
	log *zap.Logger
}

// NewWriter returns a Writer that logs each line at info level.
func NewWriter(log *zap.Logger) *Writer {
	return &Writer{log: log}
}

func (w *Writer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.log.Info(string(line))
	}
	return len(p), nil
}
