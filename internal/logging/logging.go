// Package logging builds the zap logger shared by the CLI and the updater.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to w (stderr when nil).
//
// The format can be [console,json]. The default is console, with coloured
// levels unless colour output is disabled. verbose lowers the level from info
// to debug.
func New(w io.Writer, format string, verbose bool) (*zap.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	encoder, err := newEncoder(format)
	if err != nil {
		return nil, err
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return zap.New(
		zapcore.NewCore(
			encoder,
			zapcore.Lock(zapcore.AddSync(w)),
			zap.NewAtomicLevelAt(level),
		),
	), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "":
		cfg := zapcore.EncoderConfig{
			MessageKey:       "M",
			LevelKey:         "L",
			TimeKey:          "T",
			NameKey:          "N",
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: "\t",
		}
		if !color.NoColor {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeDuration = zapcore.StringDurationEncoder
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format [console,json]: %q", format)
	}
}
