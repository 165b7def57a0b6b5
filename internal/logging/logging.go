// Package logging builds the process-wide zap logger
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely the logger writes
type Options struct {
	// Debug enables debug level and mirrors file output to stderr
	Debug bool

	// Level overrides the default info level when Debug is off
	Level string

	// Dir receives a daily log file; empty means stderr only
	Dir string

	now func() time.Time
}

// New builds a production zap logger with ISO8601 timestamps
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
	}
	if opts.Debug {
		level = zapcore.DebugLevel
		config.Development = true
	}
	config.Level = zap.NewAtomicLevelAt(level)

	config.OutputPaths = nil
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}
		config.OutputPaths = append(config.OutputPaths, FileName(opts.Dir, opts.clock()))
	}
	if opts.Debug || opts.Dir == "" {
		config.OutputPaths = append(config.OutputPaths, "stderr")
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	return logger, nil
}

// FileName returns the log file for the day containing t
func FileName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("tgconfig-%s.log", t.Format("2006-01-02")))
}

func (o Options) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}
