// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger. It discards everything until Initialize is called.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether the logger emits JSON.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Options configures Initialize.
type Options struct {
	JSON   bool
	Level  string
	Output io.Writer
}

// Initialize builds the global logger. Logs go to stderr unless Output is set,
// keeping stdout free for reports and runtime dumps.
func Initialize(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	JSONOutput = opts.JSON

	var encoder zapcore.Encoder

	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeCaller = nil
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	Logger = zap.New(core).Sugar()

	return nil
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.SugaredLogger {
	return Logger.With(FieldComponent, component)
}

func parseLevel(raw string) (zapcore.Level, error) {
	if raw == "" {
		return zap.InfoLevel, nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return level, err
	}

	return level, nil
}
