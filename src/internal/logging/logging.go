// Package logging builds the zap logger shared by every command.
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the --debug and --verbose flags to a zap level. Warn is the
// default; the two flags are mutually exclusive.
func Level(debug, verbose bool) (zapcore.Level, error) {
	switch {
	case debug && verbose:
		return zapcore.WarnLevel, errors.New("--debug and --verbose are mutually exclusive")
	case debug:
		return zapcore.DebugLevel, nil
	case verbose:
		return zapcore.InfoLevel, nil
	default:
		return zapcore.WarnLevel, nil
	}
}

// New returns a console logger writing to w (stderr when nil) at level.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
