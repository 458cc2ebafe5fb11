package env

import (
	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds the process logger. Verbosity comes from the CLI -v
// flag: 0 is info, anything higher is debug. Logs go to stderr so they
// never mix with rendered command output on stdout.
func MakeLogger(verbosity int, plain bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.Encoding = "console"
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.ErrorOutputPaths = []string{"stderr"}
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if verbosity > 0 {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if !plain {
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return logConfig.Build()
}
