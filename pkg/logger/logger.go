package logger

import (
	"go.uber.org/zap"
)

// Logger is shared by every package in the module. It discards everything until
// Development or Set is called.
var Logger = zap.NewNop()

// Development switches Logger to zap's development config, without timestamps.
func Development() error {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.TimeKey = ""
	l, err := lc.Build()
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// Set replaces Logger. A nil logger restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Logger = l
}
