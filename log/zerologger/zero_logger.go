package zerologger

import (
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	logcomm "github.com/TopiaNetwork/dacore/log/common"
)

// ZeroLogger is safe for concurrent use, including UpdateLoggerLevel.
type ZeroLogger struct {
	module string
	log    atomic.Pointer[zerolog.Logger]
}

func NewLogger(level zerolog.Level, w io.Writer) *ZeroLogger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()

	l := &ZeroLogger{}
	l.log.Store(&zl)

	return l
}

func (zl *ZeroLogger) logger() *zerolog.Logger {
	return zl.log.Load()
}

func (zl *ZeroLogger) Module() string {
	return zl.module
}

func (zl *ZeroLogger) Trace(msg string) {
	zl.logger().Trace().Msg(msg)
}

func (zl *ZeroLogger) Tracef(format string, args ...interface{}) {
	zl.logger().Trace().Msgf(format, args...)
}

func (zl *ZeroLogger) Debug(msg string) {
	zl.logger().Debug().Msg(msg)
}

func (zl *ZeroLogger) Debugf(format string, args ...interface{}) {
	zl.logger().Debug().Msgf(format, args...)
}

func (zl *ZeroLogger) Info(msg string) {
	zl.logger().Info().Msg(msg)
}

func (zl *ZeroLogger) Infof(format string, args ...interface{}) {
	zl.logger().Info().Msgf(format, args...)
}

func (zl *ZeroLogger) Warn(msg string) {
	zl.logger().Warn().Msg(msg)
}

func (zl *ZeroLogger) Warnf(format string, args ...interface{}) {
	zl.logger().Warn().Msgf(format, args...)
}

func (zl *ZeroLogger) Error(msg string) {
	zl.logger().Error().Msg(msg)
}

func (zl *ZeroLogger) Errorf(format string, args ...interface{}) {
	zl.logger().Error().Msgf(format, args...)
}

func (zl *ZeroLogger) Fatal(msg string) {
	zl.logger().Fatal().Msg(msg)
}

func (zl *ZeroLogger) Fatalf(format string, args ...interface{}) {
	zl.logger().Fatal().Msgf(format, args...)
}

func (zl *ZeroLogger) Panic(msg string) {
	zl.logger().Panic().Msg(msg)
}

func (zl *ZeroLogger) Panicf(format string, args ...interface{}) {
	zl.logger().Panic().Msgf(format, args...)
}

func (zl *ZeroLogger) UpdateLoggerLevel(level logcomm.LogLevel) {
	zxNew := zl.logger().Level(logcomm.ToZerologLevel(level))
	zl.log.Store(&zxNew)
}

func (zl *ZeroLogger) CreateModuleLogger(level zerolog.Level, module string) *ZeroLogger {
	mLog := zl.logger().With().Str("module", module).Logger().Level(level)

	ml := &ZeroLogger{module: module}
	ml.log.Store(&mLog)

	return ml
}
