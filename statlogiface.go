package echo

import (
	"time"

	"go.uber.org/zap"
)

// Statter is the interface that stats collectors must implement to get
// harvest progress out of the pipeline.
type Statter interface {
	Count(name string, value int64, rate float64, tags ...string)
	Gauge(name string, value float64, rate float64, tags ...string)
	Histogram(name string, value float64, rate float64, tags ...string)
	Set(name string, value string, rate float64, tags ...string)
	Timing(name string, value time.Duration, rate float64, tags ...string)
}

// NopStatter does nothing.
type NopStatter struct{}

// Count does nothing.
func (NopStatter) Count(name string, value int64, rate float64, tags ...string) {}

// Gauge does nothing.
func (NopStatter) Gauge(name string, value float64, rate float64, tags ...string) {}

// Histogram does nothing.
func (NopStatter) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (NopStatter) Set(name string, value string, rate float64, tags ...string) {}

// Timing does nothing.
func (NopStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {}

// Logger is the interface that loggers must implement to get harvest logs.
// Components take a Logger rather than configuring a global one.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// NopLogger logs nothing.
type NopLogger struct{}

// Printf does nothing.
func (NopLogger) Printf(format string, v ...interface{}) {}

// Debugf does nothing.
func (NopLogger) Debugf(format string, v ...interface{}) {}

// ZapLogger sends Printf to info and Debugf to debug on a zap logger.
type ZapLogger struct {
	*zap.SugaredLogger
}

// NewZapLogger wraps l.
func NewZapLogger(l *zap.Logger) ZapLogger {
	return ZapLogger{SugaredLogger: l.Sugar()}
}

// Printf implements Logger interface.
func (z ZapLogger) Printf(format string, v ...interface{}) {
	z.SugaredLogger.Infof(format, v...)
}

// Debugf implements Logger interface.
func (z ZapLogger) Debugf(format string, v ...interface{}) {
	z.SugaredLogger.Debugf(format, v...)
}
