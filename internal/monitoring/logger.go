// Package monitoring holds the client's diagnostic logging hooks.
package monitoring

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or the CLI can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose toggles Debugf output.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Verbose reports whether Debugf output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Debugf logs through Logf only when verbose output is enabled.
func Debugf(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	Logf("[debug] "+format, v...)
}

// RunLogger prefixes every line with the run and survey it belongs to, so
// interleaved output from independent processing runs stays attributable.
type RunLogger struct {
	RunID    string
	SurveyID string
}

func (l RunLogger) prefix() string {
	if l.SurveyID == "" {
		return fmt.Sprintf("run=%s ", l.RunID)
	}
	return fmt.Sprintf("run=%s survey=%s ", l.RunID, l.SurveyID)
}

// Printf logs a line tagged with the run.
func (l RunLogger) Printf(format string, v ...interface{}) {
	Logf(l.prefix()+format, v...)
}

// Debugf logs a verbose-only line tagged with the run.
func (l RunLogger) Debugf(format string, v ...interface{}) {
	Debugf(l.prefix()+format, v...)
}
