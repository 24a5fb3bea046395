// Package monitoring routes unexpected errors and panics to an error tracker.
package monitoring

import "time"

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// RecoverPanic reports a recovered panic value. Implementations may
	// re-panic after reporting.
	RecoverPanic(r any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) RecoverPanic(r any)                        { panic(r) }
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current }

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err != nil {
		current.CaptureException(err, tags)
	}
}

// Recover must be deferred directly by goroutines that want panics reported.
func Recover() {
	if r := recover(); r != nil {
		current.RecoverPanic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) { current.Flush(d) }
