package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Event logs a short diagnostic line for a state transition or
// audit-worthy action: kind is a machine-readable tag (e.g.
// "coordinator.transition", "gateway.rename"), detail is free-form context.
// The line goes to the console only; nothing is written to the AuditEvent
// table in internal/store.
func Event(kind string, detail string) {
	Logf("[event] %s %s", kind, detail)
}
