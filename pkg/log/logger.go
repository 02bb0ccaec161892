package log

// Logger receives protocol events. Implementations must tolerate concurrent
// calls and should return quickly; the engine emits events inline on its
// send and receive paths.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
