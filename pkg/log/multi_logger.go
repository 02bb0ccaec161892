package log

// MultiLogger fans events out to several sinks, typically a console
// SlogAdapter next to a FileLogger capture.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger creates a fan-out over the given sinks. Events are
// delivered in argument order.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log forwards the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
