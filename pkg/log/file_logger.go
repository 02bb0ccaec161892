package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// FileLogger appends protocol events to a file as a CBOR stream, one
// encoded Event after another. The capture can be replayed offline with
// any CBOR sequence decoder.
type FileLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileLogger opens (or creates) the capture file at path and appends
// to it.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event capture: %w", err)
	}
	return &FileLogger{file: f}, nil
}

// Log appends one event. Encoding and write errors are swallowed; a
// failing capture must not disturb the engine.
func (l *FileLogger) Log(event Event) {
	data, err := wire.Marshal(event)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	_, _ = l.file.Write(data)
}

// Close flushes and closes the capture file. Further Log calls become
// no-ops; calling Close again returns nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
