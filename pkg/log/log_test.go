package log

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

func sampleEvent() Event {
	return Event{
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		ClientID:  "client-1",
		Direction: DirectionOut,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			ServiceID:     wire.ServiceReadRequest,
			RequestHandle: 12,
		},
	}
}

func TestFileLogger_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	want := sampleEvent()
	logger.Log(want)
	logger.Log(Event{
		ClientID: "client-1",
		Category: CategoryState,
		Layer:    LayerSession,
		StateChange: &StateChangeEvent{
			Entity:   "session",
			OldState: "NO_SESSION",
			NewState: "CREATING",
		},
	})
	require.NoError(t, logger.Close())

	events := readEventFile(t, path)
	require.Len(t, events, 2)
	assert.Equal(t, "client-1", events[0].ClientID)
	assert.Equal(t, wire.ServiceReadRequest, events[0].Message.ServiceID)
	assert.Equal(t, uint32(12), events[0].Message.RequestHandle)
	assert.Equal(t, "CREATING", events[1].StateChange.NewState)
}

func TestFileLogger_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	// Logging after close is a no-op, not a panic.
	logger.Log(sampleEvent())
	assert.Empty(t, readEventFile(t, path))
}

func readEventFile(t *testing.T, path string) []Event {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var events []Event
	dec := cbor.NewDecoder(bytes.NewReader(data))
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decode event: %v", err)
		}
		events = append(events, e)
	}
	return events
}

type countingLogger struct {
	events []Event
}

func (c *countingLogger) Log(event Event) {
	c.events = append(c.events, event)
}

func TestMultiLogger_FansOut(t *testing.T) {
	first := &countingLogger{}
	second := &countingLogger{}
	multi := NewMultiLogger(first, second, NoopLogger{})

	multi.Log(sampleEvent())
	multi.Log(sampleEvent())

	assert.Len(t, first.events, 2)
	assert.Len(t, second.events, 2)
}

func TestSlogAdapter_EmitsAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(sampleEvent())
	out := buf.String()
	assert.Contains(t, out, "client_id=client-1")
	assert.Contains(t, out, "direction=OUT")
	assert.Contains(t, out, "service=ReadRequest")

	buf.Reset()
	adapter.Log(Event{
		Category: CategoryDrop,
		Drop: &DropEvent{
			RequestHandle: 9,
			ServiceID:     wire.ServicePublishRequest,
			Reason:        "channel closed",
		},
	})
	assert.Contains(t, buf.String(), "reason=\"channel closed\"")
}
