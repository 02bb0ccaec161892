package log

import (
	"context"
	"log/slog"
)

// SlogAdapter renders protocol events through a slog.Logger at Debug
// level, for watching the engine from a console during development.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log renders one event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("client_id", event.ClientID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.EndpointURL != "" {
		attrs = append(attrs, slog.String("endpoint", event.EndpointURL))
	}

	switch {
	case event.Message != nil:
		attrs = appendMessageAttrs(attrs, event.Message)
	case event.StateChange != nil:
		attrs = appendStateAttrs(attrs, event.StateChange)
	case event.Drop != nil:
		attrs = append(attrs,
			slog.Uint64("handle", uint64(event.Drop.RequestHandle)),
			slog.String("service", event.Drop.ServiceID.String()),
			slog.String("reason", event.Drop.Reason),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

func appendMessageAttrs(attrs []slog.Attr, msg *MessageEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("service", msg.ServiceID.String()),
		slog.Uint64("handle", uint64(msg.RequestHandle)),
	)
	if msg.ServiceResult != nil {
		attrs = append(attrs, slog.String("result", msg.ServiceResult.String()))
	}
	if len(msg.Data) > 0 {
		attrs = append(attrs, slog.Int("size", len(msg.Data)))
	}
	return attrs
}

func appendStateAttrs(attrs []slog.Attr, change *StateChangeEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("entity", change.Entity),
		slog.String("old_state", change.OldState),
		slog.String("new_state", change.NewState),
	)
	if change.Reason != "" {
		attrs = append(attrs, slog.String("reason", change.Reason))
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
