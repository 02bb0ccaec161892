// Package transport carries serialized protocol messages over framed
// TCP or TLS connections.
//
// Frames are length-prefixed (4-byte big-endian) payloads. Conn is one
// established connection with a dedicated read loop; Reconnector keeps a
// connection alive across drops with exponential backoff and reports
// lifecycle transitions to the engine.
package transport

import (
	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
)

// Compile-time interface satisfaction checks.
var (
	_ interaction.Channel = (*Conn)(nil)
	_ interaction.Channel = (*Reconnector)(nil)
)
