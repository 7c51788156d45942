// Package transport defines the boundary operations a host runtime must
// provide for contract wiring: invoke/send/listen primitives on both sides
// of the process boundary, per-window push, and the restricted global scope
// the bridge is exposed into. Implementations live in the subpackages;
// payloads cross the boundary as opaque bytes.
package transport

import "context"

// Meta identifies the origin of a delivered message.
type Meta struct {
	WindowID string
}

// InvokeHandler answers one request/response call on the privileged side.
type InvokeHandler func(ctx context.Context, meta Meta, payload []byte) ([]byte, error)

// EventHandler receives one fire-and-forget message.
type EventHandler func(meta Meta, payload []byte)

// MainTransport exposes the privileged-side listener primitives.
type MainTransport interface {
	// Handle registers the request/response handler for a channel.
	// Registering a channel twice replaces the earlier handler.
	Handle(channel string, handler InvokeHandler) error

	// On registers a fire-and-forget listener for a channel. Listeners
	// accumulate; every registered listener fires per message.
	On(channel string, handler EventHandler) error
}

// RendererTransport exposes the sandboxed-side primitives.
type RendererTransport interface {
	// Invoke sends a request on a channel and blocks until the privileged
	// handler responds or ctx ends.
	Invoke(ctx context.Context, channel string, payload []byte) ([]byte, error)

	// Send emits a fire-and-forget message on a channel.
	Send(channel string, payload []byte) error

	// On registers a listener for messages pushed from the privileged side
	// and returns a function that removes it.
	On(channel string, handler EventHandler) (func(), error)
}

// Window is a live render target the privileged side can push messages to.
type Window interface {
	ID() string
	Send(channel string, payload []byte) error
}

// GlobalScope is the restricted namespace visible to sandboxed code. Keys
// are written once during bridge exposure and read-only afterward.
type GlobalScope interface {
	Expose(key string, api any) error
	Lookup(key string) (any, bool)
}
