package pipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"crosswire/pkg/transport"
)

// MainEndpoint runs the privileged side of a pipe pair. It implements
// transport.MainTransport for handler registration and transport.Window for
// pushes; the remote renderer is the window. Register handlers before Run.
type MainEndpoint struct {
	windowID string
	log      *slog.Logger

	reader io.Reader

	writeMu sync.Mutex
	writer  io.Writer

	mu        sync.RWMutex
	invokers  map[string]transport.InvokeHandler
	listeners map[string][]transport.EventHandler

	done      chan struct{}
	closeOnce sync.Once
}

// NewMainEndpoint wraps a byte-stream pair as the privileged side. windowID
// names the remote renderer in delivery metadata.
func NewMainEndpoint(windowID string, reader io.Reader, writer io.Writer, log *slog.Logger) (*MainEndpoint, error) {
	windowID = strings.TrimSpace(windowID)
	if windowID == "" {
		return nil, errors.New("window id is required")
	}
	if reader == nil {
		return nil, errors.New("reader is required")
	}
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &MainEndpoint{
		windowID:  windowID,
		log:       log.With("component", "pipe.main"),
		reader:    reader,
		writer:    writer,
		invokers:  make(map[string]transport.InvokeHandler),
		listeners: make(map[string][]transport.EventHandler),
		done:      make(chan struct{}),
	}, nil
}

// ID returns the remote renderer's window id.
func (e *MainEndpoint) ID() string {
	return e.windowID
}

// Send pushes one fire-and-forget message to the remote renderer.
func (e *MainEndpoint) Send(channel string, payload []byte) error {
	select {
	case <-e.done:
		return ErrEndpointClosed
	default:
	}

	return e.writeFrame(frame{Type: frameEvent, Channel: channel, Payload: payload})
}

// Handle registers the request handler for a channel; a second registration
// replaces the first.
func (e *MainEndpoint) Handle(channel string, handler transport.InvokeHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	e.mu.Lock()
	e.invokers[channel] = handler
	e.mu.Unlock()

	return nil
}

// On appends a fire-and-forget listener for a channel.
func (e *MainEndpoint) On(channel string, handler transport.EventHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	e.mu.Lock()
	e.listeners[channel] = append(e.listeners[channel], handler)
	e.mu.Unlock()

	return nil
}

// Run reads frames until ctx ends or the stream closes. Requests dispatch
// to their handlers in separate goroutines so concurrent invokes from the
// renderer stay independent; events dispatch in read order.
func (e *MainEndpoint) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer e.shutdown()

	stop := make(chan struct{})
	defer close(stop)

	frames := make(chan frame)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readFrames(e.reader, frames, stop, e.log)
		close(frames)
	}()

	e.log.Debug("Pipe main endpoint started", "window_id", e.windowID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				err := <-readErr
				if err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}
			e.dispatchFrame(ctx, f)
		}
	}
}

func (e *MainEndpoint) dispatchFrame(ctx context.Context, f frame) {
	switch f.Type {
	case frameRequest:
		e.mu.RLock()
		handler, ok := e.invokers[f.Channel]
		e.mu.RUnlock()
		if !ok {
			// No handler registered: the request gets no response.
			e.log.Debug("Dropping request for unhandled channel", "channel", f.Channel)
			return
		}
		go e.handleRequest(ctx, handler, f)
	case frameEvent:
		e.mu.RLock()
		entries := e.listeners[f.Channel]
		handlers := make([]transport.EventHandler, len(entries))
		copy(handlers, entries)
		e.mu.RUnlock()
		if len(handlers) == 0 {
			e.log.Debug("Dropping event for unhandled channel", "channel", f.Channel)
			return
		}

		meta := transport.Meta{WindowID: e.windowID}
		for _, handler := range handlers {
			handler(meta, f.Payload)
		}
	default:
		e.log.Debug("Dropping unexpected frame", "type", string(f.Type), "channel", f.Channel)
	}
}

func (e *MainEndpoint) handleRequest(ctx context.Context, handler transport.InvokeHandler, f frame) {
	meta := transport.Meta{WindowID: e.windowID}

	response := frame{Type: frameResponse, ID: f.ID}
	payload, err := handler(ctx, meta, f.Payload)
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Payload = payload
	}

	if err := e.writeFrame(response); err != nil {
		e.log.Debug("Failed to write response frame", "channel", f.Channel, "error", err)
	}
}

func (e *MainEndpoint) writeFrame(f frame) error {
	encoded, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if _, err := e.writer.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

func (e *MainEndpoint) shutdown() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}
