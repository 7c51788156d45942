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

	"github.com/google/uuid"

	"crosswire/pkg/transport"
)

// RendererEndpoint runs the sandboxed side of a pipe pair, implementing
// transport.RendererTransport. Invoke requests correlate to responses by
// uuid; Run must be running for responses and pushes to arrive.
type RendererEndpoint struct {
	windowID string
	log      *slog.Logger

	reader io.Reader

	writeMu sync.Mutex
	writer  io.Writer

	mu             sync.Mutex
	pending        map[string]chan frame
	listeners      map[string][]pipeListener
	nextListenerID uint64

	done      chan struct{}
	closeOnce sync.Once
}

type pipeListener struct {
	id uint64
	fn transport.EventHandler
}

// NewRendererEndpoint wraps a byte-stream pair as the sandboxed side.
// windowID names this renderer in delivery metadata.
func NewRendererEndpoint(windowID string, reader io.Reader, writer io.Writer, log *slog.Logger) (*RendererEndpoint, error) {
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

	return &RendererEndpoint{
		windowID:  windowID,
		log:       log.With("component", "pipe.renderer"),
		reader:    reader,
		writer:    writer,
		pending:   make(map[string]chan frame),
		listeners: make(map[string][]pipeListener),
		done:      make(chan struct{}),
	}, nil
}

// Invoke sends a request and blocks until its response arrives, ctx ends,
// or the endpoint shuts down. Handler errors arrive as the response error
// string.
func (e *RendererEndpoint) Invoke(ctx context.Context, channel string, payload []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	responseCh := make(chan frame, 1)

	e.mu.Lock()
	e.pending[id] = responseCh
	e.mu.Unlock()
	defer e.removePending(id)

	if err := e.writeFrame(frame{Type: frameRequest, ID: id, Channel: channel, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, ErrEndpointClosed
	case response := <-responseCh:
		if response.Error != "" {
			return nil, errors.New(response.Error)
		}
		return response.Payload, nil
	}
}

// Send emits one fire-and-forget message toward the privileged side.
func (e *RendererEndpoint) Send(channel string, payload []byte) error {
	select {
	case <-e.done:
		return ErrEndpointClosed
	default:
	}

	return e.writeFrame(frame{Type: frameEvent, Channel: channel, Payload: payload})
}

// On registers a listener for pushes from the privileged side and returns a
// function that removes it.
func (e *RendererEndpoint) On(channel string, handler transport.EventHandler) (func(), error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	e.mu.Lock()
	id := e.nextListenerID
	e.nextListenerID++
	e.listeners[channel] = append(e.listeners[channel], pipeListener{id: id, fn: handler})
	e.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			e.mu.Lock()
			entries := e.listeners[channel]
			for i, entry := range entries {
				if entry.id == id {
					e.listeners[channel] = append(entries[:i:i], entries[i+1:]...)
					break
				}
			}
			e.mu.Unlock()
		})
	}

	return unsubscribe, nil
}

// Run reads frames until ctx ends or the stream closes. When Run returns,
// every in-flight Invoke fails with ErrEndpointClosed.
func (e *RendererEndpoint) Run(ctx context.Context) error {
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

	e.log.Debug("Pipe renderer endpoint started", "window_id", e.windowID)

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
			e.dispatchFrame(f)
		}
	}
}

func (e *RendererEndpoint) dispatchFrame(f frame) {
	switch f.Type {
	case frameResponse:
		e.mu.Lock()
		responseCh, ok := e.pending[f.ID]
		if ok {
			delete(e.pending, f.ID)
		}
		e.mu.Unlock()
		if !ok {
			e.log.Debug("Dropping unmatched response frame", "id", f.ID)
			return
		}
		responseCh <- f
	case frameEvent:
		e.mu.Lock()
		entries := e.listeners[f.Channel]
		handlers := make([]transport.EventHandler, len(entries))
		for i, entry := range entries {
			handlers[i] = entry.fn
		}
		e.mu.Unlock()
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

func (e *RendererEndpoint) writeFrame(f frame) error {
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

func (e *RendererEndpoint) removePending(id string) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *RendererEndpoint) shutdown() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}
