// Package inproc implements the transport boundary inside a single process:
// one privileged side plus any number of windows, each bundling a render
// target, its sandboxed-side transport, and its own global scope. It is the
// reference runtime for contract wiring and the backing for the in-process
// demo and tests.
package inproc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"crosswire/pkg/transport"
)

const defaultQueueSize = 100

var (
	// ErrClosed reports use of a runtime after Close.
	ErrClosed = errors.New("inproc: runtime closed")

	// ErrWindowClosed reports a push to a window after its Close.
	ErrWindowClosed = errors.New("inproc: window closed")
)

// envelope is one queued fire-and-forget delivery, in either direction.
type envelope struct {
	toMain   bool
	windowID string
	channel  string
	payload  []byte
}

// Runtime routes messages between the privileged side and its windows.
// One-way traffic is queued and drained by a single dispatcher goroutine,
// so senders return immediately and delivery order is FIFO. Two-way invokes
// bypass the queue and block the caller until the handler resolves.
type Runtime struct {
	sends chan envelope

	mu        sync.RWMutex
	invokers  map[string]transport.InvokeHandler
	listeners map[string][]transport.EventHandler
	windows   map[string]*Window

	done      chan struct{}
	closeOnce sync.Once
}

func New() *Runtime {
	rt := &Runtime{
		sends:     make(chan envelope, defaultQueueSize),
		invokers:  make(map[string]transport.InvokeHandler),
		listeners: make(map[string][]transport.EventHandler),
		windows:   make(map[string]*Window),
		done:      make(chan struct{}),
	}

	go rt.dispatch()

	return rt
}

// Main returns the privileged-side transport.
func (rt *Runtime) Main() transport.MainTransport {
	return &mainSide{rt: rt}
}

// NewWindow registers a window under a unique id.
func (rt *Runtime) NewWindow(id string) (*Window, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("window id is required")
	}

	select {
	case <-rt.done:
		return nil, ErrClosed
	default:
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, exists := rt.windows[id]; exists {
		return nil, fmt.Errorf("window %q already exists", id)
	}

	w := &Window{
		id:        id,
		rt:        rt,
		listeners: make(map[string][]windowListener),
		scope:     transport.NewMapScope(),
		done:      make(chan struct{}),
	}
	rt.windows[id] = w

	return w, nil
}

// Close stops the dispatcher. Queued messages not yet delivered are
// dropped; later sends fail with ErrClosed. Close is idempotent.
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		close(rt.done)
	})
}

func (rt *Runtime) dispatch() {
	for {
		select {
		case <-rt.done:
			return
		case env := <-rt.sends:
			rt.deliver(env)
		}
	}
}

func (rt *Runtime) deliver(env envelope) {
	if env.toMain {
		rt.mu.RLock()
		handlers := make([]transport.EventHandler, len(rt.listeners[env.channel]))
		copy(handlers, rt.listeners[env.channel])
		rt.mu.RUnlock()

		meta := transport.Meta{WindowID: env.windowID}
		for _, handler := range handlers {
			handler(meta, env.payload)
		}
		return
	}

	rt.mu.RLock()
	w := rt.windows[env.windowID]
	rt.mu.RUnlock()
	if w == nil {
		// Window gone; fire-and-forget messages are dropped.
		return
	}

	w.dispatchEvent(env.channel, env.payload)
}

func (rt *Runtime) enqueue(env envelope) error {
	select {
	case <-rt.done:
		return ErrClosed
	default:
	}

	select {
	case <-rt.done:
		return ErrClosed
	case rt.sends <- env:
		return nil
	}
}

func (rt *Runtime) removeWindow(id string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.windows, id)
}

// mainSide implements transport.MainTransport over the runtime registries.
type mainSide struct {
	rt *Runtime
}

// Handle registers the request/response handler for a channel; a second
// registration replaces the first.
func (m *mainSide) Handle(channel string, handler transport.InvokeHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	select {
	case <-m.rt.done:
		return ErrClosed
	default:
	}

	m.rt.mu.Lock()
	m.rt.invokers[channel] = handler
	m.rt.mu.Unlock()

	return nil
}

// On appends a fire-and-forget listener for a channel; every registered
// listener fires per message, in registration order.
func (m *mainSide) On(channel string, handler transport.EventHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	select {
	case <-m.rt.done:
		return ErrClosed
	default:
	}

	m.rt.mu.Lock()
	m.rt.listeners[channel] = append(m.rt.listeners[channel], handler)
	m.rt.mu.Unlock()

	return nil
}

type windowListener struct {
	id uint64
	fn transport.EventHandler
}

// Window is one render target: the privileged side pushes into it via Send,
// and its sandboxed side reaches the privileged side via Renderer. Each
// window carries its own global scope.
type Window struct {
	id string
	rt *Runtime

	mu             sync.RWMutex
	listeners      map[string][]windowListener
	nextListenerID uint64

	scope *transport.MapScope

	done      chan struct{}
	closeOnce sync.Once
}

func (w *Window) ID() string {
	return w.id
}

// Send pushes one fire-and-forget message into this window.
func (w *Window) Send(channel string, payload []byte) error {
	select {
	case <-w.done:
		return ErrWindowClosed
	default:
	}

	return w.rt.enqueue(envelope{windowID: w.id, channel: channel, payload: payload})
}

// Renderer returns the sandboxed-side transport scoped to this window.
func (w *Window) Renderer() transport.RendererTransport {
	return &renderer{w: w}
}

// Scope returns the window's restricted global scope.
func (w *Window) Scope() transport.GlobalScope {
	return w.scope
}

// Close detaches the window from the runtime. Queued pushes to it are
// dropped and later pushes fail with ErrWindowClosed. Close is idempotent.
func (w *Window) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.rt.removeWindow(w.id)
	})
}

func (w *Window) dispatchEvent(channel string, payload []byte) {
	w.mu.RLock()
	entries := w.listeners[channel]
	handlers := make([]transport.EventHandler, len(entries))
	for i, entry := range entries {
		handlers[i] = entry.fn
	}
	w.mu.RUnlock()

	meta := transport.Meta{WindowID: w.id}
	for _, handler := range handlers {
		handler(meta, payload)
	}
}

// renderer implements transport.RendererTransport for one window.
type renderer struct {
	w *Window
}

// Invoke blocks until the privileged handler for the channel resolves or
// ctx ends. With no handler registered, no response ever arrives: the call
// waits out its context. Each invoke runs independently.
func (r *renderer) Invoke(ctx context.Context, channel string, payload []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rt := r.w.rt

	rt.mu.RLock()
	handler, ok := rt.invokers[channel]
	rt.mu.RUnlock()

	if !ok {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-rt.done:
			return nil, ErrClosed
		}
	}

	type invokeResult struct {
		payload []byte
		err     error
	}

	meta := transport.Meta{WindowID: r.w.id}
	resultCh := make(chan invokeResult, 1)
	go func() {
		response, err := handler(ctx, meta, payload)
		resultCh <- invokeResult{payload: response, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		return result.payload, result.err
	}
}

// Send emits one fire-and-forget message toward the privileged side.
func (r *renderer) Send(channel string, payload []byte) error {
	select {
	case <-r.w.done:
		return ErrWindowClosed
	default:
	}

	return r.w.rt.enqueue(envelope{toMain: true, windowID: r.w.id, channel: channel, payload: payload})
}

// On registers a listener for pushes into this window and returns a
// function that removes it. Listeners accumulate until removed.
func (r *renderer) On(channel string, handler transport.EventHandler) (func(), error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	w := r.w

	w.mu.Lock()
	id := w.nextListenerID
	w.nextListenerID++
	w.listeners[channel] = append(w.listeners[channel], windowListener{id: id, fn: handler})
	w.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			w.mu.Lock()
			entries := w.listeners[channel]
			for i, entry := range entries {
				if entry.id == id {
					w.listeners[channel] = append(entries[:i:i], entries[i+1:]...)
					break
				}
			}
			w.mu.Unlock()
		})
	}

	return unsubscribe, nil
}
