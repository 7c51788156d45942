package contract

import (
	"context"
	"strings"
	"sync"
	"testing"

	"crosswire/pkg/transport"
)

type fetchRequest struct {
	ID int `json:"id"`
}

type fetchResult struct {
	Name string `json:"name"`
}

var (
	logMessageAction = NewOneWay[string]("logMessage")
	fetchDataAction  = NewTwoWay[fetchRequest, fetchResult]("fetchData")
	notifyAction     = NewOneWay[string]("notify")
)

// demoContract declares the wiring most tests share: two renderer-to-main
// actions and one push channel under the "panelAPI" namespace.
func demoContract(t *testing.T) *Contract {
	t.Helper()

	r2m, err := NewTable(logMessageAction, fetchDataAction)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	m2r, err := NewTable(notifyAction)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	c, err := New(Spec{Namespace: "panelAPI", RendererToMain: r2m, MainToRenderer: m2r})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return c
}

type recordedCall struct {
	channel string
	payload []byte
}

type fakeListener struct {
	id uint64
	fn transport.EventHandler
}

// fakeRendererTransport records bridge traffic and replays canned responses.
type fakeRendererTransport struct {
	mu           sync.Mutex
	invoked      []recordedCall
	sent         []recordedCall
	listeners    map[string][]fakeListener
	nextID       uint64
	unsubscribed int

	invokeResponse []byte
	invokeErr      error
	sendErr        error
	onErrFor       map[string]error
}

func newFakeRendererTransport() *fakeRendererTransport {
	return &fakeRendererTransport{
		listeners: make(map[string][]fakeListener),
		onErrFor:  make(map[string]error),
	}
}

func (f *fakeRendererTransport) Invoke(_ context.Context, channel string, payload []byte) ([]byte, error) {
	f.mu.Lock()
	f.invoked = append(f.invoked, recordedCall{channel: channel, payload: payload})
	f.mu.Unlock()

	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.invokeResponse, nil
}

func (f *fakeRendererTransport) Send(channel string, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.mu.Lock()
	f.sent = append(f.sent, recordedCall{channel: channel, payload: payload})
	f.mu.Unlock()
	return nil
}

func (f *fakeRendererTransport) On(channel string, handler transport.EventHandler) (func(), error) {
	if err := f.onErrFor[channel]; err != nil {
		return nil, err
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[channel] = append(f.listeners[channel], fakeListener{id: id, fn: handler})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		entries := f.listeners[channel]
		for i, entry := range entries {
			if entry.id == id {
				f.listeners[channel] = append(entries[:i:i], entries[i+1:]...)
				f.unsubscribed++
				break
			}
		}
		f.mu.Unlock()
	}, nil
}

// push plays a main-side push arriving at this renderer.
func (f *fakeRendererTransport) push(channel string, payload []byte) {
	f.mu.Lock()
	entries := f.listeners[channel]
	handlers := make([]transport.EventHandler, len(entries))
	for i, entry := range entries {
		handlers[i] = entry.fn
	}
	f.mu.Unlock()

	for _, handler := range handlers {
		handler(transport.Meta{WindowID: "w1"}, payload)
	}
}

// fakeMainTransport records handler registrations.
type fakeMainTransport struct {
	handlers  map[string]transport.InvokeHandler
	listeners map[string][]transport.EventHandler
	handleErr error
}

func newFakeMainTransport() *fakeMainTransport {
	return &fakeMainTransport{
		handlers:  make(map[string]transport.InvokeHandler),
		listeners: make(map[string][]transport.EventHandler),
	}
}

func (f *fakeMainTransport) Handle(channel string, handler transport.InvokeHandler) error {
	if f.handleErr != nil {
		return f.handleErr
	}

	f.handlers[channel] = handler
	return nil
}

func (f *fakeMainTransport) On(channel string, handler transport.EventHandler) error {
	f.listeners[channel] = append(f.listeners[channel], handler)
	return nil
}

// fakeWindow records pushes sent to one renderer.
type fakeWindow struct {
	id      string
	sent    []recordedCall
	sendErr error
}

func (f *fakeWindow) ID() string {
	return f.id
}

func (f *fakeWindow) Send(channel string, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.sent = append(f.sent, recordedCall{channel: channel, payload: payload})
	return nil
}

func TestNewRejectsBlankNamespace(t *testing.T) {
	if _, err := New(Spec{Namespace: "   "}); err == nil {
		t.Fatal("New() accepted a blank namespace")
	}
}

func TestNewRejectsTwoWayPushAction(t *testing.T) {
	m2r, err := NewTable(NewTwoWay[string, string]("refresh"))
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	_, err = New(Spec{Namespace: "api", MainToRenderer: m2r})
	if err == nil {
		t.Fatal("New() accepted a two-way main-to-renderer action")
	}
	if !strings.Contains(err.Error(), `"refresh"`) {
		t.Fatalf("New() error = %q, want mention of the offending action", err)
	}
}

func TestNewAllowsNilTables(t *testing.T) {
	c, err := New(Spec{Namespace: "api"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.RendererToMain().Len(); got != 0 {
		t.Fatalf("RendererToMain().Len() = %d, want 0", got)
	}
	if got := c.MainToRenderer().Len(); got != 0 {
		t.Fatalf("MainToRenderer().Len() = %d, want 0", got)
	}
}

func TestNewTrimsNamespace(t *testing.T) {
	c, err := New(Spec{Namespace: "  panelAPI  "})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.Namespace(); got != "panelAPI" {
		t.Fatalf("Namespace() = %q, want %q", got, "panelAPI")
	}
}

func TestContractAccessors(t *testing.T) {
	c := demoContract(t)

	if got := c.Namespace(); got != "panelAPI" {
		t.Fatalf("Namespace() = %q, want %q", got, "panelAPI")
	}
	if got := c.RendererToMain().Len(); got != 2 {
		t.Fatalf("RendererToMain().Len() = %d, want 2", got)
	}
	if got := c.MainToRenderer().Len(); got != 1 {
		t.Fatalf("MainToRenderer().Len() = %d, want 1", got)
	}
}
