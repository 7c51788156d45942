package contract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"crosswire/pkg/transport"
)

// fullHandlers covers the demo contract's renderer-to-main table.
func fullHandlers(t *testing.T, logged chan<- string) *Handlers {
	t.Helper()

	h := NewHandlers()
	err := HandleTwoWay(h, fetchDataAction, func(_ context.Context, _ transport.Meta, arg fetchRequest) (fetchResult, error) {
		return fetchResult{Name: fmt.Sprintf("Item %d", arg.ID)}, nil
	})
	if err != nil {
		t.Fatalf("HandleTwoWay() error = %v", err)
	}
	err = HandleOneWay(h, logMessageAction, func(_ transport.Meta, line string) {
		if logged != nil {
			logged <- line
		}
	})
	if err != nil {
		t.Fatalf("HandleOneWay() error = %v", err)
	}

	return h
}

func TestHandleRejectsDuplicateRegistration(t *testing.T) {
	h := NewHandlers()

	if err := HandleOneWay(h, NewOneWay[string]("x"), func(transport.Meta, string) {}); err != nil {
		t.Fatalf("HandleOneWay() error = %v", err)
	}
	if err := HandleOneWay(h, NewOneWay[string]("x"), func(transport.Meta, string) {}); err == nil {
		t.Fatal("HandleOneWay() accepted a second registration for the same name")
	}
	// A two-way registration under the same name is still a duplicate.
	if err := HandleTwoWay(h, NewTwoWay[int, int]("x"), func(context.Context, transport.Meta, int) (int, error) {
		return 0, nil
	}); err == nil {
		t.Fatal("HandleTwoWay() accepted a name already held by a one-way handler")
	}
}

func TestHandleRejectsBadArguments(t *testing.T) {
	h := NewHandlers()

	if err := HandleOneWay[string](h, NewOneWay[string]("x"), nil); err == nil {
		t.Fatal("HandleOneWay() accepted a nil function")
	}
	if err := HandleTwoWay[int, int](h, NewTwoWay[int, int]("y"), nil); err == nil {
		t.Fatal("HandleTwoWay() accepted a nil function")
	}
	if err := HandleOneWay(h, OneWay[string]{}, func(transport.Meta, string) {}); err == nil {
		t.Fatal("HandleOneWay() accepted a zero-value action")
	}
	if err := HandleOneWay(nil, NewOneWay[string]("x"), func(transport.Meta, string) {}); err == nil {
		t.Fatal("HandleOneWay() accepted nil handlers")
	}
}

func TestFromRendererRequiresFullCoverage(t *testing.T) {
	c := demoContract(t)
	mt := newFakeMainTransport()

	h := NewHandlers()
	if err := HandleOneWay(h, logMessageAction, func(transport.Meta, string) {}); err != nil {
		t.Fatalf("HandleOneWay() error = %v", err)
	}

	err := c.FromRenderer(mt, h)
	if err == nil {
		t.Fatal("FromRenderer() accepted a handler map missing fetchData")
	}
	if !strings.Contains(err.Error(), `missing handler for two-way action "fetchData"`) {
		t.Fatalf("FromRenderer() error = %q, want the missing action named", err)
	}
	if len(mt.handlers) != 0 || len(mt.listeners) != 0 {
		t.Fatal("FromRenderer() touched the transport despite failing validation")
	}
}

func TestFromRendererRejectsUnknownHandler(t *testing.T) {
	c := demoContract(t)

	h := fullHandlers(t, nil)
	if err := HandleOneWay(h, NewOneWay[string]("mystery"), func(transport.Meta, string) {}); err != nil {
		t.Fatalf("HandleOneWay() error = %v", err)
	}

	err := c.FromRenderer(newFakeMainTransport(), h)
	if err == nil {
		t.Fatal("FromRenderer() accepted a handler for an undeclared action")
	}
	if !strings.Contains(err.Error(), `"mystery"`) {
		t.Fatalf("FromRenderer() error = %q, want the unknown handler named", err)
	}
}

func TestFromRendererRejectsKindMismatch(t *testing.T) {
	c := demoContract(t)

	// fetchData is declared two-way; registering it one-way must fail.
	h := NewHandlers()
	if err := HandleOneWay(h, NewOneWay[fetchRequest]("fetchData"), func(transport.Meta, fetchRequest) {}); err != nil {
		t.Fatalf("HandleOneWay() error = %v", err)
	}
	if err := HandleOneWay(h, logMessageAction, func(transport.Meta, string) {}); err != nil {
		t.Fatalf("HandleOneWay() error = %v", err)
	}

	err := c.FromRenderer(newFakeMainTransport(), h)
	if err == nil {
		t.Fatal("FromRenderer() accepted a one-way handler for a two-way action")
	}
	if !strings.Contains(err.Error(), "one-way but action is two_way") {
		t.Fatalf("FromRenderer() error = %q, want the kind mismatch named", err)
	}
}

func TestFromRendererRegistersExactCoverage(t *testing.T) {
	c := demoContract(t)
	mt := newFakeMainTransport()

	if err := c.FromRenderer(mt, fullHandlers(t, nil)); err != nil {
		t.Fatalf("FromRenderer() error = %v", err)
	}

	if _, ok := mt.handlers["fetchData"]; !ok {
		t.Fatal("FromRenderer() did not register the fetchData handler")
	}
	if got := len(mt.listeners["logMessage"]); got != 1 {
		t.Fatalf("logMessage listeners = %d, want 1", got)
	}
	if len(mt.handlers) != 1 || len(mt.listeners) != 1 {
		t.Fatalf("transport saw %d handlers and %d listener channels, want 1 and 1",
			len(mt.handlers), len(mt.listeners))
	}
}

func TestFromRendererRequiresTransport(t *testing.T) {
	c := demoContract(t)

	if err := c.FromRenderer(nil, fullHandlers(t, nil)); err == nil {
		t.Fatal("FromRenderer() accepted a nil transport")
	}
}

func TestRegisteredTwoWayHandlerCodecs(t *testing.T) {
	c := demoContract(t)
	mt := newFakeMainTransport()

	if err := c.FromRenderer(mt, fullHandlers(t, nil)); err != nil {
		t.Fatalf("FromRenderer() error = %v", err)
	}

	handler := mt.handlers["fetchData"]
	meta := transport.Meta{WindowID: "w1"}

	response, err := handler(context.Background(), meta, []byte(`{"id":7}`))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := string(response); got != `{"name":"Item 7"}` {
		t.Fatalf("handler response = %s, want %s", got, `{"name":"Item 7"}`)
	}

	_, err = handler(context.Background(), meta, []byte(`{"id":"seven"}`))
	if err == nil {
		t.Fatal("handler accepted a payload that does not decode")
	}
	if !strings.Contains(err.Error(), "decode fetchData request") {
		t.Fatalf("handler error = %q, want a decode failure", err)
	}
}

func TestRegisteredOneWayHandlerDropsBadPayload(t *testing.T) {
	c := demoContract(t)
	mt := newFakeMainTransport()

	logged := make(chan string, 1)
	if err := c.FromRenderer(mt, fullHandlers(t, logged)); err != nil {
		t.Fatalf("FromRenderer() error = %v", err)
	}

	listener := mt.listeners["logMessage"][0]
	meta := transport.Meta{WindowID: "w1"}

	listener(meta, []byte("{"))
	select {
	case line := <-logged:
		t.Fatalf("handler fired on an undecodable payload: %q", line)
	default:
	}

	listener(meta, []byte(`"hello"`))
	select {
	case line := <-logged:
		if line != "hello" {
			t.Fatalf("handler saw %q, want %q", line, "hello")
		}
	default:
		t.Fatal("handler did not fire on a valid payload")
	}
}
