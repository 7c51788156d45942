package contract

import (
	"errors"
	"testing"
)

func TestToRendererRequiresWindow(t *testing.T) {
	c := demoContract(t)

	if _, err := c.ToRenderer(nil); err == nil {
		t.Fatal("ToRenderer() accepted a nil window")
	}
}

func TestPushSendsOnUnprefixedChannel(t *testing.T) {
	c := demoContract(t)
	window := &fakeWindow{id: "w1"}

	sender, err := c.ToRenderer(window)
	if err != nil {
		t.Fatalf("ToRenderer() error = %v", err)
	}
	if got := sender.Window().ID(); got != "w1" {
		t.Fatalf("Window().ID() = %q, want %q", got, "w1")
	}

	if err := Push(sender, notifyAction, "build finished"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if len(window.sent) != 1 {
		t.Fatalf("window saw %d sends, want 1", len(window.sent))
	}
	if got := window.sent[0].channel; got != "notify" {
		t.Fatalf("push channel = %q, want %q", got, "notify")
	}
	if got := string(window.sent[0].payload); got != `"build finished"` {
		t.Fatalf("push payload = %s, want %q", got, `"build finished"`)
	}
}

func TestPushRejectsUndeclaredAction(t *testing.T) {
	c := demoContract(t)

	sender, err := c.ToRenderer(&fakeWindow{id: "w1"})
	if err != nil {
		t.Fatalf("ToRenderer() error = %v", err)
	}

	if err := Push(sender, NewOneWay[string]("missing"), "x"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Push() error = %v, want ErrUnknownAction", err)
	}
	// logMessage is renderer-to-main; it cannot be pushed.
	if err := Push(sender, logMessageAction, "x"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Push() error = %v, want ErrUnknownAction", err)
	}
}

func TestPushReportsWindowFailure(t *testing.T) {
	c := demoContract(t)

	broken := errors.New("window closed")
	sender, err := c.ToRenderer(&fakeWindow{id: "w1", sendErr: broken})
	if err != nil {
		t.Fatalf("ToRenderer() error = %v", err)
	}

	if err := Push(sender, notifyAction, "x"); !errors.Is(err, broken) {
		t.Fatalf("Push() error = %v, want the window error", err)
	}
}

func TestPushRequiresSender(t *testing.T) {
	if err := Push[string](nil, notifyAction, "x"); err == nil {
		t.Fatal("Push() accepted a nil sender")
	}
}
