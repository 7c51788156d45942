package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"crosswire/pkg/transport"
)

// Handlers collects the main-side implementations for a renderer-to-main
// table. Build it with HandleOneWay and HandleTwoWay, then pass it to
// FromRenderer, which requires exact coverage of the table.
type Handlers struct {
	oneWay map[string]transport.EventHandler
	twoWay map[string]transport.InvokeHandler
}

func NewHandlers() *Handlers {
	return &Handlers{
		oneWay: make(map[string]transport.EventHandler),
		twoWay: make(map[string]transport.InvokeHandler),
	}
}

func (h *Handlers) registered(name string) bool {
	if _, ok := h.oneWay[name]; ok {
		return true
	}
	_, ok := h.twoWay[name]
	return ok
}

// HandleOneWay registers the implementation for a one-way action. The
// handler fires once per delivered message; failures inside it are not
// observable to the sender. Messages whose payload does not decode as A are
// dropped.
func HandleOneWay[A any](h *Handlers, action OneWay[A], fn func(meta transport.Meta, arg A)) error {
	if h == nil {
		return errors.New("handlers are required")
	}
	if fn == nil {
		return errors.New("handler function is required")
	}

	name := action.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("action name is required")
	}
	if h.registered(name) {
		return fmt.Errorf("handler already registered for %q", name)
	}

	h.oneWay[name] = func(meta transport.Meta, payload []byte) {
		var arg A
		if err := json.Unmarshal(payload, &arg); err != nil {
			return
		}
		fn(meta, arg)
	}

	return nil
}

// HandleTwoWay registers the implementation for a two-way action. The
// handler's result or error travels back to the renderer caller as the
// response.
func HandleTwoWay[A, R any](h *Handlers, action TwoWay[A, R], fn func(ctx context.Context, meta transport.Meta, arg A) (R, error)) error {
	if h == nil {
		return errors.New("handlers are required")
	}
	if fn == nil {
		return errors.New("handler function is required")
	}

	name := action.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("action name is required")
	}
	if h.registered(name) {
		return fmt.Errorf("handler already registered for %q", name)
	}

	h.twoWay[name] = func(ctx context.Context, meta transport.Meta, payload []byte) ([]byte, error) {
		var arg A
		if err := json.Unmarshal(payload, &arg); err != nil {
			return nil, fmt.Errorf("decode %s request: %w", name, err)
		}

		result, err := fn(ctx, meta, arg)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode %s response: %w", name, err)
		}

		return encoded, nil
	}

	return nil
}

// FromRenderer registers the handler map against the privileged-side
// transport. Registration happens only after the map is validated to cover
// the renderer-to-main table exactly; a missing, unknown, or wrong-kind
// handler fails the whole call before any channel is touched.
func (c *Contract) FromRenderer(t transport.MainTransport, h *Handlers) error {
	if t == nil {
		return errors.New("main transport is required")
	}
	if h == nil {
		h = NewHandlers()
	}

	if err := c.validateCoverage(h); err != nil {
		return err
	}

	for _, action := range c.r2m.Actions() {
		name := action.Name()
		switch action.Kind() {
		case KindTwoWay:
			if err := t.Handle(name, h.twoWay[name]); err != nil {
				return fmt.Errorf("register %s handler: %w", name, err)
			}
		case KindOneWay:
			if err := t.On(name, h.oneWay[name]); err != nil {
				return fmt.Errorf("register %s listener: %w", name, err)
			}
		}
	}

	return nil
}

func (c *Contract) validateCoverage(h *Handlers) error {
	var problems []string

	for _, action := range c.r2m.Actions() {
		name := action.Name()
		switch action.Kind() {
		case KindTwoWay:
			if _, ok := h.twoWay[name]; !ok {
				problems = append(problems, fmt.Sprintf("missing handler for two-way action %q", name))
			}
		case KindOneWay:
			if _, ok := h.oneWay[name]; !ok {
				problems = append(problems, fmt.Sprintf("missing handler for one-way action %q", name))
			}
		}
	}

	for name := range h.twoWay {
		action, ok := c.r2m.Lookup(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("handler %q does not match any renderer-to-main action", name))
			continue
		}
		if action.Kind() != KindTwoWay {
			problems = append(problems, fmt.Sprintf("handler %q is two-way but action is %s", name, action.Kind()))
		}
	}

	for name := range h.oneWay {
		action, ok := c.r2m.Lookup(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("handler %q does not match any renderer-to-main action", name))
			continue
		}
		if action.Kind() != KindOneWay {
			problems = append(problems, fmt.Sprintf("handler %q is one-way but action is %s", name, action.Kind()))
		}
	}

	if len(problems) == 0 {
		return nil
	}

	sort.Strings(problems)
	return fmt.Errorf("handler map does not cover renderer-to-main table: %s", strings.Join(problems, "; "))
}
