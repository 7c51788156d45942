package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"crosswire/pkg/transport"
)

// Sender pushes main-to-renderer messages to one window. Senders for
// different windows are independent; build one per window with ToRenderer.
type Sender struct {
	window transport.Window
	table  *Table
}

// ToRenderer binds the contract's main-to-renderer table to a window.
func (c *Contract) ToRenderer(w transport.Window) (*Sender, error) {
	if w == nil {
		return nil, errors.New("window is required")
	}

	return &Sender{window: w, table: c.m2r}, nil
}

// Window returns the bound window.
func (s *Sender) Window() transport.Window {
	return s.window
}

// Push sends one declared one-way action to the sender's window on the
// unprefixed channel name. Pure forwarding: no buffering, no retry; a
// closed or broken window fails with whatever its Send reports.
func Push[A any](s *Sender, action OneWay[A], value A) error {
	if s == nil {
		return errors.New("sender is required")
	}

	name := action.Name()
	if _, ok := s.table.Lookup(name); !ok {
		return fmt.Errorf("%w: %q is not in the main-to-renderer table", ErrUnknownAction, name)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s push: %w", name, err)
	}

	return s.window.Send(name, payload)
}
