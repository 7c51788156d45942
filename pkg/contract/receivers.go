package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"crosswire/pkg/transport"
)

// Receivers collects the renderer-side callbacks for a main-to-renderer
// table. Build it with OnPush, then pass it to FromMain, which requires
// exact coverage of the table.
type Receivers struct {
	callbacks map[string]func(payload []byte)
}

func NewReceivers() *Receivers {
	return &Receivers{callbacks: make(map[string]func(payload []byte))}
}

// OnPush registers the callback for a pushed action. Callbacks receive the
// decoded payload only; pushes that do not decode as A are dropped.
func OnPush[A any](r *Receivers, action OneWay[A], fn func(value A)) error {
	if r == nil {
		return errors.New("receivers are required")
	}
	if fn == nil {
		return errors.New("callback is required")
	}

	name := action.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("action name is required")
	}
	if _, exists := r.callbacks[name]; exists {
		return fmt.Errorf("callback already registered for %q", name)
	}

	r.callbacks[name] = func(payload []byte) {
		var value A
		if err := json.Unmarshal(payload, &value); err != nil {
			return
		}
		fn(value)
	}

	return nil
}

// FromMain subscribes the callback map through the exposed bridge and
// returns one function that removes every listener it added. Each FromMain
// call adds a fresh set of listeners; earlier sets keep firing until their
// own unsubscribe runs.
func (c *Contract) FromMain(scope transport.GlobalScope, r *Receivers) (func(), error) {
	bridge, err := c.lookupBridge(scope)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = NewReceivers()
	}

	if err := c.validateReceiverCoverage(r); err != nil {
		return nil, err
	}

	unsubscribes := make([]func(), 0, c.m2r.Len())
	release := func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}

	for _, action := range c.m2r.Actions() {
		name := action.Name()
		subscribe, ok := bridge.subscribers[rendererKey(name)]
		if !ok {
			release()
			return nil, fmt.Errorf("%w: %q has no bridge subscription", ErrUnknownAction, name)
		}

		unsubscribe, err := subscribe(r.callbacks[name])
		if err != nil {
			release()
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
		unsubscribes = append(unsubscribes, unsubscribe)
	}

	var once sync.Once
	return func() {
		once.Do(release)
	}, nil
}

func (c *Contract) validateReceiverCoverage(r *Receivers) error {
	var problems []string

	for _, action := range c.m2r.Actions() {
		if _, ok := r.callbacks[action.Name()]; !ok {
			problems = append(problems, fmt.Sprintf("missing callback for %q", action.Name()))
		}
	}

	for name := range r.callbacks {
		if _, ok := c.m2r.Lookup(name); !ok {
			problems = append(problems, fmt.Sprintf("callback %q does not match any main-to-renderer action", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}

	sort.Strings(problems)
	return fmt.Errorf("callback map does not cover main-to-renderer table: %s", strings.Join(problems, "; "))
}
