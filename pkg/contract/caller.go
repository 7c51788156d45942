package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crosswire/pkg/transport"
)

// Caller issues renderer-to-main calls through the exposed bridge. Building
// one fails with ErrMissingBridge until Expose has run in this process.
type Caller struct {
	bridge *Bridge
}

// ToMain resolves the contract's bridge from the global scope.
func (c *Contract) ToMain(scope transport.GlobalScope) (*Caller, error) {
	bridge, err := c.lookupBridge(scope)
	if err != nil {
		return nil, err
	}

	return &Caller{bridge: bridge}, nil
}

// Invoke calls a two-way action and blocks until the main-side handler
// resolves or ctx ends. Handler errors come back verbatim; a handler that
// never resolves blocks until ctx does. Concurrent invokes of the same
// action are independent.
func Invoke[A, R any](ctx context.Context, c *Caller, action TwoWay[A, R], value A) (R, error) {
	var zero R

	if c == nil {
		return zero, errors.New("caller is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	name := action.Name()
	invoke, ok := c.bridge.invokers[mainKey(name)]
	if !ok {
		return zero, fmt.Errorf("%w: %q is not a two-way renderer-to-main action", ErrUnknownAction, name)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("encode %s request: %w", name, err)
	}

	response, err := invoke(ctx, payload)
	if err != nil {
		return zero, err
	}

	var result R
	if err := json.Unmarshal(response, &result); err != nil {
		return zero, fmt.Errorf("decode %s response: %w", name, err)
	}

	return result, nil
}

// Notify sends a one-way action and returns once the message is handed to
// the transport. No result ever arrives; main-side failures are invisible
// to the sender.
func Notify[A any](c *Caller, action OneWay[A], value A) error {
	if c == nil {
		return errors.New("caller is required")
	}

	name := action.Name()
	send, ok := c.bridge.senders[mainKey(name)]
	if !ok {
		return fmt.Errorf("%w: %q is not a one-way renderer-to-main action", ErrUnknownAction, name)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", name, err)
	}

	return send(payload)
}
