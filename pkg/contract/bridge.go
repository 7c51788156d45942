package contract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"crosswire/pkg/transport"
)

type invokeFunc func(ctx context.Context, payload []byte) ([]byte, error)

type sendFunc func(payload []byte) error

type subscribeFunc func(fn func(payload []byte)) (func(), error)

// Bridge is the namespace object exposed to sandboxed code: one callable
// per renderer-to-main entry under "m_"+name, one subscription registration
// per main-to-renderer entry under "r_"+name. A Bridge is assembled in full
// during Expose and read-only afterward.
type Bridge struct {
	namespace   string
	invokers    map[string]invokeFunc
	senders     map[string]sendFunc
	subscribers map[string]subscribeFunc
}

// Namespace returns the key this bridge was exposed under.
func (b *Bridge) Namespace() string {
	return b.namespace
}

// Keys returns the sorted bridge-object keys, prefixes included.
func (b *Bridge) Keys() []string {
	keys := make([]string, 0, len(b.invokers)+len(b.senders)+len(b.subscribers))
	for key := range b.invokers {
		keys = append(keys, key)
	}
	for key := range b.senders {
		keys = append(keys, key)
	}
	for key := range b.subscribers {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}

// Expose assembles the bridge over the renderer-side transport and installs
// it in the global scope under the contract's namespace key. It runs once
// per namespace, before either side uses its surface; exposing the same
// namespace twice fails at the scope.
func (c *Contract) Expose(rt transport.RendererTransport, scope transport.GlobalScope) error {
	if rt == nil {
		return errors.New("renderer transport is required")
	}
	if scope == nil {
		return errors.New("global scope is required")
	}

	bridge := &Bridge{
		namespace:   c.namespace,
		invokers:    make(map[string]invokeFunc),
		senders:     make(map[string]sendFunc),
		subscribers: make(map[string]subscribeFunc),
	}

	for _, action := range c.r2m.Actions() {
		name := action.Name()
		switch action.Kind() {
		case KindTwoWay:
			bridge.invokers[mainKey(name)] = func(ctx context.Context, payload []byte) ([]byte, error) {
				return rt.Invoke(ctx, name, payload)
			}
		case KindOneWay:
			bridge.senders[mainKey(name)] = func(payload []byte) error {
				return rt.Send(name, payload)
			}
		}
	}

	for _, action := range c.m2r.Actions() {
		name := action.Name()
		bridge.subscribers[rendererKey(name)] = func(fn func(payload []byte)) (func(), error) {
			// Renderer callbacks see the payload only; delivery metadata
			// stays below the bridge.
			return rt.On(name, func(_ transport.Meta, payload []byte) {
				fn(payload)
			})
		}
	}

	if err := scope.Expose(c.namespace, bridge); err != nil {
		return fmt.Errorf("expose bridge %q: %w", c.namespace, err)
	}

	return nil
}
