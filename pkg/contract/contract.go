package contract

import (
	"errors"
	"fmt"
	"strings"

	"crosswire/pkg/transport"
)

// Bridge-object keys carry a direction prefix; the underlying transport
// channels use the unprefixed action name and are global per process.
const (
	mainPrefix     = "m_"
	rendererPrefix = "r_"
)

// Spec declares one contract: the namespace key the bridge is exposed
// under, plus the two directional API tables. Either table may be nil.
type Spec struct {
	Namespace      string
	RendererToMain *Table
	MainToRenderer *Table
}

// Contract is an immutable pair of API tables under a namespace key. All
// four wiring surfaces are derived from it and share its lifetime.
type Contract struct {
	namespace string
	r2m       *Table
	m2r       *Table
}

// New validates a spec and builds the contract. The main-to-renderer table
// must contain only one-way actions; no transport offers a reverse
// request/response primitive.
func New(spec Spec) (*Contract, error) {
	namespace := strings.TrimSpace(spec.Namespace)
	if namespace == "" {
		return nil, errors.New("contract namespace is required")
	}

	for _, action := range spec.MainToRenderer.Actions() {
		if action.Kind() != KindOneWay {
			return nil, fmt.Errorf("main-to-renderer action %q must be one-way", action.Name())
		}
	}

	return &Contract{
		namespace: namespace,
		r2m:       spec.RendererToMain,
		m2r:       spec.MainToRenderer,
	}, nil
}

// Namespace returns the key the bridge is exposed under.
func (c *Contract) Namespace() string {
	return c.namespace
}

// RendererToMain returns the renderer-to-main table.
func (c *Contract) RendererToMain() *Table {
	return c.r2m
}

// MainToRenderer returns the main-to-renderer table.
func (c *Contract) MainToRenderer() *Table {
	return c.m2r
}

func (c *Contract) lookupBridge(scope transport.GlobalScope) (*Bridge, error) {
	if scope == nil {
		return nil, errors.New("global scope is required")
	}

	api, ok := scope.Lookup(c.namespace)
	if !ok {
		return nil, fmt.Errorf("%w: namespace %q", ErrMissingBridge, c.namespace)
	}

	bridge, ok := api.(*Bridge)
	if !ok {
		return nil, fmt.Errorf("namespace %q does not hold a contract bridge", c.namespace)
	}

	return bridge, nil
}

func mainKey(name string) string {
	return mainPrefix + name
}

func rendererKey(name string) string {
	return rendererPrefix + name
}
