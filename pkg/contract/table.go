package contract

import (
	"errors"
	"fmt"
	"strings"
)

// Table is an ordered, immutable mapping from action name to descriptor.
// A nil *Table behaves as an empty table.
type Table struct {
	entries []Action
	byName  map[string]Action
}

// NewTable builds a table from declared actions. Construction fails on the
// first nil action, blank name, or duplicate name.
func NewTable(actions ...Action) (*Table, error) {
	table := &Table{
		entries: make([]Action, 0, len(actions)),
		byName:  make(map[string]Action, len(actions)),
	}

	for _, action := range actions {
		if action == nil {
			return nil, errors.New("nil action in table")
		}

		name := action.Name()
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("action name is required")
		}
		if _, exists := table.byName[name]; exists {
			return nil, fmt.Errorf("duplicate action name %q", name)
		}

		table.byName[name] = action
		table.entries = append(table.entries, action)
	}

	return table, nil
}

// Len reports the number of declared actions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.entries)
}

// Actions returns the declared actions in declaration order.
func (t *Table) Actions() []Action {
	if t == nil {
		return nil
	}

	actions := make([]Action, len(t.entries))
	copy(actions, t.entries)
	return actions
}

// Lookup finds a declared action by name.
func (t *Table) Lookup(name string) (Action, bool) {
	if t == nil {
		return nil, false
	}

	action, ok := t.byName[name]
	return action, ok
}
