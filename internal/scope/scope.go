// Package scope maintains hierarchical variable bindings, one frame per
// module call. Frames live in an arena indexed by integer id with an
// optional parent index: lookups walk up the parent chain, a frame's own
// binding always shadows its parent's, and no frame ever writes through
// to its parent. Scopes form a tree by construction since a parent is
// fixed at creation and always precedes its children in the arena.
package scope

import "github.com/funvibe/solidscript/internal/value"

// ID indexes a scope record inside its arena.
type ID int

// None marks the absence of a parent scope.
const None ID = -1

type record struct {
	label     string
	parent    ID
	variables map[string]value.Value
}

// Arena owns every scope created during one pipeline run. It is not safe
// for concurrent use; each run gets its own arena.
type Arena struct {
	records []record
}

func NewArena() *Arena {
	return &Arena{}
}

// NewScope creates a scope with an optional parent (None for a root) and
// returns its id. The label identifies the owning frame in error context
// and metrics.
func (a *Arena) NewScope(label string, parent ID) ID {
	a.records = append(a.records, record{
		label:     label,
		parent:    parent,
		variables: make(map[string]value.Value),
	})
	return ID(len(a.records) - 1)
}

// Set binds name in the given scope, shadowing any parent binding of the
// same name.
func (a *Arena) Set(id ID, name string, val value.Value) {
	a.records[id].variables[name] = val
}

// Get resolves name starting at the given scope and walking the parent
// chain. The boolean reports whether the name was bound anywhere, so a
// binding whose value is nil is distinguishable from a miss. A miss is
// not an error; callers decide how to treat it.
func (a *Arena) Get(id ID, name string) (value.Value, bool) {
	for cur := id; cur != None; {
		rec := &a.records[cur]
		if v, ok := rec.variables[name]; ok {
			return v, true
		}
		cur = rec.parent
	}
	return nil, false
}

// Release clears a scope's bindings for deterministic teardown when a
// frame returns. The id stays valid afterwards; lookups simply fall
// through to the parent chain.
func (a *Arena) Release(id ID) {
	a.records[id].variables = make(map[string]value.Value)
}

// Parent returns the scope's parent id, or None for a root.
func (a *Arena) Parent(id ID) ID {
	return a.records[id].parent
}

// Label returns the label the scope was created with.
func (a *Arena) Label(id ID) string {
	return a.records[id].label
}

// Len returns the number of scopes created so far.
func (a *Arena) Len() int {
	return len(a.records)
}
