package vm

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Scope: lexical environments
// ---------------------------------------------------------------------------

// Scope is a node in the chain builtin -> global -> block/function.
// Closures keep a pointer to the scope they were created in, so scopes form
// a graph that lives as long as any closure or child scope references it.
type Scope struct {
	mu       sync.RWMutex
	parent   *Scope
	bindings map[string]Value
	sealed   bool
	module   *ModuleInfo
	implicit Value
}

// NewBuiltinScope creates the root scope. Fill it, then call Seal.
func NewBuiltinScope() *Scope {
	return &Scope{bindings: make(map[string]Value)}
}

// NewGlobalScope creates the top-level scope of one module run.
func NewGlobalScope(builtin *Scope, module *ModuleInfo) *Scope {
	return &Scope{parent: builtin, bindings: make(map[string]Value), module: module}
}

// NewChildScope creates a block or function scope. parent is the lexically
// enclosing scope.
func NewChildScope(parent *Scope) *Scope {
	s := &Scope{parent: parent, bindings: make(map[string]Value)}
	if parent != nil {
		s.module = parent.module
	}
	return s
}

// Parent returns the enclosing scope, nil for the builtin scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Module returns the module this scope belongs to.
func (s *Scope) Module() *ModuleInfo { return s.module }

// Seal makes the scope read-only. Sealing cannot be undone.
func (s *Scope) Seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

// Sealed reports whether bindings are frozen.
func (s *Scope) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// SetImplicit installs an object whose attributes resolve as names in this
// scope, after local bindings and before the parent scope.
func (s *Scope) SetImplicit(v Value) {
	s.mu.Lock()
	s.implicit = v
	s.mu.Unlock()
}

// Bind creates or replaces a binding in this scope only.
func (s *Scope) Bind(name string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return NewError(nil, NameError, "cannot bind '%s' in sealed scope", name)
	}
	s.bindings[name] = OrNull(v)
	return nil
}

// Assign rebinds name in the nearest writable scope that binds it, or binds
// it here when no such scope exists. Names from sealed scopes are shadowed.
func (s *Scope) Assign(name string, v Value) error {
	for sc := s; sc != nil; sc = sc.parent {
		sc.mu.Lock()
		if _, ok := sc.bindings[name]; ok && !sc.sealed {
			sc.bindings[name] = OrNull(v)
			sc.mu.Unlock()
			return nil
		}
		sc.mu.Unlock()
	}
	return s.Bind(name, v)
}

// RetrieveLocal returns a binding of this scope without walking the chain.
func (s *Scope) RetrieveLocal(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.bindings[name]
	return v, ok
}

// Lookup resolves name through the scope chain.
func (s *Scope) Lookup(p *Process, name string) (Value, error) {
	for sc := s; sc != nil; sc = sc.parent {
		sc.mu.RLock()
		v, ok := sc.bindings[name]
		implicit := sc.implicit
		sc.mu.RUnlock()
		if ok {
			return v, nil
		}
		if implicit != nil {
			found, err := GetAttribute(p, implicit, name, false)
			if err != nil {
				return nil, err
			}
			if found != nil {
				return found, nil
			}
		}
	}
	return nil, NewError(p, NameError, "name '%s' is not defined", name)
}

// Names returns the names bound directly in this scope, sorted.
func (s *Scope) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.bindings))
	for n := range s.bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
