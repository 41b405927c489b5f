package dist

import (
	"fmt"

	"github.com/eischet/janitor-sub000/vm"
)

// TypePolicy controls which object types a snapshot may bring in when it
// is restored. A nil Allowed set allows every type.
type TypePolicy struct {
	Allowed map[string]bool
	Denied  map[string]bool
}

// NewPermissivePolicy creates a policy that allows all types.
func NewPermissivePolicy() *TypePolicy {
	return &TypePolicy{}
}

// NewRestrictedPolicy creates a policy that only allows the given types.
func NewRestrictedPolicy(allowed []string) *TypePolicy {
	m := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		m[t] = true
	}
	return &TypePolicy{Allowed: m}
}

// Check returns an error for the first type of s the policy rejects.
func (p *TypePolicy) Check(s *Snapshot) error {
	if s == nil {
		return nil
	}
	for _, t := range s.Types {
		if p.Denied != nil && p.Denied[t] {
			return fmt.Errorf("dist: type %q is explicitly denied", t)
		}
		if p.Allowed != nil && !p.Allowed[t] {
			return fmt.Errorf("dist: type %q is not allowed", t)
		}
	}
	return nil
}

// Deny adds a type to the deny list.
func (p *TypePolicy) Deny(t string) {
	if p.Denied == nil {
		p.Denied = make(map[string]bool)
	}
	p.Denied[t] = true
}

// Lookup wraps lookup so that it only resolves types the policy allows.
func (p *TypePolicy) Lookup(lookup TypeLookup) TypeLookup {
	return func(name string) *vm.DispatchTable {
		if p.Denied[name] || (p.Allowed != nil && !p.Allowed[name]) {
			return nil
		}
		return lookup(name)
	}
}
