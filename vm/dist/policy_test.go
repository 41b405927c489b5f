package dist

import (
	"testing"

	"github.com/eischet/janitor-sub000/vm"
)

func TestPermissivePolicyAllowsEverything(t *testing.T) {
	p := NewPermissivePolicy()
	s := &Snapshot{Types: []string{"Dog", "Person"}}

	if err := p.Check(s); err != nil {
		t.Errorf("permissive policy should allow all: %v", err)
	}
	if err := p.Check(nil); err != nil {
		t.Errorf("nil snapshot should be allowed: %v", err)
	}
}

func TestRestrictedPolicy(t *testing.T) {
	p := NewRestrictedPolicy([]string{"Dog"})

	if err := p.Check(&Snapshot{Types: []string{"Dog"}}); err != nil {
		t.Errorf("should allow listed type: %v", err)
	}
	if err := p.Check(&Snapshot{Types: []string{"Person"}}); err == nil {
		t.Error("should deny unlisted type")
	}
	if err := p.Check(&Snapshot{}); err != nil {
		t.Errorf("snapshot without objects should pass: %v", err)
	}
}

func TestDenyOverridesAllow(t *testing.T) {
	p := NewRestrictedPolicy([]string{"Dog", "Person"})
	p.Deny("Person")

	if err := p.Check(&Snapshot{Types: []string{"Person"}}); err == nil {
		t.Error("deny should override allow")
	}
	if got := p.Lookup(func(string) *vm.DispatchTable { return dogTable.DispatchTable })("Person"); got != nil {
		t.Errorf("Lookup(Person) = %v, want nil", got)
	}
	if got := p.Lookup(func(string) *vm.DispatchTable { return dogTable.DispatchTable })("Dog"); got == nil {
		t.Error("Lookup(Dog) = nil, want the table")
	}
}
