// Package dist captures the global bindings of a script into a portable
// snapshot and restores them elsewhere. Snapshots are canonical CBOR, so
// equal bindings always produce equal bytes and equal hashes.
package dist

// NodeKind tags the value stored in a Node.
type NodeKind uint8

const (
	NodeNull NodeKind = iota
	NodeBool
	NodeInt
	NodeFloat
	NodeString
	NodeList
	NodeSet
	NodeMap
	NodeDate
	NodeDateTime
	NodeDuration
	NodeRegex
	NodeBinary
	NodeObject
)

// Node is the wire form of one script value.
//
// Dates and datetimes use Int for Unix seconds, durations use Int for
// nanoseconds. Maps store alternating keys and values in Items. Objects
// carry their type name in Text and their JSON form in Bytes.
type Node struct {
	Kind  NodeKind `cbor:"1,keyasint"`
	Bool  bool     `cbor:"2,keyasint,omitempty"`
	Int   int64    `cbor:"3,keyasint,omitempty"`
	Float float64  `cbor:"4,keyasint,omitempty"`
	Text  string   `cbor:"5,keyasint,omitempty"`
	Bytes []byte   `cbor:"6,keyasint,omitempty"`
	Items []Node   `cbor:"7,keyasint,omitempty"`
}

// Binding is one named global.
type Binding struct {
	Name  string `cbor:"1,keyasint"`
	Value Node   `cbor:"2,keyasint"`
}

// SnapshotVersion is the current snapshot format.
const SnapshotVersion = 1

// Snapshot is a set of global bindings taken from one scope.
type Snapshot struct {
	Version  int       `cbor:"1,keyasint"`
	Module   string    `cbor:"2,keyasint"`
	Bindings []Binding `cbor:"3,keyasint"`
	// Hash is the SHA-256 of the canonical encoding of Bindings.
	Hash [32]byte `cbor:"4,keyasint"`
	// Skipped names globals that have no wire form, like functions.
	Skipped []string `cbor:"5,keyasint,omitempty"`
	// Types lists the object types a restore needs, sorted.
	Types []string `cbor:"6,keyasint,omitempty"`
}

// Get returns the binding called name.
func (s *Snapshot) Get(name string) (Node, bool) {
	for _, b := range s.Bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return Node{}, false
}
