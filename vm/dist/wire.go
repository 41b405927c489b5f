package dist

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is canonical so that encoding is deterministic.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalNode serializes a single value.
func MarshalNode(n Node) ([]byte, error) {
	return cborEncMode.Marshal(n)
}

// UnmarshalNode deserializes a single value.
func UnmarshalNode(data []byte) (Node, error) {
	var n Node
	if err := cbor.Unmarshal(data, &n); err != nil {
		return Node{}, fmt.Errorf("dist: unmarshal node: %w", err)
	}
	return n, nil
}

// MarshalSnapshot serializes a snapshot.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a snapshot and checks its hash.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("dist: unmarshal snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("dist: unsupported snapshot version %d", s.Version)
	}
	if err := VerifySnapshot(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func hashBindings(bindings []Binding) ([32]byte, error) {
	data, err := cborEncMode.Marshal(bindings)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// VerifySnapshot recomputes the bindings hash and compares it to the
// declared one.
func VerifySnapshot(s *Snapshot) error {
	computed, err := hashBindings(s.Bindings)
	if err != nil {
		return fmt.Errorf("dist: hashing bindings: %w", err)
	}
	if computed != s.Hash {
		return fmt.Errorf("dist: hash mismatch: declared %x, computed %x", s.Hash, computed)
	}
	return nil
}
