package vm

// MetaDataKey names a typed metadata slot on dispatch entries and tables.
// Keys compare by name, so two keys with the same name address the same
// slot.
type MetaDataKey[T any] struct {
	name string
}

// NewMetaDataKey creates a key.
func NewMetaDataKey[T any](name string) MetaDataKey[T] {
	return MetaDataKey[T]{name: name}
}

// Name returns the key name.
func (k MetaDataKey[T]) Name() string { return k.name }

// Standard metadata keys.
var (
	Help        = NewMetaDataKey[string]("help")
	DisplayName = NewMetaDataKey[string]("name")
	TypeHint    = NewMetaDataKey[string]("typeHint")
)

// Set stores v on the entry and returns the entry for chaining.
func (k MetaDataKey[T]) Set(e *Entry, v T) *Entry {
	t := e.table
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.meta == nil {
		e.meta = make(map[string]any)
	}
	e.meta[k.name] = v
	return e
}

// Get resolves the key for the named entry, walking the parent chain of t.
// Each key falls back independently: a child that overrides one key still
// inherits the others.
func (k MetaDataKey[T]) Get(t *DispatchTable, name string) (T, bool) {
	for tt := t; tt != nil; tt = tt.parent {
		tt.mu.RLock()
		e := tt.entries[name]
		var (
			raw any
			ok  bool
		)
		if e != nil && e.meta != nil {
			raw, ok = e.meta[k.name]
		}
		tt.mu.RUnlock()
		if ok {
			if v, typed := raw.(T); typed {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}

// SetOnTable stores v on the table itself.
func (k MetaDataKey[T]) SetOnTable(t *DispatchTable, v T) *DispatchTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.meta == nil {
		t.meta = make(map[string]any)
	}
	t.meta[k.name] = v
	return t
}

// GetFromTable resolves the key on the table, falling back to its parents.
func (k MetaDataKey[T]) GetFromTable(t *DispatchTable) (T, bool) {
	for tt := t; tt != nil; tt = tt.parent {
		tt.mu.RLock()
		raw, ok := tt.meta[k.name]
		tt.mu.RUnlock()
		if ok {
			if v, typed := raw.(T); typed {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}
