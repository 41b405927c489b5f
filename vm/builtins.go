package vm

import (
	"regexp"
)

// ---------------------------------------------------------------------------
// Builtins: dispatch tables of the builtin value variants
// ---------------------------------------------------------------------------

// Builtins holds one dispatch table per builtin variant. All tables have Base
// as their parent, so members added to Base appear on every builtin value.
//
// Tables may be extended by the host after construction. Extensions must not
// race with running scripts.
type Builtins struct {
	Base      *DispatchTable
	Nulls     *TypedTable[Value]
	Bools     *TypedTable[Bool]
	Ints      *TypedTable[Int]
	Floats    *TypedTable[Float]
	Strings   *TypedTable[String]
	Lists     *TypedTable[*List]
	Sets      *TypedTable[*Set]
	Maps      *TypedTable[*Map]
	Dates     *TypedTable[Date]
	DateTimes *TypedTable[DateTime]
	Durations *TypedTable[Duration]
	Regexes   *TypedTable[*Wrapper[*regexp.Regexp]]
	Binaries  *TypedTable[*Wrapper[[]byte]]
	Functions *TypedTable[Callable]
	Errors    *DispatchTable
	Modules   *DispatchTable

	byKind [kindCount]*DispatchTable
}

// NewBuiltins creates and fills the builtin tables.
func NewBuiltins() *Builtins {
	base := NewDispatchTable("object", nil)
	b := &Builtins{
		Base:      base,
		Nulls:     NewTypedTable[Value]("null", base),
		Bools:     NewTypedTable[Bool]("bool", base),
		Ints:      NewTypedTable[Int]("int", base),
		Floats:    NewTypedTable[Float]("float", base),
		Strings:   NewTypedTable[String]("string", base),
		Lists:     NewTypedTable[*List]("list", base),
		Sets:      NewTypedTable[*Set]("set", base),
		Maps:      NewTypedTable[*Map]("map", base),
		Dates:     NewTypedTable[Date]("date", base),
		DateTimes: NewTypedTable[DateTime]("datetime", base),
		Durations: NewTypedTable[Duration]("duration", base),
		Regexes:   NewWrapperTable[*regexp.Regexp]("regex", base),
		Binaries:  NewWrapperTable[[]byte]("binary", base),
		Functions: NewTypedTable[Callable]("function", base),
		Errors:    NewDispatchTable("exception", base),
		Modules:   NewDispatchTable("module", base),
	}
	b.byKind = [kindCount]*DispatchTable{
		KindNull:     b.Nulls.DispatchTable,
		KindBool:     b.Bools.DispatchTable,
		KindInt:      b.Ints.DispatchTable,
		KindFloat:    b.Floats.DispatchTable,
		KindString:   b.Strings.DispatchTable,
		KindList:     b.Lists.DispatchTable,
		KindSet:      b.Sets.DispatchTable,
		KindMap:      b.Maps.DispatchTable,
		KindDate:     b.Dates.DispatchTable,
		KindDateTime: b.DateTimes.DispatchTable,
		KindDuration: b.Durations.DispatchTable,
		KindRegex:    b.Regexes.DispatchTable,
		KindBinary:   b.Binaries.DispatchTable,
		KindCallable: b.Functions.DispatchTable,
		KindError:    b.Errors,
		KindModule:   b.Modules,
	}

	base.AddProperty("class", func(p *Process, self Value) (Value, error) {
		return String(self.TypeName()), nil
	}, nil)
	Help.Set(base.Get("class"), "Returns the type name of the value.")

	registerStringMethods(b)
	registerNumberMethods(b)
	registerCollectionMethods(b)
	registerTemporalMethods(b)
	registerWrappedMethods(b)
	b.Functions.Property("name", func(p *Process, self Callable) (Value, error) {
		return String(self.Name()), nil
	}, nil)
	return b
}

// Tables returns the base table followed by the table of every builtin
// kind.
func (b *Builtins) Tables() []*DispatchTable {
	out := []*DispatchTable{b.Base}
	for _, t := range b.byKind {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// TableFor returns the builtin table for a kind, or nil for kinds whose
// values carry their own table.
func (b *Builtins) TableFor(k Kind) *DispatchTable {
	if int(k) < len(b.byKind) {
		return b.byKind[k]
	}
	return nil
}

// NewBinary wraps data as a binary value. data is not copied.
func (b *Builtins) NewBinary(data []byte) *Wrapper[[]byte] {
	return Wrap(b.Binaries, KindBinary, data)
}

// NewRegex wraps a compiled pattern.
func (b *Builtins) NewRegex(re *regexp.Regexp) *Wrapper[*regexp.Regexp] {
	return Wrap(b.Regexes, KindRegex, re)
}

// CompileRegex compiles pattern into a regex value.
func (b *Builtins) CompileRegex(p *Process, pattern string) (Value, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, NewError(p, ArgumentError, "invalid regex %q: %v", pattern, err)
	}
	return b.NewRegex(re), nil
}
