package vm

import (
	"strings"
)

var testBuiltins = NewBuiltins()

type testRuntime struct {
	out      strings.Builder
	warnings []string
}

func (r *testRuntime) Builtins() *Builtins { return testBuiltins }
func (r *testRuntime) Print(s string)      { r.out.WriteString(s + "\n") }
func (r *testRuntime) Warn(msg string)     { r.warnings = append(r.warnings, msg) }

func newTestProcess() (*Process, *testRuntime) {
	rt := &testRuntime{}
	return NewProcess(rt, NewModule("test", "")), rt
}

// bodyFunc lets tests supply closure bodies without the compiler.
type bodyFunc func(p *Process, s *Scope) (Value, error)

func (f bodyFunc) Execute(p *Process, s *Scope) (Value, error) { return f(p, s) }

// ---------------------------------------------------------------------------
// Composed fixtures
// ---------------------------------------------------------------------------

type fooBar struct {
	Composed
	Foo   string
	Bar   *string
	Count int64
	Ratio float64
	Flag  bool
	Tags  []string
	Child *fooBar
}

var fooBarTable = NewTypedTable[*fooBar]("FooBar", nil)

func newFooBar() *fooBar {
	f := &fooBar{}
	f.Init(f, fooBarTable.DispatchTable)
	return f
}

func init() {
	fooBarTable.SetConstructorFunc(func(p *Process, args *CallArgs) (*fooBar, error) {
		return newFooBar(), nil
	})
	fooBarTable.StringProperty("foo",
		func(f *fooBar) string { return f.Foo },
		func(f *fooBar, s string) { f.Foo = s })
	fooBarTable.NullableStringProperty("bar",
		func(f *fooBar) *string { return f.Bar },
		func(f *fooBar, s *string) { f.Bar = s })
	fooBarTable.IntProperty("count",
		func(f *fooBar) int64 { return f.Count },
		func(f *fooBar, n int64) { f.Count = n })
	fooBarTable.FloatProperty("ratio",
		func(f *fooBar) float64 { return f.Ratio },
		func(f *fooBar, r float64) { f.Ratio = r })
	fooBarTable.BoolProperty("flag",
		func(f *fooBar) bool { return f.Flag },
		func(f *fooBar, b bool) { f.Flag = b })
	fooBarTable.StringListProperty("tags",
		func(f *fooBar) []string { return f.Tags },
		func(f *fooBar, tags []string) { f.Tags = tags })
	ObjectProperty(fooBarTable, "child", fooBarTable,
		func(f *fooBar) *fooBar { return f.Child },
		func(f *fooBar, c *fooBar) { f.Child = c })
}

// Parent and child objects. The parent table is typed over an interface so
// its entries accept child instances too.

type record struct {
	Composed
	ParentCol string
}

func (r *record) recordPart() *record { return r }

type recordLike interface {
	Value
	recordPart() *record
}

type detail struct {
	record
	ChildCol string
}

var (
	maxLength   = NewMetaDataKey[int]("maxLength")
	recordTable = NewTypedTable[recordLike]("Record", nil)
	detailTable = NewTypedTable[*detail]("Detail", recordTable.DispatchTable)
)

func init() {
	maxLength.Set(recordTable.StringProperty("parent_col",
		func(r recordLike) string { return r.recordPart().ParentCol },
		func(r recordLike, s string) { r.recordPart().ParentCol = s }), 10)
	Help.Set(recordTable.Get("parent_col"), "the parent column")
	maxLength.Set(detailTable.StringProperty("child_col",
		func(d *detail) string { return d.ChildCol },
		func(d *detail, s string) { d.ChildCol = s }), 30)
}

func newRecord() *record {
	r := &record{}
	r.Init(r, recordTable.DispatchTable)
	return r
}

func newDetail() *detail {
	d := &detail{}
	d.Init(d, detailTable.DispatchTable)
	return d
}
