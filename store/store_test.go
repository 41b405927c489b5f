package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

type person struct {
	vm.Composed
	ID     string
	Name   string
	Nick   *string
	Age    int64
	Score  float64
	Active bool
	Tags   []string
}

type employee struct {
	person
	Dept string
}

type personLike interface {
	vm.Value
	personPart() *person
}

func (p *person) personPart() *person { return p }

func newTables() (*vm.TypedTable[personLike], *vm.TypedTable[*employee]) {
	people := vm.NewTypedTable[personLike]("Person", nil)
	people.StringProperty("id",
		func(p personLike) string { return p.personPart().ID },
		func(p personLike, s string) { p.personPart().ID = s })
	ColumnName.Set(MaxLength.Set(people.StringProperty("name",
		func(p personLike) string { return p.personPart().Name },
		func(p personLike, s string) { p.personPart().Name = s }), 10), "full_name")
	people.NullableStringProperty("nick",
		func(p personLike) *string { return p.personPart().Nick },
		func(p personLike, s *string) { p.personPart().Nick = s })
	people.IntProperty("age",
		func(p personLike) int64 { return p.personPart().Age },
		func(p personLike, n int64) { p.personPart().Age = n })
	people.FloatProperty("score",
		func(p personLike) float64 { return p.personPart().Score },
		func(p personLike, f float64) { p.personPart().Score = f })
	people.BoolProperty("active",
		func(p personLike) bool { return p.personPart().Active },
		func(p personLike, b bool) { p.personPart().Active = b })
	people.StringListProperty("tags",
		func(p personLike) []string { return p.personPart().Tags },
		func(p personLike, tags []string) { p.personPart().Tags = tags })
	people.SetConstructorFunc(func(p *vm.Process, args *vm.CallArgs) (personLike, error) {
		return newPerson(people), nil
	})

	employees := vm.NewTypedTable[*employee]("Employee", people.DispatchTable)
	TableName.SetOnTable(employees.DispatchTable, "staff")
	employees.StringProperty("dept",
		func(e *employee) string { return e.Dept },
		func(e *employee, s string) { e.Dept = s })
	employees.SetConstructorFunc(func(p *vm.Process, args *vm.CallArgs) (*employee, error) {
		e := &employee{}
		e.Init(e, employees.DispatchTable)
		return e, nil
	})
	return people, employees
}

func newPerson(t *vm.TypedTable[personLike]) *person {
	p := &person{}
	p.Init(p, t.DispatchTable)
	return p
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newProcess() *vm.Process {
	rt := env.NewOutputCatchingRuntime(env.NewEnvironment())
	return vm.NewProcess(rt, vm.NewModule("test", ""))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	people, _ := newTables()
	if err := s.Register(ctx, people.DispatchTable); err != nil {
		t.Fatal(err)
	}
	p := newProcess()

	nick := "Al"
	in := newPerson(people)
	in.Name = "Alice"
	in.Nick = &nick
	in.Age = 42
	in.Score = 1.5
	in.Active = true
	in.Tags = []string{"a", "b"}

	id, err := s.Save(ctx, p, in)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" || in.ID != id {
		t.Fatalf("Save id = %q, object id = %q", id, in.ID)
	}

	out := newPerson(people)
	if err := s.Load(ctx, p, people.DispatchTable, id, out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := person{ID: id, Name: "Alice", Nick: &nick, Age: 42, Score: 1.5, Active: true, Tags: []string{"a", "b"}}
	got := *out
	got.Composed = vm.Composed{}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(vm.Composed{})); diff != "" {
		t.Errorf("loaded person mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveKeepsDefaultsAndNulls(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	people, _ := newTables()
	if err := s.Register(ctx, people.DispatchTable); err != nil {
		t.Fatal(err)
	}
	p := newProcess()

	in := newPerson(people)
	in.ID = "fixed"
	if _, err := s.Save(ctx, p, in); err != nil {
		t.Fatal(err)
	}

	var nick, tags any
	var age int64
	row := s.DB().QueryRow(`SELECT "nick", "tags", "age" FROM "person" WHERE "id" = ?`, "fixed")
	if err := row.Scan(&nick, &tags, &age); err != nil {
		t.Fatal(err)
	}
	if nick != nil || tags != nil || age != 0 {
		t.Errorf("row = %v, %v, %d, want NULL, NULL, 0", nick, tags, age)
	}

	out := newPerson(people)
	if err := s.Load(ctx, p, people.DispatchTable, "fixed", out); err != nil {
		t.Fatal(err)
	}
	if out.Nick != nil || out.Tags != nil || out.Name != "" {
		t.Errorf("loaded = %+v, want empty fields", out)
	}
}

func TestColumnMetadata(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	people, _ := newTables()
	if err := s.Register(ctx, people.DispatchTable); err != nil {
		t.Fatal(err)
	}
	p := newProcess()

	in := newPerson(people)
	in.Name = "Bob"
	id, err := s.Save(ctx, p, in)
	if err != nil {
		t.Fatal(err)
	}
	var name string
	if err := s.DB().QueryRow(`SELECT "full_name" FROM "person" WHERE "id" = ?`, id).Scan(&name); err != nil {
		t.Fatalf("query full_name: %v", err)
	}
	if name != "Bob" {
		t.Errorf("full_name = %q, want Bob", name)
	}

	in.Name = "Bartholomew Jr."
	if _, err := s.Save(ctx, p, in); err == nil || !strings.Contains(err.Error(), "exceeds 10 characters") {
		t.Errorf("Save long name error = %v, want length error", err)
	}
}

func TestInheritedColumnsAndTableName(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, employees := newTables()
	if err := s.Register(ctx, employees.DispatchTable); err != nil {
		t.Fatal(err)
	}
	p := newProcess()

	in, err := s.New(ctx, p, employees.DispatchTable, "missing")
	if !errors.Is(err, ErrNotFound) || in != nil {
		t.Fatalf("New(missing) = %v, %v, want ErrNotFound", in, err)
	}

	e := &employee{}
	e.Init(e, employees.DispatchTable)
	e.Name = "Carol"
	e.Dept = "ops"
	id, err := s.Save(ctx, p, e)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := s.New(ctx, p, employees.DispatchTable, id)
	if err != nil {
		t.Fatal(err)
	}
	got := loaded.(*employee)
	if got.Name != "Carol" || got.Dept != "ops" || got.ID != id {
		t.Errorf("loaded = %+v", got)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT count(*) FROM "staff"`).Scan(&n); err != nil || n != 1 {
		t.Errorf("staff rows = %d, %v, want 1", n, err)
	}
}

func TestDeleteAndIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	people, _ := newTables()
	if err := s.Register(ctx, people.DispatchTable); err != nil {
		t.Fatal(err)
	}
	p := newProcess()

	for _, id := range []string{"b", "a", "c"} {
		obj := newPerson(people)
		obj.ID = id
		if _, err := s.Save(ctx, p, obj); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx, people.DispatchTable, "b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, people.DispatchTable, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
	ids, err := s.IDs(ctx, people.DispatchTable)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterNeedsID(t *testing.T) {
	noID := vm.NewTypedTable[*person]("NoID", nil)
	noID.StringProperty("name", func(p *person) string { return p.Name }, nil)
	s := openTestStore(t)
	if err := s.Register(context.Background(), noID.DispatchTable); err == nil {
		t.Error("Register without id property succeeded")
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Open(oracle) succeeded")
	}
	if _, err := Open("mysql", "no slash here"); err == nil {
		t.Error("Open(mysql) with invalid DSN succeeded")
	}
}

func TestDialectStatements(t *testing.T) {
	people, _ := newTables()
	m, err := mappingFor(people.DispatchTable)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		got, want string
	}{
		{createTableSQL(mysqlDialect{}, m), "CREATE TABLE IF NOT EXISTS `person` (`id` VARCHAR(36) PRIMARY KEY, `full_name` VARCHAR(10), `nick` TEXT, `age` BIGINT, `score` DOUBLE, `active` BOOLEAN, `tags` TEXT)"},
		{createTableSQL(sqliteDialect{}, m), `CREATE TABLE IF NOT EXISTS "person" ("id" TEXT PRIMARY KEY, "full_name" VARCHAR(10), "nick" TEXT, "age" INTEGER, "score" REAL, "active" INTEGER, "tags" TEXT)`},
		{replaceSQL(mysqlDialect{}, m), "REPLACE INTO `person` (`id`, `full_name`, `nick`, `age`, `score`, `active`, `tags`) VALUES (?, ?, ?, ?, ?, ?, ?)"},
		{deleteSQL(sqliteDialect{}, m), `DELETE FROM "person" WHERE "id" = ?`},
		{sqliteDialect{}.quote(`we"ird`), `"we""ird"`},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("statement = %s\nwant        %s", tc.got, tc.want)
		}
	}
}

func TestScriptAccess(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	people, _ := newTables()
	if err := s.Register(ctx, people.DispatchTable); err != nil {
		t.Fatal(err)
	}
	e := env.NewEnvironment()
	e.RegisterType(people.DispatchTable)
	rt := env.NewOutputCatchingRuntime(e)

	script, err := rt.Compile("store", `
p = Person()
p.name = 'Dora'
p.tags = ['x']
id = db.save(p)
q = db.load('Person', id)
print(q.name, q.tags, db.ids('Person').size())
print(db.delete('Person', id), db.delete('Person', id), db.load('Person', id))
help(db.save)
`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := script.Run(func(g *vm.Scope) error { return g.Bind("db", s.ScriptValue()) })
	if err != nil {
		t.Fatal(err)
	}
	if want := "Dora [x] 1\ntrue false null\n"; rt.AllOutput() != want {
		t.Errorf("output = %q, want %q", rt.AllOutput(), want)
	}
	if got != vm.String("Stores an object and returns its id.") {
		t.Errorf("help(db.save) = %v", got)
	}

	bad, err := rt.Compile("bad", "db.load('Nope', 'x')")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bad.Run(func(g *vm.Scope) error { return g.Bind("db", s.ScriptValue()) }); !errors.Is(err, vm.NameError) {
		t.Errorf("load of unknown type error = %v, want NameError", err)
	}
}
