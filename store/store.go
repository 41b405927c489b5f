// Package store persists composed script objects in SQL tables. The table
// layout comes from the dispatch table of the object type: every property
// with a JSON codec becomes a column.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/eischet/janitor-sub000/vm"
)

var log = commonlog.GetLogger("janitor.store")

// ErrNotFound indicates the requested object doesn't exist.
var ErrNotFound = errors.New("object not found")

// Metadata understood by the store.
var (
	// TableName overrides the SQL table of a dispatch table. The default is
	// the lower-cased type name.
	TableName = vm.NewMetaDataKey[string]("tableName")
	// ColumnName overrides the SQL column of a property.
	ColumnName = vm.NewMetaDataKey[string]("columnName")
	// MaxLength limits string properties; longer values are rejected on
	// save and the column is created as VARCHAR.
	MaxLength = vm.NewMetaDataKey[int]("maxLength")
)

// IDProperty is the property holding an object's primary key.
const IDProperty = "id"

type column struct {
	property  string
	column    string
	hint      string
	maxLength int
}

type mapping struct {
	table    string
	idColumn string
	columns  []column
}

// Store maps dispatch tables to SQL tables.
type Store struct {
	db      *sql.DB
	dialect dialect

	mu    sync.RWMutex
	types map[string]*vm.DispatchTable
}

// Open connects to a database. driver is "sqlite" or "mysql".
func Open(driver, dsn string) (*Store, error) {
	var (
		db *sql.DB
		d  dialect
	)
	switch driver {
	case "sqlite":
		var err error
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		// A second connection to an in-memory database sees another database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
		d = sqliteDialect{}
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql dsn: %w", err)
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		db = sql.OpenDB(connector)
		d = mysqlDialect{}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	log.Infof("opened %s store", driver)
	return &Store{db: db, dialect: d, types: make(map[string]*vm.DispatchTable)}, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func mappingFor(t *vm.DispatchTable) (*mapping, error) {
	m := &mapping{table: strings.ToLower(t.Name()), idColumn: IDProperty}
	if name, ok := TableName.GetFromTable(t); ok {
		m.table = name
	}
	hasID := false
	for _, e := range t.Entries() {
		if !e.HasJSON() {
			continue
		}
		name := e.Name()
		col := name
		if c, ok := ColumnName.Get(t, name); ok {
			col = c
		}
		if name == IDProperty {
			hasID = true
			m.idColumn = col
			continue
		}
		hint, _ := vm.TypeHint.Get(t, name)
		maxLength, _ := MaxLength.Get(t, name)
		m.columns = append(m.columns, column{property: name, column: col, hint: hint, maxLength: maxLength})
	}
	if !hasID {
		return nil, fmt.Errorf("type %s has no %s property", t.Name(), IDProperty)
	}
	return m, nil
}

// Register creates the SQL table for t if needed and makes the type
// loadable by name.
func (s *Store) Register(ctx context.Context, t *vm.DispatchTable) error {
	m, err := mappingFor(t)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(s.dialect, m)); err != nil {
		return fmt.Errorf("creating table %s: %w", m.table, err)
	}
	s.mu.Lock()
	s.types[t.Name()] = t
	s.mu.Unlock()
	log.Debugf("registered %s as table %s", t.Name(), m.table)
	return nil
}

// Type returns a registered table by type name.
func (s *Store) Type(name string) (*vm.DispatchTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// Save writes obj and returns its ID. An object without an ID gets a new
// UUID first.
func (s *Store) Save(ctx context.Context, p *vm.Process, obj vm.Value) (string, error) {
	obj = vm.OrNull(obj)
	t := vm.TableOf(p, obj)
	if t == nil {
		return "", fmt.Errorf("cannot store %s", vm.OrNull(obj).TypeName())
	}
	m, err := mappingFor(t)
	if err != nil {
		return "", err
	}

	idValue, err := t.Resolve(p, obj, IDProperty)
	if err != nil {
		return "", err
	}
	id := ""
	if idValue != nil && !vm.IsNull(idValue) {
		id = vm.Display(idValue)
	}
	if id == "" {
		id = uuid.NewString()
		if err := t.Assign(p, obj, IDProperty, vm.String(id)); err != nil {
			return "", err
		}
	}

	data, err := t.WriteJSON(p, obj)
	if err != nil {
		return "", err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}

	args := []any{id}
	for _, c := range m.columns {
		v, err := columnValue(c, fields[c.property])
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", t.Name(), c.property, err)
		}
		args = append(args, v)
	}
	if _, err := s.db.ExecContext(ctx, replaceSQL(s.dialect, m), args...); err != nil {
		return "", fmt.Errorf("saving %s %s: %w", t.Name(), id, err)
	}
	return id, nil
}

// columnValue turns the JSON encoding of a property into a column value.
// Properties left out of the JSON are at their default.
func columnValue(c column, raw json.RawMessage) (any, error) {
	switch c.hint {
	case "string":
		if raw == nil {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if c.maxLength > 0 && utf8.RuneCountInString(s) > c.maxLength {
			return nil, fmt.Errorf("value exceeds %d characters", c.maxLength)
		}
		return s, nil
	case "int":
		var n int64
		if raw != nil {
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, err
			}
		}
		return n, nil
	case "float":
		var f float64
		if raw != nil {
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, err
			}
		}
		return f, nil
	case "bool":
		var b bool
		if raw != nil {
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, err
			}
		}
		return b, nil
	}
	if raw == nil {
		return nil, nil
	}
	return string(raw), nil
}

// columnJSON is the inverse of columnValue.
func columnJSON(c column, v sql.NullString) (json.RawMessage, error) {
	if !v.Valid {
		return nil, nil
	}
	switch c.hint {
	case "string":
		return json.Marshal(v.String)
	case "int", "float":
		if _, err := strconv.ParseFloat(v.String, 64); err != nil {
			return nil, fmt.Errorf("column %s: %w", c.column, err)
		}
		return json.RawMessage(v.String), nil
	case "bool":
		b := v.String == "1" || strings.EqualFold(v.String, "true")
		return json.Marshal(b)
	}
	return json.RawMessage(v.String), nil
}

// Load reads the object id of type t into obj.
func (s *Store) Load(ctx context.Context, p *vm.Process, t *vm.DispatchTable, id string, obj vm.Value) error {
	m, err := mappingFor(t)
	if err != nil {
		return err
	}
	values := make([]sql.NullString, len(m.columns))
	dest := make([]any, len(m.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if len(dest) == 0 {
		var ignored string
		dest = []any{&ignored}
	}
	err = s.db.QueryRowContext(ctx, selectSQL(s.dialect, m), id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading %s %s: %w", t.Name(), id, err)
	}

	fields := map[string]json.RawMessage{IDProperty: mustJSON(id)}
	for i, c := range m.columns {
		raw, err := columnJSON(c, values[i])
		if err != nil {
			return fmt.Errorf("loading %s %s: %w", t.Name(), id, err)
		}
		if raw != nil {
			fields[c.property] = raw
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return t.ReadJSONInto(p, obj, data)
}

// New loads the object id of type t into a fresh instance made by the
// table's constructor.
func (s *Store) New(ctx context.Context, p *vm.Process, t *vm.DispatchTable, id string) (vm.Value, error) {
	ctor := t.Constructor()
	if ctor == nil {
		return nil, fmt.Errorf("type %s has no constructor", t.Name())
	}
	obj, err := ctor.Invoke(p, vm.Null, vm.NewCallArgs(p, t.Name()))
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, p, t, id, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Delete removes the object id of type t. Deleting a missing object is
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, t *vm.DispatchTable, id string) error {
	m, err := mappingFor(t)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, deleteSQL(s.dialect, m), id)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", t.Name(), id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IDs lists the stored IDs of type t in ascending order.
func (s *Store) IDs(ctx context.Context, t *vm.DispatchTable) ([]string, error) {
	m, err := mappingFor(t)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, idsSQL(s.dialect, m))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.Name(), err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func mustJSON(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
