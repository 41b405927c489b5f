package vm

// ---------------------------------------------------------------------------
// Callables: native functions, bound methods and closures
// ---------------------------------------------------------------------------

// Callable is a value that can be invoked.
type Callable interface {
	Value
	Name() string
	Call(p *Process, args *CallArgs) (Value, error)
}

// Call invokes fn with the given arguments.
func Call(p *Process, fn Value, args ...Value) (Value, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, NewError(p, TypeError, "%s is not callable", describe(fn))
	}
	result, err := c.Call(p, NewCallArgs(p, c.Name(), args...))
	if err != nil {
		return nil, err
	}
	return OrNull(result), nil
}

func describe(v Value) string {
	if v == nil {
		return "null"
	}
	return "'" + v.String() + "' (" + v.TypeName() + ")"
}

type callableBase struct{}

func (callableBase) Kind() Kind       { return KindCallable }
func (callableBase) TypeName() string { return "function" }
func (callableBase) IsTruthy() bool   { return true }

// NativeFunc is the Go signature of a free native function.
type NativeFunc func(p *Process, args *CallArgs) (Value, error)

// NativeFunction is a host function exposed to scripts.
type NativeFunction struct {
	callableBase
	name string
	fn   NativeFunc
}

// NewNativeFunction wraps fn.
func NewNativeFunction(name string, fn NativeFunc) *NativeFunction {
	return &NativeFunction{name: name, fn: fn}
}

func (f *NativeFunction) Name() string   { return f.name }
func (f *NativeFunction) String() string { return "<native function " + f.name + ">" }
func (f *NativeFunction) HostValue() any { return f.fn }

func (f *NativeFunction) Call(p *Process, args *CallArgs) (Value, error) {
	return f.fn(p, args)
}

// BoundMethod pairs a receiver with a method entry. It stays callable after
// the expression that produced it is gone.
type BoundMethod struct {
	callableBase
	receiver Value
	entry    *Entry
	table    *DispatchTable
}

// NewBoundMethod binds entry to receiver. table is the table the entry was
// resolved through; it is where metadata lookups start.
func NewBoundMethod(receiver Value, entry *Entry, table *DispatchTable) *BoundMethod {
	return &BoundMethod{receiver: receiver, entry: entry, table: table}
}

func (m *BoundMethod) Name() string   { return m.entry.Name() }
func (m *BoundMethod) HostValue() any { return m }

func (m *BoundMethod) String() string {
	return "<method " + m.receiver.TypeName() + "." + m.entry.Name() + ">"
}

// Receiver returns the bound receiver.
func (m *BoundMethod) Receiver() Value { return m.receiver }

// Entry returns the method entry.
func (m *BoundMethod) Entry() *Entry { return m.entry }

// ResolvedOn returns the table the method was resolved through. Metadata
// lookups for the method start there.
func (m *BoundMethod) ResolvedOn() *DispatchTable { return m.table }

func (m *BoundMethod) Call(p *Process, args *CallArgs) (Value, error) {
	return m.entry.Invoke(p, m.receiver, args)
}

// Body is the executable part of a script function, supplied by the
// compiler.
type Body interface {
	Execute(p *Process, s *Scope) (Value, error)
}

// Closure is a script function together with the scope it was defined in.
type Closure struct {
	callableBase
	name   string
	params []string
	body   Body
	scope  *Scope
	module *ModuleInfo
}

// NewClosure creates a closure over scope.
func NewClosure(name string, params []string, body Body, scope *Scope, module *ModuleInfo) *Closure {
	return &Closure{name: name, params: params, body: body, scope: scope, module: module}
}

func (c *Closure) Name() string   { return c.name }
func (c *Closure) String() string { return "<function " + c.name + ">" }
func (c *Closure) HostValue() any { return c }

// Params returns the parameter names.
func (c *Closure) Params() []string { return c.params }

// Scope returns the defining scope.
func (c *Closure) Scope() *Scope { return c.scope }

// Call runs the body in a fresh child scope of the defining scope, so every
// activation has its own locals.
func (c *Closure) Call(p *Process, args *CallArgs) (Value, error) {
	if err := args.RequireExactly(len(c.params)); err != nil {
		return nil, err
	}
	activation := NewChildScope(c.scope)
	for i, name := range c.params {
		if err := activation.Bind(name, args.Get(i)); err != nil {
			return nil, err
		}
	}
	if c.module != nil && c.module != p.Module() {
		defer p.SwitchModule(c.module)()
	}
	return c.body.Execute(p, activation)
}
