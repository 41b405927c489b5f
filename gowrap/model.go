// Package gowrap introspects Go packages and generates wrapper tables that
// expose their struct types to scripts.
package gowrap

// Kind is the script-side type a Go field, parameter or result maps to.
type Kind int

const (
	KindUnsupported Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindStringList
)

var kindNames = map[Kind]string{
	KindUnsupported: "unsupported",
	KindString:      "string",
	KindInt:         "int",
	KindFloat:       "float",
	KindBool:        "bool",
	KindStringList:  "list",
}

func (k Kind) String() string { return kindNames[k] }

// PackageModel is the wrappable part of a Go package's exported API.
type PackageModel struct {
	ImportPath string
	Name       string // short package name, e.g. "url"
	Types      []TypeModel
	Skipped    []string // "Type.Member: reason", for everything left out
}

// TypeModel is an exported struct type.
type TypeModel struct {
	Name    string
	Fields  []FieldModel
	Methods []MethodModel
}

// FieldModel is an exported struct field of a supported kind.
type FieldModel struct {
	GoName     string
	ScriptName string
	Kind       Kind
	GoType     string // for conversions back from int64/float64, e.g. "int32"
}

// MethodModel is a pointer-receiver method whose parameters and result
// all have supported kinds.
type MethodModel struct {
	GoName     string
	ScriptName string
	Params     []ParamModel
	Result     Kind // KindUnsupported when the method returns nothing
	ReturnsErr bool
}

// ParamModel is a method parameter.
type ParamModel struct {
	Kind   Kind
	GoType string
}
