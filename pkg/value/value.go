package value

import "fmt"

type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindTuple
	KindList
	KindDict
	KindSet
	KindSlice
	KindRange
	KindIterator
	KindFunction
	KindBuiltin
	KindBoundMethod
	KindType
	KindClass
	KindObject
	KindExceptionClass
	KindException
	KindModule
	KindCode
)

var kindNames = [...]string{
	KindNone:           "NoneType",
	KindBool:           "bool",
	KindInt:            "int",
	KindFloat:          "float",
	KindStr:            "str",
	KindTuple:          "tuple",
	KindList:           "list",
	KindDict:           "dict",
	KindSet:            "set",
	KindSlice:          "slice",
	KindRange:          "range",
	KindIterator:       "iterator",
	KindFunction:       "function",
	KindBuiltin:        "builtin_function_or_method",
	KindBoundMethod:    "method",
	KindType:           "type",
	KindClass:          "type",
	KindObject:         "object",
	KindExceptionClass: "type",
	KindException:      "exception",
	KindModule:         "module",
	KindCode:           "code",
}

// String returns the host-visible type name for the kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is any object the machine can place on an operand stack or in a namespace.
type Value interface {
	Kind() Kind
}

// Callable values can be invoked by the call family of instructions.
// kwargs may be nil when the call site passes no keyword arguments.
type Callable interface {
	Value
	Call(args []Value, kwargs *Dict) (Value, error)
}

// Binder is implemented by callables that turn into bound methods when
// looked up through an instance.
type Binder interface {
	Bind(self Value) Value
}

// BodyRunner is implemented by functions whose body can be executed for its
// resulting namespace, which is how class bodies are evaluated.
type BodyRunner interface {
	RunBody() (map[string]Value, error)
}

// AttrGetter lets foreign value types expose attributes.
type AttrGetter interface {
	GetAttr(name string) (Value, bool)
}

// AttrSetter lets foreign value types accept attribute writes.
type AttrSetter interface {
	SetAttr(name string, v Value) bool
}

type NoneType struct{}

type Bool bool

type Int int64

type Float float64

type Str string

var None = NoneType{}

func (NoneType) Kind() Kind { return KindNone }
func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (Str) Kind() Kind      { return KindStr }

type Tuple struct {
	Items []Value
}

type List struct {
	Items []Value
}

// Slice is the value built by build_slice; nil-like bounds are None.
type Slice struct {
	Start, Stop, Step Value
}

type Range struct {
	Start, Stop, Step int64
}

func NewTuple(items ...Value) *Tuple { return &Tuple{Items: items} }
func NewList(items ...Value) *List   { return &List{Items: items} }

func (*Tuple) Kind() Kind { return KindTuple }
func (*List) Kind() Kind  { return KindList }
func (*Slice) Kind() Kind { return KindSlice }
func (*Range) Kind() Kind { return KindRange }

// Len returns the number of elements produced by the range.
func (r *Range) Len() int64 {
	if r.Step > 0 && r.Start < r.Stop {
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	}
	if r.Step < 0 && r.Start > r.Stop {
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

// At returns the i-th element of the range without bounds checking.
func (r *Range) At(i int64) Int {
	return Int(r.Start + i*r.Step)
}

// BuiltinFunc is the signature of host-implemented callables.
type BuiltinFunc func(args []Value, kwargs *Dict) (Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func NewBuiltin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

func (*Builtin) Kind() Kind { return KindBuiltin }

func (b *Builtin) Call(args []Value, kwargs *Dict) (Value, error) {
	return b.Fn(args, kwargs)
}

// BoundMethod pairs a receiver with a callable that expects it as first argument.
type BoundMethod struct {
	Self Value
	Func Callable
}

func (*BoundMethod) Kind() Kind { return KindBoundMethod }

func (m *BoundMethod) Call(args []Value, kwargs *Dict) (Value, error) {
	full := make([]Value, 0, len(args)+1)
	full = append(full, m.Self)
	full = append(full, args...)
	return m.Func.Call(full, kwargs)
}

// Type is a builtin type object such as int or list. Calling it constructs a value.
type Type struct {
	Name string
	Of   Kind
	New  BuiltinFunc
}

func (*Type) Kind() Kind { return KindType }

func (t *Type) Call(args []Value, kwargs *Dict) (Value, error) {
	if t.New == nil {
		return nil, Errorf(TypeError, "cannot create '%s' instances", t.Name)
	}
	return t.New(args, kwargs)
}

type Module struct {
	Name string
	Dict map[string]Value
}

func NewModule(name string) *Module {
	return &Module{Name: name, Dict: make(map[string]Value)}
}

func (*Module) Kind() Kind { return KindModule }

// Iterator produces values until next reports false.
type Iterator struct {
	next func() (Value, bool, error)
}

func NewIterator(next func() (Value, bool, error)) *Iterator {
	return &Iterator{next: next}
}

func (*Iterator) Kind() Kind { return KindIterator }

// Next advances the iterator. An exhausted iterator keeps reporting false.
func (it *Iterator) Next() (Value, bool, error) {
	if it.next == nil {
		return nil, false, nil
	}
	v, ok, err := it.next()
	if err != nil || !ok {
		it.next = nil
	}
	return v, ok, err
}

// FromBool converts a Go bool.
func FromBool(b bool) Bool { return Bool(b) }

// TypeName returns the host type name of v.
func TypeName(v Value) string {
	switch x := v.(type) {
	case nil:
		return "NoneType"
	case *Object:
		return x.Class.Name
	case *Exception:
		return x.Class.Name
	}
	return v.Kind().String()
}

// IsCallable reports whether v can be the target of a call.
func IsCallable(v Value) bool {
	_, ok := v.(Callable)
	return ok
}
