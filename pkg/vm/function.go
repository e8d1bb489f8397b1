package vm

import (
	"fmt"
	"maps"
	"strings"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

// make_function operand bits
const (
	FuncDefaults    = 0x01
	FuncKwDefaults  = 0x02
	FuncAnnotations = 0x04
	FuncClosure     = 0x08
)

// Function is a callable built by make_function. It captures a copy of the
// defining frame's locals; each call runs a fresh frame whose locals are
// that copy overlaid with the bound arguments.
type Function struct {
	Name        string
	Code        *bytecode.CodeUnit
	Defaults    map[string]value.Value
	KwDefaults  map[string]value.Value
	Annotations value.Value
	Attrs       map[string]value.Value

	captured map[string]value.Value
	m        *Machine
}

func (*Function) Kind() value.Kind { return value.KindFunction }

func (fn *Function) String() string {
	return fmt.Sprintf("<function %s>", fn.Name)
}

// Bind returns fn as a method of self.
func (fn *Function) Bind(self value.Value) value.Value {
	return &value.BoundMethod{Self: self, Func: fn}
}

func (fn *Function) GetAttr(name string) (value.Value, bool) {
	switch name {
	case "__name__", "__qualname__":
		return value.Str(fn.Name), true
	case "__code__":
		return fn.Code, true
	case "__annotations__":
		if fn.Annotations == nil {
			return value.NewDict(), true
		}
		return fn.Annotations, true
	case "__defaults__":
		return fn.positionalDefaults(), true
	}
	v, ok := fn.Attrs[name]
	return v, ok
}

func (fn *Function) SetAttr(name string, v value.Value) bool {
	if fn.Attrs == nil {
		fn.Attrs = make(map[string]value.Value)
	}
	fn.Attrs[name] = v
	return true
}

func (fn *Function) positionalDefaults() value.Value {
	var items []value.Value
	for _, name := range fn.Code.VarNames[:fn.Code.ArgCount] {
		if v, ok := fn.Defaults[name]; ok {
			items = append(items, v)
		}
	}
	if len(items) == 0 {
		return value.None
	}
	return value.NewTuple(items...)
}

// Call binds the arguments and runs the body in a new frame.
func (fn *Function) Call(args []value.Value, kwargs *value.Dict) (value.Value, error) {
	bound, err := fn.bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	return fn.run(bound)
}

// RunBody runs the body with no arguments and returns its final locals.
// Class bodies are evaluated this way.
func (fn *Function) RunBody() (map[string]value.Value, error) {
	locals := make(map[string]value.Value)
	if _, err := fn.runIn(locals); err != nil {
		return nil, err
	}
	return locals, nil
}

func (fn *Function) run(bound map[string]value.Value) (value.Value, error) {
	locals := maps.Clone(fn.captured)
	if locals == nil {
		locals = make(map[string]value.Value, len(bound))
	}
	maps.Copy(locals, bound)
	return fn.runIn(locals)
}

func (fn *Function) runIn(locals map[string]value.Value) (value.Value, error) {
	if err := fn.m.enter(fn.Name); err != nil {
		return nil, err
	}
	defer fn.m.leave()

	fn.m.log.Debug("call", "func", fn.Name, "depth", fn.m.depth)
	v, err := fn.m.newFrame(fn.Code, locals).run()
	if err != nil {
		return nil, err
	}
	fn.m.log.Debug("return", "func", fn.Name, "value", value.Repr(v))
	return v, nil
}

// bind maps call arguments onto the parameters of the code unit.
//
// A keyword naming a positional-only parameter is an error unless the
// function takes **kwargs, in which case it lands there. A keyword for an
// ordinary parameter wins over a positional argument in the same slot; the
// positional argument then moves on to the next parameter.
func (fn *Function) bind(args []value.Value, kwargs *value.Dict) (map[string]value.Value, error) {
	c := fn.Code
	if err := c.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}
	total := c.ArgCount + c.KwOnlyArgCount
	declared := c.VarNames[:total]
	posOnly := declared[:c.PosOnlyArgCount]
	positional := declared[c.PosOnlyArgCount:c.ArgCount]
	kwOnly := declared[c.ArgCount:]

	var varArgs, varKw string
	next := total
	if c.HasVarArgs() {
		varArgs = c.VarNames[next]
		next++
	}
	if c.HasVarKeywords() {
		varKw = c.VarNames[next]
	}

	kw := make(map[string]value.Value, kwargs.Len())
	var kwOrder []string
	var badKey value.Value
	kwargs.Each(func(k, v value.Value) {
		s, ok := k.(value.Str)
		if !ok {
			badKey = k
			return
		}
		kw[string(s)] = v
		kwOrder = append(kwOrder, string(s))
	})
	if badKey != nil {
		return nil, bindingError(fn.Name, "keywords must be strings, not %s", value.TypeName(badKey))
	}

	bound := make(map[string]value.Value, total+2)
	used := 0

	for _, name := range posOnly {
		if _, ok := kw[name]; ok && varKw == "" {
			return nil, bindingError(fn.Name, "got some positional-only arguments passed as keyword arguments: '%s'", name)
		}
		if used < len(args) {
			bound[name] = args[used]
			used++
			continue
		}
		if d, ok := fn.Defaults[name]; ok {
			bound[name] = d
			continue
		}
		return nil, bindingError(fn.Name, "missing required positional argument: '%s'", name)
	}

	for _, name := range positional {
		if v, ok := kw[name]; ok {
			bound[name] = v
			continue
		}
		if used < len(args) {
			bound[name] = args[used]
			used++
			continue
		}
		if d, ok := fn.Defaults[name]; ok {
			bound[name] = d
			continue
		}
		return nil, bindingError(fn.Name, "missing required positional argument: '%s'", name)
	}

	if varArgs != "" {
		bound[varArgs] = value.NewTuple(append([]value.Value(nil), args[used:]...)...)
	} else if used < len(args) {
		return nil, bindingError(fn.Name, "takes %d positional argument%s but %d were given",
			c.ArgCount, plural(c.ArgCount), len(args))
	}

	for _, name := range kwOnly {
		if v, ok := kw[name]; ok {
			bound[name] = v
			continue
		}
		if d, ok := fn.KwDefaults[name]; ok {
			bound[name] = d
			continue
		}
		return nil, bindingError(fn.Name, "missing required keyword-only argument: '%s'", name)
	}

	consumed := make(map[string]bool, len(positional)+len(kwOnly))
	for _, name := range positional {
		consumed[name] = true
	}
	for _, name := range kwOnly {
		consumed[name] = true
	}
	extra := value.NewDict()
	var unexpected []string
	for _, name := range kwOrder {
		if consumed[name] {
			continue
		}
		extra.SetStr(name, kw[name])
		unexpected = append(unexpected, name)
	}
	if varKw != "" {
		bound[varKw] = extra
	} else if len(unexpected) > 0 {
		return nil, bindingError(fn.Name, "got an unexpected keyword argument '%s'", strings.Join(unexpected, "', '"))
	}

	return bound, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// newFunction builds a function over code with the defining frame's locals
// captured by copy.
func (f *Frame) newFunction(code *bytecode.CodeUnit) *Function {
	return &Function{
		Name:       code.Name,
		Code:       code,
		Defaults:   map[string]value.Value{},
		KwDefaults: map[string]value.Value{},
		captured:   maps.Clone(f.locals),
		m:          f.m,
	}
}

// opMakeFunction pops the code unit, then per operand bit the closure,
// annotations, keyword-only defaults and positional defaults.
func opMakeFunction(f *Frame, in bytecode.Instruction) error {
	code, ok := f.pop().(*bytecode.CodeUnit)
	if !ok {
		return value.Errorf(value.TypeError, "make_function expects a code object")
	}
	fn := f.newFunction(code)
	flags := in.Int()

	if flags&FuncClosure != 0 {
		f.pop()
	}
	if flags&FuncAnnotations != 0 {
		fn.Annotations = f.pop()
	}
	if flags&FuncKwDefaults != 0 {
		d, err := namedDefaults(f.pop())
		if err != nil {
			return err
		}
		fn.KwDefaults = d
	}
	if flags&FuncDefaults != 0 {
		v := f.pop()
		if t, ok := v.(*value.Tuple); ok {
			params := code.VarNames[:code.ArgCount]
			if len(t.Items) > len(params) {
				return value.Errorf(value.TypeError, "%s() has %d defaults for %d parameters", code.Name, len(t.Items), len(params))
			}
			for i, d := range t.Items {
				fn.Defaults[params[len(params)-len(t.Items)+i]] = d
			}
		} else {
			d, err := namedDefaults(v)
			if err != nil {
				return err
			}
			fn.Defaults = d
		}
	}

	f.push(fn)
	return nil
}

func namedDefaults(v value.Value) (map[string]value.Value, error) {
	out := map[string]value.Value{}
	if value.Identical(v, value.None) {
		return out, nil
	}
	d, ok := v.(*value.Dict)
	if !ok {
		return nil, value.Errorf(value.TypeError, "defaults must be a dict, not %s", value.TypeName(v))
	}
	var err error
	d.Each(func(k, v value.Value) {
		s, ok := k.(value.Str)
		if !ok {
			err = value.Errorf(value.TypeError, "default names must be strings, not %s", value.TypeName(k))
			return
		}
		out[string(s)] = v
	})
	return out, err
}
