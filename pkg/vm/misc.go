package vm

import (
	"fmt"
	"strings"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

func opCallIntrinsic1(f *Frame, in bytecode.Instruction) error {
	name := in.Text
	if name == "" {
		n, ok := bytecode.IntrinsicName(in.Int())
		if !ok {
			return fmt.Errorf("%s: unknown intrinsic %v", f.code.Name, in.Arg)
		}
		name = n
	}

	switch name {
	case "INTRINSIC_PRINT":
		fmt.Fprintln(f.m.out, value.ToStr(f.pop()))
		f.push(value.None)
	case "INTRINSIC_IMPORT_STAR":
		if err := f.importStar(f.pop()); err != nil {
			return err
		}
		f.push(value.None)
	case "INTRINSIC_STOPITERATION_ERROR":
		// generators are not suspended, so there is nothing to convert
	case "INTRINSIC_UNARY_POSITIVE":
		r, err := value.UnaryOp("+", f.pop())
		if err != nil {
			return err
		}
		f.push(r)
	case "INTRINSIC_LIST_TO_TUPLE":
		items, err := value.Collect(f.pop())
		if err != nil {
			return err
		}
		f.push(value.NewTuple(items...))
	default:
		return fmt.Errorf("%s: unsupported intrinsic %s", f.code.Name, name)
	}
	return nil
}

// importStar binds every public name of mod in the frame's locals and, where
// not already defined, in its globals.
func (f *Frame) importStar(mod value.Value) error {
	m, ok := mod.(*value.Module)
	if !ok {
		return value.Errorf(value.TypeError, "import * expects a module, not %s", value.TypeName(mod))
	}
	for name, v := range m.Dict {
		if strings.HasPrefix(name, "_") {
			continue
		}
		f.locals[name] = v
		if _, ok := f.globals[name]; !ok {
			f.globals[name] = v
		}
	}
	return nil
}

// opRaiseVarargs raises the popped exception. With operand 2 the cause is
// popped first; operand 0 re-raises, which fails since no exception is
// ever active.
func opRaiseVarargs(f *Frame, in bytecode.Instruction) error {
	var cause value.Value
	switch in.Int() {
	case 0:
		return &RaisedCondition{Exception: value.Errorf(value.RuntimeError, "No active exception to reraise")}
	case 1:
	case 2:
		cause = f.pop()
	default:
		return fmt.Errorf("%s: bad raise_varargs operand %d", f.code.Name, in.Int())
	}

	exc, err := toException(f.pop())
	if err != nil {
		return err
	}
	if cause != nil {
		if value.Identical(cause, value.None) {
			exc.Cause = nil
		} else {
			c, err := toException(cause)
			if err != nil {
				return value.Errorf(value.TypeError, "exception causes must derive from BaseException")
			}
			exc.Cause = c
		}
	}
	return &RaisedCondition{Exception: exc}
}

// toException accepts an exception instance or instantiates a class.
func toException(v value.Value) (*value.Exception, error) {
	switch x := v.(type) {
	case *value.Exception:
		return x, nil
	case *value.ExceptionClass:
		r, err := x.Call(nil, nil)
		if err != nil {
			return nil, err
		}
		return r.(*value.Exception), nil
	}
	return nil, value.Errorf(value.TypeError, "exceptions must derive from BaseException")
}

// opImportName pops level and fromlist and pushes the module the host
// importer returns.
func opImportName(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	vals := f.popn(2)
	level, fromlist := vals[0], vals[1]

	if f.m.importer == nil {
		return value.Errorf(value.ModuleNotFoundError, "No module named '%s'", name)
	}
	lvl := 0
	if n, ok := level.(value.Int); ok {
		lvl = int(n)
	}
	mod, err := f.m.importer(name, fromlist, lvl)
	if err != nil {
		return err
	}
	f.m.log.Debug("import", "module", name, "level", lvl)
	f.push(mod)
	return nil
}

// opImportFrom pushes an attribute of the module left on top of the stack.
func opImportFrom(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	mod := f.top()
	v, err := value.GetAttr(mod, name)
	if err != nil {
		modName := value.TypeName(mod)
		if m, ok := mod.(*value.Module); ok {
			modName = m.Name
		}
		return value.Errorf(value.ImportError, "cannot import name '%s' from '%s'", name, modName)
	}
	f.push(v)
	return nil
}
