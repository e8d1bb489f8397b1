package vm

import (
	"fmt"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

// opKwNames records the keyword names consumed by the next call.
func opKwNames(f *Frame, in bytecode.Instruction) error {
	t, ok := in.Const().(*value.Tuple)
	if !ok {
		return fmt.Errorf("%s: kw_names expects a tuple of names", f.code.Name)
	}
	f.kwNames = t
	return nil
}

// opCall pops n arguments and then the callee. The trailing arguments named
// by a preceding kw_names are passed as keywords. A callee that is not
// callable is pushed back unchanged.
func opCall(f *Frame, in bytecode.Instruction) error {
	args := f.popn(in.Int())
	callee := f.pop()

	var kwargs *value.Dict
	if names := f.kwNames; names != nil {
		f.kwNames = nil
		n := len(names.Items)
		if n > len(args) {
			return bindingError(calleeName(callee), "got %d keyword names for %d arguments", n, len(args))
		}
		split := len(args) - n
		kwargs = value.NewDict()
		for i, name := range names.Items {
			if err := kwargs.Set(name, args[split+i]); err != nil {
				return err
			}
		}
		args = args[:split]
	}

	fn, ok := callee.(value.Callable)
	if !ok {
		f.m.log.Debug("call on non-callable", "value", value.Repr(callee))
		f.push(callee)
		return nil
	}
	r, err := fn.Call(args, kwargs)
	if err != nil {
		return err
	}
	f.push(r)
	return nil
}

// opCallFunctionEx pops the keyword mapping when bit 0 is set, then the
// argument sequence, then the callee.
func opCallFunctionEx(f *Frame, in bytecode.Instruction) error {
	var kwargs *value.Dict
	if in.Int()&0x01 != 0 {
		d, err := value.ToDict(f.pop())
		if err != nil {
			return err
		}
		kwargs = d
	}
	args, err := value.Collect(f.pop())
	if err != nil {
		return err
	}
	callee := f.pop()
	fn, ok := callee.(value.Callable)
	if !ok {
		return value.Errorf(value.TypeError, "'%s' object is not callable", value.TypeName(callee))
	}
	r, err := fn.Call(args, kwargs)
	if err != nil {
		return err
	}
	f.push(r)
	return nil
}

func calleeName(v value.Value) string {
	switch x := v.(type) {
	case *Function:
		return x.Name
	case *value.Builtin:
		return x.Name
	}
	return value.TypeName(v)
}
