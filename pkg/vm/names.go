package vm

import (
	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

func opPopTop(f *Frame, _ bytecode.Instruction) error {
	f.pop()
	return nil
}

// opCopy pushes the n-th value from the top; copy 1 duplicates the top.
func opCopy(f *Frame, in bytecode.Instruction) error {
	n := in.Int()
	if n < 1 {
		n = 1
	}
	f.push(f.peek(n))
	return nil
}

func opSwap(f *Frame, in bytecode.Instruction) error {
	f.stack.Swap(in.Int())
	return nil
}

func opLoadConst(f *Frame, in bytecode.Instruction) error {
	f.push(in.Const())
	return nil
}

// lookup searches locals, then globals, then builtins.
func (f *Frame) lookup(name string) (value.Value, bool) {
	if v, ok := f.locals[name]; ok {
		return v, true
	}
	if v, ok := f.globals[name]; ok {
		return v, true
	}
	v, ok := f.builtins[name]
	return v, ok
}

func opLoadName(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	v, ok := f.lookup(name)
	if !ok {
		return &NameLookupError{Name: name}
	}
	f.push(v)
	return nil
}

func opLoadGlobal(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	if v, ok := f.globals[name]; ok {
		f.push(v)
		return nil
	}
	if v, ok := f.builtins[name]; ok {
		f.push(v)
		return nil
	}
	return &NameLookupError{Name: name}
}

func opLoadFast(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	v, ok := f.locals[name]
	if !ok {
		return &UnboundLocalError{Name: name}
	}
	f.push(v)
	return nil
}

func opLoadFastCheck(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	v, ok := f.lookup(name)
	if !ok {
		return &UnboundLocalError{Name: name}
	}
	f.push(v)
	return nil
}

// opLoadFastAndClear pushes the local (None when unbound) and leaves it set to None.
func opLoadFastAndClear(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	v, ok := f.locals[name]
	if !ok {
		v = value.None
	}
	f.locals[name] = value.None
	f.push(v)
	return nil
}

func opLoadLocals(f *Frame, _ bytecode.Instruction) error {
	d := value.NewDict()
	for name, v := range f.locals {
		d.SetStr(name, v)
	}
	f.push(d)
	return nil
}

func opLoadBuildClass(f *Frame, _ bytecode.Instruction) error {
	v, ok := f.builtins["__build_class__"]
	if !ok {
		return &NameLookupError{Name: "__build_class__"}
	}
	f.push(v)
	return nil
}

func opStoreName(f *Frame, in bytecode.Instruction) error {
	f.locals[in.Name()] = f.pop()
	return nil
}

func opStoreGlobal(f *Frame, in bytecode.Instruction) error {
	f.globals[in.Name()] = f.pop()
	return nil
}

func opDeleteName(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	if _, ok := f.locals[name]; !ok {
		return &NameLookupError{Name: name}
	}
	delete(f.locals, name)
	return nil
}

func opDeleteGlobal(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	if _, ok := f.globals[name]; !ok {
		return &NameLookupError{Name: name}
	}
	delete(f.globals, name)
	return nil
}

func opLoadAttr(f *Frame, in bytecode.Instruction) error {
	name := in.Name()
	v, err := value.GetAttr(f.pop(), name)
	if err != nil {
		return lookupMiss(value.Str(name), err)
	}
	f.push(v)
	return nil
}

// opStoreAttr pops the object, then the value.
func opStoreAttr(f *Frame, in bytecode.Instruction) error {
	obj := f.pop()
	v := f.pop()
	if err := value.SetAttr(obj, in.Name(), v); err != nil {
		return lookupMiss(value.Str(in.Name()), err)
	}
	return nil
}

func opDeleteAttr(f *Frame, in bytecode.Instruction) error {
	if err := value.DelAttr(f.pop(), in.Name()); err != nil {
		return lookupMiss(value.Str(in.Name()), err)
	}
	return nil
}

func opSetupAnnotations(f *Frame, _ bytecode.Instruction) error {
	if _, ok := f.locals["__annotations__"]; !ok {
		f.locals["__annotations__"] = value.NewDict()
	}
	return nil
}
