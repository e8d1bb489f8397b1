package vm

import (
	"strings"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

func opBuildList(f *Frame, in bytecode.Instruction) error {
	f.push(value.NewList(f.popn(in.Int())...))
	return nil
}

func opBuildTuple(f *Frame, in bytecode.Instruction) error {
	f.push(value.NewTuple(f.popn(in.Int())...))
	return nil
}

func opBuildSet(f *Frame, in bytecode.Instruction) error {
	s, err := value.NewSet(f.popn(in.Int())...)
	if err != nil {
		return err
	}
	f.push(s)
	return nil
}

// opBuildMap pairs n keys with n values laid out key, value, key, value.
func opBuildMap(f *Frame, in bytecode.Instruction) error {
	n := in.Int()
	items := f.popn(2 * n)
	d := value.NewDict()
	for i := 0; i < len(items); i += 2 {
		if err := d.Set(items[i], items[i+1]); err != nil {
			return err
		}
	}
	f.push(d)
	return nil
}

// opBuildConstKeyMap pops a key tuple, then one value per key.
func opBuildConstKeyMap(f *Frame, in bytecode.Instruction) error {
	keys, err := value.Collect(f.pop())
	if err != nil {
		return err
	}
	vals := f.popn(in.Int())
	d := value.NewDict()
	for i := 0; i < len(keys) && i < len(vals); i++ {
		if err := d.Set(keys[i], vals[i]); err != nil {
			return err
		}
	}
	f.push(d)
	return nil
}

func opBuildSlice(f *Frame, in bytecode.Instruction) error {
	vals := f.popn(in.Int())
	s := &value.Slice{Start: value.None, Stop: value.None, Step: value.None}
	switch len(vals) {
	case 1:
		s.Stop = vals[0]
	case 2:
		s.Start, s.Stop = vals[0], vals[1]
	case 3:
		s.Start, s.Stop, s.Step = vals[0], vals[1], vals[2]
	}
	f.push(s)
	return nil
}

func opBuildString(f *Frame, in bytecode.Instruction) error {
	var b strings.Builder
	for _, v := range f.popn(in.Int()) {
		b.WriteString(value.ToStr(v))
	}
	f.push(value.Str(b.String()))
	return nil
}

// Conversion bits of format_value
const (
	formatConvMask  = 0x03
	formatConvStr   = 0x01
	formatConvRepr  = 0x02
	formatConvASCII = 0x03
	formatHaveSpec  = 0x04
)

func opFormatValue(f *Frame, in bytecode.Instruction) error {
	flags := in.Int()
	spec := ""
	if flags&formatHaveSpec != 0 {
		spec = value.ToStr(f.pop())
	}
	v := f.pop()
	switch flags & formatConvMask {
	case formatConvStr:
		v = value.Str(value.ToStr(v))
	case formatConvRepr, formatConvASCII:
		v = value.Str(value.Repr(v))
	}
	s, err := value.Format(v, spec)
	if err != nil {
		return err
	}
	f.push(value.Str(s))
	return nil
}

// target returns the container i slots below the top after the operand
// has been popped. The container itself stays on the stack.
func (f *Frame) target(i int) value.Value {
	return f.peek(i)
}

func opListAppend(f *Frame, in bytecode.Instruction) error {
	v := f.pop()
	l, ok := f.target(in.Int()).(*value.List)
	if !ok {
		return value.Errorf(value.TypeError, "list_append target is not a list")
	}
	l.Items = append(l.Items, v)
	return nil
}

func opListExtend(f *Frame, in bytecode.Instruction) error {
	items, err := value.Collect(f.pop())
	if err != nil {
		return err
	}
	l, ok := f.target(in.Int()).(*value.List)
	if !ok {
		return value.Errorf(value.TypeError, "list_extend target is not a list")
	}
	l.Items = append(l.Items, items...)
	return nil
}

func opSetAdd(f *Frame, in bytecode.Instruction) error {
	v := f.pop()
	s, ok := f.target(in.Int()).(*value.Set)
	if !ok {
		return value.Errorf(value.TypeError, "set_add target is not a set")
	}
	return s.Add(v)
}

func opSetUpdate(f *Frame, in bytecode.Instruction) error {
	items, err := value.Collect(f.pop())
	if err != nil {
		return err
	}
	s, ok := f.target(in.Int()).(*value.Set)
	if !ok {
		return value.Errorf(value.TypeError, "set_update target is not a set")
	}
	for _, item := range items {
		if err := s.Add(item); err != nil {
			return err
		}
	}
	return nil
}

// opMapAdd pops the value, then the key.
func opMapAdd(f *Frame, in bytecode.Instruction) error {
	v := f.pop()
	k := f.pop()
	d, ok := f.target(in.Int()).(*value.Dict)
	if !ok {
		return value.Errorf(value.TypeError, "map_add target is not a dict")
	}
	return d.Set(k, v)
}

// opDictMerge is dict_update that refuses keys already present.
func opDictMerge(f *Frame, in bytecode.Instruction) error {
	other, err := value.ToDict(f.pop())
	if err != nil {
		return err
	}
	d, ok := f.target(in.Int()).(*value.Dict)
	if !ok {
		return value.Errorf(value.TypeError, "dict_merge target is not a dict")
	}
	for _, k := range other.Keys() {
		_, found, err := d.Get(k)
		if err != nil {
			return err
		}
		if found {
			return &KeyLookupError{Key: k, Err: value.NewException(value.KeyError, k)}
		}
	}
	return d.Update(other)
}

func opDictUpdate(f *Frame, in bytecode.Instruction) error {
	other, err := value.ToDict(f.pop())
	if err != nil {
		return err
	}
	d, ok := f.target(in.Int()).(*value.Dict)
	if !ok {
		return value.Errorf(value.TypeError, "dict_update target is not a dict")
	}
	return d.Update(other)
}

// opUnpackSequence pushes the items of the popped sequence so the first
// item ends up on top.
func opUnpackSequence(f *Frame, in bytecode.Instruction) error {
	items, err := value.Collect(f.pop())
	if err != nil {
		return err
	}
	n := in.Int()
	switch {
	case len(items) > n:
		return value.Errorf(value.ValueError, "too many values to unpack (expected %d)", n)
	case len(items) < n:
		return value.Errorf(value.ValueError, "not enough values to unpack (expected %d, got %d)", n, len(items))
	}
	for i := len(items) - 1; i >= 0; i-- {
		f.push(items[i])
	}
	return nil
}
