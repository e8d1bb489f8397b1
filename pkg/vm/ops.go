package vm

import (
	"fmt"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

// opBinaryOp pops x then y and applies the operator as y <op> x.
func opBinaryOp(f *Frame, in bytecode.Instruction) error {
	symbol := in.Text
	if symbol == "" {
		s, ok := bytecode.BinaryOperatorSymbol(in.Int())
		if !ok {
			return fmt.Errorf("%s: binary_op with unknown operator %v", f.code.Name, in.Arg)
		}
		symbol = s
	}
	x := f.pop()
	y := f.pop()
	r, err := value.BinaryOp(symbol, y, x)
	if err != nil {
		return err
	}
	f.push(r)
	return nil
}

func opBinarySubscr(f *Frame, _ bytecode.Instruction) error {
	key := f.pop()
	container := f.pop()
	v, err := value.GetItem(container, key)
	if err != nil {
		return lookupMiss(key, err)
	}
	f.push(v)
	return nil
}

func opBinarySlice(f *Frame, _ bytecode.Instruction) error {
	end := f.pop()
	start := f.pop()
	container := f.pop()
	v, err := value.GetItem(container, &value.Slice{Start: start, Stop: end, Step: value.None})
	if err != nil {
		return err
	}
	f.push(v)
	return nil
}

// opStoreSlice performs container[start:end] = values.
func opStoreSlice(f *Frame, _ bytecode.Instruction) error {
	end := f.pop()
	start := f.pop()
	container := f.pop()
	values := f.pop()
	return value.SetItem(container, &value.Slice{Start: start, Stop: end, Step: value.None}, values)
}

// opStoreSubscr pops value, container and key in one three-value pop.
func opStoreSubscr(f *Frame, _ bytecode.Instruction) error {
	vals := f.popn(3)
	v, container, key := vals[0], vals[1], vals[2]
	if err := value.SetItem(container, key, v); err != nil {
		return lookupMiss(key, err)
	}
	return nil
}

func opDeleteSubscr(f *Frame, _ bytecode.Instruction) error {
	vals := f.popn(2)
	container, key := vals[0], vals[1]
	if err := value.DelItem(container, key); err != nil {
		return lookupMiss(key, err)
	}
	return nil
}

var compareOps = []string{"<", "<=", "==", "!=", ">", ">="}

func compareSymbol(in bytecode.Instruction) (string, error) {
	if s := in.Name(); s != "" {
		return s, nil
	}
	if in.Text != "" {
		return in.Text, nil
	}
	// the low four bits are flags; the operator index sits above them
	n := in.Int() >> 4
	if in.Int() < 0 || n >= len(compareOps) {
		return "", fmt.Errorf("compare_op with unknown operator %v", in.Arg)
	}
	return compareOps[n], nil
}

func opCompareOp(f *Frame, in bytecode.Instruction) error {
	symbol, err := compareSymbol(in)
	if err != nil {
		return err
	}
	vals := f.popn(2)
	r, err := value.Compare(symbol, vals[0], vals[1])
	if err != nil {
		return err
	}
	f.push(r)
	return nil
}

func opIsOp(f *Frame, in bytecode.Instruction) error {
	left := f.pop()
	right := f.pop()
	same := value.Identical(left, right)
	if in.Int() != 0 {
		same = !same
	}
	f.push(value.Bool(same))
	return nil
}

// opContainsOp pops the container, then the item.
func opContainsOp(f *Frame, in bytecode.Instruction) error {
	container := f.pop()
	item := f.pop()
	found, err := value.Contains(container, item)
	if err != nil {
		return err
	}
	if in.Int() != 0 {
		found = !found
	}
	f.push(value.Bool(found))
	return nil
}

func unary(op string) handler {
	return func(f *Frame, _ bytecode.Instruction) error {
		r, err := value.UnaryOp(op, f.pop())
		if err != nil {
			return err
		}
		f.push(r)
		return nil
	}
}
