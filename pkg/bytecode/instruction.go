package bytecode

import (
	"fmt"

	"bytevm/pkg/value"
)

// Instruction is one decoded step of a code unit.
//
// Arg carries the resolved operand: an int for counts, flags and jump
// targets, a string for names and operators, a value.Value for constants
// (a *CodeUnit for nested function bodies). Text is the operator symbol of
// binary_op and the intrinsic name of call_intrinsic_1.
type Instruction struct {
	Op     Opcode
	Arg    any
	Offset int
	Text   string
}

// Int returns the operand as an integer. Missing or non-integer operands
// read as zero.
func (in Instruction) Int() int {
	switch a := in.Arg.(type) {
	case int:
		return a
	case int64:
		return int(a)
	case value.Int:
		return int(a)
	case value.Bool:
		if a {
			return 1
		}
	}
	return 0
}

// Name returns the operand as a string.
func (in Instruction) Name() string {
	switch a := in.Arg.(type) {
	case string:
		return a
	case value.Str:
		return string(a)
	}
	return ""
}

// Const returns the operand as a value, converting plain Go scalars.
func (in Instruction) Const() value.Value {
	return ToValue(in.Arg)
}

// ToValue converts Go scalars produced by loaders into machine values.
func ToValue(a any) value.Value {
	switch x := a.(type) {
	case nil:
		return value.None
	case value.Value:
		return x
	case int:
		return value.Int(x)
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case string:
		return value.Str(x)
	case bool:
		return value.Bool(x)
	case []any:
		items := make([]value.Value, len(x))
		for i, item := range x {
			items[i] = ToValue(item)
		}
		return value.NewTuple(items...)
	}
	return value.Str(fmt.Sprint(a))
}

func (in Instruction) String() string {
	switch {
	case in.Text != "":
		return fmt.Sprintf("%d %s %s", in.Offset, in.Op, in.Text)
	case in.Arg == nil:
		return fmt.Sprintf("%d %s", in.Offset, in.Op)
	case in.Op.HasConst():
		return fmt.Sprintf("%d %s %s", in.Offset, in.Op, value.Repr(in.Const()))
	}
	return fmt.Sprintf("%d %s %v", in.Offset, in.Op, in.Arg)
}
