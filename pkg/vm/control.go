package vm

import (
	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

func opJump(f *Frame, in bytecode.Instruction) error {
	return f.jump(in.Int())
}

func opPopJumpIfTrue(f *Frame, in bytecode.Instruction) error {
	if value.Truthy(f.pop()) {
		return f.jump(in.Int())
	}
	return nil
}

func opPopJumpIfFalse(f *Frame, in bytecode.Instruction) error {
	if !value.Truthy(f.pop()) {
		return f.jump(in.Int())
	}
	return nil
}

func opPopJumpIfNone(f *Frame, in bytecode.Instruction) error {
	if value.Identical(f.pop(), value.None) {
		return f.jump(in.Int())
	}
	return nil
}

func opPopJumpIfNotNone(f *Frame, in bytecode.Instruction) error {
	if !value.Identical(f.pop(), value.None) {
		return f.jump(in.Int())
	}
	return nil
}

// opJumpIfTrueOrPop jumps leaving the top in place, or pops without jumping.
func opJumpIfTrueOrPop(f *Frame, in bytecode.Instruction) error {
	if value.Truthy(f.top()) {
		return f.jump(in.Int())
	}
	f.pop()
	return nil
}

func opJumpIfFalseOrPop(f *Frame, in bytecode.Instruction) error {
	if !value.Truthy(f.top()) {
		return f.jump(in.Int())
	}
	f.pop()
	return nil
}

func opGetIter(f *Frame, _ bytecode.Instruction) error {
	it, err := value.Iter(f.pop())
	if err != nil {
		return err
	}
	f.push(it)
	return nil
}

// opForIter pushes the iterator back followed by its next value. On
// exhaustion the iterator stays popped and control moves to the target,
// past an end_for placed there.
func opForIter(f *Frame, in bytecode.Instruction) error {
	it, err := value.Iter(f.pop())
	if err != nil {
		return err
	}
	v, ok, err := it.Next()
	if err != nil {
		return err
	}
	if ok {
		f.push(it, v)
		return nil
	}
	if err := f.jump(in.Int()); err != nil {
		return err
	}
	if next := f.pc + 1; next < len(f.code.Instructions) && f.code.Instructions[next].Op == bytecode.OpEndFor {
		f.pc = next
	}
	return nil
}

// opEndFor pops up to two values, tolerating a shorter stack.
func opEndFor(f *Frame, _ bytecode.Instruction) error {
	f.pop()
	f.pop()
	return nil
}

func opReturnValue(f *Frame, _ bytecode.Instruction) error {
	f.setReturn(f.pop())
	return nil
}

func opReturnConst(f *Frame, in bytecode.Instruction) error {
	f.setReturn(in.Const())
	return nil
}

// opYieldValue records the top of stack as the frame's result without
// suspending it.
func opYieldValue(f *Frame, _ bytecode.Instruction) error {
	f.retval = f.top()
	return nil
}
