package vm

import (
	"fmt"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/stack"
	"bytevm/pkg/value"
)

// Frame is one activation record: an operand stack, a locals mapping and a
// program counter over the instruction sequence of its code unit.
type Frame struct {
	m        *Machine
	code     *bytecode.CodeUnit
	stack    *stack.Stack[value.Value]
	locals   map[string]value.Value
	globals  map[string]value.Value // shared with every frame of the machine
	builtins map[string]value.Value // shared, read-only

	pc       int
	returned bool
	retval   value.Value

	kwNames *value.Tuple // set by kw_names for the next call
}

func (m *Machine) newFrame(code *bytecode.CodeUnit, locals map[string]value.Value) *Frame {
	return &Frame{
		m:        m,
		code:     code,
		stack:    stack.NewStack[value.Value](),
		locals:   locals,
		globals:  m.globals,
		builtins: m.builtins,
		retval:   value.None,
	}
}

// run executes instructions from index 0 until a return instruction sets
// the return value. Running off the end returns the last recorded value,
// None unless yield_value recorded one.
func (f *Frame) run() (value.Value, error) {
	instrs := f.code.Instructions
	for f.pc = 0; f.pc < len(instrs); f.pc++ {
		if err := f.m.tick(); err != nil {
			return nil, err
		}

		in := instrs[f.pc]
		if f.m.trace {
			f.m.log.Debug("dispatch", "code", f.code.Name, "pc", f.pc, "offset", in.Offset,
				"op", in.Op, "arg", traceArg(in), "depth", f.m.depth, "stack", f.stack.Size())
		}

		if err := dispatch[in.Op](f, in); err != nil {
			return nil, err
		}
		if f.returned {
			return f.retval, nil
		}
	}
	return f.retval, nil
}

func traceArg(in bytecode.Instruction) string {
	switch {
	case in.Text != "":
		return in.Text
	case in.Arg == nil:
		return ""
	case in.Op.HasConst():
		return value.Repr(in.Const())
	}
	return fmt.Sprint(in.Arg)
}

// jump resolves a byte offset and positions pc one before the target so
// the loop's increment lands on it.
func (f *Frame) jump(offset int) error {
	i, ok := f.code.IndexOf(offset)
	if !ok {
		return fmt.Errorf("%s: jump to unknown offset %d", f.code.Name, offset)
	}
	f.pc = i - 1
	return nil
}

func (f *Frame) setReturn(v value.Value) {
	f.retval = v
	f.returned = true
}

func (f *Frame) push(v ...value.Value) {
	f.stack.Push(v...)
}

// pop yields None on an empty stack.
func (f *Frame) pop() value.Value {
	v, ok := f.stack.Pop()
	if !ok {
		return value.None
	}
	return v
}

// popn returns the top n values deepest first. It panics on underflow.
func (f *Frame) popn(n int) []value.Value {
	return f.stack.PopN(n)
}

// top returns the top of stack without popping. It panics on underflow.
func (f *Frame) top() value.Value {
	return f.stack.Peek(1)
}

// peek returns the i-th value from the top, 1 being the top.
func (f *Frame) peek(i int) value.Value {
	return f.stack.Peek(i)
}

// Code returns the code unit the frame executes.
func (f *Frame) Code() *bytecode.CodeUnit { return f.code }

// PC returns the index of the instruction being executed.
func (f *Frame) PC() int { return f.pc }

// Locals returns the frame's local namespace.
func (f *Frame) Locals() map[string]value.Value { return f.locals }

// Stack returns the operand stack, bottom first.
func (f *Frame) Stack() []value.Value { return f.stack.Array() }
