package bytecode

import (
	"fmt"

	"bytevm/pkg/value"
)

// Code flags
const (
	FlagVarArgs     = 0x04
	FlagVarKeywords = 0x08
)

// CodeUnit is a compiled body: its parameter signature, local variable
// names and instruction sequence.
//
// VarNames lists the positional parameters, then the keyword-only
// parameters, then the *args and **kwargs names when the matching flags
// are set, then any other locals.
type CodeUnit struct {
	Name            string
	Filename        string
	ArgCount        int
	PosOnlyArgCount int
	KwOnlyArgCount  int
	Flags           int
	VarNames        []string
	Instructions    []Instruction

	index map[int]int
}

// NewCodeUnit wraps an instruction sequence in a code unit with no parameters.
func NewCodeUnit(name string, instructions []Instruction) *CodeUnit {
	return &CodeUnit{Name: name, Instructions: instructions}
}

func (*CodeUnit) Kind() value.Kind { return value.KindCode }

func (c *CodeUnit) String() string {
	return fmt.Sprintf("<code object %s>", c.Name)
}

func (c *CodeUnit) HasVarArgs() bool     { return c.Flags&FlagVarArgs != 0 }
func (c *CodeUnit) HasVarKeywords() bool { return c.Flags&FlagVarKeywords != 0 }

// IndexOf maps a byte offset to the position of the instruction carrying it.
func (c *CodeUnit) IndexOf(offset int) (int, bool) {
	if c.index == nil {
		c.Reindex()
	}
	i, ok := c.index[offset]
	return i, ok
}

// Reindex rebuilds the offset index after Instructions has been replaced.
func (c *CodeUnit) Reindex() {
	c.index = make(map[int]int, len(c.Instructions))
	for i, in := range c.Instructions {
		c.index[in.Offset] = i
	}
}

// Params returns the names bound by argument binding, in slot order.
func (c *CodeUnit) Params() []string {
	n := c.ArgCount + c.KwOnlyArgCount
	if c.HasVarArgs() {
		n++
	}
	if c.HasVarKeywords() {
		n++
	}
	n = min(max(n, 0), len(c.VarNames))
	return c.VarNames[:n]
}

// CheckSignature checks that the parameter counts are sane and that the
// names they claim, *args and **kwargs included, exist in VarNames.
func (c *CodeUnit) CheckSignature() error {
	if c.ArgCount < 0 || c.PosOnlyArgCount < 0 || c.KwOnlyArgCount < 0 {
		return fmt.Errorf("code %s: negative parameter count (%d positional, %d positional-only, %d keyword-only)",
			c.Name, c.ArgCount, c.PosOnlyArgCount, c.KwOnlyArgCount)
	}
	if c.PosOnlyArgCount > c.ArgCount {
		return fmt.Errorf("code %s: %d positional-only of %d positional parameters", c.Name, c.PosOnlyArgCount, c.ArgCount)
	}
	need := c.ArgCount + c.KwOnlyArgCount
	if c.HasVarArgs() {
		need++
	}
	if c.HasVarKeywords() {
		need++
	}
	if need > len(c.VarNames) {
		return fmt.Errorf("code %s: signature needs %d names, have %d", c.Name, need, len(c.VarNames))
	}
	return nil
}

// Validate checks the signature and that every jump lands on an instruction.
func (c *CodeUnit) Validate() error {
	if err := c.CheckSignature(); err != nil {
		return err
	}
	c.Reindex()
	if len(c.index) != len(c.Instructions) {
		return fmt.Errorf("code %s: duplicate instruction offsets", c.Name)
	}
	for _, in := range c.Instructions {
		if int(in.Op) >= NumOpcodes {
			return fmt.Errorf("code %s: offset %d: unknown opcode %d", c.Name, in.Offset, in.Op)
		}
		if in.Op.IsJump() {
			if _, ok := c.index[in.Int()]; !ok {
				return fmt.Errorf("code %s: offset %d: %s to missing offset %d", c.Name, in.Offset, in.Op, in.Int())
			}
		}
		if nested, ok := in.Arg.(*CodeUnit); ok {
			if err := nested.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
