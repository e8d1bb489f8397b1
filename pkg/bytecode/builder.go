package bytecode

import "fmt"

// InstructionSize is the byte distance between consecutive offsets.
const InstructionSize = 2

// Builder assembles a code unit instruction by instruction.
type Builder struct {
	name     string
	filename string
	params   []string
	posOnly  int
	kwOnly   []string
	varArgs  string
	varKw    string
	locals   []string
	instrs   []Instruction
	labels   []*Label
}

// Label represents a jump target that may not be placed yet.
type Label struct {
	name     string
	resolved bool
	position int   // offset of the target once resolved
	refs     []int // instruction indices that jump here
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Filename sets the source file recorded on the code unit.
func (b *Builder) Filename(name string) *Builder {
	b.filename = name
	return b
}

// Params declares the positional parameters.
func (b *Builder) Params(names ...string) *Builder {
	b.params = append(b.params, names...)
	return b
}

// PosOnly marks the first n positional parameters as positional-only.
func (b *Builder) PosOnly(n int) *Builder {
	b.posOnly = n
	return b
}

// KwOnly declares keyword-only parameters.
func (b *Builder) KwOnly(names ...string) *Builder {
	b.kwOnly = append(b.kwOnly, names...)
	return b
}

// VarArgs declares the *args collector.
func (b *Builder) VarArgs(name string) *Builder {
	b.varArgs = name
	return b
}

// VarKeywords declares the **kwargs collector.
func (b *Builder) VarKeywords(name string) *Builder {
	b.varKw = name
	return b
}

// Locals declares further local variable names.
func (b *Builder) Locals(names ...string) *Builder {
	b.locals = append(b.locals, names...)
	return b
}

func (b *Builder) offset() int {
	return len(b.instrs) * InstructionSize
}

// Emit appends an instruction with the given operand.
func (b *Builder) Emit(op Opcode, arg any) *Builder {
	b.instrs = append(b.instrs, Instruction{Op: op, Arg: arg, Offset: b.offset()})
	return b
}

// EmitText appends an instruction that carries an operator or intrinsic name.
func (b *Builder) EmitText(op Opcode, text string, arg any) *Builder {
	b.instrs = append(b.instrs, Instruction{Op: op, Arg: arg, Text: text, Offset: b.offset()})
	return b
}

// BinaryOp appends binary_op for the operator symbol, e.g. "+" or "+=".
func (b *Builder) BinaryOp(symbol string) *Builder {
	return b.EmitText(OpBinaryOp, symbol, BinaryOperatorIndex(symbol))
}

// Compare appends compare_op for a comparison symbol.
func (b *Builder) Compare(symbol string) *Builder {
	return b.Emit(OpCompareOp, symbol)
}

// NewLabel creates an unresolved label.
func (b *Builder) NewLabel() *Label {
	l := &Label{}
	b.labels = append(b.labels, l)
	return l
}

// Mark resolves a label to the offset of the next emitted instruction.
func (b *Builder) Mark(label *Label) *Builder {
	if label.resolved {
		panic("label already resolved")
	}
	label.resolved = true
	label.position = b.offset()
	for _, ref := range label.refs {
		b.instrs[ref].Arg = label.position
	}
	label.refs = nil
	return b
}

// EmitJump appends a jump to label, patching it once the label is marked.
func (b *Builder) EmitJump(op Opcode, label *Label) *Builder {
	if label.resolved {
		return b.Emit(op, label.position)
	}
	label.refs = append(label.refs, len(b.instrs))
	return b.Emit(op, -1)
}

// Build finishes the code unit. Every label jumped to must have been marked.
func (b *Builder) Build() (*CodeUnit, error) {
	for _, l := range b.labels {
		if !l.resolved && len(l.refs) > 0 {
			at := b.instrs[l.refs[0]]
			if l.name != "" {
				return nil, fmt.Errorf("code %s: offset %d: label %q never marked", b.name, at.Offset, l.name)
			}
			return nil, fmt.Errorf("code %s: offset %d: jump to unmarked label", b.name, at.Offset)
		}
	}
	c := &CodeUnit{
		Name:            b.name,
		Filename:        b.filename,
		ArgCount:        len(b.params),
		PosOnlyArgCount: b.posOnly,
		KwOnlyArgCount:  len(b.kwOnly),
		Instructions:    append([]Instruction(nil), b.instrs...),
	}
	c.VarNames = append(c.VarNames, b.params...)
	c.VarNames = append(c.VarNames, b.kwOnly...)
	if b.varArgs != "" {
		c.Flags |= FlagVarArgs
		c.VarNames = append(c.VarNames, b.varArgs)
	}
	if b.varKw != "" {
		c.Flags |= FlagVarKeywords
		c.VarNames = append(c.VarNames, b.varKw)
	}
	c.VarNames = append(c.VarNames, b.locals...)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustBuild is Build for code units known to be well formed.
func (b *Builder) MustBuild() *CodeUnit {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

var binaryOperators = []string{
	"+", "&", "//", "<<", "@", "*", "%", "|", "**", ">>", "-", "/", "^",
	"+=", "&=", "//=", "<<=", "@=", "*=", "%=", "|=", "**=", ">>=", "-=", "/=", "^=",
}

// BinaryOperatorIndex returns the numeric binary_op operand for a symbol,
// or -1 when the symbol is unknown.
func BinaryOperatorIndex(symbol string) int {
	for i, s := range binaryOperators {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Intrinsic appends call_intrinsic_1 for the named intrinsic.
func (b *Builder) Intrinsic(name string) *Builder {
	return b.EmitText(OpCallIntrinsic1, name, IntrinsicIndex(name))
}

var intrinsics = []string{
	"INTRINSIC_1_INVALID",
	"INTRINSIC_PRINT",
	"INTRINSIC_IMPORT_STAR",
	"INTRINSIC_STOPITERATION_ERROR",
	"INTRINSIC_ASYNC_GEN_WRAP",
	"INTRINSIC_UNARY_POSITIVE",
	"INTRINSIC_LIST_TO_TUPLE",
}

// IntrinsicIndex returns the call_intrinsic_1 operand for a name, or -1.
func IntrinsicIndex(name string) int {
	for i, s := range intrinsics {
		if s == name {
			return i
		}
	}
	return -1
}

// IntrinsicName is the inverse of IntrinsicIndex.
func IntrinsicName(i int) (string, bool) {
	if i < 0 || i >= len(intrinsics) {
		return "", false
	}
	return intrinsics[i], true
}

// BinaryOperatorSymbol is the inverse of BinaryOperatorIndex.
func BinaryOperatorSymbol(i int) (string, bool) {
	if i < 0 || i >= len(binaryOperators) {
		return "", false
	}
	return binaryOperators[i], true
}
