package bytecode

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bytevm/pkg/value"
)

// asmUnit is the YAML form of a code unit.
//
//	name: add
//	params: [a, b]
//	code:
//	  - load_fast: a
//	  - load_fast: b
//	  - binary_op: "+"
//	  - return_value
//
// Each code entry is an opcode name, a single-key mapping from opcode name
// to operand, a {label: name} marker, or an explicit {op, arg, text}
// mapping. Jump operands name labels. A load_const operand that is a
// mapping with a code key is a nested code unit.
type asmUnit struct {
	Name        string      `yaml:"name"`
	Filename    string      `yaml:"filename"`
	Params      []string    `yaml:"params"`
	PosOnly     int         `yaml:"posonly"`
	KwOnly      []string    `yaml:"kwonly"`
	VarArgs     string      `yaml:"varargs"`
	VarKeywords string      `yaml:"varkeywords"`
	Locals      []string    `yaml:"locals"`
	Code        []yaml.Node `yaml:"code"`
}

// LoadAssembly reads a YAML assembly listing and builds its code unit.
func LoadAssembly(r io.Reader, filename string) (*CodeUnit, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw asmUnit
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("assembly: %s is empty", filename)
		}
		return nil, fmt.Errorf("assembly: parse %s: %w", filename, err)
	}
	if raw.Filename == "" {
		raw.Filename = filename
	}
	if raw.Name == "" {
		raw.Name = "<module>"
	}
	return assemble(&raw)
}

// ParseAssembly is LoadAssembly over an in-memory listing.
func ParseAssembly(src, filename string) (*CodeUnit, error) {
	return LoadAssembly(strings.NewReader(src), filename)
}

type assembler struct {
	b      *Builder
	unit   *asmUnit
	labels map[string]*Label
}

func assemble(u *asmUnit) (*CodeUnit, error) {
	a := &assembler{
		b: NewBuilder(u.Name).
			Filename(u.Filename).
			Params(u.Params...).
			PosOnly(u.PosOnly).
			KwOnly(u.KwOnly...).
			VarArgs(u.VarArgs).
			VarKeywords(u.VarKeywords).
			Locals(u.Locals...),
		unit:   u,
		labels: map[string]*Label{},
	}
	for i := range u.Code {
		if err := a.entry(&u.Code[i]); err != nil {
			return nil, fmt.Errorf("assembly: %s: %w", u.Name, err)
		}
	}
	c, err := a.b.Build()
	if err != nil {
		return nil, fmt.Errorf("assembly: %w", err)
	}
	return c, nil
}

func (a *assembler) label(name string) *Label {
	l, ok := a.labels[name]
	if !ok {
		l = a.b.NewLabel()
		l.name = name
		a.labels[name] = l
	}
	return l
}

func (a *assembler) entry(n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		return a.entry(n.Alias)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		op, err := opcode(n)
		if err != nil {
			return err
		}
		return a.emit(op, nil, "", n)
	case yaml.MappingNode:
		fields := map[string]*yaml.Node{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			fields[n.Content[i].Value] = n.Content[i+1]
		}
		if l, ok := fields["label"]; ok && len(fields) == 1 {
			lab := a.label(l.Value)
			if lab.resolved {
				return fmt.Errorf("line %d: label %q marked twice", l.Line, l.Value)
			}
			a.b.Mark(lab)
			return nil
		}
		if opNode, ok := fields["op"]; ok {
			op, err := opcode(opNode)
			if err != nil {
				return err
			}
			text := ""
			if t, ok := fields["text"]; ok {
				text = t.Value
			}
			return a.emit(op, fields["arg"], text, n)
		}
		if len(fields) != 1 {
			return fmt.Errorf("line %d: instruction mapping must have a single opcode key", n.Line)
		}
		op, err := opcode(n.Content[0])
		if err != nil {
			return err
		}
		return a.emit(op, n.Content[1], "", n)
	}
	return fmt.Errorf("line %d: expected instruction, found %s", n.Line, n.ShortTag())
}

func opcode(n *yaml.Node) (Opcode, error) {
	op, ok := Lookup(n.Value)
	if !ok {
		return 0, fmt.Errorf("line %d: unknown opcode %q", n.Line, n.Value)
	}
	return op, nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func (a *assembler) emit(op Opcode, arg *yaml.Node, text string, at *yaml.Node) error {
	switch {
	case op.IsJump():
		if isNull(arg) {
			return fmt.Errorf("line %d: %s needs a target", at.Line, op)
		}
		if arg.ShortTag() == "!!int" {
			var off int
			if err := arg.Decode(&off); err != nil {
				return err
			}
			a.b.Emit(op, off)
			return nil
		}
		a.b.EmitJump(op, a.label(arg.Value))
		return nil
	case op == OpBinaryOp:
		symbol := text
		if !isNull(arg) {
			if arg.ShortTag() == "!!int" {
				var i int
				if err := arg.Decode(&i); err != nil {
					return err
				}
				s, ok := BinaryOperatorSymbol(i)
				if !ok {
					return fmt.Errorf("line %d: unknown binary operator %d", arg.Line, i)
				}
				symbol = s
			} else {
				symbol = arg.Value
			}
		}
		if BinaryOperatorIndex(symbol) < 0 {
			return fmt.Errorf("line %d: unknown binary operator %q", at.Line, symbol)
		}
		a.b.BinaryOp(symbol)
		return nil
	case op == OpCallIntrinsic1:
		name := text
		if !isNull(arg) {
			if arg.ShortTag() == "!!int" {
				var i int
				if err := arg.Decode(&i); err != nil {
					return err
				}
				s, ok := IntrinsicName(i)
				if !ok {
					return fmt.Errorf("line %d: unknown intrinsic %d", arg.Line, i)
				}
				name = s
			} else {
				name = strings.ToUpper(arg.Value)
			}
		}
		if !strings.HasPrefix(name, "INTRINSIC_") {
			name = "INTRINSIC_" + name
		}
		a.b.Intrinsic(name)
		return nil
	case op.HasConst():
		if isNull(arg) && op == OpLoadConst {
			a.b.Emit(op, value.None)
			return nil
		}
		v, err := a.constant(arg)
		if err != nil {
			return err
		}
		a.b.Emit(op, v)
		return nil
	case op.HasName(), op == OpCompareOp:
		if isNull(arg) {
			return fmt.Errorf("line %d: %s needs an operand", at.Line, op)
		}
		if op == OpCompareOp && arg.ShortTag() == "!!int" {
			n, err := strconv.Atoi(arg.Value)
			if err != nil {
				return fmt.Errorf("line %d: compare_op operand %q: %w", at.Line, arg.Value, err)
			}
			a.b.EmitText(op, text, n)
			return nil
		}
		a.b.EmitText(op, text, arg.Value)
		return nil
	}
	if isNull(arg) {
		a.b.EmitText(op, text, nil)
		return nil
	}
	var n int
	if err := arg.Decode(&n); err != nil {
		return fmt.Errorf("line %d: %s operand: %w", arg.Line, op, err)
	}
	a.b.EmitText(op, text, n)
	return nil
}

func (a *assembler) constant(n *yaml.Node) (value.Value, error) {
	if n == nil {
		return value.None, nil
	}
	switch n.Kind {
	case yaml.AliasNode:
		return a.constant(n.Alias)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return value.None, nil
		case "!!bool":
			var b bool
			err := n.Decode(&b)
			return value.Bool(b), err
		case "!!int":
			var i int64
			err := n.Decode(&i)
			return value.Int(i), err
		case "!!float":
			var f float64
			err := n.Decode(&f)
			return value.Float(f), err
		}
		return value.Str(n.Value), nil
	case yaml.SequenceNode:
		items := make([]value.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := a.constant(c)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return value.NewTuple(items...), nil
	case yaml.MappingNode:
		if len(n.Content) == 2 {
			switch n.Content[0].Value {
			case "code":
				var nested asmUnit
				if err := n.Content[1].Decode(&nested); err != nil {
					return nil, fmt.Errorf("line %d: %w", n.Line, err)
				}
				if nested.Filename == "" {
					nested.Filename = a.unit.Filename
				}
				if nested.Name == "" {
					nested.Name = "<lambda>"
				}
				return assemble(&nested)
			case "set":
				v, err := a.constant(n.Content[1])
				if err != nil {
					return nil, err
				}
				t, ok := v.(*value.Tuple)
				if !ok {
					return nil, fmt.Errorf("line %d: set constant needs a sequence", n.Line)
				}
				return value.NewSet(t.Items...)
			case "str":
				return value.Str(n.Content[1].Value), nil
			}
		}
	}
	return nil, fmt.Errorf("line %d: unsupported constant %s", n.Line, n.ShortTag())
}
