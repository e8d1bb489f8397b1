package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"bytevm/pkg/value"
)

// ImageMagic tags serialized code images.
const (
	ImageMagic   = "BVMC"
	ImageVersion = 1
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type image struct {
	Magic   string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Code    *wireCode `cbor:"3,keyasint"`
}

type wireCode struct {
	Name            string      `cbor:"1,keyasint"`
	Filename        string      `cbor:"2,keyasint,omitempty"`
	ArgCount        int         `cbor:"3,keyasint,omitempty"`
	PosOnlyArgCount int         `cbor:"4,keyasint,omitempty"`
	KwOnlyArgCount  int         `cbor:"5,keyasint,omitempty"`
	Flags           int         `cbor:"6,keyasint,omitempty"`
	VarNames        []string    `cbor:"7,keyasint,omitempty"`
	Instructions    []wireInstr `cbor:"8,keyasint"`
}

type wireInstr struct {
	Op     string   `cbor:"1,keyasint"`
	Offset int      `cbor:"2,keyasint"`
	Text   string   `cbor:"3,keyasint,omitempty"`
	Arg    *wireArg `cbor:"4,keyasint,omitempty"`
}

type argKind uint8

const (
	argInt argKind = iota + 1
	argName
	constNone
	constBool
	constInt
	constFloat
	constStr
	constTuple
	constCode
	constFrozenSet
)

type wireArg struct {
	Kind  argKind    `cbor:"1,keyasint"`
	Int   int64      `cbor:"2,keyasint,omitempty"`
	Float float64    `cbor:"3,keyasint,omitempty"`
	Str   string     `cbor:"4,keyasint,omitempty"`
	Bool  bool       `cbor:"5,keyasint,omitempty"`
	Items []*wireArg `cbor:"6,keyasint,omitempty"`
	Code  *wireCode  `cbor:"7,keyasint,omitempty"`
}

// MarshalCode serializes a code unit, including nested code constants, to CBOR.
func MarshalCode(c *CodeUnit) ([]byte, error) {
	wc, err := encodeCode(c)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&image{Magic: ImageMagic, Version: ImageVersion, Code: wc})
}

// UnmarshalCode deserializes a code image produced by MarshalCode.
func UnmarshalCode(data []byte) (*CodeUnit, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if img.Magic != ImageMagic {
		return nil, fmt.Errorf("bytecode: not a code image (magic %q)", img.Magic)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("bytecode: unsupported image version %d", img.Version)
	}
	if img.Code == nil {
		return nil, fmt.Errorf("bytecode: image has no code")
	}
	c, err := decodeCode(img.Code)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeCode(c *CodeUnit) (*wireCode, error) {
	wc := &wireCode{
		Name:            c.Name,
		Filename:        c.Filename,
		ArgCount:        c.ArgCount,
		PosOnlyArgCount: c.PosOnlyArgCount,
		KwOnlyArgCount:  c.KwOnlyArgCount,
		Flags:           c.Flags,
		VarNames:        c.VarNames,
		Instructions:    make([]wireInstr, len(c.Instructions)),
	}
	for i, in := range c.Instructions {
		wi := wireInstr{Op: in.Op.String(), Offset: in.Offset, Text: in.Text}
		if in.Arg != nil {
			a, err := encodeArg(in.Arg)
			if err != nil {
				return nil, fmt.Errorf("code %s: offset %d: %w", c.Name, in.Offset, err)
			}
			wi.Arg = a
		}
		wc.Instructions[i] = wi
	}
	return wc, nil
}

func encodeArg(a any) (*wireArg, error) {
	switch x := a.(type) {
	case int:
		return &wireArg{Kind: argInt, Int: int64(x)}, nil
	case string:
		return &wireArg{Kind: argName, Str: x}, nil
	case value.Value:
		return encodeConst(x)
	}
	return nil, fmt.Errorf("cannot encode operand of type %T", a)
}

func encodeConst(v value.Value) (*wireArg, error) {
	switch x := v.(type) {
	case value.NoneType:
		return &wireArg{Kind: constNone}, nil
	case value.Bool:
		return &wireArg{Kind: constBool, Bool: bool(x)}, nil
	case value.Int:
		return &wireArg{Kind: constInt, Int: int64(x)}, nil
	case value.Float:
		return &wireArg{Kind: constFloat, Float: float64(x)}, nil
	case value.Str:
		return &wireArg{Kind: constStr, Str: string(x)}, nil
	case *value.Tuple:
		items, err := encodeItems(x.Items)
		return &wireArg{Kind: constTuple, Items: items}, err
	case *value.Set:
		items, err := encodeItems(x.Items())
		return &wireArg{Kind: constFrozenSet, Items: items}, err
	case *CodeUnit:
		wc, err := encodeCode(x)
		return &wireArg{Kind: constCode, Code: wc}, err
	}
	return nil, fmt.Errorf("cannot encode constant of type %s", value.TypeName(v))
}

func encodeItems(items []value.Value) ([]*wireArg, error) {
	out := make([]*wireArg, len(items))
	for i, item := range items {
		a, err := encodeConst(item)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func decodeCode(wc *wireCode) (*CodeUnit, error) {
	c := &CodeUnit{
		Name:            wc.Name,
		Filename:        wc.Filename,
		ArgCount:        wc.ArgCount,
		PosOnlyArgCount: wc.PosOnlyArgCount,
		KwOnlyArgCount:  wc.KwOnlyArgCount,
		Flags:           wc.Flags,
		VarNames:        wc.VarNames,
		Instructions:    make([]Instruction, len(wc.Instructions)),
	}
	for i, wi := range wc.Instructions {
		op, ok := Lookup(wi.Op)
		if !ok {
			return nil, fmt.Errorf("code %s: offset %d: unknown opcode %q", wc.Name, wi.Offset, wi.Op)
		}
		in := Instruction{Op: op, Offset: wi.Offset, Text: wi.Text}
		if wi.Arg != nil {
			a, err := decodeArg(wi.Arg)
			if err != nil {
				return nil, fmt.Errorf("code %s: offset %d: %w", wc.Name, wi.Offset, err)
			}
			in.Arg = a
		}
		c.Instructions[i] = in
	}
	return c, nil
}

func decodeArg(a *wireArg) (any, error) {
	switch a.Kind {
	case argInt:
		return int(a.Int), nil
	case argName:
		return a.Str, nil
	}
	return decodeConst(a)
}

func decodeConst(a *wireArg) (value.Value, error) {
	switch a.Kind {
	case constNone:
		return value.None, nil
	case constBool:
		return value.Bool(a.Bool), nil
	case constInt:
		return value.Int(a.Int), nil
	case constFloat:
		return value.Float(a.Float), nil
	case constStr:
		return value.Str(a.Str), nil
	case constTuple, constFrozenSet:
		items := make([]value.Value, len(a.Items))
		for i, item := range a.Items {
			v, err := decodeConst(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		if a.Kind == constFrozenSet {
			return value.NewSet(items...)
		}
		return value.NewTuple(items...), nil
	case constCode:
		if a.Code == nil {
			return nil, fmt.Errorf("code constant without body")
		}
		return decodeCode(a.Code)
	}
	return nil, fmt.Errorf("unknown operand kind %d", a.Kind)
}
