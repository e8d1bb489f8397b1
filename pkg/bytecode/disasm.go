package bytecode

import (
	"fmt"
	"io"
	"strings"

	"bytevm/pkg/color"
	"bytevm/pkg/value"
)

// Disassemble writes a listing of c, followed by listings of any nested
// code units it loads as constants.
func Disassemble(w io.Writer, c *CodeUnit) error {
	seen := map[*CodeUnit]bool{}
	queue := []*CodeUnit{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if cur != c {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, color.BoldText("Disassembly of "+cur.String()+":")); err != nil {
			return err
		}
		if sig := signature(cur); sig != "" {
			if _, err := fmt.Fprintln(w, color.GrayText(sig)); err != nil {
				return err
			}
		}
		targets := jumpTargets(cur)
		for _, in := range cur.Instructions {
			if _, err := fmt.Fprintln(w, formatLine(in, targets[in.Offset])); err != nil {
				return err
			}
			if nested, ok := in.Arg.(*CodeUnit); ok {
				queue = append(queue, nested)
			}
		}
	}
	return nil
}

func signature(c *CodeUnit) string {
	params := c.Params()
	if len(params) == 0 && len(c.VarNames) == 0 {
		return ""
	}
	return fmt.Sprintf("  argcount=%d posonly=%d kwonly=%d flags=%#x varnames=%s",
		c.ArgCount, c.PosOnlyArgCount, c.KwOnlyArgCount, c.Flags, strings.Join(c.VarNames, ","))
}

func jumpTargets(c *CodeUnit) map[int]bool {
	targets := map[int]bool{}
	for _, in := range c.Instructions {
		if in.Op.IsJump() {
			targets[in.Int()] = true
		}
	}
	return targets
}

func formatLine(in Instruction, target bool) string {
	marker := "  "
	if target {
		marker = color.MagentaText(">>")
	}
	line := fmt.Sprintf("%s %s %s", marker, color.Offset(in.Offset), color.YellowText(fmt.Sprintf("%-26s", in.Op)))
	if arg := describe(in); arg != "" {
		line += " " + arg
	}
	return strings.TrimRight(line, " ")
}

func describe(in Instruction) string {
	switch {
	case in.Op.IsJump():
		return color.BlueText(fmt.Sprintf("to %d", in.Int()))
	case in.Op.HasConst():
		return color.GreenText(value.Repr(in.Const()))
	case in.Op.HasName():
		return color.BlueText(in.Name())
	case in.Text != "":
		return color.BlueText(in.Text)
	case in.Arg != nil:
		return fmt.Sprint(in.Arg)
	}
	return ""
}
