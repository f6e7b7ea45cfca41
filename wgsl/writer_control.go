package wgsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/tir/ir"
)

// writeIf writes an if statement. An empty false arm is omitted.
func (w *Writer) writeIf(inst *ir.Instruction) error {
	p := inst.If()
	cond := w.expr(inst.Operand(0))
	w.flush()

	w.pushIndent()
	accept, err := w.capture(func() error { return w.writeRegion(p.True) })
	if err != nil {
		w.popIndent()
		return err
	}
	reject, err := w.capture(func() error { return w.writeRegion(p.False) })
	w.popIndent()
	if err != nil {
		return err
	}

	header := "if " + paren(cond)
	if reject == "" {
		w.writeCompound(header, accept)
		return nil
	}

	w.writeLine("%s {", header)
	w.out.WriteString(accept)
	w.writeLine("} else {")
	w.out.WriteString(reject)
	w.writeLine("}")
	return nil
}

// writeLoop writes a loop as a for, while or loop statement.
//
// A body that starts with `if (c) {} else { break; }` provides the loop
// condition. With a single statement initializer or continuing block the
// loop is written as a for loop; with neither, as a while loop.
func (w *Writer) writeLoop(inst *ir.Instruction) error {
	p := inst.Loop()
	w.flush()

	w.pushIndent()
	defer w.popIndent()

	var initText string
	if p.Initializer != ir.NoBlock {
		text, err := w.capture(func() error { return w.writeRegion(p.Initializer) })
		if err != nil {
			return err
		}
		initText = text
	}

	cond, bodyStart, guarded, err := w.loopGuard(inst)
	if err != nil {
		return err
	}

	w.loopTop = append(w.loopTop, w.indent)
	body, err := w.capture(func() error { return w.writeRegion(bodyStart) })
	w.loopTop = w.loopTop[:len(w.loopTop)-1]
	if err != nil {
		return err
	}

	w.pushIndent()
	cont, err := w.capture(func() error { return w.writeRegion(p.Continuing) })
	w.popIndent()
	if err != nil {
		return err
	}

	breakIf := false
	if t := w.regionTerminator(p.Continuing); t != nil && t.Kind == ir.KindBreakIf {
		breakIf = true
	}

	// The loop statement itself is written one level out.
	w.popIndent()
	defer w.pushIndent()

	initStmt, initOK := statementText(initText)
	update, updateOK := statementText(cont)

	switch {
	case guarded && !breakIf && initOK && updateOK && (initText != "" || cont != ""):
		w.writeCompound(fmt.Sprintf("for(%s; %s; %s)", initStmt, cond, update), body)
		return nil
	case guarded && !breakIf && initText == "" && cont == "":
		w.writeCompound("while"+paren(cond), body)
		return nil
	}

	inner := strings.Repeat(w.opts.Indent, w.indent+1)

	var loopBody strings.Builder
	if guarded {
		fmt.Fprintf(&loopBody, "%sif (!%s) {\n%s%sbreak;\n%s}\n", inner, cond, inner, w.opts.Indent, inner)
	}
	loopBody.WriteString(body)
	if cont != "" {
		fmt.Fprintf(&loopBody, "%scontinuing {\n%s%s}\n", inner, cont, inner)
	}

	if initText == "" {
		w.writeCompound("loop", loopBody.String())
		return nil
	}

	w.writeLine("{")
	w.out.WriteString(initText)
	w.pushIndent()
	w.writeCompound("loop", w.reindent(loopBody.String()))
	w.popIndent()
	w.writeLine("}")
	return nil
}

// loopGuard recognizes a loop body that starts with a condition check and
// returns the condition and the block where the rest of the body starts.
// The instructions computing the condition are consumed.
func (w *Writer) loopGuard(loop *ir.Instruction) (cond string, start ir.BlockID, ok bool, err error) {
	p := loop.Loop()
	body := w.module.Block(p.Body)

	t := body.Terminator()
	if t == nil || t.Kind != ir.KindIf {
		return "", p.Body, false, nil
	}

	guard := t.If()
	if !onlyBranch(w.module.Block(guard.True), ir.KindExitIf, t) ||
		!onlyBranch(w.module.Block(guard.False), ir.KindExitLoop, loop) {
		return "", p.Body, false, nil
	}

	pre := body.Instructions[:len(body.Instructions)-1]
	for _, inst := range pre {
		if !w.deferrable(inst) {
			return "", p.Body, false, nil
		}
	}

	for _, inst := range pre {
		if err := w.writeInstruction(inst); err != nil {
			return "", p.Body, false, err
		}
	}

	return w.expr(t.Operand(0)), guard.Merge, true, nil
}

func onlyBranch(b *ir.Block, kind ir.Kind, control *ir.Instruction) bool {
	if b == nil || len(b.Instructions) != 1 {
		return false
	}
	inst := b.Instructions[0]
	return inst.Kind == kind && inst.Branch().Control == control
}

// regionTerminator returns the terminator that ends the region starting at
// block id, following the merge blocks of nested constructs.
func (w *Writer) regionTerminator(id ir.BlockID) *ir.Instruction {
	for {
		t := w.module.Block(id).Terminator()
		if t == nil || !t.Kind.IsControl() {
			return t
		}
		id = t.Merge()
	}
}

// writeSwitch writes a switch statement. Cases sharing a body are written
// with a combined selector list. An empty case body is written as break.
func (w *Writer) writeSwitch(inst *ir.Instruction) error {
	p := inst.Switch()
	sel := w.expr(inst.Operand(0))
	w.flush()

	w.writeLine("switch%s {", paren(sel))
	w.pushIndent()

	for _, c := range p.Cases {
		w.pushIndent()
		w.switchTop = append(w.switchTop, w.indent)
		body, err := w.capture(func() error { return w.writeRegion(c.Start) })
		w.switchTop = w.switchTop[:len(w.switchTop)-1]
		if err == nil && body == "" {
			// A case that only exits keeps an explicit break.
			body, err = w.capture(func() error {
				w.writeLine("break;")
				return nil
			})
		}
		w.popIndent()
		if err != nil {
			return err
		}

		w.writeCompound(caseLabel(c), body)
	}

	w.popIndent()
	w.writeLine("}")
	return nil
}

func caseLabel(c ir.SwitchCase) string {
	if len(c.Selectors) == 1 && c.Selectors[0] == nil {
		return "default:"
	}

	var b strings.Builder
	b.WriteString("case ")
	for i, s := range c.Selectors {
		if i > 0 {
			b.WriteString(", ")
		}
		if s == nil {
			b.WriteString("default")
			continue
		}
		b.WriteString(s.String())
	}
	b.WriteByte(':')
	return b.String()
}

// paren wraps s in parentheses unless it is already enclosed in one pair.
func paren(s string) string {
	if enclosed(s) {
		return s
	}
	return "(" + s + ")"
}

func enclosed(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}
