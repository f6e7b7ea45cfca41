package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders the module as text.
//
// The output is deterministic: blocks are numbered $B1, $B2, ... in
// structural discovery order (root block, then each function in module
// order) and unnamed values are numbered %1, %2, ... in definition order.
// Every call starts from fresh numbering state.
func Disassemble(m *Module) string {
	d := newDisassembler(m)
	if root := m.RootBlock(); root != nil && !root.IsEmpty() {
		d.block(root, "root", 0)
		d.b.WriteByte('\n')
	}
	for i, f := range m.Functions {
		if i > 0 {
			d.b.WriteByte('\n')
		}
		d.function(f)
	}
	return d.b.String()
}

// DisassembleBlock renders a single block and nothing else.
func DisassembleBlock(m *Module, b *Block) string {
	d := newDisassembler(m)
	d.block(b, "", 0)
	return d.b.String()
}

type disassembler struct {
	m *Module
	b strings.Builder

	blockIDs map[BlockID]int
	valueIDs map[Value]string
	used     map[string]int
	nextID   int
}

func newDisassembler(m *Module) *disassembler {
	return &disassembler{
		m:        m,
		blockIDs: make(map[BlockID]int),
		valueIDs: make(map[Value]string),
		used:     make(map[string]int),
	}
}

func (d *disassembler) label(id BlockID) string {
	if id == NoBlock {
		return "$B?"
	}
	n, ok := d.blockIDs[id]
	if !ok {
		n = len(d.blockIDs) + 1
		d.blockIDs[id] = n
	}
	return "$B" + strconv.Itoa(n)
}

func (d *disassembler) name(v Value) string {
	if c, ok := v.(*Constant); ok {
		return c.String()
	}
	if v == nil {
		return "undef"
	}
	if s, ok := d.valueIDs[v]; ok {
		return s
	}

	var s string
	if n := d.m.Name(v); n != "" {
		s = n
		if cnt, ok := d.used[n]; ok {
			for {
				cnt++
				s = n + "_" + strconv.Itoa(cnt)
				if _, taken := d.used[s]; !taken {
					break
				}
			}
			d.used[n] = cnt
		}
		d.used[s] = 0
	} else {
		d.nextID++
		s = strconv.Itoa(d.nextID)
	}
	s = "%" + s
	d.valueIDs[v] = s
	return s
}

func (d *disassembler) indent(n int) {
	for i := 0; i < n; i++ {
		d.b.WriteString("  ")
	}
}

func (d *disassembler) function(f *Function) {
	d.b.WriteString("%")
	d.b.WriteString(f.Name)
	d.b.WriteString(" = ")
	switch f.Stage {
	case StageCompute:
		fmt.Fprintf(&d.b, "@compute @workgroup_size(%d, %d, %d) ", f.WorkgroupSize[0], f.WorkgroupSize[1], f.WorkgroupSize[2])
	case StageVertex, StageFragment:
		d.b.WriteString("@" + f.Stage.String() + " ")
	}
	d.b.WriteString("func(")
	for i, p := range f.Params {
		if i > 0 {
			d.b.WriteString(", ")
		}
		d.b.WriteString(d.name(p))
		d.b.WriteByte(':')
		d.b.WriteString(p.Type().String())
		d.io(p.IO)
	}
	d.b.WriteString("):")
	d.b.WriteString(f.ReturnType.String())
	d.io(f.ReturnIO)
	d.b.WriteString(" {\n")

	role := d.roles(f)
	for _, blk := range d.m.FunctionBlocks(f) {
		d.block(blk, role[blk.ID], 1)
	}
	d.b.WriteString("}\n")
}

func (d *disassembler) io(a IOAttributes) {
	if !a.IsSet() {
		return
	}
	d.b.WriteString(" [")
	if a.Builtin != BuiltinValueNone {
		d.b.WriteString("@builtin(" + a.Builtin.String() + ")")
	}
	if a.HasLocation {
		if a.Builtin != BuiltinValueNone {
			d.b.WriteString(", ")
		}
		fmt.Fprintf(&d.b, "@location(%d)", a.Location)
	}
	d.b.WriteString("]")
}

func (d *disassembler) roles(f *Function) map[BlockID]string {
	role := make(map[BlockID]string)
	for _, blk := range d.m.FunctionBlocks(f) {
		t := blk.Terminator()
		if t == nil {
			continue
		}
		switch p := t.Payload.(type) {
		case *If:
			role[p.True] = "true"
			role[p.False] = "false"
			role[p.Merge] = "if merge"
		case *Loop:
			role[p.Initializer] = "initializer"
			role[p.Body] = "body"
			role[p.Continuing] = "continuing"
			role[p.Merge] = "loop merge"
		case *Switch:
			for _, c := range p.Cases {
				role[c.Start] = "case"
			}
			role[p.Merge] = "switch merge"
		}
	}
	return role
}

func (d *disassembler) block(blk *Block, role string, depth int) {
	d.indent(depth)
	d.b.WriteString(d.label(blk.ID))
	d.b.WriteString(": {")
	if role != "" {
		d.b.WriteString("  # ")
		d.b.WriteString(role)
	}
	d.b.WriteByte('\n')
	for _, inst := range blk.Instructions {
		d.indent(depth + 1)
		d.instruction(inst)
		d.b.WriteByte('\n')
	}
	d.indent(depth)
	d.b.WriteString("}\n")
}

func (d *disassembler) operands(vals []Value) {
	for i, v := range vals {
		if i > 0 {
			d.b.WriteString(", ")
		}
		d.b.WriteString(d.name(v))
	}
}

//nolint:gocyclo // one arm per instruction kind
func (d *disassembler) instruction(inst *Instruction) {
	if r := inst.Result(); r != nil {
		d.b.WriteString(d.name(r))
		d.b.WriteByte(':')
		d.b.WriteString(r.Type().String())
		d.b.WriteString(" = ")
	}

	ops := inst.Operands()

	switch p := inst.Payload.(type) {
	case *Binary:
		d.b.WriteString(p.Op.String())
	case *Unary:
		d.b.WriteString(p.Op.String())
	case *BuiltinCall:
		d.b.WriteString(p.Func.String())
	case *UserCall:
		d.b.WriteString("call %")
		d.b.WriteString(p.Func.Name)
		if len(ops) > 0 {
			d.b.WriteString(", ")
			d.operands(ops)
		}
		return
	case *Var:
		d.b.WriteString("var")
		if p.Binding != nil {
			fmt.Fprintf(&d.b, " @binding_point(%d, %d)", p.Binding.Group, p.Binding.Binding)
		}
		if len(ops) > 0 {
			d.b.WriteString(",")
		}
	case *Swizzle:
		d.b.WriteString("swizzle ")
		d.operands(ops)
		d.b.WriteString(", ")
		for _, i := range p.Indices {
			d.b.WriteByte("xyzw"[i])
		}
		return
	case *If:
		fmt.Fprintf(&d.b, "if %s [t: %s, f: %s, m: %s]",
			d.name(ops[0]), d.label(p.True), d.label(p.False), d.label(p.Merge))
		return
	case *Loop:
		d.b.WriteString("loop [")
		if p.Initializer != NoBlock {
			fmt.Fprintf(&d.b, "i: %s, ", d.label(p.Initializer))
		}
		fmt.Fprintf(&d.b, "b: %s, c: %s, m: %s]", d.label(p.Body), d.label(p.Continuing), d.label(p.Merge))
		return
	case *Switch:
		fmt.Fprintf(&d.b, "switch %s [", d.name(ops[0]))
		for _, c := range p.Cases {
			d.b.WriteString("c: (")
			for i, s := range c.Selectors {
				if i > 0 {
					d.b.WriteByte(' ')
				}
				if s == nil {
					d.b.WriteString("default")
				} else {
					d.b.WriteString(s.String())
				}
			}
			fmt.Fprintf(&d.b, ", %s), ", d.label(c.Start))
		}
		fmt.Fprintf(&d.b, "m: %s]", d.label(p.Merge))
		return
	case *Branch:
		d.b.WriteString(inst.Kind.String())
		if len(ops) > 0 {
			d.b.WriteByte(' ')
			d.operands(ops)
		}
		if inst.Kind == KindBreakIf {
			fmt.Fprintf(&d.b, " [n: %s, m: %s]", d.label(p.Target), d.label(p.Control.Merge()))
		} else {
			d.b.WriteByte(' ')
			d.b.WriteString(d.label(p.Target))
		}
		return
	default:
		d.b.WriteString(inst.Kind.String())
	}

	if len(ops) > 0 {
		d.b.WriteByte(' ')
		d.operands(ops)
	}
}
