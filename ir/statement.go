package ir

// If conditionally executes its True or False block. Operands: condition.
// Both branches exit to Merge through ExitIf.
type If struct {
	True  BlockID
	False BlockID
	Merge BlockID
}

// Loop repeatedly executes Body. Initializer, when set, runs once and ends
// with NextIteration into Body. Body ends in Continue (to Continuing),
// NextIteration (back to Body), ExitLoop or a deeper exit. Continuing ends in
// NextIteration or BreakIf.
type Loop struct {
	Initializer BlockID // NoBlock if absent
	Body        BlockID
	Continuing  BlockID
	Merge       BlockID
}

// SwitchCase is one case group of a Switch. A nil selector is the default
// selector.
type SwitchCase struct {
	Selectors []*Constant
	Start     BlockID
}

// IsDefault reports whether the case contains the default selector.
func (c SwitchCase) IsDefault() bool {
	for _, s := range c.Selectors {
		if s == nil {
			return true
		}
	}
	return false
}

// Switch selects a case by the value of its operand. Operands: selector.
type Switch struct {
	Cases []SwitchCase
	Merge BlockID
}

// Branch is the payload of the branch family. Control is the construct the
// branch exits or continues, Target is the block it transfers to.
//
//	ExitIf, ExitLoop, ExitSwitch: Target is Control's merge
//	NextIteration: Target is the loop body
//	Continue: Target is the loop continuing block
//	BreakIf: Target is the loop body, taken when the condition is false
//	Fallthrough: Target is the start of the next case
//
// Return, Unreachable and Discard have no payload.
type Branch struct {
	Control *Instruction
	Target  BlockID
}

func (*If) payload()     {}
func (*Loop) payload()   {}
func (*Switch) payload() {}
func (*Branch) payload() {}

// If returns the payload of an If instruction, or nil.
func (i *Instruction) If() *If {
	p, _ := i.Payload.(*If)
	return p
}

// Loop returns the payload of a Loop instruction, or nil.
func (i *Instruction) Loop() *Loop {
	p, _ := i.Payload.(*Loop)
	return p
}

// Switch returns the payload of a Switch instruction, or nil.
func (i *Instruction) Switch() *Switch {
	p, _ := i.Payload.(*Switch)
	return p
}

// Branch returns the payload of a branch instruction, or nil.
func (i *Instruction) Branch() *Branch {
	p, _ := i.Payload.(*Branch)
	return p
}

// Merge returns the merge block of a control instruction.
func (i *Instruction) Merge() BlockID {
	switch p := i.Payload.(type) {
	case *If:
		return p.Merge
	case *Loop:
		return p.Merge
	case *Switch:
		return p.Merge
	}
	return NoBlock
}

// Successors returns the blocks control can transfer to when instruction i
// terminates its block. Control instructions transfer into their child
// blocks; their merge is reached through the exits of those blocks.
func (i *Instruction) Successors() []BlockID {
	switch p := i.Payload.(type) {
	case *If:
		return []BlockID{p.True, p.False}
	case *Loop:
		if p.Initializer != NoBlock {
			return []BlockID{p.Initializer}
		}
		return []BlockID{p.Body}
	case *Switch:
		out := make([]BlockID, len(p.Cases))
		for n, c := range p.Cases {
			out[n] = c.Start
		}
		return out
	case *Branch:
		if i.Kind == KindBreakIf {
			return []BlockID{p.Target, p.Control.Merge()}
		}
		return []BlockID{p.Target}
	}
	return nil
}
