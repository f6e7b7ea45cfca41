package ir

import (
	"fmt"
)

// BlockID addresses a block in the module's block arena.
type BlockID uint32

// NoBlock is the zero BlockID; it refers to no block.
const NoBlock BlockID = 0

// Block is an ordered list of instructions ending in at most one terminator.
// A block without a terminator is open; once terminated it is closed and
// nothing more may be appended.
type Block struct {
	ID           BlockID
	Instructions []*Instruction

	// Inbound holds the terminators that transfer control to this block.
	Inbound []*Instruction

	// Parent is the control instruction owning this block, or nil for a
	// function entry block and the module root block.
	Parent *Instruction

	// Func is the function the block belongs to, nil for the root block.
	Func *Function
}

// Terminator returns the last instruction if it is a terminator.
func (b *Block) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// IsTerminated reports whether the block is closed.
func (b *Block) IsTerminated() bool {
	return b.Terminator() != nil
}

// IsEmpty reports whether the block has no instructions.
func (b *Block) IsEmpty() bool { return len(b.Instructions) == 0 }

// Append appends inst to the block and records the inbound edges of its
// successors. Appending to a closed block is a programming error and panics.
func (m *Module) Append(b *Block, inst *Instruction) {
	if t := b.Terminator(); t != nil {
		panic(fmt.Sprintf("append %v to block $B%d already terminated by %v", inst.Kind, b.ID, t.Kind))
	}
	if inst.block != nil {
		panic(fmt.Sprintf("%v is already in block $B%d", inst.Kind, inst.block.ID))
	}

	inst.block = b
	b.Instructions = append(b.Instructions, inst)

	for _, s := range inst.Successors() {
		if s == NoBlock {
			continue
		}
		sb := m.Block(s)
		sb.Inbound = append(sb.Inbound, inst)
	}

	if inst.Kind.IsControl() {
		for _, id := range ChildBlocks(inst) {
			child := m.Block(id)
			child.Parent = inst
			child.Func = b.Func
		}
		if merge := inst.Merge(); merge != NoBlock {
			mb := m.Block(merge)
			mb.Func = b.Func
			mb.Parent = b.Parent
		}
	}
}

// ChildBlocks returns the blocks owned by a control instruction, excluding
// the merge block, in execution order.
func ChildBlocks(inst *Instruction) []BlockID {
	switch p := inst.Payload.(type) {
	case *If:
		return []BlockID{p.True, p.False}
	case *Loop:
		var out []BlockID
		if p.Initializer != NoBlock {
			out = append(out, p.Initializer)
		}
		return append(out, p.Body, p.Continuing)
	case *Switch:
		out := make([]BlockID, len(p.Cases))
		for n, c := range p.Cases {
			out[n] = c.Start
		}
		return out
	}
	return nil
}
