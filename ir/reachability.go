package ir

// IsConnected reports whether block b can be reached from its function's
// entry block by following terminators.
//
// The search walks inbound edges backwards with a visited set, so loop
// back-edges cannot make it recurse forever. A block with no inbound edges
// is only connected if it is the function entry.
func (m *Module) IsConnected(b *Block) bool {
	if b == nil {
		return false
	}
	visited := make(map[BlockID]bool)
	return m.isConnected(b, visited)
}

func (m *Module) isConnected(b *Block, visited map[BlockID]bool) bool {
	if b.Func != nil && b.ID == b.Func.Entry {
		return true
	}
	if visited[b.ID] {
		return false
	}
	visited[b.ID] = true

	for _, in := range b.Inbound {
		if in.block != nil && m.isConnected(in.block, visited) {
			return true
		}
	}
	return false
}

// ReachableBlocks returns the blocks of f reachable from its entry block,
// in depth-first discovery order.
func (m *Module) ReachableBlocks(f *Function) []*Block {
	var out []*Block
	visited := make(map[BlockID]bool)
	var walk func(id BlockID)
	walk = func(id BlockID) {
		if id == NoBlock || visited[id] {
			return
		}
		visited[id] = true
		b := m.Block(id)
		out = append(out, b)
		t := b.Terminator()
		if t == nil {
			return
		}
		for _, s := range t.Successors() {
			walk(s)
		}
	}
	walk(f.Entry)
	return out
}

// FunctionBlocks returns every block owned by f in structural order: a
// block, the child blocks of its terminating control instruction, then the
// construct's merge block. Unreachable merge blocks are included.
func (m *Module) FunctionBlocks(f *Function) []*Block {
	var out []*Block
	visited := make(map[BlockID]bool)
	var walk func(id BlockID)
	walk = func(id BlockID) {
		if id == NoBlock || visited[id] {
			return
		}
		visited[id] = true
		b := m.Block(id)
		out = append(out, b)
		t := b.Terminator()
		if t == nil || !t.Kind.IsControl() {
			return
		}
		for _, c := range ChildBlocks(t) {
			walk(c)
		}
		walk(t.Merge())
	}
	walk(f.Entry)
	return out
}
