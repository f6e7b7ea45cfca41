package ir

import (
	"github.com/gogpu/tir/types"
)

// Module is the root of the IR: functions, the root block holding
// module-scope variables, the symbol table and the type and constant tables.
//
// A Module belongs to one compilation. It is built by a single builder and is
// read-only for generators; it is not safe for concurrent mutation.
type Module struct {
	Types     *types.Manager
	Constants *ConstantTable

	// Root holds module-scope Var instructions.
	Root BlockID

	Functions []*Function

	blocks []*Block
	names  map[Value]string
}

// NewModule creates an empty module with a root block.
func NewModule() *Module {
	tm := types.NewManager()
	m := &Module{
		Types:     tm,
		Constants: NewConstantTable(tm),
		names:     make(map[Value]string),
	}
	m.Root = m.NewBlock().ID
	return m
}

// NewBlock allocates a new empty block in the arena.
func (m *Module) NewBlock() *Block {
	b := &Block{ID: BlockID(len(m.blocks) + 1)}
	m.blocks = append(m.blocks, b)
	return b
}

// Block returns the block with the given ID, or nil for NoBlock.
func (m *Module) Block(id BlockID) *Block {
	if id == NoBlock || int(id) > len(m.blocks) {
		return nil
	}
	return m.blocks[id-1]
}

// BlockCount returns the number of blocks in the arena.
func (m *Module) BlockCount() int { return len(m.blocks) }

// RootBlock returns the module-scope block.
func (m *Module) RootBlock() *Block { return m.Block(m.Root) }

// SetName records a debug name for v.
func (m *Module) SetName(v Value, name string) {
	if name == "" {
		delete(m.names, v)
		return
	}
	m.names[v] = name
}

// Name returns the debug name of v, or "".
func (m *Module) Name(v Value) string {
	return m.names[v]
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Stage is a shader pipeline stage.
type Stage uint8

const (
	StageNone Stage = iota
	StageVertex
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return ""
}

// Function is a function definition.
type Function struct {
	Name       string
	Params     []*FunctionParam
	ReturnType types.Type
	ReturnIO   IOAttributes

	// Stage is StageNone for functions that are not entry points.
	Stage         Stage
	WorkgroupSize [3]uint32

	Entry BlockID
}

// IsEntryPoint reports whether f is a pipeline entry point.
func (f *Function) IsEntryPoint() bool { return f.Stage != StageNone }

// NewFunction adds a function with an empty entry block to the module.
func (m *Module) NewFunction(name string, ret types.Type) *Function {
	if ret == nil {
		ret = m.Types.Void()
	} else {
		ret = m.Types.Get(ret)
	}
	f := &Function{Name: name, ReturnType: ret}
	entry := m.NewBlock()
	entry.Func = f
	f.Entry = entry.ID
	m.Functions = append(m.Functions, f)
	return f
}

// AddParam appends a parameter of type t to f.
func (m *Module) AddParam(f *Function, name string, t types.Type) *FunctionParam {
	p := &FunctionParam{typ: m.Types.Get(t), Func: f, Index: len(f.Params)}
	f.Params = append(f.Params, p)
	m.SetName(p, name)
	return p
}
