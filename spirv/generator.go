package spirv

import (
	"context"
	"strconv"
	"strings"

	"tlog.app/go/tlog"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

// Generator translates an IR module to SPIR-V.
//
// Every type, constant, value and block gets one ID. IDs are handed out
// lazily, the first time something refers to them, so forward references
// such as a merge block named before it is emitted stay stable.
type Generator struct {
	module  *ir.Module
	builder *ModuleBuilder
	options Options
	diags   diag.List
	tr      tlog.Span

	typeIDs     map[string]uint32
	pointerIDs  map[pointerKey]uint32
	funcTypeIDs map[string]uint32
	sampledIDs  map[uint32]uint32
	scalarIDs   map[scalarKey]uint32
	constantIDs map[*ir.Constant]uint32
	nullIDs     map[uint32]uint32
	values      map[ir.Value]uint32
	labels      map[ir.BlockID]uint32
	functionIDs map[*ir.Function]uint32

	// resources maps uniform and storage variables of non-struct type to
	// the store type of their Block-decorated wrapper struct.
	resources map[ir.Value]types.Type
	blocks    map[uint32]bool
	globals   []uint32

	glslExtID uint32

	// Per-function state.
	fn          *Function
	irFunc      *ir.Function
	output      uint32
	interfaces  []uint32
	loopHeaders map[*ir.Instruction]uint32
	loopPhases  map[*ir.Instruction]loopPhase
}

type pointerKey struct {
	class   StorageClass
	pointee uint32
}

type scalarKey struct {
	kind types.ScalarKind
	bits uint32
}

type loopPhase uint8

const (
	phaseInitializer loopPhase = iota
	phaseBody
	phaseContinuing
)

// NewGenerator creates a generator for m.
func NewGenerator(m *ir.Module, opts Options) *Generator {
	b := NewModuleBuilder(opts.Version)
	b.SetGenerator(opts.GeneratorID)

	return &Generator{
		module:      m,
		builder:     b,
		options:     opts,
		typeIDs:     make(map[string]uint32),
		pointerIDs:  make(map[pointerKey]uint32),
		funcTypeIDs: make(map[string]uint32),
		sampledIDs:  make(map[uint32]uint32),
		scalarIDs:   make(map[scalarKey]uint32),
		constantIDs: make(map[*ir.Constant]uint32),
		nullIDs:     make(map[uint32]uint32),
		values:      make(map[ir.Value]uint32),
		labels:      make(map[ir.BlockID]uint32),
		functionIDs: make(map[*ir.Function]uint32),
		resources:   make(map[ir.Value]types.Type),
		blocks:      make(map[uint32]bool),
	}
}

// Generate translates m to a SPIR-V binary.
//
// If the module holds an IR shape the generator does not handle, no binary
// is produced, err is non-nil and diags holds the internal errors.
func Generate(ctx context.Context, m *ir.Module, opts Options) (data []byte, diags diag.List, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "spirv", "functions", len(m.Functions), "version", opts.Version.String())
	defer tr.Finish("err", &err)

	g := NewGenerator(m, opts)
	g.tr = tr

	data, err = g.Generate()

	return data, g.diags, err
}

// Generate produces the binary. It must be called once.
func (g *Generator) Generate() (data []byte, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if _, ok := p.(bailout); !ok {
			panic(p)
		}
		data, err = nil, g.diags.Err()
	}()

	g.builder.AddCapability(CapabilityShader)
	g.builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	for _, inst := range g.module.RootBlock().Instructions {
		if inst.Kind != ir.KindVar {
			g.fatalf("unexpected %v instruction at module scope", inst.Kind)
		}
		g.emitGlobal(inst)
	}

	// Declare all functions first to support calls to later functions.
	for _, f := range g.module.Functions {
		g.functionIDs[f] = g.builder.AllocID()
	}

	for _, f := range g.module.Functions {
		g.emitFunction(f)
	}

	return g.builder.Build(), nil
}

// Diagnostics returns the diagnostics recorded by Generate.
func (g *Generator) Diagnostics() diag.List { return g.diags }

// Label returns the ID of the label of block id.
func (g *Generator) Label(id ir.BlockID) uint32 {
	if l, ok := g.labels[id]; ok {
		return l
	}
	l := g.builder.AllocID()
	g.labels[id] = l
	return l
}

// Value returns the ID bound to v. Constants are emitted on first use;
// instruction results must already have been emitted.
func (g *Generator) Value(v ir.Value) uint32 {
	if c, ok := v.(*ir.Constant); ok {
		return g.Constant(c)
	}
	id, ok := g.values[v]
	if !ok {
		g.fatalf("value of type %v used before its definition", v.Type())
	}
	return id
}

func (g *Generator) bind(inst *ir.Instruction, id uint32) {
	if r := inst.Result(); r != nil {
		g.values[r] = id
	}
}

// Type returns the ID of t, emitting its declaration and the declarations
// it depends on first.
//
//nolint:gocyclo // one case per type
func (g *Generator) Type(t types.Type) uint32 {
	key := types.Key(t)
	if id, ok := g.typeIDs[key]; ok {
		return id
	}

	var id uint32
	switch t := t.(type) {
	case *types.Void:
		id = g.builder.AllocID()
		g.builder.AddType(OpTypeVoid, id)
	case *types.Scalar:
		id = g.scalarType(t)
	case *types.Vector:
		elem := g.Type(t.Elem)
		id = g.builder.AllocID()
		g.builder.AddType(OpTypeVector, id, elem, t.Width)
	case *types.Matrix:
		col := g.Type(t.ColumnType())
		id = g.builder.AllocID()
		g.builder.AddType(OpTypeMatrix, id, col, t.Columns)
	case *types.Array:
		id = g.arrayType(t)
	case *types.Struct:
		id = g.structType(t)
	case *types.Pointer:
		id = g.pointerType(g.storageClass(t.Space), g.Type(t.Store))
	case *types.Sampler:
		id = g.builder.AllocID()
		g.builder.AddType(OpTypeSampler, id)
	case *types.Texture:
		id = g.imageType(t)
	default:
		g.fatalf("unhandled type %v", t)
	}

	g.typeIDs[key] = id
	return id
}

func (g *Generator) scalarType(s *types.Scalar) uint32 {
	id := g.builder.AllocID()
	switch s.Kind {
	case types.KindBool:
		g.builder.AddType(OpTypeBool, id)
	case types.KindI32:
		g.builder.AddType(OpTypeInt, id, 32, 1)
	case types.KindU32:
		g.builder.AddType(OpTypeInt, id, 32, 0)
	case types.KindF32:
		g.builder.AddType(OpTypeFloat, id, 32)
	case types.KindF16:
		g.builder.AddCapability(CapabilityFloat16)
		g.builder.AddType(OpTypeFloat, id, 16)
	default:
		g.fatalf("unhandled scalar kind %v", s)
	}
	return id
}

func (g *Generator) arrayType(a *types.Array) uint32 {
	elem := g.Type(a.Elem)

	var id uint32
	if a.IsRuntimeSized() {
		id = g.builder.AllocID()
		g.builder.AddType(OpTypeRuntimeArray, id, elem)
	} else {
		length := g.scalarConstant(&types.Scalar{Kind: types.KindU32}, a.Count)
		id = g.builder.AllocID()
		g.builder.AddType(OpTypeArray, id, elem, length)
	}

	stride := a.Stride
	if stride == 0 {
		stride = types.Stride(a.Elem)
	}
	g.builder.AddDecorate(id, DecorationArrayStride, stride)

	return id
}

func (g *Generator) structType(s *types.Struct) uint32 {
	members := make([]uint32, len(s.Members))
	for i, m := range s.Members {
		members[i] = g.Type(m.Type)
	}

	id := g.builder.AllocID()
	g.builder.AddType(OpTypeStruct, append([]uint32{id}, members...)...)

	for i, m := range s.Members {
		g.builder.AddMemberDecorate(id, uint32(i), DecorationOffset, m.Offset)
		g.decorateMatrixMember(id, uint32(i), m.Type)
		if g.options.Debug {
			g.builder.AddMemberName(id, uint32(i), m.Name)
		}
	}
	if g.options.Debug {
		g.builder.AddName(id, s.Name)
	}

	return id
}

func (g *Generator) decorateMatrixMember(structID, member uint32, t types.Type) {
	for {
		a, ok := t.(*types.Array)
		if !ok {
			break
		}
		t = a.Elem
	}

	m, ok := t.(*types.Matrix)
	if !ok {
		return
	}

	g.builder.AddMemberDecorate(structID, member, DecorationColMajor)
	g.builder.AddMemberDecorate(structID, member, DecorationMatrixStride, types.Stride(m.ColumnType()))
}

func (g *Generator) imageType(t *types.Texture) uint32 {
	sampled := g.Type(t.Sampled)

	var dim Dim
	switch t.Dim {
	case types.Dim1D:
		dim = Dim1D
		g.builder.AddCapability(CapabilitySampled1D)
	case types.Dim2D:
		dim = Dim2D
	case types.Dim3D:
		dim = Dim3D
	case types.DimCube:
		dim = DimCube
	}

	id := g.builder.AllocID()
	// depth, arrayed, multisampled, sampled, format
	g.builder.AddType(OpTypeImage, id, sampled, uint32(dim), 0, 0, 0, 1, 0)
	return id
}

func (g *Generator) sampledImageType(image uint32) uint32 {
	if id, ok := g.sampledIDs[image]; ok {
		return id
	}
	id := g.builder.AllocID()
	g.builder.AddType(OpTypeSampledImage, id, image)
	g.sampledIDs[image] = id
	return id
}

func (g *Generator) pointerType(class StorageClass, pointee uint32) uint32 {
	key := pointerKey{class: class, pointee: pointee}
	if id, ok := g.pointerIDs[key]; ok {
		return id
	}
	id := g.builder.AllocID()
	g.builder.AddType(OpTypePointer, id, uint32(class), pointee)
	g.pointerIDs[key] = id
	return id
}

func (g *Generator) functionType(ret uint32, params []uint32) uint32 {
	var key strings.Builder
	key.WriteString(strconv.FormatUint(uint64(ret), 10))
	for _, p := range params {
		key.WriteByte(',')
		key.WriteString(strconv.FormatUint(uint64(p), 10))
	}

	if id, ok := g.funcTypeIDs[key.String()]; ok {
		return id
	}
	id := g.builder.AllocID()
	g.builder.AddType(OpTypeFunction, append([]uint32{id, ret}, params...)...)
	g.funcTypeIDs[key.String()] = id
	return id
}

func (g *Generator) storageClass(space types.AddressSpace) StorageClass {
	switch space {
	case types.SpaceFunction:
		return StorageClassFunction
	case types.SpacePrivate:
		return StorageClassPrivate
	case types.SpaceWorkgroup:
		return StorageClassWorkgroup
	case types.SpaceUniform:
		return StorageClassUniform
	case types.SpaceStorage:
		if !g.options.Version.AtLeast(Version1_3) {
			g.builder.AddExtension("SPV_KHR_storage_buffer_storage_class")
		}
		return StorageClassStorageBuffer
	case types.SpacePushConstant:
		return StorageClassPushConstant
	case types.SpaceHandle:
		return StorageClassUniformConstant
	}
	g.fatalf("unhandled address space %v", space)
	return 0
}

// Constant returns the ID of c. Composite constants emit their elements
// first.
func (g *Generator) Constant(c *ir.Constant) uint32 {
	if id, ok := g.constantIDs[c]; ok {
		return id
	}

	var id uint32
	switch {
	case c.Null:
		id = g.null(g.Type(c.Type()))
	case c.IsComposite():
		elems := make([]uint32, len(c.Elements))
		for i, e := range c.Elements {
			elems[i] = g.Constant(e)
		}
		typ := g.Type(c.Type())
		id = g.builder.AllocID()
		g.builder.AddType(OpConstantComposite, append([]uint32{typ, id}, elems...)...)
	default:
		s := types.ElementOf(c.Type())
		if s == nil {
			g.fatalf("unhandled constant of type %v", c.Type())
		}
		id = g.scalarConstant(s, c.Bits)
	}

	g.constantIDs[c] = id
	return id
}

func (g *Generator) scalarConstant(s *types.Scalar, bits uint32) uint32 {
	key := scalarKey{kind: s.Kind, bits: bits}
	if id, ok := g.scalarIDs[key]; ok {
		return id
	}

	typ := g.Type(s)
	id := g.builder.AllocID()
	switch s.Kind {
	case types.KindBool:
		if bits != 0 {
			g.builder.AddType(OpConstantTrue, typ, id)
		} else {
			g.builder.AddType(OpConstantFalse, typ, id)
		}
	case types.KindF16:
		g.builder.AddType(OpConstant, typ, id, bits&0xffff)
	default:
		g.builder.AddType(OpConstant, typ, id, bits)
	}

	g.scalarIDs[key] = id
	return id
}

func (g *Generator) u32(v uint32) uint32 {
	return g.scalarConstant(&types.Scalar{Kind: types.KindU32}, v)
}

func (g *Generator) null(typ uint32) uint32 {
	if id, ok := g.nullIDs[typ]; ok {
		return id
	}
	id := g.builder.AllocID()
	g.builder.AddType(OpConstantNull, typ, id)
	g.nullIDs[typ] = id
	return id
}

func (g *Generator) glsl() uint32 {
	if g.glslExtID == 0 {
		g.glslExtID = g.builder.AddExtInstImport("GLSL.std.450")
	}
	return g.glslExtID
}

// emitGlobal emits a module-scope variable. Uniform, storage and push
// constant variables of struct type decorate that struct as a Block; other
// store types are wrapped in a Block-decorated struct. Read-only storage
// variables are decorated NonWritable.
func (g *Generator) emitGlobal(inst *ir.Instruction) {
	p := inst.Var()
	res := inst.Result()
	ptr, ok := res.Type().(*types.Pointer)
	if !ok {
		g.fatalf("module-scope variable of non-pointer type %v", res.Type())
	}

	class := g.storageClass(p.Space)

	var id uint32
	switch p.Space {
	case types.SpaceUniform, types.SpaceStorage, types.SpacePushConstant:
		readOnly := p.Space == types.SpaceStorage && p.Access == types.Read

		if st, ok := ptr.Store.(*types.Struct); ok {
			// The struct type may back several variables with different
			// access modes.
			block := g.Type(st)
			if !g.blocks[block] {
				g.blocks[block] = true
				g.builder.AddDecorate(block, DecorationBlock)
			}
			id = g.builder.AddVariable(g.Type(ptr), class, 0)
		} else {
			inner := g.Type(ptr.Store)
			wrapper := g.builder.AllocID()
			g.builder.AddType(OpTypeStruct, wrapper, inner)
			g.builder.AddDecorate(wrapper, DecorationBlock)
			g.builder.AddMemberDecorate(wrapper, 0, DecorationOffset, 0)
			g.decorateMatrixMember(wrapper, 0, ptr.Store)

			id = g.builder.AddVariable(g.pointerType(class, wrapper), class, 0)
			g.resources[res] = ptr.Store
		}

		if readOnly {
			g.builder.AddDecorate(id, DecorationNonWritable)
		}
	default:
		var init uint32
		if v := inst.Operand(0); v != nil {
			c, ok := v.(*ir.Constant)
			if !ok {
				g.fatalf("module-scope variable %q with a non-constant initializer", g.module.Name(res))
			}
			init = g.Constant(c)
		}
		id = g.builder.AddVariable(g.Type(ptr), class, init)
	}

	if p.Binding != nil {
		g.builder.AddDecorate(id, DecorationDescriptorSet, p.Binding.Group)
		g.builder.AddDecorate(id, DecorationBinding, p.Binding.Binding)
	}
	if name := g.module.Name(res); name != "" && g.options.Debug {
		g.builder.AddName(id, name)
	}

	g.values[res] = id
	g.globals = append(g.globals, id)
}
