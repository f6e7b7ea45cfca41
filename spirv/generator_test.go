package spirv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/internal/samples"
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/spirv"
	"github.com/gogpu/tir/types"
	"github.com/gogpu/tir/wgsl"
)

func lower(t *testing.T, ast *wgsl.Module) *ir.Module {
	t.Helper()

	m, diags, err := wgsl.Lower(context.Background(), ast)
	require.NoError(t, err, "diagnostics: %v", diags)

	return m
}

func generate(t *testing.T, m *ir.Module, opts spirv.Options) []spirv.Instruction {
	t.Helper()

	data, diags, err := spirv.Generate(context.Background(), m, opts)
	require.NoError(t, err, "diagnostics: %v", diags)
	assert.Empty(t, diags)

	h, insts, err := spirv.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, opts.Version, h.Version)

	// Every result id is below the bound.
	for _, inst := range insts {
		if pos, ok := inst.Opcode.HasResult(); ok {
			require.Less(t, inst.Words[pos], h.Bound, "%v", inst.Opcode)
		}
	}

	return insts
}

func find(insts []spirv.Instruction, op spirv.OpCode) []spirv.Instruction {
	var out []spirv.Instruction
	for _, inst := range insts {
		if inst.Opcode == op {
			out = append(out, inst)
		}
	}
	return out
}

// after returns the instruction following the label with the given id.
func after(t *testing.T, insts []spirv.Instruction, label uint32) spirv.Instruction {
	t.Helper()

	for i, inst := range insts {
		if inst.Opcode == spirv.OpLabel && inst.Words[0] == label && i+1 < len(insts) {
			return insts[i+1]
		}
	}
	require.Fail(t, "label not found", "%%%d", label)
	return spirv.Instruction{}
}

func addModule(s *types.Scalar) *ir.Module {
	m := ir.NewModule()
	f := m.NewFunction("add", s)
	a := m.AddParam(f, "a", s)
	b := m.AddParam(f, "b", s)

	bld := ir.NewBuilder(m)
	bld.SetInsertion(m.Block(f.Entry))
	sum := bld.Binary(ir.BinaryAdd, s, a, b)
	bld.Return(sum)

	return m
}

func TestAddOpcodeFollowsOperandType(t *testing.T) {
	tm := types.NewManager()

	f := generate(t, addModule(tm.F32()), spirv.DefaultOptions())
	i := generate(t, addModule(tm.I32()), spirv.DefaultOptions())

	assert.Len(t, find(f, spirv.OpFAdd), 1)
	assert.Empty(t, find(f, spirv.OpIAdd))

	assert.Len(t, find(i, spirv.OpIAdd), 1)
	assert.Empty(t, find(i, spirv.OpFAdd))
}

func TestTrivialIfArmsBranchToMerge(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil)
	cond := m.AddParam(f, "c", m.Types.Bool())

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	ifInst := b.If(cond)
	p := ifInst.If()

	b.SetInsertion(m.Block(p.True))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(p.False))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(p.Merge))
	b.Return(nil)

	insts := generate(t, m, spirv.DefaultOptions())

	sel := find(insts, spirv.OpSelectionMerge)
	require.Len(t, sel, 1)
	merge := sel[0].Words[0]

	br := find(insts, spirv.OpBranchConditional)
	require.Len(t, br, 1)
	assert.Equal(t, merge, br[0].Words[1])
	assert.Equal(t, merge, br[0].Words[2])

	// Entry and merge only.
	assert.Len(t, find(insts, spirv.OpLabel), 2)
}

func TestEarlyReturn(t *testing.T) {
	insts := generate(t, lower(t, samples.EarlyReturn()), spirv.DefaultOptions())

	sel := find(insts, spirv.OpSelectionMerge)
	require.Len(t, sel, 1)
	merge := sel[0].Words[0]

	br := find(insts, spirv.OpBranchConditional)
	require.Len(t, br, 1)
	assert.NotEqual(t, merge, br[0].Words[1])
	assert.Equal(t, merge, br[0].Words[2], "the empty else arm branches straight to the merge")

	assert.Len(t, find(insts, spirv.OpReturnValue), 2)
	assert.Equal(t, spirv.OpFunctionCall, after(t, insts, merge).Opcode)
}

func TestForLoop(t *testing.T) {
	insts := generate(t, lower(t, samples.ForLoop()), spirv.DefaultOptions())

	lm := find(insts, spirv.OpLoopMerge)
	require.Len(t, lm, 1)
	merge, cont := lm[0].Words[0], lm[0].Words[1]

	var header uint32
	for i, inst := range insts {
		if inst.Opcode == spirv.OpLoopMerge {
			require.Equal(t, spirv.OpLabel, insts[i-1].Opcode)
			header = insts[i-1].Words[0]
		}
	}

	var back int
	for _, inst := range find(insts, spirv.OpBranch) {
		if inst.Words[0] == header {
			back++
		}
	}
	assert.Equal(t, 2, back, "initializer and continuing branch to the header")

	// The continuing block increments i.
	assert.Equal(t, spirv.OpLoad, after(t, insts, cont).Opcode)
	assert.Len(t, find(insts, spirv.OpIAdd), 1)
	assert.Len(t, find(insts, spirv.OpSLessThan), 1)
	assert.Equal(t, spirv.OpReturn, after(t, insts, merge).Opcode)

	// i is a single function variable.
	assert.Len(t, find(insts, spirv.OpVariable), 1)
}

func TestLoopBreakIf(t *testing.T) {
	insts := generate(t, lower(t, samples.LoopBreakIf()), spirv.DefaultOptions())

	lm := find(insts, spirv.OpLoopMerge)
	require.Len(t, lm, 1)
	merge := lm[0].Words[0]

	br := find(insts, spirv.OpBranchConditional)
	require.Len(t, br, 1)
	assert.Equal(t, merge, br[0].Words[1])
	assert.Len(t, find(insts, spirv.OpSGreaterThanEqual), 1)
}

func TestDeadContinuingBlock(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil)

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	loop := b.Loop(false)
	p := loop.Loop()

	b.SetInsertion(m.Block(p.Body))
	b.Return(nil)
	b.SetInsertion(m.Block(p.Continuing))
	b.NextIteration(loop)
	b.SetInsertion(m.Block(p.Merge))
	b.Unreachable()

	insts := generate(t, m, spirv.DefaultOptions())

	lm := find(insts, spirv.OpLoopMerge)
	require.Len(t, lm, 1)

	var header uint32
	for i, inst := range insts {
		if inst.Opcode == spirv.OpLoopMerge {
			header = insts[i-1].Words[0]
		}
	}

	next := after(t, insts, lm[0].Words[1])
	assert.Equal(t, spirv.OpBranch, next.Opcode)
	assert.Equal(t, header, next.Words[0])
	assert.Equal(t, spirv.OpUnreachable, after(t, insts, lm[0].Words[0]).Opcode)
}

func TestSwitchFallthrough(t *testing.T) {
	insts := generate(t, lower(t, samples.SwitchFallthrough()), spirv.DefaultOptions())

	sw := find(insts, spirv.OpSwitch)
	require.Len(t, sw, 1)

	// selector, default, then (literal, label) pairs
	w := sw[0].Words
	require.Len(t, w, 6)
	first, second := w[3], w[5]
	assert.Equal(t, first, w[1], "the first case is the default")
	assert.Equal(t, uint32(1), w[2])
	assert.Equal(t, uint32(2), w[4])

	sel := find(insts, spirv.OpSelectionMerge)
	require.Len(t, sel, 1)
	merge := sel[0].Words[0]

	var fallthroughTarget uint32
	for i := range insts {
		if insts[i].Opcode == spirv.OpLabel && insts[i].Words[0] == first {
			for _, inst := range insts[i+1:] {
				if inst.Opcode == spirv.OpBranch {
					fallthroughTarget = inst.Words[0]
					break
				}
			}
		}
	}

	assert.Equal(t, second, fallthroughTarget)
	assert.NotEqual(t, merge, fallthroughTarget)
}

func TestComputeShader(t *testing.T) {
	m := lower(t, samples.ComputeDouble())

	data, _, err := spirv.Generate(context.Background(), m, spirv.DefaultOptions())
	require.NoError(t, err)

	text, err := spirv.Disassemble(data)
	require.NoError(t, err)

	assert.Regexp(t, `OpEntryPoint GLCompute %\d+ "main" %\d+\n`, text)
	assert.Regexp(t, `OpExecutionMode %\d+ LocalSize 64 1 1\n`, text)
	assert.Regexp(t, `OpDecorate %\d+ Block\n`, text)
	assert.Regexp(t, `OpDecorate %\d+ ArrayStride 4\n`, text)
	assert.Regexp(t, `OpDecorate %\d+ DescriptorSet 0\n`, text)
	assert.Regexp(t, `OpDecorate %\d+ Binding 0\n`, text)
	assert.Regexp(t, `OpDecorate %\d+ BuiltIn GlobalInvocationId\n`, text)
	assert.Regexp(t, `OpTypePointer StorageBuffer %\d+\n`, text)
	assert.Regexp(t, `OpArrayLength %\d+ %\d+ 0\n`, text)
	assert.Regexp(t, `OpFMul %\d+ %\d+ %\d+\n`, text)
	assert.Regexp(t, `OpConstant %\d+ 2\n`, text)
	assert.NotContains(t, text, "OpExtension")
}

func TestStorageBufferExtension(t *testing.T) {
	m := lower(t, samples.ComputeDouble())

	insts := generate(t, m, spirv.Options{Version: spirv.Version1_0})
	assert.Len(t, find(insts, spirv.OpExtension), 1)

	// Since 1.4 the storage buffer is part of the entry point interface.
	insts = generate(t, m, spirv.Options{Version: spirv.Version1_4})
	ep := find(insts, spirv.OpEntryPoint)
	require.Len(t, ep, 1)
	vars := find(insts, spirv.OpVariable)

	var global uint32
	for _, v := range vars {
		if v.Words[2] == uint32(spirv.StorageClassStorageBuffer) {
			global = v.Words[1]
		}
	}
	require.NotZero(t, global)
	assert.Contains(t, ep[0].Words[3:], global)
}

func TestFragmentShader(t *testing.T) {
	insts := generate(t, lower(t, samples.FragmentUV()), spirv.Options{Version: spirv.Version1_3, Debug: true})

	ep := find(insts, spirv.OpEntryPoint)
	require.Len(t, ep, 1)
	assert.Equal(t, uint32(spirv.ExecutionModelFragment), ep[0].Words[0])

	modes := find(insts, spirv.OpExecutionMode)
	require.Len(t, modes, 1)
	assert.Equal(t, uint32(spirv.ExecutionModeOriginUpperLeft), modes[0].Words[1])

	var locations int
	for _, d := range find(insts, spirv.OpDecorate) {
		if d.Words[1] == uint32(spirv.DecorationLocation) {
			locations++
		}
	}
	assert.Equal(t, 2, locations)

	// The result is stored to the output before returning.
	assert.Len(t, find(insts, spirv.OpStore), 1)
	assert.Len(t, find(insts, spirv.OpCompositeConstruct), 1)
	assert.NotEmpty(t, find(insts, spirv.OpName))
}

func TestVertexShader(t *testing.T) {
	data, _, err := spirv.Generate(context.Background(), lower(t, samples.VertexSelect()), spirv.DefaultOptions())
	require.NoError(t, err)

	text, err := spirv.Disassemble(data)
	require.NoError(t, err)

	assert.Regexp(t, `OpEntryPoint Vertex %\d+ "vs"`, text)
	assert.Regexp(t, `OpDecorate %\d+ BuiltIn VertexIndex\n`, text)
	assert.Regexp(t, `OpDecorate %\d+ BuiltIn Position\n`, text)
	assert.Regexp(t, `OpAccessChain %\d+ %\d+ %\d+\n`, text)
	assert.Regexp(t, `OpIEqual %\d+ %\d+ %\d+\n`, text)
}

func TestTypesAndConstantsDeduplicated(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", m.Types.I32())
	a := m.AddParam(f, "a", m.Types.I32())

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	one := m.Constants.I32(1)
	x := b.Binary(ir.BinaryAdd, m.Types.I32(), a, one)
	y := b.Binary(ir.BinaryMultiply, m.Types.I32(), x, one)
	z := b.Binary(ir.BinarySubtract, m.Types.I32(), y, m.Constants.I32(1))
	b.Return(z)

	insts := generate(t, m, spirv.DefaultOptions())

	assert.Len(t, find(insts, spirv.OpTypeInt), 1)
	assert.Len(t, find(insts, spirv.OpConstant), 1)
	assert.Len(t, find(insts, spirv.OpTypeFunction), 1)
}

func TestUnhandledShapeIsInternalError(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", m.Types.F32())
	a := m.AddParam(f, "a", m.Types.F32())

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	bad := b.Binary(ir.BinaryShiftLeft, m.Types.F32(), a, a)
	b.Return(bad)

	g := spirv.NewGenerator(m, spirv.DefaultOptions())
	data, err := g.Generate()
	assert.Error(t, err)
	assert.Nil(t, data)

	d := g.Diagnostics()
	assert.Equal(t, 1, d.Count(diag.InternalError))
}

func index(insts []spirv.Instruction, op spirv.OpCode) int {
	for i, inst := range insts {
		if inst.Opcode == op {
			return i
		}
	}
	return -1
}

func TestVarWithoutInitializerIsZeroed(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", m.Types.I32())

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	x := b.Var("x", types.SpaceFunction, types.ReadWrite, m.Types.I32(), nil)
	b.Return(b.Load(x))

	insts := generate(t, m, spirv.DefaultOptions())

	vars := find(insts, spirv.OpVariable)
	require.Len(t, vars, 1)
	null := find(insts, spirv.OpConstantNull)
	require.Len(t, null, 1)

	store, load := index(insts, spirv.OpStore), index(insts, spirv.OpLoad)
	require.NotEqual(t, -1, store)
	require.NotEqual(t, -1, load)
	assert.Less(t, store, load)

	// OpStore pointer object
	assert.Equal(t, []uint32{vars[0].Words[1], null[0].Words[1]}, insts[store].Words)
}

func TestVarInLoopBodyIsZeroedEachIteration(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil)

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	loop := b.Loop(false)
	p := loop.Loop()

	b.SetInsertion(m.Block(p.Body))
	x := b.Var("x", types.SpaceFunction, types.ReadWrite, m.Types.I32(), nil)
	b.Store(x, b.Binary(ir.BinaryAdd, m.Types.I32(), b.Load(x), m.Constants.I32(1)))
	b.ExitLoop(loop)
	b.SetInsertion(m.Block(p.Continuing))
	b.NextIteration(loop)
	b.SetInsertion(m.Block(p.Merge))
	b.Return(nil)

	insts := generate(t, m, spirv.DefaultOptions())

	// The variable is declared in the entry block and zeroed at the top
	// of the body, after the loop header.
	assert.Less(t, index(insts, spirv.OpVariable), index(insts, spirv.OpLoopMerge))

	require.Len(t, find(insts, spirv.OpLoopMerge), 1)

	var bodyLabel uint32
	for i, inst := range insts {
		if inst.Opcode == spirv.OpLoopMerge {
			bodyLabel = insts[i+1].Words[0]
		}
	}
	first := after(t, insts, bodyLabel)
	assert.Equal(t, spirv.OpStore, first.Opcode)
	assert.Equal(t, find(insts, spirv.OpConstantNull)[0].Words[1], first.Words[1])
}

func TestReadOnlyStorageSharingStruct(t *testing.T) {
	m := ir.NewModule()
	f32 := m.Types.F32()
	s := m.Types.Struct("S", []types.StructMember{{Name: "x", Type: f32}})

	b := ir.NewBuilder(m)
	b.SetInsertion(m.RootBlock())
	src := b.Var("src", types.SpaceStorage, types.Read, s, nil)
	src.Source.Var().Binding = &ir.BindingPoint{Group: 0, Binding: 0}
	dst := b.Var("dst", types.SpaceStorage, types.ReadWrite, s, nil)
	dst.Source.Var().Binding = &ir.BindingPoint{Group: 0, Binding: 1}

	f := m.NewFunction("main", nil)
	f.Stage = ir.StageCompute
	f.WorkgroupSize = [3]uint32{1, 1, 1}

	b.SetInsertion(m.Block(f.Entry))
	from := b.Access(m.Types.Ptr(types.SpaceStorage, f32, types.Read), src, m.Constants.U32(0))
	to := b.Access(m.Types.Ptr(types.SpaceStorage, f32, types.ReadWrite), dst, m.Constants.U32(0))
	b.Store(to, b.Load(from))
	b.Return(nil)

	insts := generate(t, m, spirv.DefaultOptions())

	for _, d := range find(insts, spirv.OpMemberDecorate) {
		assert.NotEqual(t, uint32(spirv.DecorationNonWritable), d.Words[2], "member decorations are shared by both variables")
	}

	bindings := map[uint32]uint32{}
	var nonWritable, blocks []uint32
	for _, d := range find(insts, spirv.OpDecorate) {
		switch spirv.Decoration(d.Words[1]) {
		case spirv.DecorationBinding:
			bindings[d.Words[2]] = d.Words[0]
		case spirv.DecorationNonWritable:
			nonWritable = append(nonWritable, d.Words[0])
		case spirv.DecorationBlock:
			blocks = append(blocks, d.Words[0])
		}
	}

	assert.Equal(t, []uint32{bindings[0]}, nonWritable)
	assert.Len(t, blocks, 1)

	// The store goes through dst.
	chains := find(insts, spirv.OpAccessChain)
	require.Len(t, chains, 2)
	st := find(insts, spirv.OpStore)
	require.Len(t, st, 1)
	assert.Equal(t, chains[1].Words[1], st[0].Words[0])
	assert.Equal(t, bindings[1], chains[1].Words[2])
}

func TestDisassembleRejectsGarbage(t *testing.T) {
	_, err := spirv.Disassemble([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = spirv.Disassemble(make([]byte, 20))
	assert.Error(t, err)
}

func TestDisassembleHeader(t *testing.T) {
	data, _, err := spirv.Generate(context.Background(), addModule(types.NewManager().F32()), spirv.DefaultOptions())
	require.NoError(t, err)

	text, err := spirv.Disassemble(data)
	require.NoError(t, err)

	assert.Contains(t, text, "; SPIR-V\n; Version: 1.3\n")
	assert.Contains(t, text, "OpCapability Shader\n")
	assert.Contains(t, text, "OpMemoryModel Logical GLSL450\n")
	assert.Regexp(t, `%\d+ = OpFunction %\d+ None %\d+\n`, text)
	assert.Regexp(t, `%\d+ = OpTypeFloat 32\n`, text)
}
