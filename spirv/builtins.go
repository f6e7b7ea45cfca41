package spirv

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

// GLSL.std.450 extended instruction numbers.
const (
	glslFAbs        = 4
	glslSAbs        = 5
	glslFloor       = 8
	glslCeil        = 9
	glslFract       = 10
	glslSin         = 13
	glslCos         = 14
	glslPow         = 26
	glslExp         = 27
	glslLog         = 28
	glslSqrt        = 31
	glslInverseSqrt = 32
	glslFMin        = 37
	glslUMin        = 38
	glslSMin        = 39
	glslFMax        = 40
	glslUMax        = 41
	glslSMax        = 42
	glslFClamp      = 43
	glslUClamp      = 44
	glslSClamp      = 45
	glslFMix        = 46
	glslStep        = 48
	glslSmoothStep  = 49
	glslLength      = 66
	glslDistance    = 67
	glslCross       = 68
	glslNormalize   = 69
)

// glslNames names the extended instructions for the disassembler.
var glslNames = map[uint32]string{
	glslFAbs:        "FAbs",
	glslSAbs:        "SAbs",
	glslFloor:       "Floor",
	glslCeil:        "Ceil",
	glslFract:       "Fract",
	glslSin:         "Sin",
	glslCos:         "Cos",
	glslPow:         "Pow",
	glslExp:         "Exp",
	glslLog:         "Log",
	glslSqrt:        "Sqrt",
	glslInverseSqrt: "InverseSqrt",
	glslFMin:        "FMin",
	glslUMin:        "UMin",
	glslSMin:        "SMin",
	glslFMax:        "FMax",
	glslUMax:        "UMax",
	glslSMax:        "SMax",
	glslFClamp:      "FClamp",
	glslUClamp:      "UClamp",
	glslSClamp:      "SClamp",
	glslFMix:        "FMix",
	glslStep:        "Step",
	glslSmoothStep:  "SmoothStep",
	glslLength:      "Length",
	glslDistance:    "Distance",
	glslCross:       "Cross",
	glslNormalize:   "Normalize",
}

// glslOps maps a builtin to its extended instruction per numeric class.
// A zero entry means the class is not supported.
var glslOps = map[ir.BuiltinFunc][4]uint32{
	//                       bool  sint        uint       float
	ir.BuiltinAbs:         {0, glslSAbs, 0, glslFAbs},
	ir.BuiltinMin:         {0, glslSMin, glslUMin, glslFMin},
	ir.BuiltinMax:         {0, glslSMax, glslUMax, glslFMax},
	ir.BuiltinClamp:       {0, glslSClamp, glslUClamp, glslFClamp},
	ir.BuiltinFloor:       {0, 0, 0, glslFloor},
	ir.BuiltinCeil:        {0, 0, 0, glslCeil},
	ir.BuiltinFract:       {0, 0, 0, glslFract},
	ir.BuiltinSqrt:        {0, 0, 0, glslSqrt},
	ir.BuiltinInverseSqrt: {0, 0, 0, glslInverseSqrt},
	ir.BuiltinSin:         {0, 0, 0, glslSin},
	ir.BuiltinCos:         {0, 0, 0, glslCos},
	ir.BuiltinExp:         {0, 0, 0, glslExp},
	ir.BuiltinLog:         {0, 0, 0, glslLog},
	ir.BuiltinPow:         {0, 0, 0, glslPow},
	ir.BuiltinMix:         {0, 0, 0, glslFMix},
	ir.BuiltinStep:        {0, 0, 0, glslStep},
	ir.BuiltinSmoothstep:  {0, 0, 0, glslSmoothStep},
	ir.BuiltinCross:       {0, 0, 0, glslCross},
	ir.BuiltinLength:      {0, 0, 0, glslLength},
	ir.BuiltinDistance:    {0, 0, 0, glslDistance},
	ir.BuiltinNormalize:   {0, 0, 0, glslNormalize},
}

func classIndex(c types.Class) int {
	switch c {
	case types.ClassSint:
		return 1
	case types.ClassUint:
		return 2
	case types.ClassFloat:
		return 3
	}
	return 0
}

//nolint:gocyclo // one case per builtin
func (g *Generator) emitBuiltinCall(inst *ir.Instruction) {
	fn := inst.Payload.(*ir.BuiltinCall).Func
	args := inst.Operands()

	switch fn {
	case ir.BuiltinWorkgroupBarrier, ir.BuiltinStorageBarrier:
		sem := MemorySemanticsAcquireRelease | MemorySemanticsWorkgroupMemory
		if fn == ir.BuiltinStorageBarrier {
			sem = MemorySemanticsAcquireRelease | MemorySemanticsUniformMemory
		}
		g.fn.Add(OpControlBarrier, g.u32(uint32(ScopeWorkgroup)), g.u32(uint32(ScopeWorkgroup)), g.u32(uint32(sem)))
		return
	case ir.BuiltinArrayLength:
		g.emitArrayLength(inst)
		return
	}

	if len(args) == 0 {
		g.fatalf("builtin %v called without arguments", fn)
	}

	typ := g.Type(inst.Result().Type())
	ids := make([]uint32, len(args))
	for i, a := range args {
		ids[i] = g.Value(a)
	}

	switch fn {
	case ir.BuiltinAbs:
		if types.ClassOf(args[0].Type()) == types.ClassUint {
			g.bind(inst, ids[0])
			return
		}
	case ir.BuiltinDot:
		id := g.builder.AllocID()
		g.fn.Add(OpDot, typ, id, ids[0], ids[1])
		g.bind(inst, id)
		return
	case ir.BuiltinSelect:
		// select(f, t, cond) picks t where cond holds.
		cond := ids[2]
		if v, ok := args[0].Type().(*types.Vector); ok {
			if _, scalar := args[2].Type().(*types.Scalar); scalar {
				cond = g.splat(g.module.Types.Vec(g.module.Types.Bool(), v.Width), cond)
			}
		}
		id := g.builder.AllocID()
		g.fn.Add(OpSelect, typ, id, cond, ids[1], ids[0])
		g.bind(inst, id)
		return
	case ir.BuiltinAny, ir.BuiltinAll:
		if _, ok := args[0].Type().(*types.Vector); !ok {
			g.bind(inst, ids[0])
			return
		}
		code := OpAny
		if fn == ir.BuiltinAll {
			code = OpAll
		}
		id := g.builder.AllocID()
		g.fn.Add(code, typ, id, ids[0])
		g.bind(inst, id)
		return
	case ir.BuiltinTextureSample:
		tex, ok := args[0].Type().(*types.Texture)
		if !ok || len(args) < 3 {
			g.fatalf("textureSample needs a texture, a sampler and coordinates")
		}
		si := g.builder.AllocID()
		g.fn.Add(OpSampledImage, g.sampledImageType(g.imageType(tex)), si, ids[0], ids[1])
		id := g.builder.AllocID()
		g.fn.Add(OpImageSampleImplicitLod, typ, id, si, ids[2])
		g.bind(inst, id)
		return
	}

	table, ok := glslOps[fn]
	if !ok || table[classIndex(types.ClassOf(args[0].Type()))] == 0 {
		g.fatalf("unhandled builtin %v on %v", fn, args[0].Type())
	}
	ext := table[classIndex(types.ClassOf(args[0].Type()))]

	id := g.builder.AllocID()
	g.fn.Add(OpExtInst, append([]uint32{typ, id, g.glsl(), ext}, ids...)...)
	g.bind(inst, id)
}

// emitArrayLength emits OpArrayLength for a pointer to a runtime-sized
// array. The array is either the whole store of a storage variable, which
// is member 0 of its wrapper, or the last member of a struct reached by a
// single member access.
func (g *Generator) emitArrayLength(inst *ir.Instruction) {
	arg := inst.Operand(0)
	typ := g.Type(inst.Result().Type())
	id := g.builder.AllocID()

	if _, wrapped := g.resources[arg]; wrapped {
		g.fn.Add(OpArrayLength, typ, id, g.values[arg], 0)
		g.bind(inst, id)
		return
	}

	res, ok := arg.(*ir.InstructionResult)
	if ok && res.Source != nil && res.Source.Kind == ir.KindAccess && len(res.Source.Operands()) == 2 {
		base := res.Source.Operand(0)
		if idx, ok := res.Source.Operand(1).(*ir.Constant); ok {
			g.fn.Add(OpArrayLength, typ, id, g.pointer(base), idx.Bits)
			g.bind(inst, id)
			return
		}
	}

	g.fatalf("arrayLength of %v is not a runtime-sized struct member", arg.Type())
}
