package spirv

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
	"tlog.app/go/errors"
)

// Header is the five-word SPIR-V module header.
type Header struct {
	Magic     uint32
	Version   Version
	Generator uint32
	Bound     uint32
	Schema    uint32
}

var (
	capabilityNames = map[uint32]string{
		uint32(CapabilityMatrix):            "Matrix",
		uint32(CapabilityShader):            "Shader",
		uint32(CapabilityFloat16):           "Float16",
		uint32(CapabilitySampleRateShading): "SampleRateShading",
		uint32(CapabilitySampled1D):         "Sampled1D",
		uint32(CapabilityStorageBuffer16):   "StorageBuffer16BitAccess",
	}

	storageClassNames = map[uint32]string{
		uint32(StorageClassUniformConstant): "UniformConstant",
		uint32(StorageClassInput):           "Input",
		uint32(StorageClassUniform):         "Uniform",
		uint32(StorageClassOutput):          "Output",
		uint32(StorageClassWorkgroup):       "Workgroup",
		uint32(StorageClassPrivate):         "Private",
		uint32(StorageClassFunction):        "Function",
		uint32(StorageClassPushConstant):    "PushConstant",
		uint32(StorageClassStorageBuffer):   "StorageBuffer",
	}

	decorationNames = map[uint32]string{
		uint32(DecorationBlock):         "Block",
		uint32(DecorationRowMajor):      "RowMajor",
		uint32(DecorationColMajor):      "ColMajor",
		uint32(DecorationArrayStride):   "ArrayStride",
		uint32(DecorationMatrixStride):  "MatrixStride",
		uint32(DecorationBuiltIn):       "BuiltIn",
		uint32(DecorationFlat):          "Flat",
		uint32(DecorationNonWritable):   "NonWritable",
		uint32(DecorationNonReadable):   "NonReadable",
		uint32(DecorationLocation):      "Location",
		uint32(DecorationBinding):       "Binding",
		uint32(DecorationDescriptorSet): "DescriptorSet",
		uint32(DecorationOffset):        "Offset",
	}

	builtInNames = map[uint32]string{
		uint32(BuiltInPosition):             "Position",
		uint32(BuiltInFragCoord):            "FragCoord",
		uint32(BuiltInFrontFacing):          "FrontFacing",
		uint32(BuiltInSampleID):             "SampleId",
		uint32(BuiltInFragDepth):            "FragDepth",
		uint32(BuiltInNumWorkgroups):        "NumWorkgroups",
		uint32(BuiltInWorkgroupID):          "WorkgroupId",
		uint32(BuiltInLocalInvocationID):    "LocalInvocationId",
		uint32(BuiltInGlobalInvocationID):   "GlobalInvocationId",
		uint32(BuiltInLocalInvocationIndex): "LocalInvocationIndex",
		uint32(BuiltInVertexIndex):          "VertexIndex",
		uint32(BuiltInInstanceIndex):        "InstanceIndex",
	}

	executionModelNames = map[uint32]string{
		uint32(ExecutionModelVertex):    "Vertex",
		uint32(ExecutionModelFragment):  "Fragment",
		uint32(ExecutionModelGLCompute): "GLCompute",
	}

	executionModeNames = map[uint32]string{
		uint32(ExecutionModeOriginUpperLeft): "OriginUpperLeft",
		uint32(ExecutionModeDepthReplacing):  "DepthReplacing",
		uint32(ExecutionModeLocalSize):       "LocalSize",
	}

	addressingModelNames = map[uint32]string{
		uint32(AddressingModelLogical): "Logical",
	}

	memoryModelNames = map[uint32]string{
		uint32(MemoryModelSimple):  "Simple",
		uint32(MemoryModelGLSL450): "GLSL450",
		uint32(MemoryModelVulkan):  "Vulkan",
	}

	dimNames = map[uint32]string{
		uint32(Dim1D):   "1D",
		uint32(Dim2D):   "2D",
		uint32(Dim3D):   "3D",
		uint32(DimCube): "Cube",
	}
)

// Decode splits a SPIR-V binary into its header and instructions. Both
// byte orders are accepted.
func Decode(data []byte) (Header, []Instruction, error) {
	var h Header

	if len(data)%4 != 0 {
		return h, nil, errors.New("binary size %d is not a multiple of 4", len(data))
	}
	if len(data) < 20 {
		return h, nil, errors.New("binary too short for a header: %d bytes", len(data))
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case binary.LittleEndian.Uint32(data) == MagicNumber:
	case binary.BigEndian.Uint32(data) == MagicNumber:
		order = binary.BigEndian
	default:
		return h, nil, errors.New("bad magic number %#08x", binary.LittleEndian.Uint32(data))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[4*i:])
	}

	h = Header{
		Magic:     words[0],
		Version:   Version{Major: uint8(words[1] >> 16), Minor: uint8(words[1] >> 8)},
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}

	var insts []Instruction
	for pos := 5; pos < len(words); {
		count := int(words[pos] >> 16)
		op := OpCode(words[pos] & 0xffff)

		if count == 0 {
			return h, nil, errors.New("word %d: %v with zero word count", pos, op)
		}
		if pos+count > len(words) {
			return h, nil, errors.New("word %d: %v overruns the binary", pos, op)
		}

		insts = append(insts, Instruction{Opcode: op, Words: words[pos+1 : pos+count]})
		pos += count
	}

	return h, insts, nil
}

// Disassemble renders a SPIR-V binary as text, one instruction per line,
// in the style of spirv-dis with numeric ids.
func Disassemble(data []byte) (string, error) {
	h, insts, err := Decode(data)
	if err != nil {
		return "", errors.Wrap(err, "decode")
	}

	d := disassembler{floats: map[uint32]uint32{}}

	d.b.WriteString("; SPIR-V\n")
	d.b.WriteString("; Version: " + h.Version.String() + "\n")
	d.b.WriteString("; Generator: " + strconv.FormatUint(uint64(h.Generator), 10) + "\n")
	d.b.WriteString("; Bound: " + strconv.FormatUint(uint64(h.Bound), 10) + "\n")
	d.b.WriteString("; Schema: " + strconv.FormatUint(uint64(h.Schema), 10) + "\n")

	for _, inst := range insts {
		d.instruction(inst)
	}

	return d.b.String(), nil
}

type disassembler struct {
	b strings.Builder

	// floats maps float type ids to their width.
	floats map[uint32]uint32
}

func (d *disassembler) instruction(inst Instruction) {
	info, known := opInfos[inst.Opcode]
	words := inst.Words

	if !known {
		d.b.WriteString("               " + inst.Opcode.String())
		for _, w := range words {
			d.b.WriteString(" " + strconv.FormatUint(uint64(w), 10))
		}
		d.b.WriteByte('\n')
		return
	}

	var typeID uint32
	if info.Type && len(words) > 0 {
		typeID, words = words[0], words[1:]
	}

	if info.Result && len(words) > 0 {
		id := "%" + strconv.FormatUint(uint64(words[0]), 10)
		if pad := 12 - len(id); pad > 0 {
			d.b.WriteString(strings.Repeat(" ", pad))
		}
		d.b.WriteString(id + " = ")
		if inst.Opcode == OpTypeFloat && len(words) > 1 {
			d.floats[words[0]] = words[1]
		}
		words = words[1:]
	} else {
		d.b.WriteString("               ")
	}

	d.b.WriteString(info.Name)
	if info.Type {
		d.b.WriteString(" %" + strconv.FormatUint(uint64(typeID), 10))
	}

	if inst.Opcode == OpConstant {
		d.constant(typeID, words)
	} else {
		d.operands(info.Operands, words)
	}

	d.b.WriteByte('\n')
}

func (d *disassembler) constant(typeID uint32, words []uint32) {
	if len(words) != 1 {
		d.operands("n*", words)
		return
	}

	switch d.floats[typeID] {
	case 32:
		d.b.WriteString(" " + strconv.FormatFloat(float64(math.Float32frombits(words[0])), 'g', -1, 32))
	case 16:
		d.b.WriteString(" " + strconv.FormatFloat(float64(float16.Frombits(uint16(words[0])).Float32()), 'g', -1, 32))
	default:
		d.b.WriteString(" " + strconv.FormatUint(uint64(words[0]), 10))
	}
}

//nolint:gocyclo // one case per operand kind
func (d *disassembler) operands(pattern string, words []uint32) {
	pi := 0

	for len(words) > 0 {
		kind := byte('n')
		if pi < len(pattern) {
			kind = pattern[pi]
			if pi+1 >= len(pattern) || pattern[pi+1] != '*' {
				pi++
			}
		}

		switch kind {
		case 'i':
			d.b.WriteString(" %" + strconv.FormatUint(uint64(words[0]), 10))
			words = words[1:]
		case 's':
			s, n := decodeString(words)
			d.b.WriteString(" " + strconv.Quote(s))
			words = words[n:]
		case 'D':
			dec := words[0]
			d.b.WriteString(" " + enumName(decorationNames, dec))
			words = words[1:]
			if dec == uint32(DecorationBuiltIn) && len(words) > 0 {
				d.b.WriteString(" " + enumName(builtInNames, words[0]))
				words = words[1:]
			}
		case 'p':
			d.b.WriteString(" " + strconv.FormatUint(uint64(words[0]), 10))
			words = words[1:]
			if len(words) > 0 {
				d.b.WriteString(" %" + strconv.FormatUint(uint64(words[0]), 10))
				words = words[1:]
			}
		case 'G':
			d.b.WriteString(" " + enumName(glslNames, words[0]))
			words = words[1:]
		case 'C':
			d.b.WriteString(" " + enumName(capabilityNames, words[0]))
			words = words[1:]
		case 'S':
			d.b.WriteString(" " + enumName(storageClassNames, words[0]))
			words = words[1:]
		case 'E':
			d.b.WriteString(" " + enumName(executionModelNames, words[0]))
			words = words[1:]
		case 'M':
			d.b.WriteString(" " + enumName(executionModeNames, words[0]))
			words = words[1:]
		case 'A':
			d.b.WriteString(" " + enumName(addressingModelNames, words[0]))
			words = words[1:]
		case 'm':
			d.b.WriteString(" " + enumName(memoryModelNames, words[0]))
			words = words[1:]
		case 'd':
			d.b.WriteString(" " + enumName(dimNames, words[0]))
			words = words[1:]
		case 'F', 'L':
			if words[0] == 0 {
				d.b.WriteString(" None")
			} else {
				d.b.WriteString(" " + strconv.FormatUint(uint64(words[0]), 10))
			}
			words = words[1:]
		default:
			d.b.WriteString(" " + strconv.FormatUint(uint64(words[0]), 10))
			words = words[1:]
		}
	}
}

func enumName(names map[uint32]string, v uint32) string {
	if n, ok := names[v]; ok {
		return n
	}
	return strconv.FormatUint(uint64(v), 10)
}

// decodeString decodes a nul-terminated literal string and returns the
// number of words it occupies.
func decodeString(words []uint32) (string, int) {
	var b []byte
	for n, w := range words {
		for i := 0; i < 4; i++ {
			c := byte(w >> (8 * i))
			if c == 0 {
				return string(b), n + 1
			}
			b = append(b, c)
		}
	}
	return string(b), len(words)
}
