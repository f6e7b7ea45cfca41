package spirv

import "strconv"

// OpCode represents a SPIR-V opcode.
type OpCode uint16

const (
	OpNop                    OpCode = 0
	OpUndef                  OpCode = 1
	OpSource                 OpCode = 3
	OpName                   OpCode = 5
	OpMemberName             OpCode = 6
	OpString                 OpCode = 7
	OpExtension              OpCode = 10
	OpExtInstImport          OpCode = 11
	OpExtInst                OpCode = 12
	OpMemoryModel            OpCode = 14
	OpEntryPoint             OpCode = 15
	OpExecutionMode          OpCode = 16
	OpCapability             OpCode = 17
	OpTypeVoid               OpCode = 19
	OpTypeBool               OpCode = 20
	OpTypeInt                OpCode = 21
	OpTypeFloat              OpCode = 22
	OpTypeVector             OpCode = 23
	OpTypeMatrix             OpCode = 24
	OpTypeImage              OpCode = 25
	OpTypeSampler            OpCode = 26
	OpTypeSampledImage       OpCode = 27
	OpTypeArray              OpCode = 28
	OpTypeRuntimeArray       OpCode = 29
	OpTypeStruct             OpCode = 30
	OpTypePointer            OpCode = 32
	OpTypeFunction           OpCode = 33
	OpConstantTrue           OpCode = 41
	OpConstantFalse          OpCode = 42
	OpConstant               OpCode = 43
	OpConstantComposite      OpCode = 44
	OpConstantNull           OpCode = 46
	OpFunction               OpCode = 54
	OpFunctionParameter      OpCode = 55
	OpFunctionEnd            OpCode = 56
	OpFunctionCall           OpCode = 57
	OpVariable               OpCode = 59
	OpLoad                   OpCode = 61
	OpStore                  OpCode = 62
	OpAccessChain            OpCode = 65
	OpArrayLength            OpCode = 68
	OpDecorate               OpCode = 71
	OpMemberDecorate         OpCode = 72
	OpVectorExtractDynamic   OpCode = 77
	OpVectorShuffle          OpCode = 79
	OpCompositeConstruct     OpCode = 80
	OpCompositeExtract       OpCode = 81
	OpCopyObject             OpCode = 83
	OpSampledImage           OpCode = 86
	OpImageSampleImplicitLod OpCode = 87
	OpConvertFToU            OpCode = 109
	OpConvertFToS            OpCode = 110
	OpConvertSToF            OpCode = 111
	OpConvertUToF            OpCode = 112
	OpFConvert               OpCode = 115
	OpBitcast                OpCode = 124
	OpSNegate                OpCode = 126
	OpFNegate                OpCode = 127
	OpIAdd                   OpCode = 128
	OpFAdd                   OpCode = 129
	OpISub                   OpCode = 130
	OpFSub                   OpCode = 131
	OpIMul                   OpCode = 132
	OpFMul                   OpCode = 133
	OpUDiv                   OpCode = 134
	OpSDiv                   OpCode = 135
	OpFDiv                   OpCode = 136
	OpUMod                   OpCode = 137
	OpSRem                   OpCode = 138
	OpFRem                   OpCode = 140
	OpVectorTimesScalar      OpCode = 142
	OpMatrixTimesScalar      OpCode = 143
	OpVectorTimesMatrix      OpCode = 144
	OpMatrixTimesVector      OpCode = 145
	OpMatrixTimesMatrix      OpCode = 146
	OpDot                    OpCode = 148
	OpAny                    OpCode = 154
	OpAll                    OpCode = 155
	OpLogicalEqual           OpCode = 164
	OpLogicalNotEqual        OpCode = 165
	OpLogicalOr              OpCode = 166
	OpLogicalAnd             OpCode = 167
	OpLogicalNot             OpCode = 168
	OpSelect                 OpCode = 169
	OpIEqual                 OpCode = 170
	OpINotEqual              OpCode = 171
	OpUGreaterThan           OpCode = 172
	OpSGreaterThan           OpCode = 173
	OpUGreaterThanEqual      OpCode = 174
	OpSGreaterThanEqual      OpCode = 175
	OpULessThan              OpCode = 176
	OpSLessThan              OpCode = 177
	OpULessThanEqual         OpCode = 178
	OpSLessThanEqual         OpCode = 179
	OpFOrdEqual              OpCode = 180
	OpFOrdNotEqual           OpCode = 182
	OpFOrdLessThan           OpCode = 184
	OpFOrdGreaterThan        OpCode = 186
	OpFOrdLessThanEqual      OpCode = 188
	OpFOrdGreaterThanEqual   OpCode = 190
	OpShiftRightLogical      OpCode = 194
	OpShiftRightArithmetic   OpCode = 195
	OpShiftLeftLogical       OpCode = 196
	OpBitwiseOr              OpCode = 197
	OpBitwiseXor             OpCode = 198
	OpBitwiseAnd             OpCode = 199
	OpNot                    OpCode = 200
	OpControlBarrier         OpCode = 224
	OpLoopMerge              OpCode = 246
	OpSelectionMerge         OpCode = 247
	OpLabel                  OpCode = 248
	OpBranch                 OpCode = 249
	OpBranchConditional      OpCode = 250
	OpSwitch                 OpCode = 251
	OpKill                   OpCode = 252
	OpReturn                 OpCode = 253
	OpReturnValue            OpCode = 254
	OpUnreachable            OpCode = 255
)

// opInfo describes the operand layout of an opcode for the disassembler.
//
// Operands is a pattern with one letter per operand:
//
//	i  id            n  literal number    s  literal string
//	C  capability    S  storage class     D  decoration and its literals
//	E  exec model    M  exec mode         A  addressing model
//	m  memory model  F  function control  L  selection or loop control
//	G  GLSL.std.450 instruction           d  image dim
//	p  switch (literal, label) pair
//
// A trailing '*' repeats the previous letter until the words run out.
type opInfo struct {
	Name     string
	Type     bool
	Result   bool
	Operands string
}

var opInfos = map[OpCode]opInfo{
	OpNop:                    {"OpNop", false, false, ""},
	OpUndef:                  {"OpUndef", true, true, ""},
	OpSource:                 {"OpSource", false, false, "nn"},
	OpName:                   {"OpName", false, false, "is"},
	OpMemberName:             {"OpMemberName", false, false, "ins"},
	OpString:                 {"OpString", false, true, "s"},
	OpExtension:              {"OpExtension", false, false, "s"},
	OpExtInstImport:          {"OpExtInstImport", false, true, "s"},
	OpExtInst:                {"OpExtInst", true, true, "iGi*"},
	OpMemoryModel:            {"OpMemoryModel", false, false, "Am"},
	OpEntryPoint:             {"OpEntryPoint", false, false, "Eisi*"},
	OpExecutionMode:          {"OpExecutionMode", false, false, "iMn*"},
	OpCapability:             {"OpCapability", false, false, "C"},
	OpTypeVoid:               {"OpTypeVoid", false, true, ""},
	OpTypeBool:               {"OpTypeBool", false, true, ""},
	OpTypeInt:                {"OpTypeInt", false, true, "nn"},
	OpTypeFloat:              {"OpTypeFloat", false, true, "n"},
	OpTypeVector:             {"OpTypeVector", false, true, "in"},
	OpTypeMatrix:             {"OpTypeMatrix", false, true, "in"},
	OpTypeImage:              {"OpTypeImage", false, true, "idnnnnn"},
	OpTypeSampler:            {"OpTypeSampler", false, true, ""},
	OpTypeSampledImage:       {"OpTypeSampledImage", false, true, "i"},
	OpTypeArray:              {"OpTypeArray", false, true, "ii"},
	OpTypeRuntimeArray:       {"OpTypeRuntimeArray", false, true, "i"},
	OpTypeStruct:             {"OpTypeStruct", false, true, "i*"},
	OpTypePointer:            {"OpTypePointer", false, true, "Si"},
	OpTypeFunction:           {"OpTypeFunction", false, true, "ii*"},
	OpConstantTrue:           {"OpConstantTrue", true, true, ""},
	OpConstantFalse:          {"OpConstantFalse", true, true, ""},
	OpConstant:               {"OpConstant", true, true, "n*"},
	OpConstantComposite:      {"OpConstantComposite", true, true, "i*"},
	OpConstantNull:           {"OpConstantNull", true, true, ""},
	OpFunction:               {"OpFunction", true, true, "Fi"},
	OpFunctionParameter:      {"OpFunctionParameter", true, true, ""},
	OpFunctionEnd:            {"OpFunctionEnd", false, false, ""},
	OpFunctionCall:           {"OpFunctionCall", true, true, "ii*"},
	OpVariable:               {"OpVariable", true, true, "Si*"},
	OpLoad:                   {"OpLoad", true, true, "i"},
	OpStore:                  {"OpStore", false, false, "ii"},
	OpAccessChain:            {"OpAccessChain", true, true, "ii*"},
	OpArrayLength:            {"OpArrayLength", true, true, "in"},
	OpDecorate:               {"OpDecorate", false, false, "iD"},
	OpMemberDecorate:         {"OpMemberDecorate", false, false, "inD"},
	OpVectorExtractDynamic:   {"OpVectorExtractDynamic", true, true, "ii"},
	OpVectorShuffle:          {"OpVectorShuffle", true, true, "iin*"},
	OpCompositeConstruct:     {"OpCompositeConstruct", true, true, "i*"},
	OpCompositeExtract:       {"OpCompositeExtract", true, true, "in*"},
	OpCopyObject:             {"OpCopyObject", true, true, "i"},
	OpSampledImage:           {"OpSampledImage", true, true, "ii"},
	OpImageSampleImplicitLod: {"OpImageSampleImplicitLod", true, true, "iin*"},
	OpConvertFToU:            {"OpConvertFToU", true, true, "i"},
	OpConvertFToS:            {"OpConvertFToS", true, true, "i"},
	OpConvertSToF:            {"OpConvertSToF", true, true, "i"},
	OpConvertUToF:            {"OpConvertUToF", true, true, "i"},
	OpFConvert:               {"OpFConvert", true, true, "i"},
	OpBitcast:                {"OpBitcast", true, true, "i"},
	OpSNegate:                {"OpSNegate", true, true, "i"},
	OpFNegate:                {"OpFNegate", true, true, "i"},
	OpIAdd:                   {"OpIAdd", true, true, "ii"},
	OpFAdd:                   {"OpFAdd", true, true, "ii"},
	OpISub:                   {"OpISub", true, true, "ii"},
	OpFSub:                   {"OpFSub", true, true, "ii"},
	OpIMul:                   {"OpIMul", true, true, "ii"},
	OpFMul:                   {"OpFMul", true, true, "ii"},
	OpUDiv:                   {"OpUDiv", true, true, "ii"},
	OpSDiv:                   {"OpSDiv", true, true, "ii"},
	OpFDiv:                   {"OpFDiv", true, true, "ii"},
	OpUMod:                   {"OpUMod", true, true, "ii"},
	OpSRem:                   {"OpSRem", true, true, "ii"},
	OpFRem:                   {"OpFRem", true, true, "ii"},
	OpVectorTimesScalar:      {"OpVectorTimesScalar", true, true, "ii"},
	OpMatrixTimesScalar:      {"OpMatrixTimesScalar", true, true, "ii"},
	OpVectorTimesMatrix:      {"OpVectorTimesMatrix", true, true, "ii"},
	OpMatrixTimesVector:      {"OpMatrixTimesVector", true, true, "ii"},
	OpMatrixTimesMatrix:      {"OpMatrixTimesMatrix", true, true, "ii"},
	OpDot:                    {"OpDot", true, true, "ii"},
	OpAny:                    {"OpAny", true, true, "i"},
	OpAll:                    {"OpAll", true, true, "i"},
	OpLogicalEqual:           {"OpLogicalEqual", true, true, "ii"},
	OpLogicalNotEqual:        {"OpLogicalNotEqual", true, true, "ii"},
	OpLogicalOr:              {"OpLogicalOr", true, true, "ii"},
	OpLogicalAnd:             {"OpLogicalAnd", true, true, "ii"},
	OpLogicalNot:             {"OpLogicalNot", true, true, "i"},
	OpSelect:                 {"OpSelect", true, true, "iii"},
	OpIEqual:                 {"OpIEqual", true, true, "ii"},
	OpINotEqual:              {"OpINotEqual", true, true, "ii"},
	OpUGreaterThan:           {"OpUGreaterThan", true, true, "ii"},
	OpSGreaterThan:           {"OpSGreaterThan", true, true, "ii"},
	OpUGreaterThanEqual:      {"OpUGreaterThanEqual", true, true, "ii"},
	OpSGreaterThanEqual:      {"OpSGreaterThanEqual", true, true, "ii"},
	OpULessThan:              {"OpULessThan", true, true, "ii"},
	OpSLessThan:              {"OpSLessThan", true, true, "ii"},
	OpULessThanEqual:         {"OpULessThanEqual", true, true, "ii"},
	OpSLessThanEqual:         {"OpSLessThanEqual", true, true, "ii"},
	OpFOrdEqual:              {"OpFOrdEqual", true, true, "ii"},
	OpFOrdNotEqual:           {"OpFOrdNotEqual", true, true, "ii"},
	OpFOrdLessThan:           {"OpFOrdLessThan", true, true, "ii"},
	OpFOrdGreaterThan:        {"OpFOrdGreaterThan", true, true, "ii"},
	OpFOrdLessThanEqual:      {"OpFOrdLessThanEqual", true, true, "ii"},
	OpFOrdGreaterThanEqual:   {"OpFOrdGreaterThanEqual", true, true, "ii"},
	OpShiftRightLogical:      {"OpShiftRightLogical", true, true, "ii"},
	OpShiftRightArithmetic:   {"OpShiftRightArithmetic", true, true, "ii"},
	OpShiftLeftLogical:       {"OpShiftLeftLogical", true, true, "ii"},
	OpBitwiseOr:              {"OpBitwiseOr", true, true, "ii"},
	OpBitwiseXor:             {"OpBitwiseXor", true, true, "ii"},
	OpBitwiseAnd:             {"OpBitwiseAnd", true, true, "ii"},
	OpNot:                    {"OpNot", true, true, "i"},
	OpControlBarrier:         {"OpControlBarrier", false, false, "iii"},
	OpLoopMerge:              {"OpLoopMerge", false, false, "iiL"},
	OpSelectionMerge:         {"OpSelectionMerge", false, false, "iL"},
	OpLabel:                  {"OpLabel", false, true, ""},
	OpBranch:                 {"OpBranch", false, false, "i"},
	OpBranchConditional:      {"OpBranchConditional", false, false, "iii"},
	OpSwitch:                 {"OpSwitch", false, false, "iip*"},
	OpKill:                   {"OpKill", false, false, ""},
	OpReturn:                 {"OpReturn", false, false, ""},
	OpReturnValue:            {"OpReturnValue", false, false, "i"},
	OpUnreachable:            {"OpUnreachable", false, false, ""},
}

// String returns the opcode name, or Op<n> for opcodes without a name.
func (op OpCode) String() string {
	if info, ok := opInfos[op]; ok {
		return info.Name
	}
	return "Op" + strconv.Itoa(int(op))
}

// HasResult reports whether instructions with this opcode define a result
// id, and at which operand position it is.
func (op OpCode) HasResult() (pos int, ok bool) {
	info, ok := opInfos[op]
	if !ok || !info.Result {
		return 0, false
	}
	if info.Type {
		return 1, true
	}
	return 0, true
}
