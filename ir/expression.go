package ir

// BinaryOp is the operator of a Binary instruction.
type BinaryOp uint8

const (
	// Arithmetic
	BinaryAdd      BinaryOp = iota // Addition
	BinarySubtract                 // Subtraction
	BinaryMultiply                 // Multiplication
	BinaryDivide                   // Division
	BinaryModulo                   // Remainder

	// Comparison
	BinaryEqual        // ==
	BinaryNotEqual     // !=
	BinaryLess         // <
	BinaryLessEqual    // <=
	BinaryGreater      // >
	BinaryGreaterEqual // >=

	// Bitwise
	BinaryAnd         // &
	BinaryExclusiveOr // ^
	BinaryInclusiveOr // |

	// Logical
	BinaryLogicalAnd // &&
	BinaryLogicalOr  // ||

	// Shift
	BinaryShiftLeft  // <<
	BinaryShiftRight // >> (arithmetic for signed, logical for unsigned)
)

var binaryOpNames = [...]string{
	BinaryAdd:          "add",
	BinarySubtract:     "sub",
	BinaryMultiply:     "mul",
	BinaryDivide:       "div",
	BinaryModulo:       "mod",
	BinaryEqual:        "eq",
	BinaryNotEqual:     "neq",
	BinaryLess:         "lt",
	BinaryLessEqual:    "lte",
	BinaryGreater:      "gt",
	BinaryGreaterEqual: "gte",
	BinaryAnd:          "and",
	BinaryExclusiveOr:  "xor",
	BinaryInclusiveOr:  "or",
	BinaryLogicalAnd:   "logical_and",
	BinaryLogicalOr:    "logical_or",
	BinaryShiftLeft:    "shl",
	BinaryShiftRight:   "shr",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "binary?"
}

// IsComparison reports whether the operator yields a bool result.
func (op BinaryOp) IsComparison() bool {
	return op >= BinaryEqual && op <= BinaryGreaterEqual
}

// UnaryOp is the operator of a Unary instruction.
type UnaryOp uint8

const (
	UnaryNegate     UnaryOp = iota // Arithmetic negation
	UnaryLogicalNot                // !
	UnaryBitwiseNot                // ~
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNegate:
		return "negation"
	case UnaryLogicalNot:
		return "not"
	case UnaryBitwiseNot:
		return "complement"
	}
	return "unary?"
}

// BuiltinFunc is a builtin function called by a BuiltinCall instruction.
type BuiltinFunc uint8

const (
	BuiltinNone BuiltinFunc = iota

	// Component-wise math
	BuiltinAbs
	BuiltinMin
	BuiltinMax
	BuiltinClamp
	BuiltinFloor
	BuiltinCeil
	BuiltinFract
	BuiltinSqrt
	BuiltinInverseSqrt
	BuiltinSin
	BuiltinCos
	BuiltinExp
	BuiltinLog
	BuiltinPow
	BuiltinMix
	BuiltinStep
	BuiltinSmoothstep

	// Geometric
	BuiltinDot
	BuiltinCross
	BuiltinLength
	BuiltinDistance
	BuiltinNormalize

	// Relational
	BuiltinSelect
	BuiltinAny
	BuiltinAll

	// Texture
	BuiltinTextureSample

	// Synchronization
	BuiltinWorkgroupBarrier
	BuiltinStorageBarrier

	// Array
	BuiltinArrayLength
)

var builtinNames = [...]string{
	BuiltinNone:             "none",
	BuiltinAbs:              "abs",
	BuiltinMin:              "min",
	BuiltinMax:              "max",
	BuiltinClamp:            "clamp",
	BuiltinFloor:            "floor",
	BuiltinCeil:             "ceil",
	BuiltinFract:            "fract",
	BuiltinSqrt:             "sqrt",
	BuiltinInverseSqrt:      "inverseSqrt",
	BuiltinSin:              "sin",
	BuiltinCos:              "cos",
	BuiltinExp:              "exp",
	BuiltinLog:              "log",
	BuiltinPow:              "pow",
	BuiltinMix:              "mix",
	BuiltinStep:             "step",
	BuiltinSmoothstep:       "smoothstep",
	BuiltinDot:              "dot",
	BuiltinCross:            "cross",
	BuiltinLength:           "length",
	BuiltinDistance:         "distance",
	BuiltinNormalize:        "normalize",
	BuiltinSelect:           "select",
	BuiltinAny:              "any",
	BuiltinAll:              "all",
	BuiltinTextureSample:    "textureSample",
	BuiltinWorkgroupBarrier: "workgroupBarrier",
	BuiltinStorageBarrier:   "storageBarrier",
	BuiltinArrayLength:      "arrayLength",
}

func (f BuiltinFunc) String() string {
	if int(f) < len(builtinNames) {
		return builtinNames[f]
	}
	return "builtin?"
}

// LookupBuiltin returns the builtin function with the given WGSL name.
func LookupBuiltin(name string) (BuiltinFunc, bool) {
	for i, n := range builtinNames {
		if i != int(BuiltinNone) && n == name {
			return BuiltinFunc(i), true
		}
	}
	return BuiltinNone, false
}
