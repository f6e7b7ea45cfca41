package spirv

import (
	"encoding/binary"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode OpCode
	Words  []uint32 // result type ID, result ID, operands
}

// Encode returns the instruction words including the leading
// word count / opcode word.
func (i Instruction) Encode() []uint32 {
	out := make([]uint32, 0, len(i.Words)+1)
	out = append(out, uint32(len(i.Words)+1)<<16|uint32(i.Opcode))
	return append(out, i.Words...)
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) *InstructionBuilder {
	b.words = append(b.words, word)
	return b
}

// AddWords adds several words to the instruction.
func (b *InstructionBuilder) AddWords(words ...uint32) *InstructionBuilder {
	b.words = append(b.words, words...)
	return b
}

// AddString adds a null-terminated UTF-8 string padded to a word boundary.
func (b *InstructionBuilder) AddString(s string) *InstructionBuilder {
	b.words = append(b.words, stringWords(s)...)
	return b
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

func stringWords(s string) []uint32 {
	n := len(s)/4 + 1
	words := make([]uint32, n)
	for i := 0; i < len(s); i++ {
		words[i/4] |= uint32(s[i]) << (8 * uint(i%4))
	}
	return words
}

// Function is a function definition under construction. Variables of the
// entry block are collected separately since SPIR-V requires them to be
// the first instructions of the first block.
type Function struct {
	ID     uint32
	Header Instruction
	Params []Instruction
	Label  uint32
	Vars   []Instruction
	Body   []Instruction
}

// Add appends an instruction to the function body.
func (f *Function) Add(op OpCode, words ...uint32) {
	f.Body = append(f.Body, Instruction{Opcode: op, Words: words})
}

// Instructions returns the complete function in module order.
func (f *Function) Instructions() []Instruction {
	out := make([]Instruction, 0, len(f.Params)+len(f.Vars)+len(f.Body)+3)
	out = append(out, f.Header)
	out = append(out, f.Params...)
	out = append(out, Instruction{Opcode: OpLabel, Words: []uint32{f.Label}})
	out = append(out, f.Vars...)
	out = append(out, f.Body...)
	return append(out, Instruction{Opcode: OpFunctionEnd})
}

// ModuleBuilder assembles a SPIR-V module. Instructions are kept in
// per-section lists and written in the order the SPIR-V logical layout
// requires.
type ModuleBuilder struct {
	version   Version
	generator uint32
	nextID    uint32

	capabilities   []Instruction
	extensions     []Instruction
	extInstImports []Instruction
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debugNames     []Instruction
	annotations    []Instruction
	types          []Instruction // types, constants and module-scope variables
	functions      []Instruction

	capabilitySet map[Capability]bool
	extensionSet  map[string]bool
}

// NewModuleBuilder creates a new module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:       version,
		generator:     GeneratorID,
		nextID:        1,
		capabilitySet: make(map[Capability]bool),
		extensionSet:  make(map[string]bool),
	}
}

// SetGenerator sets the header generator word.
func (b *ModuleBuilder) SetGenerator(id uint32) { b.generator = id }

// AllocID allocates a new result ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns the ID bound: every allocated ID is below it.
func (b *ModuleBuilder) Bound() uint32 { return b.nextID }

// AddCapability declares a capability once.
func (b *ModuleBuilder) AddCapability(c Capability) {
	if b.capabilitySet[c] {
		return
	}
	b.capabilitySet[c] = true
	b.capabilities = append(b.capabilities, Instruction{Opcode: OpCapability, Words: []uint32{uint32(c)}})
}

// AddExtension declares an extension once.
func (b *ModuleBuilder) AddExtension(name string) {
	if b.extensionSet[name] {
		return
	}
	b.extensionSet[name] = true
	b.extensions = append(b.extensions, NewInstructionBuilder().AddString(name).Build(OpExtension))
}

// AddExtInstImport imports an extended instruction set and returns its ID.
func (b *ModuleBuilder) AddExtInstImport(name string) uint32 {
	id := b.AllocID()
	b.extInstImports = append(b.extInstImports, NewInstructionBuilder().AddWord(id).AddString(name).Build(OpExtInstImport))
	return id
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	inst := Instruction{Opcode: OpMemoryModel, Words: []uint32{uint32(addressing), uint32(memory)}}
	b.memoryModel = &inst
}

// AddEntryPoint adds an entry point with its interface variables.
func (b *ModuleBuilder) AddEntryPoint(model ExecutionModel, fn uint32, name string, interfaces []uint32) {
	ib := NewInstructionBuilder().AddWord(uint32(model)).AddWord(fn).AddString(name).AddWords(interfaces...)
	b.entryPoints = append(b.entryPoints, ib.Build(OpEntryPoint))
}

// AddExecutionMode adds an execution mode of an entry point.
func (b *ModuleBuilder) AddExecutionMode(fn uint32, mode ExecutionMode, params ...uint32) {
	ib := NewInstructionBuilder().AddWord(fn).AddWord(uint32(mode)).AddWords(params...)
	b.executionModes = append(b.executionModes, ib.Build(OpExecutionMode))
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	b.debugNames = append(b.debugNames, NewInstructionBuilder().AddWord(id).AddString(name).Build(OpName))
}

// AddMemberName adds a debug name for a struct member.
func (b *ModuleBuilder) AddMemberName(structID, member uint32, name string) {
	ib := NewInstructionBuilder().AddWord(structID).AddWord(member).AddString(name)
	b.debugNames = append(b.debugNames, ib.Build(OpMemberName))
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration Decoration, params ...uint32) {
	ib := NewInstructionBuilder().AddWord(id).AddWord(uint32(decoration)).AddWords(params...)
	b.annotations = append(b.annotations, ib.Build(OpDecorate))
}

// AddMemberDecorate adds a member decoration.
func (b *ModuleBuilder) AddMemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	ib := NewInstructionBuilder().AddWord(structID).AddWord(member).AddWord(uint32(decoration)).AddWords(params...)
	b.annotations = append(b.annotations, ib.Build(OpMemberDecorate))
}

// AddType appends a type or constant declaration. The result ID is part
// of words.
func (b *ModuleBuilder) AddType(op OpCode, words ...uint32) {
	b.types = append(b.types, Instruction{Opcode: op, Words: words})
}

// AddVariable adds a module-scope OpVariable and returns its ID.
// init is 0 for variables without an initializer.
func (b *ModuleBuilder) AddVariable(pointerType uint32, class StorageClass, init uint32) uint32 {
	id := b.AllocID()
	words := []uint32{pointerType, id, uint32(class)}
	if init != 0 {
		words = append(words, init)
	}
	b.types = append(b.types, Instruction{Opcode: OpVariable, Words: words})
	return id
}

// AddFunction appends a finished function definition.
func (b *ModuleBuilder) AddFunction(f *Function) {
	b.functions = append(b.functions, f.Instructions()...)
}

// sections returns every instruction of the module in layout order.
func (b *ModuleBuilder) sections() [][]Instruction {
	var mm []Instruction
	if b.memoryModel != nil {
		mm = []Instruction{*b.memoryModel}
	}
	return [][]Instruction{
		b.capabilities,
		b.extensions,
		b.extInstImports,
		mm,
		b.entryPoints,
		b.executionModes,
		b.debugNames,
		b.annotations,
		b.types,
		b.functions,
	}
}

// Words returns the module as SPIR-V words, header included.
func (b *ModuleBuilder) Words() []uint32 {
	words := []uint32{MagicNumber, b.version.Word(), b.generator, b.Bound(), 0}
	for _, section := range b.sections() {
		for _, inst := range section {
			words = append(words, inst.Encode()...)
		}
	}
	return words
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() []byte {
	words := b.Words()
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}
