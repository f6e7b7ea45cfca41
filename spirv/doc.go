// Package spirv generates SPIR-V binaries from IR modules.
//
// # Generator
//
// Generate translates a whole module:
//
//	data, diags, err := spirv.Generate(ctx, module, spirv.DefaultOptions())
//
// Structured IR control maps directly onto SPIR-V structured control flow:
// an If becomes OpSelectionMerge plus OpBranchConditional, a Loop becomes a
// header block with OpLoopMerge, and a Switch becomes OpSelectionMerge plus
// OpSwitch. Arms that only exit the If branch straight to the merge block.
//
// Entry point parameters and results are carried by Input and Output
// variables. Uniform, storage and push constant variables are decorated as
// Blocks, wrapping non-struct store types in a single-member struct.
//
// An IR shape the generator does not know how to translate is an internal
// error: no binary is produced and the diagnostics list the offending
// shapes.
//
// # Binary Writer
//
// ModuleBuilder assembles instructions into the section order the SPIR-V
// logical layout requires:
//
//	b := spirv.NewModuleBuilder(spirv.Version1_3)
//	b.AddCapability(spirv.CapabilityShader)
//	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//	f32 := b.AllocID()
//	b.AddType(spirv.OpTypeFloat, f32, 32)
//	data := b.Build()
//
// # Disassembler
//
// Disassemble renders a binary as spirv-dis style text with numeric ids.
// It knows the opcodes the generator emits and prints others by number.
package spirv
