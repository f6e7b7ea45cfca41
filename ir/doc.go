// Package ir defines the block-based intermediate representation for tir.
//
// The IR is a structured control-flow graph:
//   - Values: Constants, InstructionResults and FunctionParams; every value
//     carries a type and a list of usages (def-use back references)
//   - Instructions: a flat Kind tag plus a kind-specific payload
//   - Blocks: ordered instruction lists ending in exactly one terminator
//   - Control instructions (If, Loop, Switch): terminate their parent block
//     and own a fixed topology of child blocks; execution resumes in the
//     construct's merge block
//
// # Structure
//
// Blocks live in an arena owned by the Module and are addressed by BlockID.
// Control payloads refer to their child blocks by ID, and every block keeps
// its inbound edges (the terminators that branch to it), so the cyclic graph
// formed by loop back-edges never holds owning pointer cycles.
//
// # Translation Pipeline
//
//	validated AST → wgsl.Lower → ir.Module → spirv.Generate / wgsl.Write
//
// Disassemble renders a Module to deterministic text for debugging and
// golden tests; Validate checks the structural invariants.
package ir
