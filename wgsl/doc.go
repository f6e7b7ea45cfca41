// Package wgsl converts between WGSL programs and tir IR.
//
// The input side is a validated AST: every expression carries its resolved
// type and every identifier points at its declaration. Parsing and semantic
// analysis happen before this package is involved.
//
// # Lowering
//
// Lower builds an ir.Module from an AST module:
//
//	m, diags, err := wgsl.Lower(ctx, ast)
//	if err != nil {
//	    return errors.Wrap(err, "lower")
//	}
//
// Statements after a return, break or continue in the same block are
// dropped. If and switch merge blocks that no path reaches are closed with
// an unreachable instruction. Unknown AST nodes produce warnings; misplaced
// break, continue or fallthrough statements abort lowering with an internal
// error diagnostic.
//
// # Writing
//
// Write raises IR back to WGSL text. Values used once are written inline,
// other values are bound to lets. Loops are written as for or while loops
// when their shape allows it:
//
//	for(var i : i32 = 0i; (i < 5i); i = (i + 1i)) { }
package wgsl
