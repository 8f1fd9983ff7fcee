// Package compiler translates the C-like source language into programs for
// the stack machine in package vm.
//
// Pipeline: source → Preprocess → Lex → Parse → Analyze → Generate → vm.Program
//
// Analysis never mutates the AST. It fills a Semantic side table keyed by the
// NodeIDs the parser hands out, and the generator reads both.
package compiler
