// Package main provides the entry point for the fuzznorm CLI.
//
// fuzznorm normalizes the raw output of API fuzzing engines into one
// result schema per test case.
//
// Usage:
//
//	fuzznorm parse-fuzzers-output <in-dir> <out-dir>
//	fuzznorm summary
//
// See --help for all available options.
package main

import (
	_ "go.uber.org/automaxprocs"
)

// main is the entry point for fuzznorm.
func main() {
	Execute()
}
