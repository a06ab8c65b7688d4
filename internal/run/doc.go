// Package run locates recorded fuzzing runs and reads their metadata.
//
// A run is a directory named "<engine>-<target>-<index>" that contains a
// metadata.json descriptor and the raw engine output under "fuzzer/".
package run
