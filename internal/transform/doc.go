// Package transform holds the whole-stream rewrites the export pipeline runs
// in configuration order: filtering to transactions, tidying postings and
// renaming accounts or commodities. Each Transform receives the complete
// output of the previous stage and returns a new stream; the input stream is
// never mutated.
package transform
