// Package input materializes the array the worker tree runs over.
//
// Generate draws it from a seed. Write persists it as space-separated
// integers, the same text the tool has always produced, and Read loads it
// back so a run can be repeated on an identical array. Paths ending in .gz
// or .zst are compressed with klauspost/compress.
package input
