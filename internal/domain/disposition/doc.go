// Package disposition decides what happens to each paused worker.
//
// A Ranker compares a worker's hidden-count with its siblings' counts:
// equal to the running max is Rule 1 (continue), otherwise equal to the
// running min is Rule 3 (escalate), anything else is Rule 2 (relay). In
// online mode the comparison set grows as workers are disposed, so the first
// worker always sees only itself. Settled mode ranks against every sibling.
//
// The Controller drives one round per worker: wait for Stopped, read the
// count, rank, send the directive, wait for the exit. Status classes that do
// not fit the protocol are recorded as UnexpectedStatusError and the round
// goes on.
package disposition
