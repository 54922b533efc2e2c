// Package diagnostics prints the process tree at the run's checkpoints:
// start, spawned, each worker's resumed, and complete.
//
// Tree mode renders the pool in-process with each worker's state. Pstree mode
// shells out to pstree for the current pid; several workers can resume at
// once, so invocations go through a token bucket and the excess is dropped.
// Off prints nothing.
package diagnostics
