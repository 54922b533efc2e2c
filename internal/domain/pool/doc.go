/*
Package pool runs the worker tree end to end.

New validates the array and options, plans eight segments and allocates the
channels of the seven workers; any failure there is a *StartupError whose
ExitCode distinguishes bad arguments (2), channel allocation (3) and worker
construction (4). Run then:

 1. builds every worker, issuing identities 2..8 from an atomic sequence
    (the root holds 1)
 2. starts them under an errgroup
 3. in settled ranking mode, reads every hidden-count up front
 4. disposes of each worker in index order through a disposition.Controller
 5. reads each worker's partial and forwarded markers
 6. scans the root segment and aggregates

Global max is the max over all partials, hidden total is the sum of the
hidden-counts, and the average is taken over regular values only. None of
these depend on the order in which workers finish.
*/
package pool
