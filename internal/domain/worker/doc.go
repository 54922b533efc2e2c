/*
Package worker implements one member of the worker tree.

A worker owns a read-only view of one segment and moves through

	Spawned → Computing → Reported → Paused → {Resumed | Terminating} → Exited

While Computing it scans its segment once, emits a report line for every
hidden marker plus one identity line, and forwards the first two hidden values
on Channels.Markers. It then writes its Partial and hidden-count, closes those
channels, publishes Stopped(SIGTSTP) on its status channel and blocks on its
control channel.

The ancestor disposes of a paused worker by sending one Directive:

	{Continue}                     resume, run the "resumed" checkpoint, Exited(identity)
	{Continue, Terminate(relay)}   Signaled(sig)
	{Continue, Interrupt, Quit}    interrupt is acknowledged, then Exited(identity)

Commands received before any Continue are held until one arrives.

Nothing in the protocol has a deadline. A worker whose ancestor never sends a
directive stays Paused until its context ends, and an ancestor reading from a
worker that never writes blocks the same way. Callers bound both with the
context they pass in, which stands for process shutdown.
*/
package worker
