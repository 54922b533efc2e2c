/*
Package report writes the run's output artifact.

Each worker contributes one line per hidden marker and one identity line.
The root adds a line per disposition, the global max and average, the hidden
total and the CPU time. Lines are plain text by default:

	Hi I'm worker 7QK2ZD with return arg 3. I found the hidden key in position A[412].
	Hi I'm worker 7QK2ZD with return arg 3 and my parent is run_01J9...
	Max = 50, Avg = 24.981233
	Hidden Nodes Total = 60

With the json format every line is a standalone object encoded with sonic.
Line order across workers follows scheduling and is not stable between runs.
*/
package report
