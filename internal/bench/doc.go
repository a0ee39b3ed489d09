// Package bench runs an external executable under a sequence of thread-count
// configurations and records the fastest wall-clock time of each.
//
// A run is strictly sequential: for every thread count the executable is
// started [Plan.Repetitions] times, one after another, from the test
// directory with the thread-count environment variable set. Each completed
// configuration appends two lines to the results log:
//
//	<label>, <test>, <threads>, <min:.3f>
//	# ['<t1:.3f>', '<t2:.3f>', ...]
//
// and the run ends with a "-----" separator line. Child exit status never
// aborts a run; it is reported through [Report.Failures].
package bench
