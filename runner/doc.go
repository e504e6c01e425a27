// Package runner provides the execution contexts used by the messenger:
// the platform runner that delivers replies, and the task queues that
// channel handlers can be bound to.
//
//	Inline        runs on the posting goroutine
//	NewSerial()   one worker, tasks complete in submission order
//	NewPool(n)    n workers, submission order kept, completion may interleave
//
// Tasks that panic bring down the worker goroutine; callers that run
// untrusted code recover inside the task.
package runner
