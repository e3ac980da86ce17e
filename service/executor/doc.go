// Package executor schedules opaque, cancellable units of work under a
// bounded-concurrency policy. Submissions beyond the limit park in a priority
// wait queue and their callers suspend until a slot frees; release order is
// by descending priority, first-in-first-out within a priority. Retry,
// per-task timeouts and cooperative cancellation are applied around each
// unit of work.
package executor
