// Package execkit provides a process-local concurrent task-execution engine.
//
// The engine accepts opaque units of asynchronous work, admits them against a
// resource budget, schedules them under a bounded-concurrency policy with
// priority ordering, retries transient failures with exponential backoff and
// enforces per-task timeouts. Alongside the executor it ships a serialized
// shared-state store with change observers and a one-shot continuation guard.
//
// The pluggable service layers are:
//
//   - executor     – admission, bounded concurrency, retry, timeout, cancellation
//   - resource     – admission control against a fixed resource budget
//   - batch        – bounded parallel fan-out over the executor
//   - state        – serialized key/value store with per-key observers
//   - continuation – exactly-once completion handles with diagnostics
//
// End-users typically interact via the high-level Service façade exposed by
// the root package:
//
//	srv, _ := execkit.New()
//	value, err := srv.Execute(ctx, task.New("analyze", task.WithTimeout(time.Second)), work)
//	results := srv.RunAll(ctx, items, 8)
//	srv.Shutdown(ctx)
//
// For more details see the individual sub-packages.
package execkit
