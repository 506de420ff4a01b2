// Package async provides safe goroutine helpers for fire-and-forget work.
//
// SafeGo wraps a background task with a bounded context and panic recovery
// so audit writes and other best-effort work cannot crash the process or
// leak goroutines.
package async
