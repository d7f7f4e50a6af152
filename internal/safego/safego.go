// Package safego provides a panic-recovering goroutine launcher for background work.
package safego

import "log/slog"

// Go launches fn in a new goroutine. A panic inside fn is recovered and logged
// under the given name instead of crashing the process. Use it for every
// fire-and-forget goroutine: activity write workers, shipper flushers, config watchers.
func Go(name string, fn func()) {
	go Run(name, fn)
}

// Run calls fn on the current goroutine with the same recovery as Go. It reports
// whether fn returned normally.
func Run(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in background goroutine", "goroutine", name, "panic", r)
			ok = false
		}
	}()
	fn()
	return true
}
