// FILE: scray/properties/timing.go
package properties

import "time"

// Timing constants of the file watcher.
const (
	SpinWaitInterval    = 5 * time.Millisecond   // CPU-friendly busy-wait quantum
	MinPollInterval     = 100 * time.Millisecond // Hard floor for file stat polling
	ShutdownTimeout     = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce     = 500 * time.Millisecond // File change coalescence period
	DefaultPollInterval = time.Second            // Standard file monitoring frequency
)

// DefaultMaxWatchers limits subscriber channels per watched file.
const DefaultMaxWatchers = 100
