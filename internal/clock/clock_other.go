//go:build !linux

package clock

import "time"

// RealSource is a Source backed by time.Now, for platforms without a
// CLOCK_MONOTONIC binding wired up.
type RealSource struct{}

var start = time.Now()

// TimerHz implements Source.
func (RealSource) TimerHz() uint64 { return 1e9 }

// RdtscLike implements Source.
func (RealSource) RdtscLike() uint64 {
	return uint64(time.Since(start).Nanoseconds())
}
