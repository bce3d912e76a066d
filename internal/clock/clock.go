// Package clock converts a packet plane's monotonic cycle counter into the
// float64 seconds value every scheduling decision in the engine is made
// against.
package clock

// Source is the timing half of the packet-plane contract: a monotonic
// cycle counter and the frequency needed to convert it to seconds.
type Source interface {
	// TimerHz returns the number of cycles per second.
	TimerHz() uint64
	// RdtscLike returns the current cycle count.
	RdtscLike() uint64
}

// Seconds is a point in monotonic time, in seconds, derived from a Source.
type Seconds float64

// Now samples s and converts the cycle count to seconds.
func Now(s Source) Seconds {
	hz := s.TimerHz()
	if hz == 0 {
		return 0
	}
	return Seconds(float64(s.RdtscLike()) / float64(hz))
}
