package engine

import "github.com/heistp/homaflow/internal/flowtable"

const (
	// DefaultPktSize is both the DATA payload chunk bound and the divisor
	// used to size the unscheduled burst. See DESIGN.md for why this reads
	// DEFAULT_PKT_SIZE as a payload-size knob rather than a total-frame
	// budget, resolving an ambiguity in favor of spec.md §8's worked
	// Scenario B arithmetic.
	DefaultPktSize = flowtable.Bytes(1500)

	// RTTBytes is the bandwidth-delay product a flow may send unscheduled.
	RTTBytes = flowtable.Bytes(20000)

	UnscheduledPriority = 6
	ScheduledPriority    = 2

	// MaxConcurrentFlow bounds both active-set registries.
	MaxConcurrentFlow = 100

	MaxRequestRetransmitOneTime = 16
	RetransmitTimeout           = 0.01 // seconds

	BurstThreshold = 32
	MaxPktBurst    = 64

	DefaultDeadline     = 40.0 // seconds
	DefaultBurstTXRetry = 3
)

// prioCutoffBytes are the ascending flow_size cut-offs for unscheduled
// priority assignment (spec.md §4.5).
var prioCutoffBytes = []flowtable.Bytes{2000, 4000, 6000, 8000, 10000}

// prioMap maps a scheduled-grant rank to its wire priority value.
var prioMap = []uint8{0, 1, 2, 3, 4, 5, 6, 7}

// mapToUnscheduledPriority returns the index of the first cut-off strictly
// greater than size, clamped to UnscheduledPriority-1.
func mapToUnscheduledPriority(size flowtable.Bytes) uint8 {
	for i, c := range prioCutoffBytes {
		if size < c {
			return uint8(i)
		}
	}
	return uint8(UnscheduledPriority - 1)
}
