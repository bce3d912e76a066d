// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heistp/homaflow/internal/flowtable"
)

// Bitrate is a bitrate in bits per second.
type Bitrate int64

const (
	Bps  Bitrate = 1
	Kbps         = 1000 * Bps
	Mbps         = 1000 * Kbps
	Gbps         = 1000 * Mbps
)

var stdRateUnits = map[string]string{
	"K": "Kbps",
	"M": "Mbps",
	"G": "Gbps",
}

// CalcBitrate returns the average bitrate of transferring bytes over dur.
func CalcBitrate(bytes flowtable.Bytes, dur time.Duration) Bitrate {
	if dur <= 0 {
		return 0
	}
	return Bitrate(8 * float64(bytes) / dur.Seconds())
}

// Mbps returns the Bitrate in megabits per second.
func (b Bitrate) Mbps() float64 {
	return float64(b) / float64(Mbps)
}

func (b Bitrate) String() string {
	switch {
	case b < 1*Kbps:
		return fmt.Sprintf("%dbps", b)
	case b < 1*Mbps:
		return trimFloat(float64(b)/float64(Kbps), 1) + stdRateUnits["K"]
	case b < 1*Gbps:
		return trimFloat(b.Mbps(), 1) + stdRateUnits["M"]
	default:
		return trimFloat(float64(b)/float64(Gbps), 1) + stdRateUnits["G"]
	}
}

func trimFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
