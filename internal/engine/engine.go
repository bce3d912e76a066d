// Package engine implements the per-server Homa transport state machine:
// the sender scheduler, the receiver scheduler, the RX/TX burst path and
// the main poll loop, as described in spec.md §4.5-§4.9 and §2 items 5-7.
// See flowgen.c's start_new_flow, recv_pkt/recv_grant_request/recv_grant/
// recv_data, send_grant, and main_flowgen.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/heistp/homaflow/internal/activeset"
	"github.com/heistp/homaflow/internal/clock"
	"github.com/heistp/homaflow/internal/directory"
	"github.com/heistp/homaflow/internal/flowtable"
	"github.com/heistp/homaflow/internal/metrics"
	"github.com/heistp/homaflow/internal/pktio"
	"github.com/heistp/homaflow/internal/report"
)

// Config wires an Engine to its external collaborators.
type Config struct {
	LocalServerID int
	Directory     *directory.Directory
	SenderTable   *flowtable.SenderTable
	ReceiverTable *flowtable.ReceiverTable
	Plane         pktio.Plane
	Metrics       *metrics.Metrics
	Report        *report.Sink

	// Deadline is the hard wall-clock run length in seconds. Zero means
	// DefaultDeadline.
	Deadline float64
	// BurstTXRetry and BurstTXDelay tune the TX retry loop (spec.md §4.9,
	// §5). Zero means the package defaults.
	BurstTXRetry int
	BurstTXDelay time.Duration
}

// Engine is the single-threaded, run-to-completion transport core for one
// server. All state it owns is touched by exactly one tick at a time; see
// spec.md §5.
type Engine struct {
	cfg Config

	senderActive   *activeset.Set
	receiverActive *activeset.Set

	nextUnstart      int
	senderLocalTotal int
	senderFinished   int
	receiverTotal    int
	receiverFinished int

	senderTXBurst   []*pktio.Packet
	receiverTXBurst []*pktio.Packet

	start clock.Seconds
	now   float64
}

// NewEngine validates cfg's flow table against its directory (spec.md
// §4.2's fatal-at-construction directory miss) and returns a ready-to-run
// Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Deadline == 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.BurstTXRetry == 0 {
		cfg.BurstTXRetry = DefaultBurstTXRetry
	}
	if cfg.BurstTXDelay == 0 {
		cfg.BurstTXDelay = 100 * time.Microsecond
	}
	if err := validateFlows(cfg.Directory, cfg.SenderTable); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:            cfg,
		senderActive:   activeset.New(MaxConcurrentFlow),
		receiverActive: activeset.New(MaxConcurrentFlow),
	}
	for i := range cfg.SenderTable.Flows {
		if cfg.Directory.ServerID(cfg.SenderTable.Flows[i].SrcIP) == cfg.LocalServerID {
			e.senderLocalTotal++
		}
	}
	e.nextUnstart = e.findNextUnstartFlowID(-1)
	return e, nil
}

func validateFlows(dir *directory.Directory, st *flowtable.SenderTable) error {
	for i := range st.Flows {
		f := &st.Flows[i]
		if dir.ServerID(f.SrcIP) == directory.Unknown {
			return fmt.Errorf("engine: flow %d: src ip not found in server directory", f.ID)
		}
		if dir.ServerID(f.DstIP) == directory.Unknown {
			return fmt.Errorf("engine: flow %d: dst ip not found in server directory", f.ID)
		}
	}
	return nil
}

// findNextUnstartFlowID returns the smallest flow table index greater than
// after whose src IP is local, or st.Len() if none exists. Preserves the
// sentinel convention named in spec.md §9 Open Question 3: callers compare
// against the total flow count to detect drain, not a distinguished
// negative value.
func (e *Engine) findNextUnstartFlowID(after int) int {
	st := e.cfg.SenderTable
	for i := after + 1; i < st.Len(); i++ {
		if e.cfg.Directory.ServerID(st.Flows[i].SrcIP) == e.cfg.LocalServerID {
			return i
		}
	}
	return st.Len()
}

// Run executes the main poll loop (spec.md §2 item 7, §5): sender tick,
// receive-and-dispatch, receiver tick, repeated until the deadline is
// exceeded or both sides drain.
func (e *Engine) Run(ctx context.Context) error {
	// Every configured flow addressed to this server counts toward the
	// receiver side's drain target from the start, so a server doesn't
	// count as drained before its incoming flows have registered.
	receiverLocal := 0
	for i := range e.cfg.ReceiverTable.Flows {
		if e.cfg.Directory.ServerID(e.cfg.ReceiverTable.Flows[i].DstIP) == e.cfg.LocalServerID {
			receiverLocal++
		}
	}

	e.start = clock.Now(e.cfg.Plane)
	for {
		e.now = float64(clock.Now(e.cfg.Plane))

		e.SenderTick()
		pkts := e.cfg.Plane.RxBurst(MaxPktBurst)
		e.Dispatch(pkts)
		e.ReceiverTick()

		if e.cfg.Report != nil {
			e.cfg.Report.Flush(e.cfg.ReceiverTable)
		}

		elapsed := e.now - float64(e.start)
		drained := e.senderFinished >= e.senderLocalTotal && e.receiverFinished >= receiverLocal
		if elapsed > e.cfg.Deadline || drained {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}
