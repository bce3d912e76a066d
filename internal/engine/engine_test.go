package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heistp/homaflow/internal/directory"
	"github.com/heistp/homaflow/internal/flowtable"
	"github.com/heistp/homaflow/internal/metrics"
	"github.com/heistp/homaflow/internal/pktio/loopback"
	"github.com/heistp/homaflow/internal/report"
)

func twoServerDirectory() *directory.Directory {
	return &directory.Directory{
		MAC: [][6]byte{{0, 0, 0, 0, 0, 1}, {0, 0, 0, 0, 0, 2}},
		IP:  []uint32{0x0a000001, 0x0a000002},
	}
}

// buildPair wires two Engines over a loopback Pair, one playing server 0,
// the other server 1, sharing a single flow configuration so each side's
// sender/receiver tables see the same flows.
func buildPair(t *testing.T, cfgs []flowtable.Config, deadline float64) (a, b *Engine) {
	t.Helper()
	dir := twoServerDirectory()
	pair := loopback.New(64, 64)

	newEngine := func(id int, plane *loopback.Plane) *Engine {
		e, err := NewEngine(Config{
			LocalServerID: id,
			Directory:     dir,
			SenderTable:   flowtable.NewSenderTable(cfgs),
			ReceiverTable: flowtable.NewReceiverTable(cfgs),
			Plane:         plane,
			Metrics:       newTestMetrics(),
			Report:        report.NewSink(new(discard), "test"),
			Deadline:      deadline,
			BurstTXRetry:  3,
			BurstTXDelay:  time.Millisecond,
		})
		if err != nil {
			t.Fatalf("NewEngine(server %d): %v", id, err)
		}
		return e
	}
	return newEngine(0, pair.A), newEngine(1, pair.B)
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func runPair(t *testing.T, a, b *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() { defer wg.Done(); errA = a.Run(ctx) }()
	go func() { defer wg.Done(); errB = b.Run(ctx) }()
	wg.Wait()

	if errA != nil {
		t.Errorf("server 0 run: %v", errA)
	}
	if errB != nil {
		t.Errorf("server 1 run: %v", errB)
	}
}

// TestSingleFlowCompletes exercises a single small flow, entirely within
// the unscheduled burst, from admission through to receiver completion
// (spec.md §8 Scenario A: a flow smaller than RTT_BYTES never needs a
// scheduled grant).
func TestSingleFlowCompletes(t *testing.T) {
	cfgs := []flowtable.Config{
		{ID: 0, SrcIP: 0x0a000001, DstIP: 0x0a000002, SrcPort: 1000, DstPort: 2000, FlowSize: 5000, StartCfg: 0},
	}
	a, b := buildPair(t, cfgs, 2.0)
	runPair(t, a, b)

	rf := b.cfg.ReceiverTable.Get(0)
	if !rf.FlowFinished {
		t.Fatalf("flow 0 did not finish on receiver: %+v", rf)
	}
	if rf.RemainSize != 0 {
		t.Errorf("remain_size = %d, want 0", rf.RemainSize)
	}
	sf := a.cfg.SenderTable.Get(0)
	if !sf.FlowFinished {
		t.Errorf("flow 0 did not finish on sender: %+v", sf)
	}
}

// TestLargeFlowNeedsScheduledGrant exercises spec.md §8 Scenario B: a flow
// larger than RTT_BYTES sends its unscheduled burst, stalls on the grant
// request, and only finishes once the receiver schedules the remainder.
func TestLargeFlowNeedsScheduledGrant(t *testing.T) {
	cfgs := []flowtable.Config{
		{ID: 0, SrcIP: 0x0a000001, DstIP: 0x0a000002, SrcPort: 1000, DstPort: 2000, FlowSize: 50000, StartCfg: 0},
	}
	a, b := buildPair(t, cfgs, 5.0)
	runPair(t, a, b)

	rf := b.cfg.ReceiverTable.Get(0)
	if !rf.FlowFinished {
		t.Fatalf("flow 0 did not finish on receiver: %+v", rf)
	}
	if rf.RemainSize != 0 {
		t.Errorf("remain_size = %d, want 0", rf.RemainSize)
	}
}

// TestTwoScheduledFlowsComplete runs two flows larger than RTT_BYTES that
// both await a scheduled grant at the receiver and checks that both finish.
// Which one finishes first depends on timing, so the order is only logged,
// not asserted.
func TestTwoScheduledFlowsComplete(t *testing.T) {
	cfgs := []flowtable.Config{
		{ID: 0, SrcIP: 0x0a000001, DstIP: 0x0a000002, SrcPort: 1000, DstPort: 2000, FlowSize: 60000, StartCfg: 0},
		{ID: 1, SrcIP: 0x0a000001, DstIP: 0x0a000002, SrcPort: 1001, DstPort: 2001, FlowSize: 21000, StartCfg: 0},
	}
	a, b := buildPair(t, cfgs, 5.0)
	runPair(t, a, b)

	for _, id := range []flowtable.FlowID{0, 1} {
		rf := b.cfg.ReceiverTable.Get(id)
		if !rf.FlowFinished {
			t.Errorf("flow %d did not finish: %+v", id, rf)
		}
	}
	f0 := b.cfg.ReceiverTable.Get(0)
	f1 := b.cfg.ReceiverTable.Get(1)
	if f1.FinishTime > f0.FinishTime && f1.FlowSize < f0.FlowSize {
		t.Logf("flow 1 (smaller) finished after flow 0 (larger); timing-dependent, not asserted strictly")
	}
}

// TestDeadlineStopsRun confirms the poll loop honors Deadline even when a
// flow never completes (no peer ever answers its GRANT_REQUEST).
func TestDeadlineStopsRun(t *testing.T) {
	dir := twoServerDirectory()
	cfgs := []flowtable.Config{
		{ID: 0, SrcIP: 0x0a000001, DstIP: 0x0a000002, SrcPort: 1000, DstPort: 2000, FlowSize: 50000, StartCfg: 0},
	}
	plane := loopback.New(64, 64).A
	e, err := NewEngine(Config{
		LocalServerID: 0,
		Directory:     dir,
		SenderTable:   flowtable.NewSenderTable(cfgs),
		ReceiverTable: flowtable.NewReceiverTable(cfgs),
		Plane:         plane,
		Metrics:       newTestMetrics(),
		Deadline:      0.001,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sf := e.cfg.SenderTable.Get(0)
	if sf.FlowFinished {
		t.Error("flow should not have finished with no peer answering")
	}
}

// TestDirectoryMissRejectedAtConstruction exercises spec.md §4.2's
// directory validation: a flow whose src or dst IP has no directory entry
// must fail fast at NewEngine, not at runtime.
func TestDirectoryMissRejectedAtConstruction(t *testing.T) {
	dir := twoServerDirectory()
	cfgs := []flowtable.Config{
		{ID: 0, SrcIP: 0x0a000001, DstIP: 0x0a0000ff, SrcPort: 1000, DstPort: 2000, FlowSize: 1000, StartCfg: 0},
	}
	plane := loopback.New(8, 8).A
	_, err := NewEngine(Config{
		LocalServerID: 0,
		Directory:     dir,
		SenderTable:   flowtable.NewSenderTable(cfgs),
		ReceiverTable: flowtable.NewReceiverTable(cfgs),
		Plane:         plane,
		Metrics:       newTestMetrics(),
	})
	if err == nil {
		t.Fatal("expected error for unknown dst IP, got nil")
	}
}
