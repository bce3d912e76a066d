// Package report implements completion tracking (spec.md §2 item 8): it
// records each flow's finish timestamp and emits the FCT line format named
// in spec.md §6, plus an optional CSV sink. See flowgen.c's print_fct.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/heistp/homaflow/internal/flowtable"
)

// Record is one completed flow's report line.
type Record struct {
	FlowID  uint16  `csv:"flow_id"`
	FCT     float64 `csv:"fct_seconds"`
	Bytes   uint64  `csv:"bytes"`
	Goodput string  `csv:"goodput"`
	RunID   string  `csv:"run_id"`
}

// Sink prints completed-but-unprinted flows from a ReceiverTable, the way
// flowgen.c's print_fct walks the receiver table once at the end of a run.
// Flush is idempotent: each flow's FCTPrinted flag prevents a double print.
type Sink struct {
	RunID   string
	Out     io.Writer
	Records []Record
}

// NewSink returns a Sink that writes the plain-text FCT lines to out.
func NewSink(out io.Writer, runID string) *Sink {
	return &Sink{RunID: runID, Out: out}
}

// Flush prints "<flow_id> <fct_seconds>" for every finished, unprinted flow
// in t, and accumulates a Record for later CSV export.
func (s *Sink) Flush(t *flowtable.ReceiverTable) {
	for i := range t.Flows {
		f := &t.Flows[i]
		if !f.FlowFinished || f.FCTPrinted {
			continue
		}
		fct := f.FinishTime - f.StartTime
		fmt.Fprintf(s.Out, "%d %f\n", f.ID, fct)
		bytes := uint64(f.FlowSize)
		goodput := CalcBitrate(f.FlowSize, time.Duration(fct*float64(time.Second)))
		s.Records = append(s.Records, Record{
			FlowID:  uint16(f.ID),
			FCT:     fct,
			Bytes:   bytes,
			Goodput: goodput.String(),
			RunID:   s.RunID,
		})
		f.FCTPrinted = true
	}
}

// WriteCSV writes every accumulated Record to w in CSV form.
func (s *Sink) WriteCSV(w io.Writer) error {
	return gocsv.Marshal(s.Records, w)
}
