// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Command flowgen runs a Homa flow generation scenario. It loads a server
// directory and a flow schedule, wires one engine per server over an
// in-process loopback plane, and prints each flow's completion time as the
// run drains. A real deployment would swap the loopback plane for a NIC
// plane bound to physical ports; wiring that driver is outside the
// packet-I/O contract this binary depends on (internal/pktio), so the
// bundled runner demonstrates the full multi-server scenario on loopback
// links instead of requiring one process per physical host.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/heistp/homaflow/internal/directory"
	"github.com/heistp/homaflow/internal/engine"
	"github.com/heistp/homaflow/internal/flowtable"
	"github.com/heistp/homaflow/internal/metrics"
	"github.com/heistp/homaflow/internal/pktio/loopback"
	"github.com/heistp/homaflow/internal/report"
)

var opt struct {
	macFile      string
	ipFile       string
	flowFile     string
	deadline     float64
	metricsAddr  string
	csvOut       string
	profileCPU   string
	profileHeap  string
	poolCapacity int
}

func main() {
	log.SetFlags(0)

	root := &cobra.Command{
		Use:   "flowgen",
		Short: "Run a Homa flow generation scenario over an in-process loopback plane",
		RunE:  run,
	}
	f := root.Flags()
	f.StringVar(&opt.macFile, "mac-file", "eth_addr_info.txt", "path to the MAC address directory file")
	f.StringVar(&opt.ipFile, "ip-file", "ip_addr_info.txt", "path to the IP address directory file")
	f.StringVar(&opt.flowFile, "flow-file", "flow_info.txt", "path to the flow configuration file")
	f.Float64Var(&opt.deadline, "deadline", 0, "hard run length in seconds (0 selects the package default)")
	f.StringVar(&opt.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	f.StringVar(&opt.csvOut, "csv-out", "", "path to write a combined CSV completion report to (empty disables)")
	f.StringVar(&opt.profileCPU, "profile-cpu", "", "path to write a CPU profile to (empty disables)")
	f.StringVar(&opt.profileHeap, "profile-heap", "", "path to write a heap profile to (empty disables)")
	f.IntVar(&opt.poolCapacity, "pool-capacity", 4096, "per-link packet mempool capacity")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if opt.profileCPU != "" {
		f, err := os.Create(opt.profileCPU)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// The directory and flow files are written by a setup step that may
	// still be settling (peer directory propagation, flow schedule
	// generation) when this process starts; a short calibration sleep on
	// either side of the load gives that step a steady window to finish,
	// the way flowgen.c's original run script paused before and after
	// config generation.
	time.Sleep(2 * time.Second)

	dir, err := directory.Load(opt.macFile, opt.ipFile)
	if err != nil {
		return err
	}
	if len(dir.IP) != 2 {
		return errServerCount
	}
	cfgs, err := flowtable.LoadFlows(opt.flowFile)
	if err != nil {
		return err
	}

	time.Sleep(2 * time.Second)

	runID := xid.New().String()
	reg := prometheus.NewRegistry()

	if opt.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opt.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	pair := loopback.New(opt.poolCapacity, opt.poolCapacity)
	sinkA := report.NewSink(os.Stdout, runID)
	sinkB := report.NewSink(os.Stdout, runID)

	engA, err := engine.NewEngine(engine.Config{
		LocalServerID: 0,
		Directory:     dir,
		SenderTable:   flowtable.NewSenderTable(cfgs),
		ReceiverTable: flowtable.NewReceiverTable(cfgs),
		Plane:         pair.A,
		Metrics:       metrics.New(prometheus.WrapRegistererWith(prometheus.Labels{"server_id": "0"}, reg)),
		Report:        sinkA,
		Deadline:      opt.deadline,
	})
	if err != nil {
		return err
	}
	engB, err := engine.NewEngine(engine.Config{
		LocalServerID: 1,
		Directory:     dir,
		SenderTable:   flowtable.NewSenderTable(cfgs),
		ReceiverTable: flowtable.NewReceiverTable(cfgs),
		Plane:         pair.B,
		Metrics:       metrics.New(prometheus.WrapRegistererWith(prometheus.Labels{"server_id": "1"}, reg)),
		Report:        sinkB,
		Deadline:      opt.deadline,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() { defer wg.Done(); errA = engA.Run(ctx) }()
	go func() { defer wg.Done(); errB = engB.Run(ctx) }()
	wg.Wait()

	if errA != nil && errA != context.Canceled {
		return errA
	}
	if errB != nil && errB != context.Canceled {
		return errB
	}

	if opt.csvOut != "" {
		out, err := os.Create(opt.csvOut)
		if err != nil {
			return err
		}
		defer out.Close()
		sinkA.Records = append(sinkA.Records, sinkB.Records...)
		if err := sinkA.WriteCSV(out); err != nil {
			return err
		}
	}

	if opt.profileHeap != "" {
		f, err := os.Create(opt.profileHeap)
		if err != nil {
			return err
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return nil
}
