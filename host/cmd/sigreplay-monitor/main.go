package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sigreplay/host/metrics"
	"sigreplay/host/monitor"
	"sigreplay/host/passlog"
	"sigreplay/host/serial"
	"sigreplay/protocol"
)

// Replay jitter allowed between passes of one replay
const passTolerance = 50

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 9600, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Print debug and capture lines")
	dbPath  = flag.String("db", "", "Record passes to this SQLite file")
	listen  = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9108)")
)

func main() {
	flag.Parse()

	fmt.Println("Signal Replay Monitor")
	fmt.Println("=====================")

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Printf("Opening %s at %d baud...\n", cfg.Device, cfg.Baud)
	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	if err := port.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closing the port unblocks the pending read
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	var history *passlog.Log
	if *dbPath != "" {
		history, err = passlog.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer history.Close()
	}

	m := monitor.New(port)
	stats := metrics.New(m.Malformed)
	if *listen != "" {
		go serveMetrics(*listen, stats)
	}

	var reference *monitor.Pass
	m.OnState = func(from, to string) {
		stats.ObserveState(from, to)
		if to == "Replaying" {
			reference = nil
		}
		fmt.Printf("[state] %s -> %s\n", from, to)
	}
	m.OnPass = func(p monitor.Pass) {
		stats.ObservePass(p)
		printPass(p)

		// Passes of one replay should be identical within timer jitter
		if reference == nil {
			reference = &p
		} else if !passlog.Matches(*reference, p, passTolerance) {
			fmt.Printf("  differs from pass %d by more than %dus\n", reference.Number, passTolerance)
		}

		if history != nil {
			if _, err := history.Record(context.Background(), cfg.Device, time.Now(), p); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}
	if *verbose {
		m.OnDebug = func(line string) {
			fmt.Printf("[debug] %s\n", line)
		}
		m.OnCapture = func(l protocol.Line) {
			fmt.Printf("[capture] #%d level=%d +%dus\n", l.Index, level(l.Bit), l.Interval)
		}
	}

	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d passes received, %d malformed lines\n", m.Passes(), m.Malformed())
}

// printPass renders a pass as a table plus a coarse waveform strip
func printPass(p monitor.Pass) {
	fmt.Printf("\nPass %d: %d samples, %dus\n", p.Number, len(p.Samples), p.Duration())
	fmt.Println("  #    level  interval(us)  at(us)")

	var at uint64
	var wave strings.Builder
	for i, s := range p.Samples {
		at += uint64(s.Interval)
		fmt.Printf("  %-4d %-6d %-13d %d\n", i, level(s.Bit), s.Interval, at)
		if s.Bit {
			wave.WriteString("‾")
		} else {
			wave.WriteString("_")
		}
	}
	fmt.Printf("  %s\n", wave.String())
}

func serveMetrics(addr string, stats *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: metrics server: %v\n", err)
	}
}

func level(bit bool) int {
	if bit {
		return 1
	}
	return 0
}
