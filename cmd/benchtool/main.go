// Command benchtool drives a running exchange over the wire and reports
// round-trip latency from submitting an order to its Place response,
// replacing the in-process
// cmd/benchmark/cmd/profile pair with an end-to-end client/server harness.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"pi-exchange/bench/loadgen"
	"pi-exchange/bench/stats"
	"pi-exchange/client"
	"pi-exchange/duplex"
	"pi-exchange/wire"
)

func main() {
	address := flag.String("address", "127.0.0.1:3000", "exchange server address")
	ratePerSecond := flag.Float64("rate", 5000, "submission rate in events/sec")
	duration := flag.Duration("duration", 10*time.Second, "run duration")
	cpuProfile := flag.String("cpuprofile", "", "write a CPU profile to this path")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "benchtool: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "benchtool: %v\n", err)
			os.Exit(2)
		}
		defer pprof.StopCPUProfile()
	}

	hist := stats.NewHistogram(int(*ratePerSecond * duration.Seconds() * 1.5))
	handler := &latencyHandler{hist: hist, pending: make(map[uint64]time.Time)}
	cl, err := client.Connect(*address, duplex.Options{}, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchtool: %v\n", err)
		os.Exit(2)
	}
	defer cl.Close()

	gen := loadgen.New(loadgen.Config{
		MidPrice:       10000,
		PriceSpread:    500,
		MaxQuantity:    100,
		CancelFraction: 0.1,
		RecentIDWindow: 1024,
		RatePerSecond:  *ratePerSecond,
		RateBurst:      int(*ratePerSecond)/10 + 1,
	}, 1337)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var sent int
	for {
		ev, genErr := gen.Next(ctx)
		if genErr != nil {
			break
		}
		handler.pending[ev.ID] = time.Now()
		if err := submit(cl, ev); err != nil {
			fmt.Fprintf(os.Stderr, "benchtool: submit: %v\n", err)
			break
		}
		sent++
		if sent%64 == 0 {
			cl.Flush()
			cl.TryReceiveResponses()
		}
	}
	cl.Flush()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := cl.TryReceiveResponses(); err != nil {
			break
		}
	}

	fmt.Printf("benchtool: sent %d events over %v\n", sent, *duration)
	hist.WriteSummary(os.Stdout)
}

type latencyHandler struct {
	hist    *stats.Histogram
	pending map[uint64]time.Time
}

func (h *latencyHandler) OnPlace(resp wire.PlaceResponse) {
	if start, ok := h.pending[resp.ID]; ok {
		h.hist.Record(time.Since(start))
		delete(h.pending, resp.ID)
	}
}

func (h *latencyHandler) OnCancel(wire.CancelResponse) {}
func (h *latencyHandler) OnMatch(wire.MatchResponse)   {}

func submit(cl *client.Client, ev loadgen.Event) error {
	switch ev.Kind {
	case loadgen.Place:
		if ev.Side == loadgen.Buy {
			return cl.PlaceBuy(ev.ID, ev.Price, ev.Quantity)
		}
		return cl.PlaceSell(ev.ID, ev.Price, ev.Quantity)
	case loadgen.Cancel:
		if ev.Side == loadgen.Buy {
			return cl.CancelBuy(ev.ID)
		}
		return cl.CancelSell(ev.ID)
	}
	return nil
}
