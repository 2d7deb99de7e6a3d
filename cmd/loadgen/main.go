// Command loadgen drives a running exchange server with a synthetic order
// stream: loadgen [address] [rate] [duration-seconds].
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"pi-exchange/bench/loadgen"
	"pi-exchange/client"
	"pi-exchange/duplex"
	"pi-exchange/wire"
)

// eventCounter tallies responses so the run can report a summary; it
// discards the actual content, since loadgen only cares about throughput.
type eventCounter struct {
	places, cancels, matches int
}

func (e *eventCounter) OnPlace(wire.PlaceResponse)   { e.places++ }
func (e *eventCounter) OnCancel(wire.CancelResponse) { e.cancels++ }
func (e *eventCounter) OnMatch(wire.MatchResponse)   { e.matches++ }

func main() {
	address := "127.0.0.1:3000"
	ratePerSecond := 1000.0
	duration := 10 * time.Second

	if len(os.Args) > 1 {
		address = os.Args[1]
	}
	if len(os.Args) > 2 {
		r, err := strconv.ParseFloat(os.Args[2], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loadgen: invalid rate %q: %v\n", os.Args[2], err)
			os.Exit(1)
		}
		ratePerSecond = r
	}
	if len(os.Args) > 3 {
		secs, err := strconv.Atoi(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "loadgen: invalid duration %q: %v\n", os.Args[3], err)
			os.Exit(1)
		}
		duration = time.Duration(secs) * time.Second
	}

	handler := &eventCounter{}
	cl, err := client.Connect(address, duplex.Options{}, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadgen: %v\n", err)
		os.Exit(2)
	}
	defer cl.Close()

	gen := loadgen.New(loadgen.Config{
		MidPrice:       10000,
		PriceSpread:    500,
		MaxQuantity:    100,
		CancelFraction: 0.1,
		RecentIDWindow: 1024,
		RatePerSecond:  ratePerSecond,
		RateBurst:      int(ratePerSecond)/10 + 1,
	}, 42)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var sent int
	for {
		ev, err := gen.Next(ctx)
		if err != nil {
			break
		}
		if submitErr := submit(cl, ev); submitErr != nil {
			fmt.Fprintf(os.Stderr, "loadgen: submit: %v\n", submitErr)
			break
		}
		sent++
		if sent%256 == 0 {
			cl.Flush()
			cl.TryReceiveResponses()
		}
	}
	cl.Flush()
	fmt.Printf("loadgen: sent %d events, received %d place %d cancel %d match responses\n",
		sent, handler.places, handler.cancels, handler.matches)
}

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
