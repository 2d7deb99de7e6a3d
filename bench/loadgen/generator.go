// Package loadgen generates a synthetic stream of order placements and
// cancellations for exercising a running exchange end to end over the
// wire, the Go replacement for the benchmark harness's black-box driver.
package loadgen

import (
	"context"
	"math/rand/v2"

	"github.com/emirpasic/gods/v2/lists/arraylist"
	"golang.org/x/time/rate"
)

// Side mirrors client.PlaceBuy/PlaceSell's side encoding (0 = buy, 1 =
// sell) so generated events can be dispatched without another lookup.
type Side uint8

const (
	Buy Side = iota
	Sell
)

// EventKind distinguishes a generated Place from a generated Cancel.
type EventKind uint8

const (
	Place EventKind = iota
	Cancel
)

// Event is one generated order-stream entry.
type Event struct {
	Kind     EventKind
	Side     Side
	ID       uint64
	Price    uint32
	Quantity uint32
}

// Config controls the shape of the generated stream.
type Config struct {
	MidPrice        uint32  // center of the generated price distribution
	PriceSpread     uint32  // +/- range around MidPrice
	MaxQuantity     uint32  // generated quantities are in [1, MaxQuantity]
	CancelFraction  float64 // probability an event is a cancel of a recent id, in [0,1)
	RecentIDWindow  int     // how many recently-placed ids are kept as cancel candidates
	RatePerSecond   float64 // submission rate; 0 disables pacing
	RateBurst       int     // token bucket burst size, ignored if RatePerSecond is 0
}

// Generator produces a paced stream of Events from a fixed-seed PRNG, so
// benchmark runs are reproducible.
type Generator struct {
	cfg       Config
	rng       *rand.Rand
	limiter   *rate.Limiter
	recentIDs *arraylist.List[Event]
	nextID    uint64
}

// New returns a Generator seeded deterministically from seed.
func New(cfg Config, seed uint64) *Generator {
	g := &Generator{
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		recentIDs: arraylist.New[Event](),
	}
	if cfg.RatePerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)
	}
	return g
}

// Next blocks (if rate-limited) and returns the next generated event.
func (g *Generator) Next(ctx context.Context) (Event, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Event{}, err
		}
	}
	return g.next(), nil
}

func (g *Generator) next() Event {
	if g.cfg.CancelFraction > 0 && g.recentIDs.Size() > 0 && g.rng.Float64() < g.cfg.CancelFraction {
		idx := g.rng.IntN(g.recentIDs.Size())
		placed, _ := g.recentIDs.Get(idx)
		return Event{Kind: Cancel, Side: placed.Side, ID: placed.ID}
	}

	id := g.nextID
	g.nextID++

	side := Buy
	if g.rng.IntN(2) == 1 {
		side = Sell
	}
	offset := int64(g.rng.IntN(int(2*g.cfg.PriceSpread+1))) - int64(g.cfg.PriceSpread)
	price := uint32(int64(g.cfg.MidPrice) + offset)
	quantity := uint32(g.rng.IntN(int(g.cfg.MaxQuantity))) + 1

	event := Event{Kind: Place, Side: side, ID: id, Price: price, Quantity: quantity}
	g.recentIDs.Add(event)
	if g.cfg.RecentIDWindow > 0 && g.recentIDs.Size() > g.cfg.RecentIDWindow {
		g.recentIDs.Remove(0)
	}

	return event
}
