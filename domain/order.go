// Package domain holds the exchange's order value type and the price-time
// priority rules the order books and matching engine are built on.
package domain

import "sync"

// Side is which side of the book an order rests on.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Order is a resting or in-flight limit order for the single traded
// instrument. Everything but Quantity is immutable once placed; Quantity is
// mutated in place on partial fills while the order rests in a book.
type Order struct {
	ID       uint64
	Price    uint32 // ticks, >= 100
	Quantity uint32 // > 0 while resting
	Side     Side
}

var orderPool sync.Pool

func init() {
	orderPool.New = func() any {
		return &Order{}
	}
}

// NewOrder returns a pooled Order initialized with the given fields.
func NewOrder(id uint64, side Side, price, quantity uint32) *Order {
	o := orderPool.Get().(*Order)
	o.ID = id
	o.Side = side
	o.Price = price
	o.Quantity = quantity
	return o
}

// Release returns the order to the pool. Callers must not touch the order
// again afterward.
func (o *Order) Release() {
	*o = Order{}
	orderPool.Put(o)
}

// Less reports whether o has strictly higher matching priority than other on
// the same side: for buys, higher price wins, ties broken by lower id; for
// sells, lower price wins, ties broken by lower id.
func (o *Order) Less(other *Order) bool {
	if o.Price == other.Price {
		return o.ID < other.ID
	}
	if o.Side == SideBuy {
		return o.Price > other.Price
	}
	return o.Price < other.Price
}

// IsCompatibleWith reports whether o crosses other, i.e. a trade between them
// is possible at this instant. o and other must be on opposite sides.
func (o *Order) IsCompatibleWith(other *Order) bool {
	buy, sell := o, other
	if o.Side == SideSell {
		buy, sell = other, o
	}
	return buy.Price >= sell.Price
}
