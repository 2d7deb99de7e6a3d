// Package orderbook implements the two-index resting-order book for one side
// of the instrument: a red-black tree ordering price levels by matching
// priority, and an id-indexed map for O(1) cancellation.
package orderbook

import (
	"container/list"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"pi-exchange/domain"
)

// level is the queue of orders resting at a single price, kept in ascending
// id order.
type level struct {
	price  uint32
	orders *list.List // of *domain.Order, front = lowest id
}

// entry is what the id index stores: the order plus enough to find and
// remove it from its level's list in O(1).
type entry struct {
	order   *domain.Order
	element *list.Element
}

// Book holds one side (buy or sell) of the resting order book. It is not
// safe for concurrent use; the matching engine owns it from a single
// goroutine.
type Book struct {
	side   domain.Side
	prices *rbt.Tree[uint32, *level]
	byID   map[uint64]*entry
	best   *level // cached pointer to prices' leftmost node's value
}

// NewBook returns an empty book for the given side, with its id index
// pre-sized to initSize entries. Buy books order prices descending (best
// bid first); sell books order ascending (best ask first).
func NewBook(side domain.Side, initSize int) *Book {
	var cmp func(a, b uint32) int
	if side == domain.SideBuy {
		cmp = func(a, b uint32) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			default:
				return 0
			}
		}
	} else {
		cmp = func(a, b uint32) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}
	return &Book{
		side:   side,
		prices: rbt.NewWith[uint32, *level](cmp),
		byID:   make(map[uint64]*entry, initSize),
	}
}

// Empty reports whether the book holds no resting orders.
func (b *Book) Empty() bool {
	return len(b.byID) == 0
}

// Size returns the number of resting orders.
func (b *Book) Size() int {
	return len(b.byID)
}

// Top returns the order with the best matching priority. Callers must check
// Empty first; Top panics on an empty book.
func (b *Book) Top() *domain.Order {
	if b.best == nil {
		panic("orderbook: Top called on empty book")
	}
	return b.best.orders.Front().Value.(*domain.Order)
}

// TopPrice returns the price of the book's best level, or 0 if the book is
// empty.
func (b *Book) TopPrice() uint32 {
	if b.best == nil {
		return 0
	}
	return b.best.price
}

// Insert adds order to its price level, behind every order there with a
// lower id. The order's id must not already be present in this book.
func (b *Book) Insert(order *domain.Order) {
	lvl, found := b.prices.Get(order.Price)
	if !found {
		lvl = &level{price: order.Price, orders: list.New()}
		b.prices.Put(order.Price, lvl)
	}
	var elem *list.Element
	for mark := lvl.orders.Back(); mark != nil; mark = mark.Prev() {
		if mark.Value.(*domain.Order).ID < order.ID {
			elem = lvl.orders.InsertAfter(order, mark)
			break
		}
	}
	if elem == nil {
		elem = lvl.orders.PushFront(order)
	}
	b.byID[order.ID] = &entry{order: order, element: elem}

	if b.best == nil || b.isBetterLevel(lvl.price, b.best.price) {
		b.best = lvl
	}
}

// Pop removes and returns the book's top order. Callers must check Empty
// first; Pop panics on an empty book.
func (b *Book) Pop() *domain.Order {
	order := b.Top()
	b.remove(order.ID, b.best)
	return order
}

// Remove removes the order with the given id, if present, and returns it.
func (b *Book) Remove(id uint64) (*domain.Order, bool) {
	e, found := b.byID[id]
	if !found {
		return nil, false
	}
	lvl, _ := b.prices.Get(e.order.Price)
	b.remove(id, lvl)
	return e.order, true
}

func (b *Book) remove(id uint64, lvl *level) {
	e := b.byID[id]
	lvl.orders.Remove(e.element)
	delete(b.byID, id)

	if lvl.orders.Len() == 0 {
		b.prices.Remove(lvl.price)
		if b.best == lvl {
			b.best = nil
			if node := b.prices.Left(); node != nil {
				b.best = node.Value
			}
		}
	}
}

func (b *Book) isBetterLevel(newPrice, existingPrice uint32) bool {
	if b.side == domain.SideBuy {
		return newPrice > existingPrice
	}
	return newPrice < existingPrice
}
