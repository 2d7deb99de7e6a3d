// Package matching implements the single-instrument cross-matching engine:
// one buy book, one sell book, and the price-time priority algorithm that
// crosses an incoming order against the opposite book before resting any
// remainder.
package matching

import (
	"runtime"

	"pi-exchange/domain"
	"pi-exchange/orderbook"
	"pi-exchange/wire"
)

// EventHandler receives the engine's output events in the exact order they
// are produced. Implementations must not block; the engine calls these from
// its single matching goroutine.
type EventHandler interface {
	OnPlace(wire.PlaceResponse)
	OnCancel(wire.CancelResponse)
	OnMatch(wire.MatchResponse)
}

// request is the internal envelope the matching goroutine consumes from its
// request channel.
type request struct {
	place   *domain.Order // non-nil for a Place request
	cancel  bool
	side    domain.Side
	id      uint64        // cancel id, ignored for Place
	barrier chan struct{} // non-nil for a Barrier request
}

// Exchange is the matching engine for one traded instrument. Submit Place
// and Cancel requests from any goroutine; events are delivered to the
// EventHandler from the engine's own goroutine, started by Run.
type Exchange struct {
	buyBook  *orderbook.Book
	sellBook *orderbook.Book
	handler  EventHandler
	requests chan request
	stop     chan struct{}
	done     chan struct{}
}

// NewExchange returns an Exchange that delivers events to handler, with
// each side's order book pre-sized to hold orderBookInitSize resting orders
// before its id index needs to grow. Call Run to start the matching
// goroutine.
func NewExchange(handler EventHandler, orderBookInitSize int) *Exchange {
	return &Exchange{
		buyBook:  orderbook.NewBook(domain.SideBuy, orderBookInitSize),
		sellBook: orderbook.NewBook(domain.SideSell, orderBookInitSize),
		handler:  handler,
		requests: make(chan request, 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drives the matching loop in a dedicated goroutine pinned to an OS
// thread, returning immediately. Call Stop to shut it down.
func (e *Exchange) Run() {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(e.done)
		for {
			select {
			case <-e.stop:
				return
			case req := <-e.requests:
				e.handle(req)
			}
		}
	}()
}

// Stop signals the matching goroutine to exit and waits for it to do so.
func (e *Exchange) Stop() {
	close(e.stop)
	<-e.done
}

// Place submits a new order for matching. Safe to call from any goroutine.
func (e *Exchange) Place(order *domain.Order) {
	e.requests <- request{place: order}
}

// Cancel submits a cancel request for a resting order on the given side.
// Safe to call from any goroutine.
func (e *Exchange) Cancel(side domain.Side, id uint64) {
	e.requests <- request{cancel: true, side: side, id: id}
}

// Barrier blocks until every request submitted before it has been handled
// and its events delivered to the EventHandler. Callers use this to make
// sure a dropped connection's in-flight events are flushed before its
// socket is reused for a new client.
func (e *Exchange) Barrier() {
	done := make(chan struct{})
	e.requests <- request{barrier: done}
	<-done
}

func (e *Exchange) handle(req request) {
	if req.barrier != nil {
		close(req.barrier)
		return
	}
	if req.place != nil {
		if req.place.Side == domain.SideBuy {
			e.insert(req.place, e.buyBook, e.sellBook)
		} else {
			e.insert(req.place, e.sellBook, e.buyBook)
		}
		return
	}
	var book *orderbook.Book
	if req.side == domain.SideBuy {
		book = e.buyBook
	} else {
		book = e.sellBook
	}
	removed, success := book.Remove(req.id)
	if success {
		removed.Release()
	}
	e.handler.OnCancel(wire.CancelResponse{Success: success, ID: req.id})
}

// insert crosses order against opposite (the resting book on the other
// side), emitting a Match event per fill, then rests any remaining quantity
// in book. Grounded line-for-line on insert_order_to_book: the partial-fill
// branch mutates the resting top's quantity and stops; the full-fill branch
// pops the resting top and keeps crossing.
func (e *Exchange) insert(order *domain.Order, book, opposite *orderbook.Book) {
	for !opposite.Empty() && order.Quantity > 0 && order.IsCompatibleWith(opposite.Top()) {
		top := opposite.Top()

		if order.Quantity < top.Quantity {
			top.Quantity -= order.Quantity
			e.emitMatch(top, order, order.Quantity, opposite, book)
			order.Quantity = 0
			break
		}

		filled := opposite.Pop()
		order.Quantity -= filled.Quantity
		e.emitMatchAfterPop(filled, order, filled.Quantity, opposite, book)
		filled.Release()
	}

	if order.Quantity > 0 {
		book.Insert(order)
	}
	e.handler.OnPlace(wire.PlaceResponse{Success: true, ID: order.ID})
	if order.Quantity == 0 {
		order.Release()
	}
}

// emitMatch reports a partial fill: the resting order stays at the top of its
// book with its quantity already reduced, so the opposite-side top price
// named in the event is still its (unchanged) price.
func (e *Exchange) emitMatch(resting, taker *domain.Order, quantity uint32, opposite, book *orderbook.Book) {
	e.handler.OnMatch(matchFrom(resting, taker, quantity, opposite.TopPrice(), book.TopPrice()))
}

// emitMatchAfterPop reports a full fill of the resting order, which has
// already been popped: own-side top uses the taker's own price while it
// still has quantity left to keep crossing, falling back to the book's new
// top once the taker is exhausted.
func (e *Exchange) emitMatchAfterPop(resting, taker *domain.Order, quantity uint32, opposite, book *orderbook.Book) {
	ownTop := book.TopPrice()
	if taker.Quantity > 0 {
		ownTop = taker.Price
	}
	e.handler.OnMatch(matchFrom(resting, taker, quantity, opposite.TopPrice(), ownTop))
}

// matchFrom builds the wire event for one fill. oppositeTop is the resting
// order's own book's new top (the side opposite the taker); ownTop is the
// taker's side's top, computed by the caller per the own-side taker-residual
// convention.
func matchFrom(resting, taker *domain.Order, quantity, oppositeTop, ownTop uint32) wire.MatchResponse {
	resp := wire.MatchResponse{Price: resting.Price, Quantity: quantity}
	if taker.Side == domain.SideBuy {
		resp.BuyID, resp.SellID = taker.ID, resting.ID
		resp.TopSellPrice, resp.TopBuyPrice = oppositeTop, ownTop
	} else {
		resp.BuyID, resp.SellID = resting.ID, taker.ID
		resp.TopBuyPrice, resp.TopSellPrice = oppositeTop, ownTop
	}
	return resp
}
