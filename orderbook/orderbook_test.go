package orderbook

import (
	"testing"

	"pi-exchange/domain"
)

func newOrder(id uint64, side domain.Side, price, qty uint32) *domain.Order {
	return domain.NewOrder(id, side, price, qty)
}

func TestBuyBookTopIsHighestPrice(t *testing.T) {
	b := NewBook(domain.SideBuy, 16)
	b.Insert(newOrder(1, domain.SideBuy, 100, 10))
	b.Insert(newOrder(2, domain.SideBuy, 150, 10))
	b.Insert(newOrder(3, domain.SideBuy, 120, 10))

	if got := b.TopPrice(); got != 150 {
		t.Fatalf("expected top price 150, got %d", got)
	}
	if got := b.Top().ID; got != 2 {
		t.Fatalf("expected top id 2, got %d", got)
	}
}

func TestSellBookTopIsLowestPrice(t *testing.T) {
	b := NewBook(domain.SideSell, 16)
	b.Insert(newOrder(1, domain.SideSell, 150, 10))
	b.Insert(newOrder(2, domain.SideSell, 100, 10))
	b.Insert(newOrder(3, domain.SideSell, 120, 10))

	if got := b.TopPrice(); got != 100 {
		t.Fatalf("expected top price 100, got %d", got)
	}
}

func TestSamePriceLowerIDFirst(t *testing.T) {
	b := NewBook(domain.SideBuy, 16)
	b.Insert(newOrder(5, domain.SideBuy, 100, 10))
	b.Insert(newOrder(3, domain.SideBuy, 100, 10))
	b.Insert(newOrder(9, domain.SideBuy, 100, 10))

	if got := b.Top().ID; got != 3 {
		t.Fatalf("expected lowest id 3 first, got %d", got)
	}
	b.Pop()
	if got := b.Top().ID; got != 5 {
		t.Fatalf("expected id 5 next, got %d", got)
	}
}

func TestRemoveByID(t *testing.T) {
	b := NewBook(domain.SideBuy, 16)
	b.Insert(newOrder(1, domain.SideBuy, 100, 10))
	b.Insert(newOrder(2, domain.SideBuy, 110, 10))

	if _, ok := b.Remove(2); !ok {
		t.Fatal("expected Remove(2) to succeed")
	}
	if _, ok := b.Remove(2); ok {
		t.Fatal("expected second Remove(2) to fail")
	}
	if got := b.TopPrice(); got != 100 {
		t.Fatalf("expected top price 100 after removing 110, got %d", got)
	}
	if got := b.Size(); got != 1 {
		t.Fatalf("expected size 1, got %d", got)
	}
}

func TestEmptyAfterDrainingAllOrders(t *testing.T) {
	b := NewBook(domain.SideSell, 16)
	b.Insert(newOrder(1, domain.SideSell, 100, 10))
	b.Insert(newOrder(2, domain.SideSell, 100, 10))

	b.Pop()
	if b.Empty() {
		t.Fatal("book should not be empty with one order left")
	}
	b.Pop()
	if !b.Empty() {
		t.Fatal("expected book empty after draining all orders")
	}
}

func TestRemoveLastOrderAtLevelClearsBestPointer(t *testing.T) {
	b := NewBook(domain.SideBuy, 16)
	b.Insert(newOrder(1, domain.SideBuy, 100, 10))
	b.Remove(1)

	if !b.Empty() {
		t.Fatal("expected book empty")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected Top to panic on empty book")
		}
	}()
	b.Top()
}
