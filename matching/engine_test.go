package matching

import (
	"testing"
	"time"

	"pi-exchange/domain"
	"pi-exchange/wire"
)

type event struct {
	place  *wire.PlaceResponse
	cancel *wire.CancelResponse
	match  *wire.MatchResponse
}

type recorder struct {
	events chan event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan event, 64)}
}

func (r *recorder) OnPlace(resp wire.PlaceResponse)   { r.events <- event{place: &resp} }
func (r *recorder) OnCancel(resp wire.CancelResponse) { r.events <- event{cancel: &resp} }
func (r *recorder) OnMatch(resp wire.MatchResponse)   { r.events <- event{match: &resp} }

func (r *recorder) drain(t *testing.T, n int) []event {
	t.Helper()
	got := make([]event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case e := <-r.events:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d/%d", i+1, n)
		}
	}
	return got
}

func place(e *Exchange, side domain.Side, id uint64, price, qty uint32) {
	e.Place(domain.NewOrder(id, side, price, qty))
}

func TestPlaceNoMatch(t *testing.T) {
	rec := newRecorder()
	ex := NewExchange(rec, 16)
	ex.Run()
	defer ex.Stop()

	place(ex, domain.SideBuy, 0, 100, 1)
	place(ex, domain.SideSell, 1, 200, 1)

	got := rec.drain(t, 2)
	if got[0].place == nil || !got[0].place.Success || got[0].place.ID != 0 {
		t.Fatalf("event 0: expected Place(true,0), got %+v", got[0])
	}
	if got[1].place == nil || !got[1].place.Success || got[1].place.ID != 1 {
		t.Fatalf("event 1: expected Place(true,1), got %+v", got[1])
	}
}

func TestMatchScenario(t *testing.T) {
	rec := newRecorder()
	ex := NewExchange(rec, 16)
	ex.Run()
	defer ex.Stop()

	place(ex, domain.SideSell, 0, 100, 1)
	place(ex, domain.SideBuy, 1, 200, 2)
	place(ex, domain.SideBuy, 2, 100, 2)
	place(ex, domain.SideSell, 3, 50, 4)

	got := rec.drain(t, 7)

	assertPlace(t, got[0], true, 0)
	assertMatch(t, got[1], 1, 0, 100, 1, 200, 0)
	assertPlace(t, got[2], true, 1)
	assertPlace(t, got[3], true, 2)
	assertMatch(t, got[4], 1, 3, 200, 1, 100, 50)
	assertMatch(t, got[5], 2, 3, 100, 2, 0, 50)
	assertPlace(t, got[6], true, 3)
}

func TestCancelScenario(t *testing.T) {
	rec := newRecorder()
	ex := NewExchange(rec, 16)
	ex.Run()
	defer ex.Stop()

	place(ex, domain.SideSell, 0, 100, 1)
	ex.Cancel(domain.SideSell, 0)
	ex.Cancel(domain.SideSell, 0)

	got := rec.drain(t, 3)
	assertPlace(t, got[0], true, 0)
	assertCancel(t, got[1], true, 0)
	assertCancel(t, got[2], false, 0)
}

func TestMixedScenario(t *testing.T) {
	rec := newRecorder()
	ex := NewExchange(rec, 16)
	ex.Run()
	defer ex.Stop()

	place(ex, domain.SideBuy, 0, 100, 1)
	ex.Cancel(domain.SideBuy, 0)
	place(ex, domain.SideSell, 1, 100, 3)
	ex.Cancel(domain.SideBuy, 2)
	place(ex, domain.SideBuy, 2, 100, 1)
	ex.Cancel(domain.SideBuy, 2)
	place(ex, domain.SideBuy, 3, 100, 1)
	ex.Cancel(domain.SideSell, 1)
	place(ex, domain.SideBuy, 4, 100, 1)

	got := rec.drain(t, 11)
	assertPlace(t, got[0], true, 0)
	assertCancel(t, got[1], true, 0)
	assertPlace(t, got[2], true, 1)
	assertCancel(t, got[3], false, 2)
	assertMatch(t, got[4], 2, 1, 100, 1, 0, 100)
	assertPlace(t, got[5], true, 2)
	assertCancel(t, got[6], false, 2)
	assertMatch(t, got[7], 3, 1, 100, 1, 0, 100)
	assertPlace(t, got[8], true, 3)
	assertCancel(t, got[9], true, 1)
	assertPlace(t, got[10], true, 4)
}

func assertPlace(t *testing.T, e event, success bool, id uint64) {
	t.Helper()
	if e.place == nil || e.place.Success != success || e.place.ID != id {
		t.Fatalf("expected Place(%v,%d), got %+v", success, id, e)
	}
}

func assertCancel(t *testing.T, e event, success bool, id uint64) {
	t.Helper()
	if e.cancel == nil || e.cancel.Success != success || e.cancel.ID != id {
		t.Fatalf("expected Cancel(%v,%d), got %+v", success, id, e)
	}
}

func assertMatch(t *testing.T, e event, buyID, sellID uint64, price, qty, topBuy, topSell uint32) {
	t.Helper()
	if e.match == nil {
		t.Fatalf("expected Match, got %+v", e)
	}
	m := e.match
	if m.BuyID != buyID || m.SellID != sellID || m.Price != price || m.Quantity != qty ||
		m.TopBuyPrice != topBuy || m.TopSellPrice != topSell {
		t.Fatalf("expected Match(%d,%d,%d,%d,%d,%d), got %+v", buyID, sellID, price, qty, topBuy, topSell, *m)
	}
}
