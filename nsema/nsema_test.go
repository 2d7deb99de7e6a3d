package nsema

import (
	"testing"
	"time"
)

func TestStrictWaitBlocksUntilPost(t *testing.T) {
	s := NewStrict(0)
	done := make(chan struct{})
	go func() {
		s.Wait(5)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("wait returned before enough was posted")
	case <-time.After(20 * time.Millisecond):
	}

	s.Post(3)
	select {
	case <-done:
		t.Fatal("wait returned before threshold reached")
	case <-time.After(20 * time.Millisecond):
	}

	s.Post(2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait never returned after threshold reached")
	}
}

func TestStrictConsume(t *testing.T) {
	s := NewStrict(10)
	s.Consume(4)
	if got := s.Load(); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}

func TestStrictTerminateWakesWaiter(t *testing.T) {
	s := NewStrict(0)
	result := make(chan bool, 1)
	go func() {
		result <- s.Wait(100)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Terminate()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("wait reported satisfied after termination, not the reverse")
		}
	case <-time.After(time.Second):
		t.Fatal("terminate did not wake waiter")
	}
}

func TestStrictWaitReportsSatisfied(t *testing.T) {
	s := NewStrict(5)
	if !s.Wait(5) {
		t.Fatal("expected wait to report satisfied when value already meets threshold")
	}
}

func TestLooseWaitOnThreshold(t *testing.T) {
	l := NewLoose(0)
	done := make(chan struct{})
	go func() {
		l.Wait(8)
		close(done)
	}()

	l.Post(8)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait never returned")
	}
}

func TestLooseFlushReleasesBelowThreshold(t *testing.T) {
	l := NewLoose(0)
	l.Post(3) // below any realistic threshold

	done := make(chan struct{})
	go func() {
		l.Wait(100)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Flush()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush did not release waiter below threshold")
	}
	if got := l.Load(); got != 3 {
		t.Fatalf("flush must not change the value, got %d", got)
	}
}

func TestLooseConsumeDrainsFlushQuantumFirst(t *testing.T) {
	l := NewLoose(0)
	l.Post(10)
	l.Flush() // flushQuantum = 10

	l.Consume(4)
	l.mu.Lock()
	fq := l.flushQuantum
	val := l.value
	l.mu.Unlock()
	if fq != 6 {
		t.Fatalf("expected flush quantum 6 after consuming 4, got %d", fq)
	}
	if val != 6 {
		t.Fatalf("expected value 6, got %d", val)
	}

	l.Consume(6)
	l.mu.Lock()
	fq = l.flushQuantum
	l.mu.Unlock()
	if fq != 0 {
		t.Fatalf("expected flush quantum 0 after draining, got %d", fq)
	}
}

func TestLooseTerminateWakesWaiter(t *testing.T) {
	l := NewLoose(0)
	result := make(chan bool, 1)
	go func() {
		result <- l.Wait(100)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Terminate()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("wait reported satisfied after termination, not the reverse")
		}
	case <-time.After(time.Second):
		t.Fatal("terminate did not wake waiter")
	}
}
