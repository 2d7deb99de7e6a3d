// Package nsema implements the counting semaphore with an optional "flush"
// override that the duplex socket transport uses to coordinate its
// single-producer/single-consumer ring buffers. It is not a general-purpose
// semaphore: each instance assumes exactly one producer goroutine and one
// consumer goroutine.
package nsema

import "sync"

// Strict is a bounded counter where Wait(n) only wakes once the value is at
// least n. Used where the consumer needs an exact-size slot.
type Strict struct {
	mu         sync.Mutex
	cond       sync.Cond
	value      uint32
	terminated bool
}

// NewStrict returns a Strict semaphore initialized to value.
func NewStrict(value uint32) *Strict {
	s := &Strict{value: value}
	s.cond.L = &s.mu
	return s
}

// Load returns the current value without blocking.
func (s *Strict) Load() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Post adds n to the value and wakes any waiter whose threshold is now met.
func (s *Strict) Post(n uint32) {
	s.mu.Lock()
	s.value += n
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Wait blocks until the value is at least n or the semaphore is terminated.
// It reports false if it returned because of termination rather than because
// n became available.
func (s *Strict) Wait(n uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.value < n && !s.terminated {
		s.cond.Wait()
	}
	return s.value >= n
}

// Consume subtracts n from the value. The caller must already know n is
// available, typically via a prior Wait.
func (s *Strict) Consume(n uint32) {
	s.mu.Lock()
	s.value -= n
	s.mu.Unlock()
}

// Terminate wakes every blocked Wait; they observe the terminated flag and
// return regardless of value. Idempotent.
func (s *Strict) Terminate() {
	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Loose is a bounded counter like Strict, plus a Flush operation that
// releases whatever is currently present even if below the waiter's
// threshold. Used by the writer daemon, which waits for either a batching
// threshold of bytes or an explicit flush.
type Loose struct {
	mu           sync.Mutex
	cond         sync.Cond
	value        uint32
	flushQuantum uint32 // invariant: flushQuantum <= value
	terminated   bool
}

// NewLoose returns a Loose semaphore initialized to value.
func NewLoose(value uint32) *Loose {
	l := &Loose{value: value}
	l.cond.L = &l.mu
	return l
}

// Load returns the current value without blocking.
func (l *Loose) Load() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Post adds n to the value and wakes any waiter whose threshold is now met.
func (l *Loose) Post(n uint32) {
	l.mu.Lock()
	l.value += n
	l.mu.Unlock()
	l.cond.Broadcast()
}

// Flush marks the entire current value as available regardless of any
// waiter's threshold, then wakes waiters.
func (l *Loose) Flush() {
	l.mu.Lock()
	l.flushQuantum = l.value
	l.mu.Unlock()
	l.cond.Broadcast()
}

// Wait blocks until the value is at least n, a flush quantum is available,
// or the semaphore is terminated. It reports false if it returned because of
// termination with neither condition met.
func (l *Loose) Wait(n uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.value < n && l.flushQuantum == 0 && !l.terminated {
		l.cond.Wait()
	}
	return l.value >= n || l.flushQuantum > 0
}

// Consume subtracts n from the value, draining the flush quantum first.
func (l *Loose) Consume(n uint32) {
	l.mu.Lock()
	l.value -= n
	if l.flushQuantum <= n {
		l.flushQuantum = 0
	} else {
		l.flushQuantum -= n
	}
	l.mu.Unlock()
}

// Terminate wakes every blocked Wait; they observe the terminated flag and
// return regardless of value. Idempotent.
func (l *Loose) Terminate() {
	l.mu.Lock()
	l.terminated = true
	l.mu.Unlock()
	l.cond.Broadcast()
}
