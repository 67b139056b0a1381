// control.go — Run-coordination primitives for benchmark workers
// ============================================================================
// TWO-GATE RUN ORCHESTRATION
// ============================================================================
//
// Control package provides the coordination primitives behind the driver's
// two-gate barrier protocol. The original design held workers on a pair of
// global shared mutexes; here the same choreography is expressed as explicit
// countdown latches and open-once gates.
//
// Architecture overview:
//   • Latch — N arrivals release all waiters (workers → main)
//   • Gate  — a single Open releases all waiters (main → workers)
//   • Gate A holds workers until every worker finished private setup
//   • Gate B holds workers after measurement until aggregation may begin
//
// Threading model:
//   • Arrive/Open are lock-free atomic decrements plus one channel close
//   • Wait blocks on a channel and crosses each gate exactly once per run
//   • No primitive is reused after release; a run constructs fresh ones
//
// Safety guarantees:
//   • Arrivals beyond the initial count panic (protocol bug, not contention)
//   • Wait-after-release returns immediately

package control

import "sync/atomic"

// ============================================================================
// COUNTDOWN LATCH
// ============================================================================

// Latch releases every waiter once the configured number of arrivals has
// been recorded. Workers Arrive; the main thread Waits (or vice versa).
type Latch struct {
	remaining atomic.Int64
	released  chan struct{}
}

// NewLatch creates a latch expecting exactly n arrivals.
func NewLatch(n int) *Latch {
	if n <= 0 {
		panic("control: latch count must be positive")
	}
	l := &Latch{released: make(chan struct{})}
	l.remaining.Store(int64(n))
	return l
}

// Arrive records one arrival. The final arrival releases all waiters.
// Arriving on an exhausted latch is a protocol violation and panics.
func (l *Latch) Arrive() {
	left := l.remaining.Add(-1)
	if left < 0 {
		panic("control: latch arrival after release")
	}
	if left == 0 {
		close(l.released)
	}
}

// Wait blocks until every expected arrival has been recorded.
func (l *Latch) Wait() {
	<-l.released
}

// ============================================================================
// OPEN-ONCE GATE
// ============================================================================

// Gate blocks waiters until it is opened exactly once. A gate is a latch
// with a single arrival, named for the direction it is used in: the main
// thread opens, workers wait.
type Gate struct {
	opened atomic.Bool
	open   chan struct{}
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{open: make(chan struct{})}
}

// Open releases all current and future waiters. Opening twice is a
// protocol violation and panics.
func (g *Gate) Open() {
	if g.opened.Swap(true) {
		panic("control: gate opened twice")
	}
	close(g.open)
}

// Wait blocks until the gate is opened.
func (g *Gate) Wait() {
	<-g.open
}
