// ============================================================================
// MWCAS ENGINE CORRECTNESS VALIDATION SUITE
// ============================================================================
//
// Validates the three-phase MwCAS protocol, protected reads, and descriptor
// recycling under single-threaded edge cases and multi-threaded contention.
//
// Validation methodology:
//   - Single-target operations checked against plain CAS semantics
//   - Concurrent increment storms verified by exact final counter values
//   - Helping exercised deterministically by hand-installing a descriptor
//   - Deterministic seeds ensure reproducible failure cases
//
// Correctness guarantees verified:
//   - Success implies every target moved expected → desired atomically
//   - Failure implies at least one target mismatched; no partial effects
//   - Protected reads never surface an encoded descriptor reference
//   - Finalize is idempotent; precondition violations abort loudly

package mwcas

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
)

// runMwCAS performs one increment attempt over the given field addresses
// and retries until it linearizes.
func runMwCAS(eng *Engine, h *epoch.Handle, addrs []*uint64) {
	h.Enter()
	defer h.Leave()
	for {
		d := eng.Acquire(h)
		for _, addr := range addrs {
			old := eng.Read(addr)
			d.AddTarget(addr, old, old+1)
		}
		if d.Exec() {
			return
		}
	}
}

// ============================================================================
// SINGLE-THREADED SEMANTICS
// ============================================================================

func TestMwCASSingleTargetMatchesCASSemantics(t *testing.T) {
	eng := NewEngine(1)
	mgr := epoch.NewManager(1)
	h := mgr.Register()

	field := uint64(41)

	h.Enter()
	d := eng.Acquire(h)
	d.AddTarget(&field, 41, 42)
	if !d.Exec() {
		t.Fatal("arity-1 MwCAS with matching expected must succeed")
	}
	h.Leave()

	h.Enter()
	if got := eng.Read(&field); got != 42 {
		t.Fatalf("field = %d, want 42", got)
	}
	h.Leave()
}

func TestMwCASFailsOnMismatch(t *testing.T) {
	eng := NewEngine(1)
	mgr := epoch.NewManager(1)
	h := mgr.Register()

	a, b := uint64(1), uint64(2)

	h.Enter()
	d := eng.Acquire(h)
	d.AddTarget(&a, 1, 10)
	d.AddTarget(&b, 99, 20) // b holds 2, not 99
	if d.Exec() {
		t.Fatal("MwCAS with a mismatched expected value must fail")
	}
	if got := eng.Read(&a); got != 1 {
		t.Fatalf("a = %d after failed MwCAS, want untouched 1", got)
	}
	if got := eng.Read(&b); got != 2 {
		t.Fatalf("b = %d after failed MwCAS, want untouched 2", got)
	}
	h.Leave()
}

func TestMwCASNoOpValuesStillLinearize(t *testing.T) {
	eng := NewEngine(1)
	mgr := epoch.NewManager(1)
	h := mgr.Register()

	a, b := uint64(7), uint64(8)

	h.Enter()
	d := eng.Acquire(h)
	d.AddTarget(&a, 7, 7)
	d.AddTarget(&b, 8, 8)
	if !d.Exec() {
		t.Fatal("desired == expected must still succeed")
	}
	if eng.Read(&a) != 7 || eng.Read(&b) != 8 {
		t.Fatal("no-op MwCAS must leave values unchanged")
	}
	h.Leave()
}

func TestMwCASMaxArityLowContention(t *testing.T) {
	eng := NewEngine(1)
	mgr := epoch.NewManager(1)
	h := mgr.Register()

	fields := make([]uint64, constants.MaxTargets)

	h.Enter()
	d := eng.Acquire(h)
	for i := range fields {
		d.AddTarget(&fields[i], 0, uint64(i)+1)
	}
	if !d.Exec() {
		t.Fatal("arity-K MwCAS under no contention must succeed")
	}
	for i := range fields {
		if got := eng.Read(&fields[i]); got != uint64(i)+1 {
			t.Fatalf("fields[%d] = %d, want %d", i, got, i+1)
		}
	}
	h.Leave()
}

// ============================================================================
// PRECONDITION VIOLATIONS
// ============================================================================

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s must panic", name)
		}
	}()
	f()
}

func TestDescriptorPreconditionsAbort(t *testing.T) {
	eng := NewEngine(1)
	mgr := epoch.NewManager(1)
	h := mgr.Register()

	field := uint64(0)
	fields := make([]uint64, constants.MaxTargets+1)

	h.Enter()
	defer h.Leave()

	expectPanic(t, "duplicate address", func() {
		d := eng.Acquire(h)
		d.AddTarget(&field, 0, 1)
		d.AddTarget(&field, 0, 2)
	})
	expectPanic(t, "arity overflow", func() {
		d := eng.Acquire(h)
		for i := range fields {
			d.AddTarget(&fields[i], 0, 1)
		}
	})
	expectPanic(t, "tagged plain value", func() {
		d := eng.Acquire(h)
		d.AddTarget(&field, constants.DescFlag, 1)
	})
}

func TestAcquireOutsideGuardAborts(t *testing.T) {
	eng := NewEngine(1)
	mgr := epoch.NewManager(1)
	h := mgr.Register()

	expectPanic(t, "acquire outside guard", func() { eng.Acquire(h) })
}

// ============================================================================
// HELPING
// ============================================================================

// TestReadHelpsForeignDescriptor hand-installs an undecided descriptor into
// a word and verifies that a protected read drives it to completion instead
// of surfacing the encoded reference.
func TestReadHelpsForeignDescriptor(t *testing.T) {
	eng := NewEngine(2)
	mgr := epoch.NewManager(2)
	owner := mgr.Register()
	reader := mgr.Register()

	field := uint64(5)

	owner.Enter()
	d := eng.Acquire(owner)
	d.AddTarget(&field, 5, 6)
	// Install by hand, leaving the descriptor undecided: the state another
	// thread observes when the owner stalls mid-protocol.
	if !atomic.CompareAndSwapUint64(&field, 5, d.enc) {
		t.Fatal("manual install failed")
	}

	reader.Enter()
	if got := eng.Read(&field); got != 6 {
		t.Fatalf("Read through undecided descriptor = %d, want helped value 6", got)
	}
	if IsDescriptor(atomic.LoadUint64(&field)) {
		t.Fatal("slot must be finalized after a helping read")
	}
	reader.Leave()

	// The stalled owner resumes; completion must be idempotent.
	if !d.Exec() {
		t.Fatal("owner completion after helpers must still report success")
	}
	owner.Leave()
}

// TestMwCASHelpsForeignDescriptor covers the install-phase collision: an
// arity-4 operation finds one of its slots occupied by a foreign undecided
// descriptor and must complete via helping.
func TestMwCASHelpsForeignDescriptor(t *testing.T) {
	eng := NewEngine(2)
	mgr := epoch.NewManager(2)
	owner := mgr.Register()
	caller := mgr.Register()

	fields := make([]uint64, 4)

	owner.Enter()
	d := eng.Acquire(owner)
	d.AddTarget(&fields[2], 0, 100)
	if !atomic.CompareAndSwapUint64(&fields[2], 0, d.enc) {
		t.Fatal("manual install failed")
	}

	// The caller expects the foreign op's outcome 100 at fields[2] without
	// reading it first, so its install phase meets the undecided descriptor
	// there and must help it commit before installing its own.
	caller.Enter()
	cd := eng.Acquire(caller)
	cd.AddTarget(&fields[0], 0, 1)
	cd.AddTarget(&fields[1], 0, 1)
	cd.AddTarget(&fields[2], 100, 101)
	cd.AddTarget(&fields[3], 0, 1)
	if !cd.Exec() {
		t.Fatal("arity-4 MwCAS must succeed after helping the foreign descriptor")
	}
	want := []uint64{1, 1, 101, 1}
	for i, w := range want {
		if got := eng.Read(&fields[i]); got != w {
			t.Fatalf("fields[%d] = %d, want %d", i, got, w)
		}
	}
	caller.Leave()

	if !d.Exec() {
		t.Fatal("stalled owner must observe its helped operation as committed")
	}
	owner.Leave()
}

// ============================================================================
// CONCURRENT INCREMENT STORMS
// ============================================================================

// TestMwCASConcurrentPairIncrements: two threads, 100k arity-2 increments
// each on the same two fields; both counters must land on exactly 200k.
func TestMwCASConcurrentPairIncrements(t *testing.T) {
	const perThread = 100_000
	const threads = 2

	eng := NewEngine(threads)
	mgr := epoch.NewManager(threads)
	fields := make([]uint64, 2)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := mgr.Register()
			for n := 0; n < perThread; n++ {
				runMwCAS(eng, h, []*uint64{&fields[0], &fields[1]})
			}
		}()
	}
	wg.Wait()

	for i := range fields {
		if fields[i] != threads*perThread {
			t.Fatalf("fields[%d] = %d, want %d", i, fields[i], threads*perThread)
		}
	}
}

// TestMwCASStressMaxArity: 16 threads x 10k ops x arity K over 1000 fields.
// Every field must equal the number of successful operations that included
// it, tallied locally per thread.
func TestMwCASStressMaxArity(t *testing.T) {
	const (
		threads   = 16
		perThread = 10_000
		numFields = 1000
	)

	eng := NewEngine(threads)
	mgr := epoch.NewManager(threads)
	fields := make([]uint64, numFields)

	tallies := make([][]uint64, threads)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h := mgr.Register()
			rng := rand.New(rand.NewSource(int64(id)))
			tally := make([]uint64, numFields)
			tallies[id] = tally

			idx := make([]int, 0, constants.MaxTargets)
			addrs := make([]*uint64, 0, constants.MaxTargets)
			for n := 0; n < perThread; n++ {
				idx = idx[:0]
				for len(idx) < constants.MaxTargets {
					f := rng.Intn(numFields)
					dup := false
					for _, v := range idx {
						if v == f {
							dup = true
							break
						}
					}
					if !dup {
						idx = append(idx, f)
					}
				}
				// Field order gives address order over one backing array.
				for a := 0; a < len(idx); a++ {
					for b := a + 1; b < len(idx); b++ {
						if idx[b] < idx[a] {
							idx[a], idx[b] = idx[b], idx[a]
						}
					}
				}
				addrs = addrs[:0]
				for _, f := range idx {
					addrs = append(addrs, &fields[f])
				}
				runMwCAS(eng, h, addrs)
				for _, f := range idx {
					tally[f]++
				}
			}
		}(i)
	}
	wg.Wait()

	for f := 0; f < numFields; f++ {
		var want uint64
		for _, tally := range tallies {
			want += tally[f]
		}
		if fields[f] != want {
			t.Fatalf("fields[%d] = %d, want %d successful inclusions", f, fields[f], want)
		}
	}
}

// TestReadNeverSurfacesDescriptor hammers one hot field with writers while
// a reader loop asserts invariant 3: protected reads always unwrap.
func TestReadNeverSurfacesDescriptor(t *testing.T) {
	const writers = 4
	const perWriter = 50_000

	eng := NewEngine(writers + 1)
	mgr := epoch.NewManager(writers + 1)
	fields := make([]uint64, 2)

	var stop atomic.Bool
	var readers, writersWG sync.WaitGroup

	readers.Add(1)
	go func() {
		defer readers.Done()
		h := mgr.Register()
		for !stop.Load() {
			h.Enter()
			if v := eng.Read(&fields[0]); IsDescriptor(v) {
				h.Leave()
				t.Error("protected read surfaced an encoded descriptor")
				return
			}
			h.Leave()
		}
	}()

	for i := 0; i < writers; i++ {
		writersWG.Add(1)
		go func() {
			defer writersWG.Done()
			h := mgr.Register()
			for n := 0; n < perWriter; n++ {
				runMwCAS(eng, h, []*uint64{&fields[0], &fields[1]})
			}
		}()
	}

	writersWG.Wait()
	stop.Store(true)
	readers.Wait()

	if fields[0] != uint64(perWriter*writers) {
		t.Fatalf("hot field = %d, want %d", fields[0], perWriter*writers)
	}
}
