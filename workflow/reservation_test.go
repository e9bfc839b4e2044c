package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the reservation
// semantics the builder relies on: a charge row leaves "open" exactly once,
// a builder that loses part of a candidate releases what it did stamp, and
// concurrent builds never double-collect.
//
// Full DB integration tests should be added in an environment that can run MySQL.

type fakeChargeRow struct {
	status  string
	batchId int
}

type fakeLedger struct {
	mu   sync.Mutex
	rows map[int]*fakeChargeRow
}

func newFakeLedger(ids ...int) *fakeLedger {
	l := &fakeLedger{rows: map[int]*fakeChargeRow{}}
	for _, id := range ids {
		l.rows[id] = &fakeChargeRow{status: "open"}
	}
	return l
}

// reserve mirrors the builder's conditional UPDATE: one atomic statement that
// flips every still-open row, reporting how many it actually took.
func (l *fakeLedger) reserve(batchId int, ids []int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	affected := 0
	for _, id := range ids {
		row := l.rows[id]
		if row.status == "open" && row.batchId == 0 {
			row.status = "collected"
			row.batchId = batchId
			affected++
		}
	}
	return affected
}

// release mirrors the builder's revert of its own partial reservation.
func (l *fakeLedger) release(batchId int, ids []int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		row := l.rows[id]
		if row.batchId == batchId {
			row.status = "open"
			row.batchId = 0
		}
	}
}

// reserveCandidate is the builder's per-candidate protocol: all or nothing.
func (l *fakeLedger) reserveCandidate(batchId int, ids []int) bool {
	affected := l.reserve(batchId, ids)
	if affected == len(ids) {
		return true
	}
	if affected > 0 {
		l.release(batchId, ids)
	}
	return false
}

func TestReservation_ConcurrentBuildersNeverDoubleCollect(t *testing.T) {
	for run := 0; run < 100; run++ {
		ledger := newFakeLedger(1, 2, 3, 4, 5, 6)
		// Three mandates, two charges each; every builder wants all three.
		candidates := [][]int{{1, 2}, {3, 4}, {5, 6}}

		const builders = 8
		wins := make([][]bool, builders)
		var wg sync.WaitGroup
		for b := 0; b < builders; b++ {
			wg.Add(1)
			go func(b int) {
				defer wg.Done()
				batchId := b + 1
				wins[b] = make([]bool, len(candidates))
				for ci, ids := range candidates {
					wins[b][ci] = ledger.reserveCandidate(batchId, ids)
				}
			}(b)
		}
		wg.Wait()

		// Every candidate won exactly once across all builders.
		for ci := range candidates {
			winners := 0
			for b := 0; b < builders; b++ {
				if wins[b][ci] {
					winners++
				}
			}
			if winners != 1 {
				t.Fatalf("run=%d candidate=%d won by %d builders, want exactly 1", run, ci, winners)
			}
		}

		// Every row collected exactly once, stamped with its winner's batch.
		for id, row := range ledger.rows {
			if row.status != "collected" || row.batchId == 0 {
				t.Fatalf("run=%d row=%d left %s/batch=%d", run, id, row.status, row.batchId)
			}
		}
	}
}

func TestReservation_PartialLossReleasesOwnRows(t *testing.T) {
	ledger := newFakeLedger(1, 2, 3)

	// Another build already took row 2.
	if got := ledger.reserve(99, []int{2}); got != 1 {
		t.Fatalf("setup reserve = %d", got)
	}

	if ledger.reserveCandidate(1, []int{1, 2, 3}) {
		t.Fatal("candidate with a stolen row must lose")
	}

	// Rows 1 and 3 must be open again; row 2 still belongs to batch 99.
	for _, id := range []int{1, 3} {
		if row := ledger.rows[id]; row.status != "open" || row.batchId != 0 {
			t.Fatalf("row %d not released: %s/batch=%d", id, row.status, row.batchId)
		}
	}
	if row := ledger.rows[2]; row.status != "collected" || row.batchId != 99 {
		t.Fatalf("row 2 corrupted: %s/batch=%d", row.status, row.batchId)
	}

	// A later build with the surviving rows succeeds.
	if !ledger.reserveCandidate(2, []int{1, 3}) {
		t.Fatal("released rows must be reservable again")
	}
}
