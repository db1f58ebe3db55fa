package cedar

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
)

// TestSmokeLifecycle walks the basic single-key lifecycle against a
// fresh store.
func TestSmokeLifecycle(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	if err := engine.Set("example", []byte("foo")); err != nil {
		t.Fatalf("Unexpected error from Set: %v", err)
	}
	value, loaded, _ := engine.Get("example")
	if !loaded || !bytes.Equal(value, []byte("foo")) {
		t.Fatalf("Expected example=foo, got (%s, %v)", value, loaded)
	}

	if err := engine.Delete("example"); err != nil {
		t.Fatalf("Unexpected error from Delete: %v", err)
	}
	if _, loaded, _ := engine.Get("example"); loaded {
		t.Errorf("Expected example to be absent after Delete")
	}

	// double delete succeeds
	if err := engine.Delete("example"); err != nil {
		t.Errorf("Expected second Delete to succeed, got %v", err)
	}

	// the key is reusable after removal, no zombie lingers
	if err := engine.Set("example", []byte("again")); err != nil {
		t.Errorf("Expected Set after Delete to succeed, got %v", err)
	}
}

// The snapshot of a staged key is captured at first touch and never
// refreshed: re-staging after an outside write must not hide the
// conflict.
func TestSnapshotCapturedOnce(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	_ = engine.Set("a", []byte("v1"))

	_ = engine.Begin("t")
	_ = engine.SetTx("a", []byte("staged1"), "t")

	// outside write invalidates the snapshot
	_ = engine.Set("a", []byte("v2"))

	// re-staging updates the pending value only
	_ = engine.SetTx("a", []byte("staged2"), "t")

	if err := engine.Commit("t"); db.CodeOf(err) != db.RetCConflictAborted {
		t.Errorf("Expected RetCConflictAborted, got %v", err)
	}

	if value, _, _ := engine.Get("a"); !bytes.Equal(value, []byte("v2")) {
		t.Errorf("Expected the outside write to survive, got %s", value)
	}
}

// A key deleted after being snapshotted conflicts on commit.
func TestCommitConflictAfterDelete(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	_ = engine.Set("a", []byte("v1"))

	_ = engine.Begin("t")
	_ = engine.SetTx("a", []byte("staged"), "t")

	_ = engine.Delete("a")

	if err := engine.Commit("t"); db.CodeOf(err) != db.RetCConflictAborted {
		t.Errorf("Expected RetCConflictAborted, got %v", err)
	}
	if _, loaded, _ := engine.Get("a"); loaded {
		t.Errorf("Expected a to stay deleted")
	}
}

// A single tampered key aborts the whole commit; staged keys that
// validated cleanly are not published either.
func TestConflictPublishesNothing(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	_ = engine.Set("b-tampered", []byte("base"))

	_ = engine.Begin("t")
	_ = engine.SetTx("a-clean", []byte("never-lands"), "t")
	_ = engine.SetTx("b-tampered", []byte("never-lands"), "t")

	// invalidate the second staged key only
	_ = engine.Set("b-tampered", []byte("changed"))

	if err := engine.Commit("t"); db.CodeOf(err) != db.RetCConflictAborted {
		t.Fatalf("Expected RetCConflictAborted, got %v", err)
	}

	// the clean key sorts before the conflict and still must not land
	if _, loaded, _ := engine.Get("a-clean"); loaded {
		t.Errorf("Expected no staged key to be published by an aborted commit")
	}
	if value, _, _ := engine.Get("b-tampered"); !bytes.Equal(value, []byte("changed")) {
		t.Errorf("Expected conflicting key untouched, got %s", value)
	}
}

// A committed erase both hides and physically removes the cell; the
// key is immediately writable again.
func TestCommittedEraseRemovesCell(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	_ = engine.Set("k", []byte("v"))

	_ = engine.Begin("t")
	_ = engine.SetTx("k", []byte("ignored"), "t")
	_ = engine.DeleteTx("k", "t")
	if err := engine.Commit("t"); err != nil {
		t.Fatalf("Unexpected error from Commit: %v", err)
	}

	if loaded, _ := engine.Has("k"); loaded {
		t.Errorf("Expected k gone after committed erase")
	}
	if err := engine.Set("k", []byte("fresh")); err != nil {
		t.Errorf("Expected Set after committed erase to succeed, got %v", err)
	}
	if value, loaded, _ := engine.Get("k"); !loaded || !bytes.Equal(value, []byte("fresh")) {
		t.Errorf("Expected k=fresh, got (%s, %v)", value, loaded)
	}
}

// An erase staged over a key that never existed applies as a no-op
// but still conflicts if the key appears before the commit lands.
func TestStagedEraseOfMissingKey(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	_ = engine.Begin("clean")
	_ = engine.SetTx("ghost", []byte("tmp"), "clean")
	_ = engine.DeleteTx("ghost", "clean")
	if err := engine.Commit("clean"); err != nil {
		t.Errorf("Expected erase of a still-missing key to commit, got %v", err)
	}
	if loaded, _ := engine.Has("ghost"); loaded {
		t.Errorf("Expected ghost to stay absent")
	}

	_ = engine.Begin("raced")
	_ = engine.SetTx("ghost", []byte("tmp"), "raced")
	_ = engine.DeleteTx("ghost", "raced")

	// the key materializes before the commit
	_ = engine.Set("ghost", []byte("appeared"))

	if err := engine.Commit("raced"); db.CodeOf(err) != db.RetCConflictAborted {
		t.Errorf("Expected RetCConflictAborted, got %v", err)
	}
	if value, _, _ := engine.Get("ghost"); !bytes.Equal(value, []byte("appeared")) {
		t.Errorf("Expected the outside write to survive, got %s", value)
	}
}

// Hammer the engine from many goroutines mixing plain writes,
// transactions and deletes, then verify it still answers coherently.
func TestConcurrentMixedUsage(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	numWorkers := 8
	opsPerWorker := 500

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("hot-key-%d", i%25)
				switch i % 5 {
				case 0, 1:
					_ = engine.Set(key, []byte(fmt.Sprintf("w%d-%d", workerID, i)))
				case 2:
					_, _, _ = engine.Get(key)
				case 3:
					txID := fmt.Sprintf("w%d-txn-%d", workerID, i)
					_ = engine.Begin(txID)
					_ = engine.SetTx(key, []byte(txID), txID)
					_, _, _ = engine.GetTx(key, txID)
					// commits race against plain writers; conflicts
					// are an expected outcome here
					if err := engine.Commit(txID); err != nil {
						if db.CodeOf(err) != db.RetCConflictAborted {
							t.Errorf("Unexpected commit error: %v", err)
						}
					}
				case 4:
					_ = engine.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	// the engine is still coherent: reads agree with Has and repeated
	// reads return stable copies
	for i := 0; i < 25; i++ {
		key := fmt.Sprintf("hot-key-%d", i)
		value, loaded, err := engine.Get(key)
		if err != nil {
			t.Fatalf("Unexpected error from Get: %v", err)
		}
		has, _ := engine.Has(key)
		if has != loaded {
			t.Errorf("Has and Get disagree for %s: has=%v loaded=%v", key, has, loaded)
		}
		if loaded {
			again, loadedAgain, _ := engine.Get(key)
			if !loadedAgain || !bytes.Equal(value, again) {
				t.Errorf("Unstable read for %s: %s vs %s", key, value, again)
			}
		}
	}
}

// Transactions over distinct key ranges never interfere, no matter
// how the commits interleave.
func TestCommitStressDisjointRanges(t *testing.T) {
	engine := New(nil)
	defer engine.Close()

	numWorkers := 8
	txnsPerWorker := 50

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < txnsPerWorker; i++ {
				txID := fmt.Sprintf("w%d-t%d", workerID, i)
				if err := engine.Begin(txID); err != nil {
					t.Errorf("Unexpected error from Begin: %v", err)
					return
				}
				for j := 0; j < 4; j++ {
					key := fmt.Sprintf("w%d-k%d", workerID, j)
					_ = engine.SetTx(key, []byte(txID), txID)
				}
				if err := engine.Commit(txID); err != nil {
					t.Errorf("Unexpected error from Commit: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// every worker's keys carry its final transaction's value
	for w := 0; w < numWorkers; w++ {
		want := []byte(fmt.Sprintf("w%d-t%d", w, txnsPerWorker-1))
		for j := 0; j < 4; j++ {
			key := fmt.Sprintf("w%d-k%d", w, j)
			value, loaded, _ := engine.Get(key)
			if !loaded || !bytes.Equal(value, want) {
				t.Errorf("Expected %s=%s, got (%s, %v)", key, want, value, loaded)
			}
		}
	}
}
