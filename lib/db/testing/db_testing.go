package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
)

// EngineFactory is a function that creates a new instance of an Engine
// implementation
type EngineFactory func() db.Engine

// RunEngineTests runs a comprehensive test suite for an Engine
// implementation.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("SetIfUnset", func(t *testing.T) {
			testSetIfUnset(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("BeginDuplicate", func(t *testing.T) {
			testBeginDuplicate(t, factory())
		})

		t.Run("StagingIsolation", func(t *testing.T) {
			testStagingIsolation(t, factory())
		})

		t.Run("TxReadYourWrites", func(t *testing.T) {
			testTxReadYourWrites(t, factory())
		})

		t.Run("TxUnknownID", func(t *testing.T) {
			testTxUnknownID(t, factory())
		})

		t.Run("TxEraseSemantics", func(t *testing.T) {
			testTxEraseSemantics(t, factory())
		})

		t.Run("CommitPublication", func(t *testing.T) {
			testCommitPublication(t, factory())
		})

		t.Run("RollbackInvalidates", func(t *testing.T) {
			testRollbackInvalidates(t, factory())
		})

		t.Run("ConflictLeavesWinnerState", func(t *testing.T) {
			testConflictLeavesWinnerState(t, factory())
		})

		t.Run("ConcurrentDisjointCommits", func(t *testing.T) {
			testConcurrentDisjointCommits(t, factory())
		})

		t.Run("ConcurrentOverlappingCommits", func(t *testing.T) {
			testConcurrentOverlappingCommits(t, factory())
		})

		t.Run("SameIDCommitRace", func(t *testing.T) {
			testSameIDCommitRace(t, factory())
		})

		t.Run("Watch", func(t *testing.T) {
			testWatch(t, factory())
		})

		t.Run("GetInfo", func(t *testing.T) {
			testGetInfo(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the engine supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, engine db.Engine, feature db.Feature) {
	if !engine.SupportsFeature(feature) {
		t.Skip()
	}
}

// mustGet fails the test on error and returns the value and presence
func mustGet(t testing.TB, engine db.Engine, key string) ([]byte, bool) {
	t.Helper()
	value, loaded, err := engine.Get(key)
	if err != nil {
		t.Fatalf("Unexpected error from Get(%q): %v", key, err)
	}
	return value, loaded
}

// --------------------------------------------------------------------------
// Test functions - non-transactional operations
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	// never-written keys read as absent
	if _, loaded := mustGet(t, engine, "nonexistent-key"); loaded {
		t.Errorf("Expected nonexistent key to return loaded=false")
	}

	if err := engine.Set(testKey, testValue1); err != nil {
		t.Fatalf("Unexpected error from Set: %v", err)
	}

	result, loaded := mustGet(t, engine, testKey)
	if !loaded {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := engine.Set(testKey, testValue2); err != nil {
		t.Fatalf("Unexpected error from Set: %v", err)
	}

	result, loaded = mustGet(t, engine, testKey)
	if !loaded {
		t.Errorf("Expected key %s to exist after overwrite", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	// returned values are copies, not references
	retrieved, _ := mustGet(t, engine, testKey)
	retrieved[0] = 'X'
	original, _ := mustGet(t, engine, testKey)
	if bytes.Equal(retrieved, original) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testSetIfUnset(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSetIfUnset|db.FeatureGet|db.FeatureDelete)

	testKey := "unset-test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	stored, err := engine.SetIfUnset(testKey, testValue1)
	if err != nil || !stored {
		t.Fatalf("Expected first SetIfUnset to store, got (%v, %v)", stored, err)
	}

	// an existing key is left untouched, without error
	stored, err = engine.SetIfUnset(testKey, testValue2)
	if err != nil || stored {
		t.Errorf("Expected second SetIfUnset to be a no-op, got (%v, %v)", stored, err)
	}
	if value, loaded := mustGet(t, engine, testKey); !loaded || !bytes.Equal(value, testValue1) {
		t.Errorf("Expected the first value to survive, got (%s, %v)", value, loaded)
	}

	// deletion frees the key for the next insert
	_ = engine.Delete(testKey)
	stored, err = engine.SetIfUnset(testKey, testValue2)
	if err != nil || !stored {
		t.Errorf("Expected SetIfUnset after Delete to store, got (%v, %v)", stored, err)
	}

	// of many concurrent inserters, exactly one stores
	raceKey := "unset-race-key"
	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	storedCount := make([]bool, numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			defer wg.Done()
			ok, err := engine.SetIfUnset(raceKey, []byte(fmt.Sprintf("worker-%d", w)))
			if err != nil {
				t.Errorf("Unexpected error from SetIfUnset: %v", err)
				return
			}
			storedCount[w] = ok
		}(w)
	}
	wg.Wait()

	winners := 0
	winner := -1
	for w, ok := range storedCount {
		if ok {
			winners++
			winner = w
		}
	}
	if winners != 1 {
		t.Fatalf("Expected exactly one stored insert, got %d", winners)
	}
	if value, loaded := mustGet(t, engine, raceKey); !loaded || !bytes.Equal(value, []byte(fmt.Sprintf("worker-%d", winner))) {
		t.Errorf("Expected the winner's value, got (%s, %v)", value, loaded)
	}
}

func testDelete(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	testKey := "delete-test-key"
	testValue := []byte("delete-test-value")

	if err := engine.Set(testKey, testValue); err != nil {
		t.Fatalf("Unexpected error from Set: %v", err)
	}

	if err := engine.Delete(testKey); err != nil {
		t.Fatalf("Unexpected error from Delete: %v", err)
	}

	if _, loaded := mustGet(t, engine, testKey); loaded {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	// deleting a missing key is idempotent
	if err := engine.Delete(testKey); err != nil {
		t.Errorf("Expected repeated Delete to succeed, got %v", err)
	}
	if err := engine.Delete("never-existed"); err != nil {
		t.Errorf("Expected Delete of missing key to succeed, got %v", err)
	}
}

func testHas(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	testKey := "has-test-key"

	if loaded, _ := engine.Has(testKey); loaded {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	_ = engine.Set(testKey, []byte("has-test-value"))

	if loaded, _ := engine.Has(testKey); !loaded {
		t.Errorf("Expected Has to return true after Set")
	}

	_ = engine.Delete(testKey)

	if loaded, _ := engine.Has(testKey); loaded {
		t.Errorf("Expected Has to return false after Delete")
	}
}

// --------------------------------------------------------------------------
// Test functions - transaction lifecycle
// --------------------------------------------------------------------------

func testBeginDuplicate(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions)

	if err := engine.Begin("abc"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}

	err := engine.Begin("abc")
	if db.CodeOf(err) != db.RetCDuplicateTransaction {
		t.Errorf("Expected RetCDuplicateTransaction, got %v", err)
	}

	// a committed or rolled-back ID may be reused
	if err := engine.Rollback("abc"); err != nil {
		t.Fatalf("Unexpected error from Rollback: %v", err)
	}
	if err := engine.Begin("abc"); err != nil {
		t.Errorf("Expected Begin to succeed after Rollback, got %v", err)
	}
}

func testStagingIsolation(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions|db.FeatureGet)

	if err := engine.Begin("abc"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}
	if err := engine.SetTx("a", []byte("foo"), "abc"); err != nil {
		t.Fatalf("Unexpected error from SetTx: %v", err)
	}

	value, loaded, err := engine.GetTx("a", "abc")
	if err != nil || !loaded {
		t.Errorf("Expected staged value visible inside the transaction, got (%v, %v)", loaded, err)
	}
	if !bytes.Equal(value, []byte("foo")) {
		t.Errorf("Expected staged value foo, got %s", value)
	}

	// staged writes are invisible outside the transaction
	if _, loaded := mustGet(t, engine, "a"); loaded {
		t.Errorf("Expected staged key to be absent outside the transaction")
	}
}

func testTxReadYourWrites(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions|db.FeatureSet)

	_ = engine.Set("committed", []byte("base"))
	_ = engine.Set("staged", []byte("old"))

	if err := engine.Begin("rw"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}

	// untouched keys fall through to the committed state
	value, loaded, err := engine.GetTx("committed", "rw")
	if err != nil || !loaded || !bytes.Equal(value, []byte("base")) {
		t.Errorf("Expected fall-through read of committed value, got (%s, %v, %v)", value, loaded, err)
	}

	// staged writes are read back
	_ = engine.SetTx("staged", []byte("new"), "rw")
	value, loaded, _ = engine.GetTx("staged", "rw")
	if !loaded || !bytes.Equal(value, []byte("new")) {
		t.Errorf("Expected staged value new, got (%s, %v)", value, loaded)
	}

	// staged erases read as absent
	_ = engine.DeleteTx("staged", "rw")
	if _, loaded, _ = engine.GetTx("staged", "rw"); loaded {
		t.Errorf("Expected staged erase to read as absent")
	}

	// re-staging after an erase flips back to a put
	_ = engine.SetTx("staged", []byte("newer"), "rw")
	value, loaded, _ = engine.GetTx("staged", "rw")
	if !loaded || !bytes.Equal(value, []byte("newer")) {
		t.Errorf("Expected re-staged value newer, got (%s, %v)", value, loaded)
	}
}

func testTxUnknownID(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions)

	if err := engine.SetTx("a", []byte("foo"), "ghost"); db.CodeOf(err) != db.RetCNoSuchTransaction {
		t.Errorf("Expected RetCNoSuchTransaction from SetTx, got %v", err)
	}
	if _, _, err := engine.GetTx("a", "ghost"); db.CodeOf(err) != db.RetCNoSuchTransaction {
		t.Errorf("Expected RetCNoSuchTransaction from GetTx, got %v", err)
	}
	if err := engine.Commit("ghost"); db.CodeOf(err) != db.RetCNoSuchTransaction {
		t.Errorf("Expected RetCNoSuchTransaction from Commit, got %v", err)
	}
	if err := engine.Rollback("ghost"); db.CodeOf(err) != db.RetCNoSuchTransaction {
		t.Errorf("Expected RetCNoSuchTransaction from Rollback, got %v", err)
	}

	// the transactional erase is the exception: unknown IDs are ignored
	if err := engine.DeleteTx("a", "ghost"); err != nil {
		t.Errorf("Expected DeleteTx on unknown transaction to be a no-op, got %v", err)
	}
}

func testTxEraseSemantics(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions|db.FeatureSet)

	_ = engine.Set("tracked", []byte("v1"))
	_ = engine.Set("untracked", []byte("v1"))

	if err := engine.Begin("erase"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}

	// an erase over a staged key takes effect on commit
	_ = engine.SetTx("tracked", []byte("v2"), "erase")
	_ = engine.DeleteTx("tracked", "erase")

	// an erase of a key the transaction never touched stages nothing
	_ = engine.DeleteTx("untracked", "erase")

	if err := engine.Commit("erase"); err != nil {
		t.Fatalf("Unexpected error from Commit: %v", err)
	}

	if _, loaded := mustGet(t, engine, "tracked"); loaded {
		t.Errorf("Expected staged erase to remove the key on commit")
	}
	if value, loaded := mustGet(t, engine, "untracked"); !loaded || !bytes.Equal(value, []byte("v1")) {
		t.Errorf("Expected untouched erase target to survive the commit, got (%s, %v)", value, loaded)
	}
}

func testCommitPublication(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions|db.FeatureGet)

	if err := engine.Begin("abc"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}
	_ = engine.SetTx("a", []byte("foo"), "abc")

	if err := engine.Begin("xyz"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}
	_ = engine.SetTx("a", []byte("bar"), "xyz")

	if err := engine.Commit("xyz"); err != nil {
		t.Fatalf("Unexpected error from Commit: %v", err)
	}

	value, loaded := mustGet(t, engine, "a")
	if !loaded || !bytes.Equal(value, []byte("bar")) {
		t.Errorf("Expected committed value bar, got (%s, %v)", value, loaded)
	}

	// the still-staging transaction snapshotted "a" as absent and must abort
	err := engine.Commit("abc")
	if db.CodeOf(err) != db.RetCConflictAborted {
		t.Errorf("Expected RetCConflictAborted, got %v", err)
	}

	value, loaded = mustGet(t, engine, "a")
	if !loaded || !bytes.Equal(value, []byte("bar")) {
		t.Errorf("Expected aborted commit to leave bar in place, got (%s, %v)", value, loaded)
	}
}

func testRollbackInvalidates(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions|db.FeatureSet)

	_ = engine.Set("a", []byte("bar"))

	if err := engine.Begin("abc"); err != nil {
		t.Fatalf("Unexpected error from Begin: %v", err)
	}
	_ = engine.SetTx("a", []byte("foo"), "abc")

	if err := engine.Rollback("abc"); err != nil {
		t.Fatalf("Unexpected error from Rollback: %v", err)
	}

	if err := engine.SetTx("a", []byte("foo"), "abc"); db.CodeOf(err) != db.RetCNoSuchTransaction {
		t.Errorf("Expected RetCNoSuchTransaction after rollback, got %v", err)
	}

	if value, loaded := mustGet(t, engine, "a"); !loaded || !bytes.Equal(value, []byte("bar")) {
		t.Errorf("Expected rollback to leave the committed value alone, got (%s, %v)", value, loaded)
	}
}

func testConflictLeavesWinnerState(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions|db.FeatureSet)

	_ = engine.Set("k1", []byte("base1"))
	_ = engine.Set("k2", []byte("base2"))

	_ = engine.Begin("loser")
	_ = engine.SetTx("k1", []byte("loser1"), "loser")
	_ = engine.SetTx("k2", []byte("loser2"), "loser")

	_ = engine.Begin("winner")
	_ = engine.SetTx("k2", []byte("winner2"), "winner")
	if err := engine.Commit("winner"); err != nil {
		t.Fatalf("Unexpected error from Commit: %v", err)
	}

	if err := engine.Commit("loser"); db.CodeOf(err) != db.RetCConflictAborted {
		t.Errorf("Expected RetCConflictAborted, got %v", err)
	}

	// the loser is gone from the table...
	if err := engine.Commit("loser"); db.CodeOf(err) != db.RetCNoSuchTransaction {
		t.Errorf("Expected aborted transaction to be removed, got %v", err)
	}

	// ...and the store is exactly as the winner left it
	if value, _ := mustGet(t, engine, "k1"); !bytes.Equal(value, []byte("base1")) {
		t.Errorf("Expected k1 untouched by the aborted commit, got %s", value)
	}
	if value, _ := mustGet(t, engine, "k2"); !bytes.Equal(value, []byte("winner2")) {
		t.Errorf("Expected k2 as the winner left it, got %s", value)
	}
}

// --------------------------------------------------------------------------
// Test functions - concurrency
// --------------------------------------------------------------------------

func testConcurrentDisjointCommits(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions)

	numTxns := 16
	keysPerTxn := 8

	for i := 0; i < numTxns; i++ {
		txID := fmt.Sprintf("txn-%d", i)
		if err := engine.Begin(txID); err != nil {
			t.Fatalf("Unexpected error from Begin: %v", err)
		}
		for j := 0; j < keysPerTxn; j++ {
			key := fmt.Sprintf("key-%d-%d", i, j)
			_ = engine.SetTx(key, []byte(txID), txID)
		}
	}

	var wg sync.WaitGroup
	wg.Add(numTxns)
	errs := make([]error, numTxns)
	for i := 0; i < numTxns; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = engine.Commit(fmt.Sprintf("txn-%d", i))
		}(i)
	}
	wg.Wait()

	// disjoint key sets: every commit wins, the store is the union
	for i := 0; i < numTxns; i++ {
		if errs[i] != nil {
			t.Errorf("Expected commit of txn-%d to succeed, got %v", i, errs[i])
		}
		for j := 0; j < keysPerTxn; j++ {
			key := fmt.Sprintf("key-%d-%d", i, j)
			value, loaded := mustGet(t, engine, key)
			if !loaded || !bytes.Equal(value, []byte(fmt.Sprintf("txn-%d", i))) {
				t.Errorf("Expected %s=txn-%d after commit, got (%s, %v)", key, i, value, loaded)
			}
		}
	}
}

func testConcurrentOverlappingCommits(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions)

	// run the race a few times; each round stages two transactions over
	// the same three fresh keys
	for round := 0; round < 25; round++ {
		keyB := fmt.Sprintf("b-%d", round)
		keyC := fmt.Sprintf("c-%d", round)
		keyD := fmt.Sprintf("d-%d", round)

		_ = engine.Begin("aze")
		_ = engine.SetTx(keyB, []byte("fro"), "aze")
		_ = engine.SetTx(keyC, []byte("crz"), "aze")
		_ = engine.SetTx(keyD, []byte("ert"), "aze")

		_ = engine.Begin("ghj")
		_ = engine.SetTx(keyB, []byte("for"), "ghj")
		_ = engine.SetTx(keyC, []byte("car"), "ghj")
		_ = engine.SetTx(keyD, []byte("err"), "ghj")

		var wg sync.WaitGroup
		wg.Add(2)
		var errAze, errGhj error
		go func() {
			defer wg.Done()
			errAze = engine.Commit("aze")
		}()
		go func() {
			defer wg.Done()
			errGhj = engine.Commit("ghj")
		}()
		wg.Wait()

		// exactly one side wins on an initially empty overlap
		if (errAze == nil) == (errGhj == nil) {
			t.Fatalf("Expected exactly one winner, got aze=%v ghj=%v", errAze, errGhj)
		}
		if errAze != nil && db.CodeOf(errAze) != db.RetCConflictAborted {
			t.Errorf("Expected RetCConflictAborted for the loser, got %v", errAze)
		}
		if errGhj != nil && db.CodeOf(errGhj) != db.RetCConflictAborted {
			t.Errorf("Expected RetCConflictAborted for the loser, got %v", errGhj)
		}

		b, _ := mustGet(t, engine, keyB)
		c, _ := mustGet(t, engine, keyC)
		d, _ := mustGet(t, engine, keyD)

		azeWon := bytes.Equal(b, []byte("fro")) && bytes.Equal(c, []byte("crz")) && bytes.Equal(d, []byte("ert"))
		ghjWon := bytes.Equal(b, []byte("for")) && bytes.Equal(c, []byte("car")) && bytes.Equal(d, []byte("err"))
		if !azeWon && !ghjWon {
			t.Fatalf("Mixed commit result: b=%s c=%s d=%s", b, c, d)
		}
	}
}

func testSameIDCommitRace(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureTransactions)

	for round := 0; round < 25; round++ {
		key := fmt.Sprintf("race-%d", round)

		_ = engine.Begin("def")
		_ = engine.SetTx(key, []byte("once"), "def")

		var wg sync.WaitGroup
		wg.Add(2)
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			go func(i int) {
				defer wg.Done()
				errs[i] = engine.Commit("def")
			}(i)
		}
		wg.Wait()

		// both calls may resolve as success (one of them by no-op), or
		// the slower one may find the transaction already gone
		for _, err := range errs {
			if err != nil && db.CodeOf(err) != db.RetCNoSuchTransaction {
				t.Errorf("Expected success or RetCNoSuchTransaction, got %v", err)
			}
		}

		// the staged write was applied exactly once either way
		if value, loaded := mustGet(t, engine, key); !loaded || !bytes.Equal(value, []byte("once")) {
			t.Errorf("Expected %s=once after the race, got (%s, %v)", key, value, loaded)
		}
	}
}

// --------------------------------------------------------------------------
// Test functions - introspection
// --------------------------------------------------------------------------

func testWatch(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureWatch|db.FeatureTransactions)

	events := engine.Watch()
	if events == nil {
		t.Fatalf("Expected a watch channel from an engine advertising FeatureWatch")
	}

	_ = engine.Begin("observed")
	_ = engine.SetTx("watched-key", []byte("v"), "observed")
	if err := engine.Commit("observed"); err != nil {
		t.Fatalf("Unexpected error from Commit: %v", err)
	}

	event := <-events
	if event.Type != db.EventTCommit {
		t.Errorf("Expected commit event, got %v", event.Type)
	}
	if event.TxID != "observed" {
		t.Errorf("Expected event for transaction observed, got %s", event.TxID)
	}
	if len(event.Keys) != 1 || event.Keys[0] != "watched-key" {
		t.Errorf("Expected event keys [watched-key], got %v", event.Keys)
	}

	_ = engine.Begin("dropped")
	_ = engine.Rollback("dropped")
	event = <-events
	if event.Type != db.EventTRollback || event.TxID != "dropped" {
		t.Errorf("Expected rollback event for dropped, got %v %s", event.Type, event.TxID)
	}
}

func testGetInfo(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureInfo|db.FeatureTransactions)

	for i := 0; i < 10; i++ {
		_ = engine.Set(fmt.Sprintf("info-key-%d", i), []byte("info-value"))
	}
	_ = engine.Begin("open")

	info, err := engine.GetInfo()
	if err != nil {
		t.Fatalf("Unexpected error from GetInfo: %v", err)
	}
	if info.Keys != 10 {
		t.Errorf("Expected 10 keys, got %d", info.Keys)
	}
	if info.ActiveTransactions != 1 {
		t.Errorf("Expected 1 active transaction, got %d", info.ActiveTransactions)
	}
	if len(info.SupportedFeatures) == 0 {
		t.Errorf("Expected a non-empty feature list")
	}
}

func testEdgeCases(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet)

	// empty key
	emptyKeyValue := []byte("value for empty key")
	if err := engine.Set("", emptyKeyValue); err != nil {
		t.Fatalf("Unexpected error setting empty key: %v", err)
	}
	if value, loaded := mustGet(t, engine, ""); !loaded || !bytes.Equal(value, emptyKeyValue) {
		t.Errorf("Empty key mismatch after Set")
	}

	// empty and nil values
	_ = engine.Set("empty-value-key", []byte{})
	if value, loaded := mustGet(t, engine, "empty-value-key"); !loaded || len(value) != 0 {
		t.Errorf("Empty value mismatch: got (%v, %v)", value, loaded)
	}

	_ = engine.Set("nil-value-key", nil)
	if value, loaded := mustGet(t, engine, "nil-value-key"); !loaded || len(value) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", value)
	}

	// large keys and values round-trip
	largeKey := string(make([]byte, 1000))
	_ = engine.Set(largeKey, []byte("value for large key"))
	if _, loaded := mustGet(t, engine, largeKey); !loaded {
		t.Errorf("Large key not found after Set")
	}

	largeValue := make([]byte, 1<<20)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}
	_ = engine.Set("large-value-key", largeValue)
	if value, loaded := mustGet(t, engine, "large-value-key"); !loaded || !bytes.Equal(value, largeValue) {
		t.Errorf("Large value mismatch after Set")
	}
}
