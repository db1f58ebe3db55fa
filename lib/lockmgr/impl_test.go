package lockmgr

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/tkv-io/tkv/lib/db/engines/cedar"
)

func TestAcquireRelease(t *testing.T) {
	engine := cedar.New(nil)
	defer engine.Close()
	lm := NewLockManager(engine)

	ok, ownerID, err := lm.AcquireLock("resource")
	if err != nil || !ok {
		t.Fatalf("Expected to acquire a free lock, got (%v, %v)", ok, err)
	}
	if len(ownerID) == 0 {
		t.Fatalf("Expected a non-empty owner ID")
	}

	// the lock is visible as a held key
	if ok, _, err := lm.AcquireLock("resource"); err != nil || ok {
		t.Errorf("Expected second acquire to fail, got (%v, %v)", ok, err)
	}

	if ok, err := lm.ReleaseLock("resource", ownerID); err != nil || !ok {
		t.Errorf("Expected release to succeed, got (%v, %v)", ok, err)
	}

	// released locks are acquirable again
	if ok, _, err := lm.AcquireLock("resource"); err != nil || !ok {
		t.Errorf("Expected re-acquire after release, got (%v, %v)", ok, err)
	}
}

func TestReleaseSemantics(t *testing.T) {
	engine := cedar.New(nil)
	defer engine.Close()
	lm := NewLockManager(engine)

	// releasing a lock that does not exist reports success
	if ok, err := lm.ReleaseLock("missing", []byte("whoever")); err != nil || !ok {
		t.Errorf("Expected release of missing lock to succeed, got (%v, %v)", ok, err)
	}

	_, ownerID, err := lm.AcquireLock("resource")
	if err != nil {
		t.Fatalf("Unexpected error from AcquireLock: %v", err)
	}

	// a wrong owner cannot release
	if ok, err := lm.ReleaseLock("resource", []byte("impostor")); err != nil || ok {
		t.Errorf("Expected release by wrong owner to fail, got (%v, %v)", ok, err)
	}

	// the true owner still can
	if ok, err := lm.ReleaseLock("resource", ownerID); err != nil || !ok {
		t.Errorf("Expected release by owner to succeed, got (%v, %v)", ok, err)
	}
}

func TestAcquireNeverStealsHeldLock(t *testing.T) {
	engine := cedar.New(nil)
	defer engine.Close()
	lm := NewLockManager(engine)

	// A publishes its lock first; every later acquire must observe it
	ok, ownerA, err := lm.AcquireLock("stable")
	if err != nil || !ok {
		t.Fatalf("Expected initial acquire to succeed, got (%v, %v)", ok, err)
	}

	var wg sync.WaitGroup
	numContenders := 8
	wg.Add(numContenders)
	for i := 0; i < numContenders; i++ {
		go func() {
			defer wg.Done()
			if ok, _, err := lm.AcquireLock("stable"); err != nil || ok {
				t.Errorf("Expected acquire of a held lock to fail, got (%v, %v)", ok, err)
			}
		}()
	}
	wg.Wait()

	// the holder's value was never overwritten
	value, loaded, _ := engine.Get("stable")
	if !loaded || !bytes.Equal(value, ownerA) {
		t.Errorf("Expected holder's owner ID to survive contention, got (%v, %v)", value, loaded)
	}
}

func TestReleaseDoesNotUnlockNewHolder(t *testing.T) {
	engine := cedar.New(nil)
	defer engine.Close()
	lm := NewLockManager(engine)

	// A acquires and releases; B then takes the lock
	ok, ownerA, err := lm.AcquireLock("handover")
	if err != nil || !ok {
		t.Fatalf("Expected acquire to succeed, got (%v, %v)", ok, err)
	}
	if ok, err := lm.ReleaseLock("handover", ownerA); err != nil || !ok {
		t.Fatalf("Expected release to succeed, got (%v, %v)", ok, err)
	}
	ok, ownerB, err := lm.AcquireLock("handover")
	if err != nil || !ok {
		t.Fatalf("Expected re-acquire to succeed, got (%v, %v)", ok, err)
	}

	// a second, stale release with A's old owner ID must not free
	// B's lock
	if ok, err := lm.ReleaseLock("handover", ownerA); err != nil || ok {
		t.Errorf("Expected stale release to fail, got (%v, %v)", ok, err)
	}
	value, loaded, _ := engine.Get("handover")
	if !loaded || !bytes.Equal(value, ownerB) {
		t.Errorf("Expected B to still hold the lock, got (%v, %v)", value, loaded)
	}

	if ok, err := lm.ReleaseLock("handover", ownerB); err != nil || !ok {
		t.Errorf("Expected B's release to succeed, got (%v, %v)", ok, err)
	}
}

func TestConcurrentAcquireElectsOneHolder(t *testing.T) {
	engine := cedar.New(nil)
	defer engine.Close()
	lm := NewLockManager(engine)

	for round := 0; round < 10; round++ {
		key := fmt.Sprintf("contended-%d", round)
		numContenders := 8

		var wg sync.WaitGroup
		wg.Add(numContenders)
		acquired := make([]bool, numContenders)
		owners := make([][]byte, numContenders)
		for i := 0; i < numContenders; i++ {
			go func(i int) {
				defer wg.Done()
				ok, ownerID, err := lm.AcquireLock(key)
				if err != nil {
					t.Errorf("Unexpected error from AcquireLock: %v", err)
					return
				}
				acquired[i] = ok
				owners[i] = ownerID
			}(i)
		}
		wg.Wait()

		winners := 0
		winner := -1
		for i, ok := range acquired {
			if ok {
				winners++
				winner = i
			}
		}
		if winners != 1 {
			t.Fatalf("Expected exactly one lock holder, got %d", winners)
		}

		if ok, err := lm.ReleaseLock(key, owners[winner]); err != nil || !ok {
			t.Errorf("Expected winner to release, got (%v, %v)", ok, err)
		}
	}
}
