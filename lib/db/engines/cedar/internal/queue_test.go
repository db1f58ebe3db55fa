package internal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
)

func TestEventQueueDeliversInOrder(t *testing.T) {
	q := NewEventQueue()
	defer q.Close()

	numEvents := 100
	go func() {
		for i := 0; i < numEvents; i++ {
			q.Push(db.Event{Type: db.EventTCommit, TxID: fmt.Sprintf("txn-%d", i)})
		}
	}()

	for i := 0; i < numEvents; i++ {
		event := <-q.Recv()
		if event.TxID != fmt.Sprintf("txn-%d", i) {
			t.Fatalf("Expected txn-%d, got %s", i, event.TxID)
		}
	}
}

func TestEventQueueConcurrentProducers(t *testing.T) {
	q := NewEventQueue()

	numProducers := 8
	eventsPerProducer := 1000

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				if !q.Push(db.Event{Type: db.EventTCommit, TxID: fmt.Sprintf("p%d-%d", p, i)}) {
					t.Errorf("Push failed on an open queue")
					return
				}
			}
		}(p)
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range q.Recv() {
			received++
		}
	}()

	wg.Wait()
	q.Close()
	<-done

	if received != numProducers*eventsPerProducer {
		t.Errorf("Expected %d events, got %d", numProducers*eventsPerProducer, received)
	}
}

func TestEventQueueCloseDrains(t *testing.T) {
	q := NewEventQueue()

	if q.IsClosed() {
		t.Fatalf("Fresh queue reported closed")
	}

	q.Push(db.Event{Type: db.EventTRollback, TxID: "pending"})
	q.Close()

	if !q.IsClosed() {
		t.Errorf("Expected queue to report closed")
	}

	// the buffered event is still delivered, then the channel closes
	event, ok := <-q.Recv()
	if !ok || event.TxID != "pending" {
		t.Errorf("Expected pending event before close, got (%v, %v)", event, ok)
	}
	if _, ok := <-q.Recv(); ok {
		t.Errorf("Expected channel to be closed after drain")
	}

	if q.Push(db.Event{TxID: "late"}) {
		t.Errorf("Expected Push on a closed queue to fail")
	}
}

func TestTransactionSortedKeys(t *testing.T) {
	txn := NewTransaction()

	for _, key := range []string{"delta", "alpha", "charlie", "bravo"} {
		txn.Instructions[key] = &Instruction{Key: key, Kind: KindPut}
	}

	keys := txn.SortedKeys()
	want := []string{"alpha", "bravo", "charlie", "delta"}
	if len(keys) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Expected keys[%d]=%s, got %s", i, want[i], keys[i])
		}
	}
}
