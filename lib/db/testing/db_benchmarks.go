package testing

import (
	"fmt"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
)

// RunEngineBenchmarks runs a standardized benchmark suite for an
// Engine implementation.
func RunEngineBenchmarks(b *testing.B, name string, factory EngineFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("TxnCommit", func(b *testing.B) {
			benchmarkTxnCommit(b, factory())
		})

		b.Run("TxnCommitContended", func(b *testing.B) {
			benchmarkTxnCommitContended(b, factory())
		})
	})
}

func benchmarkSet(b *testing.B, engine db.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Set(fmt.Sprintf("key-%d", i), value)
	}
}

func benchmarkSetExisting(b *testing.B, engine db.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	_ = engine.Set("key", value)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Set("key", value)
	}
}

func benchmarkGet(b *testing.B, engine db.Engine) {
	defer engine.Close()

	_ = engine.Set("key", []byte("benchmark-value"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = engine.Get("key")
	}
}

func benchmarkDelete(b *testing.B, engine db.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	for i := 0; i < b.N; i++ {
		_ = engine.Set(fmt.Sprintf("key-%d", i), value)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Delete(fmt.Sprintf("key-%d", i))
	}
}

func benchmarkTxnCommit(b *testing.B, engine db.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		txID := fmt.Sprintf("txn-%d", i)
		_ = engine.Begin(txID)
		_ = engine.SetTx(fmt.Sprintf("key-%d", i), value, txID)
		_ = engine.Commit(txID)
	}
}

func benchmarkTxnCommitContended(b *testing.B, engine db.Engine) {
	defer engine.Close()

	// every transaction writes the same existing key, one after the
	// other, so each commit locks and validates the value the
	// previous commit published
	_ = engine.Set("contended", []byte("base"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		txID := fmt.Sprintf("txn-%d", i)
		_ = engine.Begin(txID)
		_ = engine.SetTx("contended", []byte("next"), txID)
		_ = engine.Commit(txID)
	}
}
