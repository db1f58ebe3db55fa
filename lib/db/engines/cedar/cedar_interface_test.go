package cedar

import (
	"testing"

	"github.com/tkv-io/tkv/lib/db"
	dbtesting "github.com/tkv-io/tkv/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "CedarDB", func() db.Engine {
		return New(&Options{EnableEvents: true})
	})
}

func TestDefaultOptions(t *testing.T) {
	dbtesting.RunEngineTests(t, "CedarDB/NoEvents", func() db.Engine {
		return New(nil)
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "CedarDB", func() db.Engine {
		return New(nil)
	})
}
