package perf

import (
	"encoding/csv"
	"fmt"
	"os"
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tkv-io/tkv/cmd/util"
)

var (
	// PerfCmd benchmarks the in-process engine
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Benchmark the engine",
		Long:  `Benchmark the in-process engine: point operations via the standard benchmark harness, plus commit latency percentiles measured across contended transactions.`,
		RunE:  run,
	}
)

func init() {
	key := "value-size"
	PerfCmd.Flags().Int(key, 64, util.WrapString("Size of the values written during the benchmark (in bytes)"))

	key = "commits"
	PerfCmd.Flags().Int(key, 10_000, util.WrapString("Number of transactions used for the commit latency measurement"))

	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to write the results to as CSV"))
}

func run(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	valueSize := viper.GetInt("value-size")
	commits := viper.GetInt("commits")

	value := make([]byte, valueSize)
	for i := range value {
		value[i] = byte(i % 256)
	}

	results := make(map[string]testing.BenchmarkResult)

	// point operations through the standard benchmark harness, each
	// against a fresh engine
	results["Set"] = testing.Benchmark(func(b *testing.B) {
		engine := util.NewEngine()
		defer engine.Close()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = engine.Set(fmt.Sprintf("key-%d", i), value)
		}
	})

	results["Get"] = testing.Benchmark(func(b *testing.B) {
		engine := util.NewEngine()
		defer engine.Close()
		_ = engine.Set("key", value)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _, _ = engine.Get("key")
		}
	})

	results["Delete"] = testing.Benchmark(func(b *testing.B) {
		engine := util.NewEngine()
		defer engine.Close()
		for i := 0; i < b.N; i++ {
			_ = engine.Set(fmt.Sprintf("key-%d", i), value)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = engine.Delete(fmt.Sprintf("key-%d", i))
		}
	})

	results["TxnCommit"] = testing.Benchmark(func(b *testing.B) {
		engine := util.NewEngine()
		defer engine.Close()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			txID := fmt.Sprintf("txn-%d", i)
			_ = engine.Begin(txID)
			_ = engine.SetTx(fmt.Sprintf("key-%d", i), value, txID)
			_ = engine.Commit(txID)
		}
	})

	for _, test := range []string{"Set", "Get", "Delete", "TxnCommit"} {
		printResult(test, results[test])
	}

	// commit latency distribution over a contended key set
	timer := gometrics.NewTimer()
	engine := util.NewEngine()
	defer engine.Close()
	for i := 0; i < commits; i++ {
		txID := fmt.Sprintf("perf-txn-%d", i)
		_ = engine.Begin(txID)
		_ = engine.SetTx("contended", value, txID)
		_ = engine.SetTx(fmt.Sprintf("key-%d", i%100), value, txID)
		timer.Time(func() {
			_ = engine.Commit(txID)
		})
	}
	printLatency(timer)

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, timer); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
		fmt.Printf("results written to %s\n", csvPath)
	}
	return nil
}

func printResult(test string, result testing.BenchmarkResult) {
	fmt.Printf("%-12s %12d ops %14.1f ns/op\n", test, result.N, float64(result.T.Nanoseconds())/float64(result.N))
}

func printLatency(timer gometrics.Timer) {
	fmt.Printf("%-12s %12d commits\n", "CommitLat", timer.Count())
	fmt.Printf("  mean=%s p50=%s p95=%s p99=%s max=%s\n",
		time.Duration(int64(timer.Mean())),
		time.Duration(int64(timer.Percentile(0.50))),
		time.Duration(int64(timer.Percentile(0.95))),
		time.Duration(int64(timer.Percentile(0.99))),
		time.Duration(timer.Max()),
	)
}

func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, timer gometrics.Timer) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"test", "ops", "ns_per_op"}); err != nil {
		return err
	}
	for test, result := range results {
		row := []string{
			test,
			fmt.Sprintf("%d", result.N),
			fmt.Sprintf("%.1f", float64(result.T.Nanoseconds())/float64(result.N)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	// latency percentiles as pseudo-tests
	for _, p := range []struct {
		name string
		ns   float64
	}{
		{"CommitLatMean", timer.Mean()},
		{"CommitLatP50", timer.Percentile(0.50)},
		{"CommitLatP95", timer.Percentile(0.95)},
		{"CommitLatP99", timer.Percentile(0.99)},
	} {
		if err := w.Write([]string{p.name, fmt.Sprintf("%d", timer.Count()), fmt.Sprintf("%.1f", p.ns)}); err != nil {
			return err
		}
	}
	return nil
}
