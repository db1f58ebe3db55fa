package demo

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"
	"github.com/tkv-io/tkv/cmd/util"
	"github.com/tkv-io/tkv/lib/db"
)

var (
	// DemoCmd walks through the transaction semantics of the engine
	DemoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a narrated tour of the transaction semantics",
		Long:  `Run a scripted sequence of operations against an in-process engine: the single-key lifecycle, staging isolation, commit publication, conflict aborts, rollback invalidation and two commit races. Expected failures are part of the tour.`,
		RunE:  run,
	}
)

func run(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	logger := util.NewLogger()
	engine := util.NewEngine()
	defer engine.Close()

	logger.Info("basic lifecycle")
	if err := engine.Set("example", []byte("foo")); err != nil {
		return err
	}
	if err := expect(engine, "example", "foo"); err != nil {
		return err
	}
	_ = engine.Delete("example")
	if err := expectAbsent(engine, "example"); err != nil {
		return err
	}
	_ = engine.Delete("example") // deleting twice is fine
	logger.Info("lifecycle done", "key", "example")

	logger.Info("duplicate begin")
	if err := engine.Begin("abc"); err != nil {
		return err
	}
	if err := engine.Begin("abc"); err != nil {
		logger.Info("failed as intended", "err", err)
	} else {
		return fmt.Errorf("duplicate begin unexpectedly succeeded")
	}

	logger.Info("staging isolation")
	if err := engine.SetTx("a", []byte("foo"), "abc"); err != nil {
		return err
	}
	if value, loaded, _ := engine.GetTx("a", "abc"); !loaded || string(value) != "foo" {
		return fmt.Errorf("staged read mismatch: got (%s, %v)", value, loaded)
	}
	if err := expectAbsent(engine, "a"); err != nil {
		return err
	}
	logger.Info("staged write invisible outside the transaction", "key", "a", "txid", "abc")

	logger.Info("commit publication and conflict")
	if err := engine.Begin("xyz"); err != nil {
		return err
	}
	_ = engine.SetTx("a", []byte("bar"), "xyz")
	if err := engine.Commit("xyz"); err != nil {
		return err
	}
	if err := expect(engine, "a", "bar"); err != nil {
		return err
	}
	// the older transaction snapshotted "a" as absent and must abort
	if err := engine.Commit("abc"); err != nil {
		logger.Info("failed as intended", "err", err)
	} else {
		return fmt.Errorf("conflicting commit unexpectedly succeeded")
	}
	if err := expect(engine, "a", "bar"); err != nil {
		return err
	}

	logger.Info("rollback invalidation")
	if err := engine.Begin("abc"); err != nil {
		return err
	}
	_ = engine.SetTx("a", []byte("foo"), "abc")
	if err := engine.Rollback("abc"); err != nil {
		return err
	}
	if err := engine.SetTx("a", []byte("foo"), "abc"); err != nil {
		logger.Info("failed as intended", "err", err)
	} else {
		return fmt.Errorf("write to rolled-back transaction unexpectedly succeeded")
	}
	if err := expect(engine, "a", "bar"); err != nil {
		return err
	}

	logger.Info("two goroutines commit the same transaction")
	if err := engine.Begin("def"); err != nil {
		return err
	}
	_ = engine.SetTx("b", []byte("foo"), "def")
	_ = engine.SetTx("c", []byte("caz"), "def")
	_ = engine.SetTx("d", []byte("ert"), "def")

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			if err := engine.Commit("def"); err != nil {
				logger.Info("commit lost the race", "goroutine", i, "err", err)
			}
		}(i)
	}
	wg.Wait()
	if err := expect(engine, "b", "foo"); err != nil {
		return err
	}

	logger.Info("two transactions race over the same keys")
	if err := engine.Begin("aze"); err != nil {
		return err
	}
	_ = engine.SetTx("e", []byte("fro"), "aze")
	_ = engine.SetTx("f", []byte("crz"), "aze")
	_ = engine.SetTx("g", []byte("ert"), "aze")
	if err := engine.Begin("ghj"); err != nil {
		return err
	}
	_ = engine.SetTx("e", []byte("for"), "ghj")
	_ = engine.SetTx("f", []byte("car"), "ghj")
	_ = engine.SetTx("g", []byte("err"), "ghj")

	wg.Add(2)
	for _, txID := range []string{"aze", "ghj"} {
		go func(txID string) {
			defer wg.Done()
			if err := engine.Commit(txID); err != nil {
				logger.Info("commit lost the race", "txid", txID, "err", err)
			} else {
				logger.Info("commit won the race", "txid", txID)
			}
		}(txID)
	}
	wg.Wait()

	e, _, _ := engine.Get("e")
	f, _, _ := engine.Get("f")
	g, _, _ := engine.Get("g")
	azeWon := string(e) == "fro" && string(f) == "crz" && string(g) == "ert"
	ghjWon := string(e) == "for" && string(f) == "car" && string(g) == "err"
	if !azeWon && !ghjWon {
		return fmt.Errorf("mixed commit result: e=%s f=%s g=%s", e, f, g)
	}
	logger.Info("winner published atomically", "e", string(e), "f", string(f), "g", string(g))

	logDemoStats(logger, engine)
	logger.Info("demo complete")
	return nil
}

func logDemoStats(logger *slog.Logger, engine db.Engine) {
	info, err := engine.GetInfo()
	if err != nil {
		return
	}
	logger.Info("engine state", "keys", info.Keys, "active_txns", info.ActiveTransactions)
}

func expect(engine db.Engine, key, want string) error {
	value, loaded, err := engine.Get(key)
	if err != nil {
		return err
	}
	if !loaded || string(value) != want {
		return fmt.Errorf("expected %s=%s, got (%s, %v)", key, want, value, loaded)
	}
	return nil
}

func expectAbsent(engine db.Engine, key string) error {
	_, loaded, err := engine.Get(key)
	if err != nil {
		return err
	}
	if loaded {
		return fmt.Errorf("expected %s to be absent", key)
	}
	return nil
}
