package shell

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tkv-io/tkv/cmd/util"
	"github.com/tkv-io/tkv/lib/db"
)

var (
	// ShellCmd starts an interactive session against an in-process engine
	ShellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive tKV session",
		Long:  `Start an interactive session against an in-process engine. All data lives in memory and is gone when the shell exits. Type "help" inside the shell for the available commands.`,
		RunE:  run,
	}
)

const helpText = `Commands:
  put <key> <value>             set a key
  putnx <key> <value>           set a key only if it is unset
  get <key>                     read a key
  del <key>                     delete a key
  has <key>                     check whether a key exists
  begin [txid]                  start a transaction (generates an ID if omitted)
  tput <txid> <key> <value>     stage a write inside a transaction
  tget <txid> <key>             read through a transaction
  tdel <txid> <key>             stage an erase inside a transaction
  commit <txid>                 commit a transaction
  rollback <txid>               roll a transaction back
  info                          print engine statistics
  help                          show this help
  exit                          leave the shell`

func run(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	engine := util.NewEngine()
	defer engine.Close()

	l, err := readline.NewEx(&readline.Config{
		Prompt:            "tkv> ",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}

		if err := dispatch(engine, fields[0], fields[1:]); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// dispatch executes one shell command against the engine.
func dispatch(engine db.Engine, command string, args []string) error {
	switch command {

	case "put":
		if len(args) != 2 {
			return fmt.Errorf("usage: put <key> <value>")
		}
		if err := engine.Set(args[0], []byte(args[1])); err != nil {
			return err
		}
		fmt.Println("ok")

	case "putnx":
		if len(args) != 2 {
			return fmt.Errorf("usage: putnx <key> <value>")
		}
		stored, err := engine.SetIfUnset(args[0], []byte(args[1]))
		if err != nil {
			return err
		}
		if stored {
			fmt.Println("ok")
		} else {
			fmt.Println("already set")
		}

	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <key>")
		}
		value, loaded, err := engine.Get(args[0])
		if err != nil {
			return err
		}
		printValue(value, loaded)

	case "del":
		if len(args) != 1 {
			return fmt.Errorf("usage: del <key>")
		}
		if err := engine.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("ok")

	case "has":
		if len(args) != 1 {
			return fmt.Errorf("usage: has <key>")
		}
		loaded, err := engine.Has(args[0])
		if err != nil {
			return err
		}
		fmt.Println(loaded)

	case "begin":
		if len(args) > 1 {
			return fmt.Errorf("usage: begin [txid]")
		}
		txID := uuid.NewString()
		if len(args) == 1 {
			txID = args[0]
		}
		if err := engine.Begin(txID); err != nil {
			return err
		}
		fmt.Printf("began %s\n", txID)

	case "tput":
		if len(args) != 3 {
			return fmt.Errorf("usage: tput <txid> <key> <value>")
		}
		if err := engine.SetTx(args[1], []byte(args[2]), args[0]); err != nil {
			return err
		}
		fmt.Println("staged")

	case "tget":
		if len(args) != 2 {
			return fmt.Errorf("usage: tget <txid> <key>")
		}
		value, loaded, err := engine.GetTx(args[1], args[0])
		if err != nil {
			return err
		}
		printValue(value, loaded)

	case "tdel":
		if len(args) != 2 {
			return fmt.Errorf("usage: tdel <txid> <key>")
		}
		if err := engine.DeleteTx(args[1], args[0]); err != nil {
			return err
		}
		fmt.Println("staged")

	case "commit":
		if len(args) != 1 {
			return fmt.Errorf("usage: commit <txid>")
		}
		if err := engine.Commit(args[0]); err != nil {
			return err
		}
		fmt.Println("committed")

	case "rollback":
		if len(args) != 1 {
			return fmt.Errorf("usage: rollback <txid>")
		}
		if err := engine.Rollback(args[0]); err != nil {
			return err
		}
		fmt.Println("rolled back")

	case "info":
		info, err := engine.GetInfo()
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))

	case "help":
		fmt.Println(helpText)

	default:
		return fmt.Errorf("unknown command %q (try \"help\")", command)
	}
	return nil
}

func printValue(value []byte, loaded bool) {
	if !loaded {
		fmt.Println("(nil)")
		return
	}
	fmt.Println(string(value))
}
