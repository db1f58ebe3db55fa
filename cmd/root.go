package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tkv-io/tkv/cmd/demo"
	"github.com/tkv-io/tkv/cmd/perf"
	"github.com/tkv-io/tkv/cmd/shell"
	"github.com/tkv-io/tkv/cmd/util"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tkv",
		Short: "transactional key-value store",
		Long: fmt.Sprintf(`tKV (v%s)

An in-process, in-memory key-value store library with named
interactive transactions and optimistic conflict detection on commit.
The CLI runs an engine inside the current process for exploration,
demos and benchmarking.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(demo.DemoCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("Level at which logs will be output (debug, info, warn, error)"))
	key = "events"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("Enable the engine's commit event stream"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
