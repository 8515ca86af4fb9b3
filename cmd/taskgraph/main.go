// Command taskgraph is a small demonstration CLI for the taskgraph
// library: it builds a fixed example graph (not read from a file — parsing
// a graph definition format is out of scope, see SPEC_FULL.md E.1) and
// runs it, printing the overall status and the final execution trace hash.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowloom/taskgraph"
)

var rootCmd = &cobra.Command{
	Use:   "taskgraph",
	Short: "Run a demonstration parallel task graph",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context())
	},
}

func init() {
	viper.SetDefault("workers", 4)
	rootCmd.PersistentFlags().Int("workers", 4, "maximum concurrent workers per layer")
	if err := viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers")); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("taskgraph")
	viper.AutomaticEnv()
}

func runDemo(ctx context.Context) error {
	fetch := taskgraph.NewTask(
		func(m *taskgraph.Messenger, args ...any) (any, taskgraph.Status) {
			m.SendProgress(1.0)
			return 21, taskgraph.Success("")
		},
		"demo.fetch",
		taskgraph.NewTaskIdentifier(1, "fetch"),
		nil,
	)

	double := taskgraph.NewTask(
		func(m *taskgraph.Messenger, args ...any) (any, taskgraph.Status) {
			n, ok := args[0].(int)
			if !ok {
				return nil, taskgraph.Fail("expected int input")
			}
			return n * 2, taskgraph.Success("")
		},
		"demo.double",
		taskgraph.NewTaskIdentifier(2, "double"),
		[]any{taskgraph.From(fetch.Identifier())},
	)

	report := taskgraph.NewTask(
		func(m *taskgraph.Messenger, args ...any) (any, taskgraph.Status) {
			n, _ := args[0].(int)
			slog.Info("demo: computed result", "value", n)
			return nil, taskgraph.Success("")
		},
		"demo.report",
		taskgraph.NewTaskIdentifier(3, "report"),
		[]any{taskgraph.From(double.Identifier())},
	)

	execResult := taskgraph.FromTasks([]*taskgraph.Task{fetch, double, report})
	executor, ok := execResult.Unwrap()
	if !ok {
		status, _ := execResult.Status()
		return fmt.Errorf("building graph: %s", status)
	}

	overall := executor.Execute(ctx, viper.GetInt("workers"))
	fmt.Printf("overall: %s\n", overall)
	if tr := executor.LastTrace(); tr != nil {
		if hash, err := tr.Hash(); err == nil {
			fmt.Printf("trace hash: %s\n", hash)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
