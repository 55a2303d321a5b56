package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/semdiff"
)

var (
	flagLimit int
	flagKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded diff runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the records of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().IntVar(&flagKeep, "prune", -1, "delete all but the newest N runs before listing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	s, err := loadSettings(cmd)
	if err != nil {
		return outputError(out, errOut, "history", err)
	}
	st, err := s.requireStore()
	if err != nil {
		return outputError(out, errOut, "history", err)
	}
	defer st.Close()

	if flagKeep >= 0 {
		n, err := st.PruneRuns(flagKeep)
		if err != nil {
			return outputError(out, errOut, "history", err)
		}
		s.logger.Info("pruned runs", "deleted", n)
	}

	runs, err := st.Runs(flagLimit)
	if err != nil {
		return outputError(out, errOut, "history", err)
	}
	return outputResult(out, CLIResult{Command: "history", Results: toCLIRuns(runs)})
}

func runShow(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	s, err := loadSettings(cmd)
	if err != nil {
		return outputError(out, errOut, "show", err)
	}
	st, err := s.requireStore()
	if err != nil {
		return outputError(out, errOut, "show", err)
	}
	defer st.Close()

	engine, err := semdiff.New(semdiff.WithStore(st), semdiff.WithLogger(s.logger))
	if err != nil {
		return outputError(out, errOut, "show", err)
	}
	defer engine.Close()

	run, res, err := engine.Run(args[0])
	if err != nil {
		return outputError(out, errOut, "show", err)
	}
	return outputResult(out, CLIResult{
		Command: "show",
		Results: CLIRunDetail{Run: toCLIRun(run), Result: res},
	})
}
