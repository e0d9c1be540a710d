package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/cbot/cas"
	"github.com/timewinder-dev/cbot/runner"
)

var (
	entryFlag    string
	budgetFlag   int
	maxTicksFlag int
	everyFlag    int
	resumeFlag   bool
	progressFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run SPECFILE|SCRIPT",
	Short: "Run a script, directly or through a TOML run spec",
	Args:  cobra.ExactArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().StringVar(&entryFlag, "entry", "", "Function to start (default main)")
	runCmd.Flags().IntVar(&budgetFlag, "budget", 0, "Steps per tick; negative runs in single-step mode")
	runCmd.Flags().IntVar(&maxTicksFlag, "max-ticks", 0, "Give up after this many ticks")
	runCmd.Flags().IntVar(&everyFlag, "checkpoint-every", 0, "Store a snapshot every N ticks")
	runCmd.Flags().BoolVar(&resumeFlag, "resume", false, "Continue each checkpoint in a freshly restored program")
	runCmd.Flags().BoolVar(&progressFlag, "progress", false, "Report checkpoints as they are taken")
}

func loadSpec(path string) (*runner.Spec, error) {
	if filepath.Ext(path) == ".toml" {
		return runner.LoadSpecFromFile(path)
	}
	return runner.ScriptSpecFor(path), nil
}

func runCommand(cmd *cobra.Command, args []string) {
	spec, err := loadSpec(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load spec")
	}
	if entryFlag != "" {
		spec.Script.Entry = entryFlag
	}
	if budgetFlag != 0 {
		spec.Engine.Budget = budgetFlag
	}
	if maxTicksFlag != 0 {
		spec.Engine.MaxTicks = maxTicksFlag
	}
	if everyFlag != 0 {
		spec.Checkpoint.Every = everyFlag
	}
	if resumeFlag {
		spec.Checkpoint.Resume = true
	}
	if err := spec.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid spec")
	}

	store := cas.NewLRUCache(cas.NewMemoryCAS(), spec.Checkpoint.CacheSize)
	exec, err := spec.BuildExecutor(store, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't build executor")
	}
	if progressFlag {
		exec.Reporter = &runner.ColorReporter{Writer: os.Stderr}
	}

	fmt.Fprintln(os.Stderr, color.Cyan.Sprintf("Running %s:%s ...", spec.Script.File, spec.Script.Entry))
	result, err := exec.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Error during run")
	}
	fmt.Fprint(os.Stderr, runner.FormatResult(result))

	if err := spec.Verify(result); err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("✗ %s", err))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, color.Green.Sprint("✓ Run matched expectations"))
}
