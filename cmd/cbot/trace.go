package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/cbot"
)

var (
	traceEntry string
	traceLimit int
)

var traceCmd = &cobra.Command{
	Use:   "trace SCRIPT",
	Short: "Single-step a script, printing where it stops after each step",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := compileScript(args[0])
		if err := p.Start(traceEntry); err != nil {
			log.Fatal().Err(err).Msg("Couldn't start")
		}
		trace(p, traceLimit)
	},
}

func init() {
	traceCmd.Flags().StringVar(&traceEntry, "entry", "main", "Function to start")
	traceCmd.Flags().IntVar(&traceLimit, "limit", 10000, "Stop after this many steps")
}

func trace(p *cbot.Program, limit int) {
	for step := 1; step <= limit; step++ {
		st, err := p.Run(0)
		switch st {
		case cbot.Finished:
			fmt.Println(color.Green.Sprintf("Finished after %d steps: %s", step, p.Result()))
			return
		case cbot.Failed:
			fmt.Println(color.Red.Sprintf("Failed after %d steps: %s", step, err))
			return
		}
		pos, ok := p.Position()
		if !ok {
			continue
		}
		fmt.Printf("%5d %s %s %s\n", step,
			color.Gray.Sprintf("%d:%d", pos.Line, pos.Col),
			color.Cyan.Sprint(pos.Function),
			pos.Node)
	}
	fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("Stopped after %d steps", limit))
}
