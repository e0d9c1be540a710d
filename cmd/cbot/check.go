package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/cbot"
	"github.com/timewinder-dev/cbot/instr"
	"github.com/timewinder-dev/cbot/loader"
	"github.com/timewinder-dev/cbot/stdlib"
	"github.com/timewinder-dev/cbot/vm"
)

var checkCmd = &cobra.Command{
	Use:   "check SCRIPT",
	Short: "Compile a script and list its functions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := compileScript(args[0])
		for _, sig := range p.Functions() {
			fmt.Println(sig)
		}
		fmt.Fprintln(os.Stderr, color.Green.Sprint("✓ ", args[0], " compiles"))
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump SCRIPT [FUNCTION]",
	Short: "Print the instruction tree of a script",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		p := compileScript(args[0])
		var err error
		if len(args) == 2 {
			fn := p.Module().Function(args[1])
			if fn == nil {
				log.Fatal().Str("function", args[1]).Msg("No such function")
			}
			err = instr.Dump(os.Stdout, fn)
		} else {
			err = p.Module().Dump(os.Stdout)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Couldn't write dump")
		}
	},
}

// compileScript loads and compiles a script or exits with the compile error
// pointing into the source.
func compileScript(path string) *cbot.Program {
	src, err := loader.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load script")
	}
	p, err := cbot.Compile(src, stdlib.Natives(os.Stdout))
	if err != nil {
		var ce *vm.CompileError
		if errors.As(err, &ce) {
			fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", path, ce.Line, ce.Col, color.Red.Sprint(ce.Code))
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Couldn't compile script")
	}
	return p
}
