package stdlib

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/vm"
)

// Natives returns the standard natives. A nil out sends print to stdout.
func Natives(out io.Writer) []*interp.Native {
	if out == nil {
		out = os.Stdout
	}
	return []*interp.Native{
		Print(out),
		Assert,
		Fail,
		Wait,
		Ticks,
	}
}

// Print writes its arguments separated by spaces, followed by a newline.
func Print(out io.Writer) *interp.Native {
	return &interp.Native{
		Name:     "print",
		Variadic: true,
		Result:   vm.TypeVoid,
		Run: func(c *interp.Call) bool {
			parts := make([]string, len(c.Args))
			for i, a := range c.Args {
				parts[i] = a.String()
			}
			if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
				log.Error().Err(err).Msg("print failed")
				c.Err = vm.ErrWrite
			}
			return true
		},
	}
}

// Assert raises ErrAssert when its argument is false.
var Assert = &interp.Native{
	Name:   "ASSERT",
	Params: []vm.Type{vm.TypeBool},
	Result: vm.TypeBool,
	Run: func(c *interp.Call) bool {
		ok := c.Args[0].AsBool()
		if !ok {
			c.Err = vm.ErrAssert
		}
		c.Result = vm.BoolValue(ok)
		return true
	},
}

// Fail always raises ErrFail.
var Fail = &interp.Native{
	Name:   "FAIL",
	Result: vm.TypeVoid,
	Run: func(c *interp.Call) bool {
		c.Err = vm.ErrFail
		return true
	},
}

// Wait suspends the caller until n more ticks have started. The deadline is
// kept in the call state so it survives snapshots.
var Wait = &interp.Native{
	Name:   "wait",
	Params: []vm.Type{vm.TypeInt},
	Result: vm.TypeVoid,
	Run: func(c *interp.Call) bool {
		if c.State == nil {
			n := vm.AsInt(c.Args[0])
			if n <= 0 {
				return true
			}
			c.State = vm.IntValue(int64(c.Tick()) + n)
			log.Trace().Int64("until", int64(c.Tick())+n).Msg("wait")
			return false
		}
		return int64(c.Tick()) >= vm.AsInt(c.State)
	},
	Cancel: func(c *interp.Call) {
		log.Debug().Int("tick", c.Tick()).Msg("wait cancelled")
	},
}

// Ticks returns the number of the current tick.
var Ticks = &interp.Native{
	Name:   "ticks",
	Result: vm.TypeInt,
	Run: func(c *interp.Call) bool {
		c.Result = vm.IntValue(c.Tick())
		return true
	},
}
