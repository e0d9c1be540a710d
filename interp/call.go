package interp

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Native is a host function callable from scripts. Run may report that it is
// not finished yet; the call is then retried on the next tick with the same
// Call, so a native can span many ticks. Cancel, when set, is invoked if the
// script abandons a call that is still pending.
type Native struct {
	Name     string
	Params   []vm.Type
	Variadic bool
	Result   vm.Type
	Run      func(c *Call) bool
	Cancel   func(c *Call)
}

// Call is one invocation of a native. State survives suspensions and
// snapshots; Result and Err are read once Run reports completion.
type Call struct {
	Native *Native
	Args   []vm.Value
	State  vm.Value
	Result vm.Value
	Err    vm.ErrorCode

	name  string
	stack *Stack
}

// Tick returns the number of the tick the call is running in.
func (c *Call) Tick() int {
	if c.stack == nil {
		return 0
	}
	return c.stack.tick
}

func (c *Call) cancel() {
	n := c.Native
	if n == nil {
		log.Debug().Str("native", c.name).Msg("cannot cancel unbound native call")
		return
	}
	log.Debug().Str("native", n.Name).Msg("cancel pending native call")
	if n.Cancel != nil {
		n.Cancel(c)
	}
}

// CallNative runs n on f, resuming a pending invocation if there is one. It
// returns false while the native is still working or when it failed.
func (f *Frame) CallNative(n *Native, args []vm.Value, tok token.Token) bool {
	c := f.call
	if c == nil {
		c = &Call{Native: n, Args: args, name: n.Name, stack: f.stack}
		f.call = c
		log.Trace().Str("native", n.Name).Int("args", len(args)).Msg("native call")
	}
	c.Native = n
	c.stack = f.stack
	if !n.Run(c) && c.Err == vm.NoError {
		return false
	}
	f.call = nil
	if c.Err != vm.NoError {
		f.stack.raiseAt(c.Err, tok)
		return false
	}
	if c.Result == nil {
		c.Result = vm.Void
	}
	f.value = c.Result
	return true
}

// Pending reports the native call suspended on f, if any.
func (f *Frame) Pending() *Call {
	return f.call
}

// RestoreCall binds a pending call loaded from a snapshot to its native.
func (f *Frame) RestoreCall(n *Native) {
	if f.call != nil && f.call.name == n.Name {
		f.call.Native = n
		f.call.stack = f.stack
	}
}
