package interp

import (
	"fmt"

	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Node is the part of an instruction the stack needs: a stable identity used to
// match frames to their owner, and a token for error positions.
type Node interface {
	ID() int
	Token() token.Token
}

// Signal is a pending non-error unwind request.
type Signal int

const (
	SignalNone Signal = iota
	SignalBreak
	SignalContinue
	SignalReturn
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalReturn:
		return "return"
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// Fault is everything a stack can be unwinding with, captured as one value so a
// try can park it while its handlers and finally block run.
type Fault struct {
	Code   vm.ErrorCode
	Signal Signal
	Label  string
	Start  int
	End    int
	Ret    vm.Value
}

func (f Fault) IsZero() bool {
	return f.Code == vm.NoError && f.Signal == SignalNone
}

// Dispatchable faults may be offered to catch clauses. NoError counts: boolean
// clauses are polled with it while the guarded block is suspended.
func (f Fault) Dispatchable() bool {
	return f.Signal == SignalNone && !f.Code.Fatal()
}

func (f Fault) Fatal() bool {
	return f.Code.Fatal()
}

func (f Fault) String() string {
	if f.Signal != SignalNone {
		if f.Label != "" {
			return fmt.Sprintf("%s %s", f.Signal, f.Label)
		}
		return f.Signal.String()
	}
	return f.Code.String()
}

// Variable is a local binding. ID is the unique number of its declaration, so
// lookups never confuse two declarations that share a name.
type Variable struct {
	ID    int
	Name  string
	Type  vm.Type
	Value vm.Value // nil until first assignment
}
