package interp

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

const (
	// DefaultMaxDepth bounds the number of nested frames of one stack.
	DefaultMaxDepth = 990

	// overdraft is how far below zero an ordinary state change may push the
	// timer before it asks for a suspension. Loop back edges use zero.
	overdraft = -10
)

// Stack is the resumable execution state of one running script. The error,
// break signal, return value and timer are shared by every frame of the chain.
type Stack struct {
	root *Frame

	fault  vm.ErrorCode
	start  int
	end    int
	signal Signal
	label  string
	retVal vm.Value

	budget    int
	timer     int
	tick      int
	maxDepth  int
	cancelled bool
}

func NewStack() *Stack {
	s := &Stack{maxDepth: DefaultMaxDepth}
	s.root = &Frame{stack: s, block: true}
	return s
}

func (s *Stack) Root() *Frame {
	return s.root
}

func (s *Stack) SetMaxDepth(n int) {
	if n <= 0 {
		n = DefaultMaxDepth
	}
	s.maxDepth = n
}

func (s *Stack) MaxDepth() int {
	return s.maxDepth
}

// BeginTick starts a new slice of execution with the given step budget. A
// budget of zero or less selects single-step mode: every node pauses once on
// its first entry.
func (s *Stack) BeginTick(budget int) {
	s.fault = vm.NoError
	s.signal = SignalNone
	s.label = ""
	s.budget = budget
	s.timer = budget
	s.tick++
	log.Trace().Int("tick", s.tick).Int("budget", budget).Msg("begin tick")
}

func (s *Stack) Tick() int {
	return s.tick
}

func (s *Stack) Stepping() bool {
	return s.budget <= 0
}

// Remaining reports the steps left in the current tick. It goes negative when
// state changes overdraw the budget.
func (s *Stack) Remaining() int {
	return s.timer
}

func (s *Stack) IsOk() bool {
	return s.fault == vm.NoError && s.signal == SignalNone
}

func (s *Stack) Error() vm.ErrorCode {
	return s.fault
}

// ErrorPos returns the source span of the current fault.
func (s *Stack) ErrorPos() (int, int) {
	return s.start, s.end
}

func (s *Stack) Signal() Signal {
	return s.signal
}

func (s *Stack) raise(code vm.ErrorCode, start, end int) {
	if code == vm.NoError {
		return
	}
	if s.fault != vm.NoError && !(code.Fatal() && !s.fault.Fatal()) {
		return
	}
	s.fault = code
	s.start, s.end = start, end
	log.Trace().Int("code", int(code)).Int("start", start).Msg("raise")
}

func (s *Stack) raiseAt(code vm.ErrorCode, tok token.Token) {
	s.raise(code, tok.Start(), tok.End)
}

// takeFault captures and clears whatever the stack is unwinding with.
func (s *Stack) takeFault() Fault {
	f := Fault{
		Code:   s.fault,
		Signal: s.signal,
		Label:  s.label,
		Start:  s.start,
		End:    s.end,
		Ret:    s.retVal,
	}
	s.fault = vm.NoError
	s.signal = SignalNone
	s.label = ""
	if f.Signal == SignalReturn {
		s.retVal = nil
	}
	return f
}

// restoreFault puts a captured fault back. A pending fault on the stack is left
// alone unless the restored one is fatal.
func (s *Stack) restoreFault(f Fault) {
	if f.IsZero() {
		return
	}
	if !s.IsOk() && !f.Fatal() {
		return
	}
	if f.Signal != SignalNone {
		s.signal = f.Signal
		s.label = f.Label
		if f.Signal == SignalReturn {
			s.retVal = f.Ret
		}
		return
	}
	s.fault = f.Code
	s.start, s.end = f.Start, f.End
	s.signal = SignalNone
	s.label = ""
}

// Cancel stops the script: every pending native call is cancelled and the next
// step point raises the fatal ErrCancelled.
func (s *Stack) Cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.root.cancelPending()
	log.Debug().Int("tick", s.tick).Msg("stack cancelled")
}

func (s *Stack) Cancelled() bool {
	return s.cancelled
}

// Position returns the innermost node currently holding a frame, and the
// function frame that contains it.
func (s *Stack) Position() (fn Node, at Node) {
	for f := s.root; f != nil; {
		if f.node != nil {
			at = f.node
			if f.fn {
				fn = f.node
			}
		}
		if f.next != nil {
			f = f.next
		} else {
			f = f.next2
		}
	}
	return fn, at
}

// Depth is the number of live frames along the active path.
func (s *Stack) Depth() int {
	n := 0
	for f := s.root.next; f != nil; {
		n++
		if f.next != nil {
			f = f.next
		} else {
			f = f.next2
		}
	}
	return n
}
