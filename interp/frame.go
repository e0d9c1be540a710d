package interp

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Frame is one activation record. A node owns the frame it obtains from Enter
// and keeps its resumption point in State. The frame lives until the parent's
// Return releases it.
type Frame struct {
	stack *Stack
	prev  *Frame
	next  *Frame
	next2 *Frame

	owner int
	node  Node
	state int
	step  int
	depth int
	block bool
	fn    bool

	value vm.Value
	vars  []*Variable
	call  *Call

	// Fault is scratch storage for a try's captured fault. It is never used
	// as a resumption point.
	Fault Fault
}

// Stack returns the stack this frame belongs to.
func (f *Frame) Stack() *Stack {
	return f.stack
}

func (f *Frame) Node() Node {
	return f.node
}

func (f *Frame) child(owner int, n Node) *Frame {
	c := f.next
	if c != nil {
		if c.owner == owner {
			if n != nil {
				c.node = n
			}
			return c
		}
		log.Trace().Int("want", owner).Int("found", c.owner).Msg("discarding stale frame")
		f.next = nil
	}
	c = &Frame{stack: f.stack, prev: f, owner: owner, node: n, depth: f.depth + 1}
	f.next = c
	return c
}

// Enter returns the frame owned by n, creating it on the first visit and
// reusing it when execution resumes.
func (f *Frame) Enter(n Node) *Frame {
	return f.child(n.ID(), n)
}

// EnterBlock is Enter for nodes that open a lexical scope.
func (f *Frame) EnterBlock(n Node) *Frame {
	c := f.child(n.ID(), n)
	c.block = true
	return c
}

// EnterFunc opens the frame of a function activation: a scope that variable
// lookups do not cross.
func (f *Frame) EnterFunc(n Node) *Frame {
	c := f.child(n.ID(), n)
	c.block = true
	c.fn = true
	return c
}

// EnterAnon opens an anonymous frame, used to hold operand values.
func (f *Frame) EnterAnon() *Frame {
	return f.child(0, nil)
}

// EnterSecondary opens the frame parallel to Next. It survives resumptions and
// completion of the primary child; it goes away with f itself or by Release.
func (f *Frame) EnterSecondary() *Frame {
	if f.next2 == nil {
		f.next2 = &Frame{stack: f.stack, prev: f, depth: f.depth + 1}
	}
	return f.next2
}

// Next returns the child frame, or nil.
func (f *Frame) Next() *Frame {
	return f.next
}

func (f *Frame) State() int {
	return f.state
}

// SetState stores the resumption point and consumes a step. It returns false
// when the caller should suspend.
func (f *Frame) SetState(n int) bool {
	return f.SetStateLimit(n, overdraft)
}

func (f *Frame) SetStateLimit(n, limit int) bool {
	f.state = n
	f.stack.timer--
	return f.stack.timer > limit
}

func (f *Frame) IncState() bool {
	return f.SetState(f.state + 1)
}

// Loop is the loop back edge: the frames of the previous iteration are
// forgotten and the full budget is honored.
func (f *Frame) Loop(n int) bool {
	f.next = nil
	return f.SetStateLimit(n, 0)
}

// IfStep reports whether the node should pause before doing any work. This is
// the case once per frame in single-step mode, and always after cancellation,
// in which case the fatal fault is raised as well.
func (f *Frame) IfStep() bool {
	s := f.stack
	if s.cancelled {
		var tok token.Token
		if f.node != nil {
			tok = f.node.Token()
		}
		s.raiseAt(vm.ErrCancelled, tok)
		return true
	}
	if s.budget > 0 || f.step > 0 {
		return false
	}
	f.step++
	return true
}

// StackOver raises the fatal ErrStackOver when the frame is nested too deep.
func (f *Frame) StackOver() bool {
	if f.depth <= f.stack.maxDepth {
		return false
	}
	var tok token.Token
	if f.node != nil {
		tok = f.node.Token()
	}
	f.stack.raiseAt(vm.ErrStackOver, tok)
	log.Debug().Int("depth", f.depth).Msg("stack overflow")
	return true
}

func (f *Frame) Value() vm.Value {
	return f.value
}

func (f *Frame) SetValue(v vm.Value) {
	f.value = v
}

func (f *Frame) IsOk() bool {
	return f.stack.IsOk()
}

func (f *Frame) Error() vm.ErrorCode {
	return f.stack.fault
}

// SetError raises code at tok. An existing fault is kept.
func (f *Frame) SetError(code vm.ErrorCode, tok token.Token) {
	f.stack.raiseAt(code, tok)
}

// TakeFault captures and clears the fault the stack is unwinding with.
func (f *Frame) TakeFault() Fault {
	return f.stack.takeFault()
}

// Raise resumes unwinding with a previously captured fault.
func (f *Frame) Raise(flt Fault) {
	f.stack.restoreFault(flt)
}

// SetBreak starts unwinding with a break, continue or return. A return carries
// the frame's value.
func (f *Frame) SetBreak(sig Signal, label string) {
	s := f.stack
	s.signal = sig
	s.label = label
	if sig == SignalReturn {
		s.retVal = f.value
		f.value = nil
	}
	log.Trace().Str("signal", sig.String()).Str("label", label).Msg("set break")
}

// TakeReturn consumes a pending return and yields its value.
func (f *Frame) TakeReturn() (vm.Value, bool) {
	s := f.stack
	if s.fault != vm.NoError || s.signal != SignalReturn {
		return nil, false
	}
	v := s.retVal
	s.signal = SignalNone
	s.retVal = nil
	return v, true
}

// Return finishes child: its value moves into f, the primary frame above f is
// released, and the result tells the caller whether execution is clean. The
// secondary frame stays, since its owner may still be running.
func (f *Frame) Return(child *Frame) bool {
	if child != nil && child != f {
		f.value = child.value
	}
	f.next = nil
	return f.stack.IsOk()
}

// BreakReturn finishes a loop or switch that stopped early. It consumes a
// break aimed at label (an unlabeled break aims at the innermost construct)
// and reports true; anything else keeps unwinding and reports false.
func (f *Frame) BreakReturn(child *Frame, label string) bool {
	s := f.stack
	if s.fault != vm.NoError || s.signal != SignalBreak {
		return false
	}
	if s.label != "" && s.label != label {
		return false
	}
	s.signal = SignalNone
	s.label = ""
	return f.Return(child)
}

// IfContinue consumes a continue aimed at label, moving f to state and
// forgetting the body frames.
func (f *Frame) IfContinue(state int, label string) bool {
	s := f.stack
	if s.fault != vm.NoError || s.signal != SignalContinue {
		return false
	}
	if s.label != "" && s.label != label {
		return false
	}
	s.signal = SignalNone
	s.label = ""
	f.state = state
	f.next = nil
	return true
}

// Release forgets every frame above f.
func (f *Frame) Release() {
	f.next = nil
	f.next2 = nil
}

// AbandonNext cancels the native calls pending above f and releases the
// primary child. Used when a handler takes over from a suspended block.
func (f *Frame) AbandonNext() {
	if f.next != nil {
		f.next.cancelPending()
		f.next = nil
	}
}

func (f *Frame) cancelPending() {
	for c := f; c != nil; c = c.next {
		if c.call != nil {
			c.call.cancel()
			c.call = nil
		}
		if c.next2 != nil {
			c.next2.cancelPending()
		}
	}
}

func (f *Frame) scope() *Frame {
	p := f
	for p != nil && !p.block {
		p = p.prev
	}
	if p == nil {
		return f.stack.root
	}
	return p
}

// AddVar declares v in the nearest enclosing scope.
func (f *Frame) AddVar(v *Variable) {
	p := f.scope()
	p.vars = append(p.vars, v)
}

// FindVar looks up a declaration by its unique ID, innermost scope first,
// without leaving the current function.
func (f *Frame) FindVar(id int) *Variable {
	for p := f; p != nil; p = p.prev {
		for i := len(p.vars) - 1; i >= 0; i-- {
			if p.vars[i].ID == id {
				return p.vars[i]
			}
		}
		if p.fn {
			break
		}
	}
	return nil
}

// Vars lists the variables declared directly in f.
func (f *Frame) Vars() []*Variable {
	return f.vars
}
