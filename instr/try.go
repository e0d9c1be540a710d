package instr

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Try states. The guarded block runs in tryBlock; catch clause i is tested in
// state 2i+1 and its handler runs in state 2i+2. The two negative states run
// the finally block and then either re-raise the parked fault or finish.
const (
	tryBlock          = 0
	tryFinallyReraise = -1
	tryFinallyResolve = -2
)

func testState(i int) int { return 2*i + 1 }

// Try keeps its resumption point on its own frame and parks the fault it is
// handling in the Fault field of its secondary frame. Guards, handlers and the
// finally block run on a work frame above the secondary one.
type Try struct {
	base
	block       *Block
	catches     []*Catch
	finally     Instr
	conditional bool
}

// Catch is one clause of a try. A boolean guard makes it conditional: it is
// polled while the guarded block is suspended and fires when true. An int
// guard is compared with the code of the fault being handled.
type Catch struct {
	base
	guard       Expr
	body        Instr
	conditional bool
}

func (p *parser) try(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	n := &Try{base: newBase(c, tok)}

	if n.block = p.block(pile); n.block == nil {
		return nil
	}
	for s.Is(token.Catch) {
		cs := p.catchClause(pile)
		if cs == nil {
			return nil
		}
		n.catches = append(n.catches, cs)
		n.conditional = n.conditional || cs.conditional
	}
	if s.IsOfType(token.Finally) {
		b := p.block(pile)
		if b == nil {
			return nil
		}
		n.finally = b
	}
	c.Return(pile)
	return n
}

func (p *parser) catchClause(c *compiler.CStack) *Catch {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	cs := &Catch{base: newBase(c, tok)}

	if !s.IsOfType(token.LParen) {
		pile.SetError(vm.ErrOpenPar, s.Peek())
		return nil
	}
	if cs.guard = p.expression(pile); cs.guard == nil {
		return nil
	}
	switch cs.guard.Type() {
	case vm.TypeBool:
		cs.conditional = true
	case vm.TypeInt:
	default:
		pile.SetError(vm.ErrBadType1, cs.guard.Token())
		return nil
	}
	if !s.IsOfType(token.RParen) {
		pile.SetError(vm.ErrClosePar, s.Peek())
		return nil
	}
	cs.body = p.blockOrInstr(pile)
	if !pile.IsOk() {
		return nil
	}
	c.Return(pile)
	return cs
}

func (n *Try) Name() string { return "Try" }

func (n *Try) Links() []Link {
	out := addLink(nil, "block", n.block)
	for _, cs := range n.catches {
		out = addLink(out, "catch", cs)
	}
	return addLink(out, "finally", n.finally)
}

func (n *Try) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	scratch := pile.EnterSecondary()
	if pile.IfStep() {
		return false
	}

	if pile.State() == tryBlock {
		switch {
		case n.block.Execute(pile):
			if n.finally == nil {
				return f.Return(pile)
			}
			scratch.Fault = interp.Fault{}
			if !pile.SetState(tryFinallyResolve) {
				return false
			}
		case pile.IsOk():
			// Suspended without a fault: give the boolean clauses a chance.
			if !n.conditional {
				return false
			}
			scratch.Fault = interp.Fault{}
			pile.SetState(testState(0))
		case pile.Error().Fatal():
			return false
		default:
			if len(n.catches) == 0 && n.finally == nil {
				return false
			}
			flt := pile.TakeFault()
			pile.AbandonNext()
			scratch.Fault = flt
			log.Trace().Int("node", n.id).Str("fault", flt.String()).Msg("try caught fault")
			switch {
			case flt.Dispatchable() && len(n.catches) > 0:
				pile.SetState(testState(0))
			case n.finally != nil:
				pile.SetState(tryFinallyReraise)
			default:
				pile.Raise(flt)
				return f.Return(pile)
			}
		}
	}

	for st := pile.State(); st > 0; st = pile.State() {
		i := (st - 1) / 2
		cs := n.catches[i]
		work := scratch.EnterAnon()
		code := scratch.Fault.Code

		if st == testState(i) {
			matched := false
			if code != vm.NoError || cs.conditional {
				if !cs.Test(work, code) {
					return false
				}
				matched = work.Value().AsBool()
			}
			scratch.Release()
			if !matched {
				switch {
				case i+1 < len(n.catches):
					pile.SetState(testState(i + 1))
				case code == vm.NoError:
					pile.SetState(tryBlock)
					return false
				case n.finally != nil:
					pile.SetState(tryFinallyReraise)
				default:
					pile.Raise(scratch.Fault)
					return f.Return(pile)
				}
				continue
			}
			log.Trace().Int("node", n.id).Int("catch", i).Msg("catch clause matched")
			pile.AbandonNext()
			if !pile.SetState(st + 1) {
				return false
			}
			continue
		}

		if cs.body != nil && !cs.body.Execute(work) {
			if pile.IsOk() || n.finally == nil || pile.Error().Fatal() {
				return false
			}
			scratch.Fault = pile.TakeFault()
			scratch.Release()
			pile.SetState(tryFinallyReraise)
			break
		}
		scratch.Release()
		if n.finally == nil {
			return f.Return(pile)
		}
		scratch.Fault = interp.Fault{}
		if !pile.SetState(tryFinallyResolve) {
			return false
		}
	}

	work := scratch.EnterAnon()
	if !n.finally.Execute(work) {
		return false
	}
	if pile.State() == tryFinallyReraise {
		pile.Raise(scratch.Fault)
	}
	return f.Return(pile)
}

func (n *Try) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	n.block.RestoreState(pile, true)
	scratch := pile.RestoreSecondary()
	if scratch == nil {
		return
	}
	work := scratch.RestoreAnon()
	if work == nil {
		return
	}
	switch st := pile.State(); {
	case st > 0:
		i := (st - 1) / 2
		if i >= len(n.catches) {
			return
		}
		cs := n.catches[i]
		if st == testState(i) {
			cs.guard.RestoreState(work, true)
		} else if cs.body != nil {
			cs.body.RestoreState(work, true)
		}
	case st < 0:
		n.finally.RestoreState(work, true)
	}
}

func (cs *Catch) Name() string { return "Catch" }

func (cs *Catch) Links() []Link {
	return addLink(addLink(nil, "guard", cs.guard), "body", cs.body)
}

// Test evaluates the guard against code and leaves the verdict as a bool in
// f's value. It returns false while the guard is suspended or when it failed.
func (cs *Catch) Test(f *interp.Frame, code vm.ErrorCode) bool {
	if !cs.guard.Execute(f) {
		return false
	}
	v := f.Value()
	if cs.conditional {
		f.SetValue(vm.BoolValue(v.AsBool()))
	} else {
		f.SetValue(vm.BoolValue(vm.AsInt(v) == int64(code)))
	}
	return true
}
