package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Break is break or continue, optionally aimed at a labeled loop.
type Break struct {
	base
	sig   interp.Signal
	label string
}

func (p *parser) breakContinue(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	n := &Break{base: newBase(c, tok), sig: interp.SignalBreak}
	if tok.Kind == token.Continue {
		n.sig = interp.SignalContinue
	}
	if lbl := s.Peek(); lbl.Kind == token.Ident {
		n.label = lbl.Text
		s.Next()
	}
	if !c.ChkLvl(n.label, n.sig == interp.SignalContinue) {
		if n.label == "" {
			c.SetError(vm.ErrBreakOutside, tok)
		} else {
			c.SetError(vm.ErrUndefLabel, s.Prev())
		}
		return nil
	}
	if !s.IsOfType(token.Semicolon) {
		c.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	return n
}

func (n *Break) Name() string {
	if n.sig == interp.SignalContinue {
		return "Continue"
	}
	return "Break"
}

func (n *Break) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	pile.SetBreak(n.sig, n.label)
	return f.Return(pile)
}

func (n *Break) RestoreState(f *interp.Frame, main bool) {
	if main {
		f.Restore(n)
	}
}

// Throw raises the code its expression evaluates to. Zero raises nothing.
type Throw struct {
	base
	value Expr
}

func (p *parser) throw(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	n := &Throw{base: newBase(c, tok)}
	if n.value = p.expression(pile); n.value == nil {
		return nil
	}
	if n.value.Type() != vm.TypeInt {
		pile.SetError(vm.ErrBadType1, n.value.Token())
		return nil
	}
	if !s.IsOfType(token.Semicolon) {
		pile.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	c.Return(pile)
	return n
}

func (n *Throw) Name() string { return "Throw" }

func (n *Throw) Links() []Link {
	return addLink(nil, "value", n.value)
}

func (n *Throw) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.State() == 0 {
		if !n.value.Execute(pile) {
			return false
		}
		if !pile.IncState() {
			return false
		}
	}
	if pile.IfStep() {
		return false
	}
	code := vm.AsInt(pile.Value())
	// Scripts cannot raise the faults that bypass catch and finally.
	if code < 0 || vm.ErrorCode(code).Fatal() {
		code = int64(vm.ErrBadThrow)
	}
	pile.SetError(vm.ErrorCode(code), n.tok)
	return f.Return(pile)
}

func (n *Throw) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	if pile := f.Restore(n); pile != nil && pile.State() == 0 {
		n.value.RestoreState(pile, true)
	}
}

// Return leaves the enclosing function, carrying the value converted to the
// function's result type.
type Return struct {
	base
	value  Expr
	result vm.Type
}

func (p *parser) ret(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	n := &Return{base: newBase(c, tok), result: c.ReturnType()}

	if n.result == vm.TypeVoid {
		if !s.Is(token.Semicolon) {
			pile.SetError(vm.ErrBadType1, s.Peek())
			return nil
		}
	} else {
		if s.Is(token.Semicolon) {
			pile.SetError(vm.ErrNoExpression, s.Peek())
			return nil
		}
		if n.value = p.expression(pile); n.value == nil {
			return nil
		}
		if !n.value.Type().AssignableTo(n.result) {
			pile.SetError(vm.ErrBadType1, n.value.Token())
			return nil
		}
	}
	if !s.IsOfType(token.Semicolon) {
		pile.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	c.Return(pile)
	return n
}

func (n *Return) Name() string { return "Return" }

func (n *Return) Links() []Link {
	return addLink(nil, "value", n.value)
}

func (n *Return) HasReturn() bool { return true }

func (n *Return) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	if n.value != nil {
		if pile.State() == 0 {
			if !n.value.Execute(pile) {
				return false
			}
			if !pile.IncState() {
				return false
			}
		}
		v, _ := vm.Convert(pile.Value(), n.result)
		pile.SetValue(v)
	}
	pile.SetBreak(interp.SignalReturn, "")
	return f.Return(pile)
}

func (n *Return) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	if pile := f.Restore(n); pile != nil && pile.State() == 0 && n.value != nil {
		n.value.RestoreState(pile, true)
	}
}
