package instr

import (
	"math"

	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

const (
	whileCond = iota
	whileBody
)

type While struct {
	base
	label string
	cond  Expr
	body  Instr
}

func (p *parser) while(c *compiler.CStack, label string) Instr {
	tok := p.s.Next()
	pile := c.TokenStack(tok, false)
	n := &While{base: newBase(c, tok), label: label}

	if n.cond = p.condition(pile); n.cond == nil {
		return nil
	}
	pile.IncLvl(label)
	n.body = p.blockOrInstr(pile)
	pile.DecLvl()
	if !pile.IsOk() {
		return nil
	}
	c.Return(pile)
	return n
}

func (n *While) Name() string { return "While" }

func (n *While) Links() []Link {
	return addLink(addLink(nil, "condition", n.cond), "body", n.body)
}

func (n *While) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	for {
		if pile.State() == whileCond {
			if !n.cond.Execute(pile) {
				return false
			}
			if !pile.Value().AsBool() {
				return f.Return(pile)
			}
			if !pile.SetState(whileBody) {
				return false
			}
		}
		if n.body != nil && !n.body.Execute(pile) {
			if !pile.IfContinue(whileCond, n.label) {
				return f.BreakReturn(pile, n.label)
			}
		}
		if !pile.Loop(whileCond) {
			return false
		}
	}
}

func (n *While) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	if pile.State() == whileCond {
		n.cond.RestoreState(pile, true)
	} else if n.body != nil {
		n.body.RestoreState(pile, true)
	}
}

const (
	doBody = iota
	doCond
)

type Do struct {
	base
	label string
	body  Instr
	cond  Expr
}

func (p *parser) do(c *compiler.CStack, label string) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	n := &Do{base: newBase(c, tok), label: label}

	pile.IncLvl(label)
	n.body = p.blockOrInstr(pile)
	pile.DecLvl()
	if !pile.IsOk() {
		return nil
	}
	if !s.IsOfType(token.While) {
		pile.SetError(vm.ErrNoWhile, s.Peek())
		return nil
	}
	if n.cond = p.condition(pile); n.cond == nil {
		return nil
	}
	if !s.IsOfType(token.Semicolon) {
		pile.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	c.Return(pile)
	return n
}

func (n *Do) Name() string { return "Do" }

func (n *Do) Links() []Link {
	return addLink(addLink(nil, "body", n.body), "condition", n.cond)
}

func (n *Do) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	for {
		if pile.State() == doBody {
			if n.body != nil && !n.body.Execute(pile) {
				if !pile.IfContinue(doCond, n.label) {
					return f.BreakReturn(pile, n.label)
				}
			} else if !pile.SetState(doCond) {
				return false
			}
		}
		if !n.cond.Execute(pile) {
			return false
		}
		if !pile.Value().AsBool() {
			return f.Return(pile)
		}
		if !pile.Loop(doBody) {
			return false
		}
	}
}

func (n *Do) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	if pile.State() == doCond {
		n.cond.RestoreState(pile, true)
	} else if n.body != nil {
		n.body.RestoreState(pile, true)
	}
}

const (
	forInit = iota
	forCond
	forBody
	forIncr
)

// For runs its init once, then cycles condition, body and increment. The
// variables declared by init live in the loop's own scope.
type For struct {
	base
	label string
	init  Instr
	cond  Expr
	incr  Instr
	body  Instr
}

func (p *parser) forLoop(c *compiler.CStack, label string) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, true)
	n := &For{base: newBase(c, tok), label: label}

	if !s.IsOfType(token.LParen) {
		pile.SetError(vm.ErrOpenPar, s.Peek())
		return nil
	}
	if !s.Is(token.Semicolon) {
		if _, ok := typeOf(s.Peek().Kind); ok {
			n.init = p.declaration(pile)
		} else {
			n.init = p.exprList(pile)
		}
		if n.init == nil {
			return nil
		}
	}
	if !s.IsOfType(token.Semicolon) {
		pile.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	if !s.Is(token.Semicolon) {
		e := p.expression(pile)
		if e == nil {
			return nil
		}
		if e.Type() != vm.TypeBool {
			pile.SetError(vm.ErrNotBoolean, e.Token())
			return nil
		}
		n.cond = e
	}
	if !s.IsOfType(token.Semicolon) {
		pile.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	if !s.Is(token.RParen) {
		if n.incr = p.exprList(pile); n.incr == nil {
			return nil
		}
	}
	if !s.IsOfType(token.RParen) {
		pile.SetError(vm.ErrClosePar, s.Peek())
		return nil
	}

	pile.IncLvl(label)
	n.body = p.blockOrInstr(pile)
	pile.DecLvl()
	if !pile.IsOk() {
		return nil
	}
	c.Return(pile)
	return n
}

// exprList compiles comma separated expressions into an unscoped block.
func (p *parser) exprList(c *compiler.CStack) Instr {
	tok := p.s.Peek()
	b := &Block{base: newBase(c, tok)}
	for {
		e := p.expression(c)
		if e == nil {
			return nil
		}
		b.list = append(b.list, e)
		if !p.s.IsOfType(token.Comma) {
			return b
		}
	}
}

func (n *For) Name() string { return "For" }

func (n *For) Links() []Link {
	out := addLink(nil, "init", n.init)
	out = addLink(out, "condition", n.cond)
	out = addLink(out, "increment", n.incr)
	return addLink(out, "body", n.body)
}

func (n *For) Execute(f *interp.Frame) bool {
	pile := f.EnterBlock(n)
	if pile.IfStep() {
		return false
	}
	for {
		switch pile.State() {
		case forInit:
			if n.init != nil && !n.init.Execute(pile) {
				return false
			}
			if !pile.SetState(forCond) {
				return false
			}
		case forCond:
			if n.cond != nil {
				if !n.cond.Execute(pile) {
					return false
				}
				if !pile.Value().AsBool() {
					return f.Return(pile)
				}
			}
			if !pile.SetState(forBody) {
				return false
			}
		case forBody:
			if n.body != nil && !n.body.Execute(pile) {
				if !pile.IfContinue(forIncr, n.label) {
					return f.BreakReturn(pile, n.label)
				}
			} else if !pile.SetState(forIncr) {
				return false
			}
		case forIncr:
			if n.incr != nil && !n.incr.Execute(pile) {
				return false
			}
			if !pile.Loop(forCond) {
				return false
			}
		}
	}
}

func (n *For) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	st := pile.State()
	if n.init != nil {
		n.init.RestoreState(pile, st == forInit)
	}
	switch st {
	case forCond:
		if n.cond != nil {
			n.cond.RestoreState(pile, true)
		}
	case forBody:
		if n.body != nil {
			n.body.RestoreState(pile, true)
		}
	case forIncr:
		if n.incr != nil {
			n.incr.RestoreState(pile, true)
		}
	}
}

// repeatDone is the state a repeat reaches after its last iteration. State 0
// evaluates the count; state k+1 means k iterations remain.
const repeatDone = 1

type Repeat struct {
	base
	label string
	count Expr
	body  Instr
}

func (p *parser) repeat(c *compiler.CStack, label string) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	n := &Repeat{base: newBase(c, tok), label: label}

	if !s.IsOfType(token.LParen) {
		pile.SetError(vm.ErrOpenPar, s.Peek())
		return nil
	}
	if s.Is(token.Semicolon, token.RParen) {
		pile.SetError(vm.ErrBadNum, s.Peek())
		return nil
	}
	if n.count = p.expression(pile); n.count == nil {
		return nil
	}
	if n.count.Type() != vm.TypeInt {
		pile.SetError(vm.ErrBadType1, n.count.Token())
		return nil
	}
	if !s.IsOfType(token.RParen) {
		pile.SetError(vm.ErrClosePar, s.Peek())
		return nil
	}

	pile.IncLvl(label)
	n.body = p.blockOrInstr(pile)
	pile.DecLvl()
	if !pile.IsOk() {
		return nil
	}
	c.Return(pile)
	return n
}

func (n *Repeat) Name() string { return "Repeat" }

func (n *Repeat) Links() []Link {
	return addLink(addLink(nil, "count", n.count), "body", n.body)
}

func (n *Repeat) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	if pile.State() == 0 {
		if !n.count.Execute(pile) {
			return false
		}
		count := vm.AsInt(pile.Value())
		if count < 1 {
			return f.Return(pile)
		}
		// The remaining count rides in the frame state, one above repeatDone.
		if count > math.MaxInt-repeatDone {
			count = math.MaxInt - repeatDone
		}
		if !pile.SetState(int(count) + repeatDone) {
			return false
		}
	}
	for {
		st := pile.State()
		if st <= repeatDone {
			return f.Return(pile)
		}
		if n.body != nil && !n.body.Execute(pile) {
			if !pile.IfContinue(st-1, n.label) {
				return f.BreakReturn(pile, n.label)
			}
		}
		if !pile.Loop(st - 1) {
			return false
		}
	}
}

func (n *Repeat) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	if pile.State() == 0 {
		n.count.RestoreState(pile, true)
	} else if n.body != nil {
		n.body.RestoreState(pile, true)
	}
}
