package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
)

const (
	ifCond = iota
	ifThen
	ifElse
)

type If struct {
	base
	cond Expr
	then Instr
	els  Instr
}

func (p *parser) ifElse(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, false)
	n := &If{base: newBase(c, tok)}

	if n.cond = p.condition(pile); n.cond == nil {
		return nil
	}
	n.then = p.blockOrInstr(pile)
	if !pile.IsOk() {
		return nil
	}
	if s.IsOfType(token.Else) {
		n.els = p.blockOrInstr(pile)
		if !pile.IsOk() {
			return nil
		}
	}
	c.Return(pile)
	return n
}

func (n *If) Name() string { return "If" }

func (n *If) Links() []Link {
	out := addLink(nil, "condition", n.cond)
	out = addLink(out, "then", n.then)
	return addLink(out, "else", n.els)
}

// HasReturn holds only when both branches return.
func (n *If) HasReturn() bool {
	return n.then != nil && n.els != nil && n.then.HasReturn() && n.els.HasReturn()
}

func (n *If) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}

	if pile.State() == ifCond {
		if !n.cond.Execute(pile) {
			return false
		}
		next := ifElse
		if pile.Value().AsBool() {
			next = ifThen
		}
		if !pile.SetState(next) {
			return false
		}
	}

	branch := n.then
	if pile.State() == ifElse {
		branch = n.els
	}
	if branch != nil && !branch.Execute(pile) {
		return false
	}
	return f.Return(pile)
}

func (n *If) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	switch pile.State() {
	case ifCond:
		n.cond.RestoreState(pile, true)
	case ifThen:
		if n.then != nil {
			n.then.RestoreState(pile, true)
		}
	case ifElse:
		if n.els != nil {
			n.els.RestoreState(pile, true)
		}
	}
}
