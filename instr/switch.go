package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Switch keeps its sections as one flat list with Case markers in it, so
// falling through is simply running on. State 0 evaluates the value; state
// i+1 means list[i] runs next.
type Switch struct {
	base
	value  Expr
	list   []Instr
	labels map[int64]int
	def    int
}

// Case marks where a section starts. It does nothing when reached.
type Case struct {
	base
	value     vm.Value
	isDefault bool
}

func (p *parser) switchCase(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	pile := c.TokenStack(tok, true)
	n := &Switch{base: newBase(c, tok), labels: make(map[int64]int), def: -1}

	if !s.IsOfType(token.LParen) {
		pile.SetError(vm.ErrOpenPar, s.Peek())
		return nil
	}
	if n.value = p.expression(pile); n.value == nil {
		return nil
	}
	if n.value.Type() != vm.TypeInt {
		pile.SetError(vm.ErrBadType1, n.value.Token())
		return nil
	}
	if !s.IsOfType(token.RParen) {
		pile.SetError(vm.ErrClosePar, s.Peek())
		return nil
	}
	if !s.IsOfType(token.LBrace) {
		pile.SetError(vm.ErrOpenBlock, s.Peek())
		return nil
	}

	pile.IncLvlSwitch()
	defer pile.DecLvl()
	for !s.IsOfType(token.RBrace) {
		switch s.Peek().Kind {
		case token.EOF:
			pile.SetError(vm.ErrCloseBlock, s.Peek())
			return nil
		case token.Case, token.Default:
			cs := p.caseLabel(pile)
			if cs == nil {
				return nil
			}
			if !n.addCase(pile, cs) {
				return nil
			}
		default:
			if len(n.list) == 0 {
				pile.SetError(vm.ErrNoCase, s.Peek())
				return nil
			}
			if s.IsOfType(token.Semicolon) {
				continue
			}
			i := p.statement(pile)
			if i == nil {
				return nil
			}
			n.list = append(n.list, i)
		}
	}
	c.Return(pile)
	return n
}

func (p *parser) caseLabel(c *compiler.CStack) *Case {
	s := p.s
	tok := s.Next()
	cs := &Case{base: newBase(c, tok), isDefault: tok.Kind == token.Default}
	if !cs.isDefault {
		e := p.expression(c)
		if e == nil {
			return nil
		}
		v, ok := e.Const()
		if !ok || v.Type() != vm.TypeInt {
			c.SetError(vm.ErrBadCase, e.Token())
			return nil
		}
		cs.value = v
	}
	if !s.IsOfType(token.Colon) {
		c.SetError(vm.ErrNoDoubleDots, s.Peek())
		return nil
	}
	return cs
}

func (n *Switch) addCase(c *compiler.CStack, cs *Case) bool {
	at := len(n.list)
	if cs.isDefault {
		if n.def >= 0 {
			c.SetError(vm.ErrRedefCase, cs.tok)
			return false
		}
		n.def = at
	} else {
		key := vm.AsInt(cs.value)
		if _, dup := n.labels[key]; dup {
			c.SetError(vm.ErrRedefCase, cs.tok)
			return false
		}
		n.labels[key] = at
	}
	n.list = append(n.list, cs)
	return true
}

func (n *Switch) Name() string { return "Switch" }

func (n *Switch) Links() []Link {
	out := addLink(nil, "value", n.value)
	for _, i := range n.list {
		out = addLink(out, "statement", i)
	}
	return out
}

func (n *Switch) Execute(f *interp.Frame) bool {
	pile := f.EnterBlock(n)
	if pile.IfStep() {
		return false
	}

	if pile.State() == 0 {
		if !n.value.Execute(pile) {
			return false
		}
		at, ok := n.labels[vm.AsInt(pile.Value())]
		if !ok {
			if n.def < 0 {
				return f.Return(pile)
			}
			at = n.def
		}
		if !pile.SetState(at + 1) {
			return false
		}
	}

	for i := pile.State() - 1; i < len(n.list); i++ {
		if !n.list[i].Execute(pile) {
			return f.BreakReturn(pile, "")
		}
		if !pile.SetState(i + 2) {
			return false
		}
	}
	return f.Return(pile)
}

func (n *Switch) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	at := pile.State() - 1
	if at < 0 {
		n.value.RestoreState(pile, true)
		return
	}
	for i := 0; i < at && i < len(n.list); i++ {
		n.list[i].RestoreState(pile, false)
	}
	if at < len(n.list) {
		n.list[at].RestoreState(pile, true)
	}
}

func (cs *Case) Name() string {
	if cs.isDefault {
		return "Default"
	}
	return "Case " + cs.value.String()
}

func (cs *Case) Execute(*interp.Frame) bool { return true }

func (cs *Case) RestoreState(*interp.Frame, bool) {}
