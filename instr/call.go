package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Call invokes a script function or a native. Each argument value is kept in
// an anonymous frame of its own, chained above the call's frame, and the
// callee runs above the last of them.
type Call struct {
	base
	name   string
	args   []Expr
	params []vm.Type
	result vm.Type
	fn     *Function
	native *interp.Native
}

func (p *parser) call(c *compiler.CStack) Expr {
	s := p.s
	name := s.Next()
	s.Next()
	pile := c.TokenStack(name, false)

	var args []Expr
	if !s.IsOfType(token.RParen) {
		for {
			e := p.expression(pile)
			if e == nil {
				return nil
			}
			args = append(args, e)
			if s.IsOfType(token.Comma) {
				continue
			}
			if !s.IsOfType(token.RParen) {
				pile.SetError(vm.ErrClosePar, s.Peek())
				return nil
			}
			break
		}
	}

	sig, ok := c.Function(name.Text)
	if !ok {
		pile.SetError(vm.ErrUndefCall, name)
		return nil
	}
	switch {
	case len(args) > len(sig.Params) && !sig.Variadic:
		pile.SetError(vm.ErrOverParam, args[len(sig.Params)].Token())
		return nil
	case len(args) < len(sig.Params):
		pile.SetError(vm.ErrLowParam, s.Prev())
		return nil
	}
	for i, a := range args {
		if i < len(sig.Params) && !a.Type().AssignableTo(sig.Params[i]) {
			pile.SetError(vm.ErrBadParam, a.Token())
			return nil
		}
		if a.Type() == vm.TypeVoid {
			pile.SetError(vm.ErrVoid, a.Token())
			return nil
		}
	}
	c.Return(pile)
	c.SetType(sig.Result)

	n := &Call{
		base:   newBase(c, name),
		name:   name.Text,
		args:   args,
		params: sig.Params,
		result: sig.Result,
	}
	if p.mod != nil {
		n.fn = p.mod.funcs[name.Text]
		n.native = p.mod.natives[name.Text]
	}
	return n
}

func (n *Call) Name() string            { return "Call " + n.name }
func (n *Call) Type() vm.Type           { return n.result }
func (n *Call) Const() (vm.Value, bool) { return nil, false }

func (n *Call) Links() []Link {
	var out []Link
	for _, a := range n.args {
		out = addLink(out, "arg", a)
	}
	return out
}

func (n *Call) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}

	p := pile
	args := make([]vm.Value, len(n.args))
	for i, a := range n.args {
		p = p.EnterAnon()
		if p.State() == 0 {
			if !a.Execute(p) {
				return false
			}
			if i < len(n.params) {
				v, _ := vm.Convert(p.Value(), n.params[i])
				p.SetValue(v)
			}
			if !p.SetState(1) {
				return false
			}
		}
		args[i] = p.Value()
	}

	switch {
	case n.fn != nil:
		if !n.fn.Call(p, args) {
			return false
		}
	case n.native != nil:
		if !p.CallNative(n.native, args, n.tok) {
			return false
		}
	default:
		pile.SetError(vm.ErrUndefFunc, n.tok)
		return f.Return(pile)
	}
	pile.SetValue(p.Value())
	return f.Return(pile)
}

func (n *Call) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	p := pile
	for _, a := range n.args {
		if p = p.RestoreAnon(); p == nil {
			return
		}
		if p.State() == 0 {
			a.RestoreState(p, true)
			return
		}
	}
	if n.fn != nil {
		n.fn.RestoreState(p, true)
	} else if n.native != nil {
		p.RestoreCall(n.native)
	}
}
