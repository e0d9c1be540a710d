package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Decl declares one or more variables of a type, as in int a = 1, b;. State
// is the index of the variable being declared.
type Decl struct {
	base
	typ  vm.Type
	vars []declVar
}

type declVar struct {
	id   int
	name string
	tok  token.Token
	init Expr
}

func (p *parser) declaration(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Next()
	typ, _ := typeOf(tok.Kind)
	d := &Decl{base: newBase(c, tok), typ: typ}
	for {
		name := s.Peek()
		if name.Kind != token.Ident {
			c.SetError(vm.ErrNoVar, name)
			return nil
		}
		s.Next()
		if _, reserved := vm.ErrorConstants[name.Text]; reserved {
			c.SetError(vm.ErrReserved, name)
			return nil
		}
		if c.CheckVarLocal(name.Text) {
			c.SetError(vm.ErrRedefVar, name)
			return nil
		}
		v := declVar{id: c.NextID(), name: name.Text, tok: name}
		if s.IsOfType(token.Assign) {
			pile := c.TokenStack(name, false)
			if v.init = p.expression(pile); v.init == nil {
				return nil
			}
			if !v.init.Type().AssignableTo(typ) {
				pile.SetError(vm.ErrBadType1, v.init.Token())
				return nil
			}
			c.Return(pile)
		}
		c.AddVar(&compiler.Decl{ID: v.id, Name: v.name, Type: typ, Token: name})
		d.vars = append(d.vars, v)
		if !s.IsOfType(token.Comma) {
			return d
		}
	}
}

func (d *Decl) Name() string { return "Decl " + d.typ.String() }

func (d *Decl) Links() []Link {
	var out []Link
	for _, v := range d.vars {
		if v.init != nil {
			out = addLink(out, v.name, v.init)
		}
	}
	return out
}

func (d *Decl) Execute(f *interp.Frame) bool {
	pile := f.Enter(d)
	if pile.IfStep() {
		return false
	}
	for i := pile.State(); i < len(d.vars); i++ {
		v := d.vars[i]
		var val vm.Value
		if v.init != nil {
			if !v.init.Execute(pile) {
				return false
			}
			val, _ = vm.Convert(pile.Value(), d.typ)
		}
		pile.AddVar(&interp.Variable{ID: v.id, Name: v.name, Type: d.typ, Value: val})
		if !pile.SetState(i + 1) {
			return false
		}
	}
	return f.Return(pile)
}

func (d *Decl) RestoreState(f *interp.Frame, main bool) {
	if !main {
		for _, v := range d.vars {
			f.RestoreVar(v.id, v.name, d.typ)
		}
		return
	}
	pile := f.Restore(d)
	if pile == nil {
		return
	}
	st := pile.State()
	for i := 0; i < st && i < len(d.vars); i++ {
		pile.RestoreVar(d.vars[i].id, d.vars[i].name, d.typ)
	}
	if st < len(d.vars) && d.vars[st].init != nil {
		d.vars[st].init.RestoreState(pile, true)
	}
}
