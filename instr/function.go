package instr

import (
	"fmt"
	"strings"

	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Function is a script function. Its frame is a function frame holding the
// parameters; variable lookups never cross it.
type Function struct {
	base
	name   string
	extern bool
	params []param
	result vm.Type
	body   *Block
	bodyAt token.Mark
}

type param struct {
	id   int
	name string
	typ  vm.Type
	tok  token.Token
}

// header compiles [extern|public] type name(params) and skips the body,
// which is compiled once every signature is known.
func (p *parser) header(c *compiler.CStack) *Function {
	s := p.s
	extern := false
	for s.Is(token.Extern, token.Public) {
		if s.Next().Kind == token.Extern {
			extern = true
		}
	}
	typTok := s.Peek()
	typ, ok := typeOf(typTok.Kind)
	if !ok {
		c.SetError(vm.ErrNoType, typTok)
		return nil
	}
	s.Next()
	name := s.Peek()
	if name.Kind != token.Ident {
		c.SetError(vm.ErrNoFunc, name)
		return nil
	}
	s.Next()
	if _, reserved := vm.ErrorConstants[name.Text]; reserved {
		c.SetError(vm.ErrReserved, name)
		return nil
	}

	fn := &Function{base: newBase(c, name), name: name.Text, extern: extern, result: typ}
	if !s.IsOfType(token.LParen) {
		c.SetError(vm.ErrOpenPar, s.Peek())
		return nil
	}
	if !s.IsOfType(token.RParen) {
		for {
			pt := s.Peek()
			ptyp, ok := typeOf(pt.Kind)
			if !ok {
				c.SetError(vm.ErrNoType, pt)
				return nil
			}
			if ptyp == vm.TypeVoid {
				c.SetError(vm.ErrVoid, pt)
				return nil
			}
			s.Next()
			pn := s.Peek()
			if pn.Kind != token.Ident {
				c.SetError(vm.ErrNoVar, pn)
				return nil
			}
			s.Next()
			for _, other := range fn.params {
				if other.name == pn.Text {
					c.SetError(vm.ErrRedefVar, pn)
					return nil
				}
			}
			fn.params = append(fn.params, param{id: c.NextID(), name: pn.Text, typ: ptyp, tok: pn})
			if s.IsOfType(token.Comma) {
				continue
			}
			if !s.IsOfType(token.RParen) {
				c.SetError(vm.ErrClosePar, s.Peek())
				return nil
			}
			break
		}
	}

	fn.bodyAt = s.Mark()
	if !s.Is(token.LBrace) {
		c.SetError(vm.ErrOpenBlock, s.Peek())
		return nil
	}
	for depth := 0; ; {
		tok := s.Next()
		switch tok.Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
		case token.EOF:
			c.SetError(vm.ErrCloseBlock, tok)
			return nil
		}
		if depth == 0 {
			return fn
		}
	}
}

// compileBody compiles the body skipped by header.
func (p *parser) compileBody(c *compiler.CStack, fn *Function) bool {
	p.s.Reset(fn.bodyAt)
	pile := c.TokenStack(fn.tok, true)
	pile.SetReturnType(fn.result)
	for _, prm := range fn.params {
		pile.AddVar(&compiler.Decl{ID: prm.id, Name: prm.name, Type: prm.typ, Token: prm.tok})
	}
	if fn.body = p.block(pile); fn.body == nil {
		return false
	}
	if fn.result != vm.TypeVoid && !fn.body.HasReturn() {
		pile.SetError(vm.ErrNoReturn, fn.tok)
		return false
	}
	c.Return(pile)
	return true
}

func (fn *Function) Name() string { return "Function " + fn.name }

func (fn *Function) Links() []Link {
	if fn.body == nil {
		return nil
	}
	return []Link{{Role: "body", Node: fn.body}}
}

// FuncName is the name scripts call the function by.
func (fn *Function) FuncName() string { return fn.name }

func (fn *Function) Extern() bool { return fn.extern }

func (fn *Function) Result() vm.Type { return fn.result }

func (fn *Function) Signature() compiler.Signature {
	sig := compiler.Signature{Name: fn.name, Result: fn.result}
	for _, prm := range fn.params {
		sig.Params = append(sig.Params, prm.typ)
	}
	return sig
}

func (fn *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s(", fn.result, fn.name)
	for i, prm := range fn.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", prm.typ, prm.name)
	}
	sb.WriteString(")")
	return sb.String()
}

// Call runs the function on a frame above f. The result is left in f's value
// once the call completes.
func (fn *Function) Call(f *interp.Frame, args []vm.Value) bool {
	pile := f.EnterFunc(fn)
	if pile.StackOver() {
		return f.Return(pile)
	}
	if pile.IfStep() {
		return false
	}
	if pile.State() == 0 {
		for i, prm := range fn.params {
			var v vm.Value
			if i < len(args) {
				v, _ = vm.Convert(args[i], prm.typ)
			}
			pile.AddVar(&interp.Variable{ID: prm.id, Name: prm.name, Type: prm.typ, Value: v})
		}
		if !pile.SetState(1) {
			return false
		}
	}

	if !fn.body.Execute(pile) {
		v, ok := pile.TakeReturn()
		if !ok {
			return false
		}
		if v == nil {
			v = vm.Void
		}
		pile.SetValue(v)
		return f.Return(pile)
	}
	if fn.result != vm.TypeVoid {
		pile.SetError(vm.ErrNoRetVal, fn.tok)
		return f.Return(pile)
	}
	pile.SetValue(vm.Void)
	return f.Return(pile)
}

func (fn *Function) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(fn)
	if pile == nil {
		return
	}
	for _, prm := range fn.params {
		pile.RestoreVar(prm.id, prm.name, prm.typ)
	}
	if pile.State() == 1 {
		fn.body.RestoreState(pile, true)
	}
}
