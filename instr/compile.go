package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// parser couples the token stream with the module being compiled. Every
// compile function leaves the stream just past what it consumed and returns
// nil with an error on the compile stack when it fails.
type parser struct {
	s   *token.Stream
	mod *Module
}

// statement compiles one instruction, including a leading label.
func (p *parser) statement(c *compiler.CStack) Instr {
	s := p.s
	tok := s.Peek()

	label := ""
	if tok.Kind == token.Ident && s.PeekAt(1).Kind == token.Colon {
		switch target := s.PeekAt(2); target.Kind {
		case token.While, token.For, token.Do, token.Repeat:
		default:
			c.SetError(vm.ErrLabel, target)
			return nil
		}
		label = tok.Text
		s.Next()
		s.Next()
		tok = s.Peek()
	}

	switch tok.Kind {
	case token.While:
		return p.while(c, label)
	case token.Do:
		return p.do(c, label)
	case token.For:
		return p.forLoop(c, label)
	case token.Repeat:
		return p.repeat(c, label)
	case token.If:
		return p.ifElse(c)
	case token.Switch:
		return p.switchCase(c)
	case token.Break, token.Continue:
		return p.breakContinue(c)
	case token.Try:
		return p.try(c)
	case token.Throw:
		return p.throw(c)
	case token.Return:
		return p.ret(c)
	case token.LBrace:
		if b := p.block(c); b != nil {
			return b
		}
		return nil
	case token.Else:
		c.SetError(vm.ErrElseWithoutIf, tok)
		return nil
	case token.Case, token.Default:
		c.SetError(vm.ErrCaseOut, tok)
		return nil
	case token.Catch, token.Finally, token.Extern, token.Public, token.TypeVoid:
		c.SetError(vm.ErrReserved, tok)
		return nil
	case token.TypeInt, token.TypeFloat, token.TypeBool, token.TypeString:
		d := p.declaration(c)
		if d == nil {
			return nil
		}
		if !s.IsOfType(token.Semicolon) {
			c.SetError(vm.ErrNoTerminator, s.Peek())
			return nil
		}
		return d
	}

	if tok.Kind == token.Ident {
		if _, reserved := vm.ErrorConstants[tok.Text]; reserved && isAssignOp(s.PeekAt(1).Kind) {
			c.SetError(vm.ErrReserved, tok)
			return nil
		}
	}
	e := p.expression(c)
	if e == nil {
		return nil
	}
	if !s.IsOfType(token.Semicolon) {
		c.SetError(vm.ErrNoTerminator, s.Peek())
		return nil
	}
	return e
}

// block compiles { statements } as a new scope.
func (p *parser) block(c *compiler.CStack) *Block {
	s := p.s
	open := s.Peek()
	if !s.IsOfType(token.LBrace) {
		c.SetError(vm.ErrOpenBlock, open)
		return nil
	}
	pile := c.TokenStack(open, true)
	b := &Block{base: newBase(c, open), scope: true}
	for !s.Is(token.RBrace) {
		if s.Is(token.EOF) {
			c.SetError(vm.ErrCloseBlock, s.Peek())
			return nil
		}
		if s.IsOfType(token.Semicolon) {
			continue
		}
		i := p.statement(pile)
		if i == nil {
			return nil
		}
		b.list = append(b.list, i)
	}
	s.Next()
	c.Return(pile)
	return b
}

// blockOrInstr compiles a loop or branch body: a block, a single statement in
// a scope of its own, or a lone ';' which yields a nil body.
func (p *parser) blockOrInstr(c *compiler.CStack) Instr {
	s := p.s
	if s.IsOfType(token.Semicolon) {
		return nil
	}
	if s.Is(token.LBrace) {
		if b := p.block(c); b != nil {
			return b
		}
		return nil
	}
	pile := c.TokenStack(s.Peek(), true)
	i := p.statement(pile)
	c.Return(pile)
	return i
}

// condition compiles ( boolean-expression ).
func (p *parser) condition(c *compiler.CStack) Expr {
	s := p.s
	if !s.IsOfType(token.LParen) {
		c.SetError(vm.ErrOpenPar, s.Peek())
		return nil
	}
	e := p.expression(c)
	if e == nil {
		return nil
	}
	if e.Type() != vm.TypeBool {
		c.SetError(vm.ErrNotBoolean, e.Token())
		return nil
	}
	if !s.IsOfType(token.RParen) {
		c.SetError(vm.ErrClosePar, s.Peek())
		return nil
	}
	return e
}
