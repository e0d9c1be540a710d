package instr

import (
	"strconv"
	"strings"

	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Binary operator levels, loosest first.
var levels = [][]token.Kind{
	{token.OrOr},
	{token.AndAnd},
	{token.Pipe},
	{token.Caret},
	{token.Amp},
	{token.Eq, token.Ne},
	{token.Lt, token.Le, token.Gt, token.Ge},
	{token.Shl, token.Shr},
	{token.Plus, token.Minus},
	{token.Star, token.Slash, token.Percent},
	{token.Pow},
}

// expression compiles a full expression, assignments included, and records
// its type on c.
func (p *parser) expression(c *compiler.CStack) Expr {
	s := p.s
	var e Expr
	if s.Peek().Kind == token.Ident && isAssignOp(s.PeekAt(1).Kind) {
		e = p.assign(c)
	} else {
		e = p.conditional(c)
		if e != nil && isAssignOp(s.Peek().Kind) {
			c.SetError(vm.ErrBadLeft, s.Peek())
			return nil
		}
	}
	if e == nil {
		return nil
	}
	c.SetType(e.Type())
	return e
}

func (p *parser) assign(c *compiler.CStack) Expr {
	s := p.s
	name := s.Next()
	op := s.Next()
	if _, reserved := vm.ErrorConstants[name.Text]; reserved {
		c.SetError(vm.ErrBadLeft, name)
		return nil
	}
	d := c.FindVar(name.Text)
	if d == nil {
		c.SetError(vm.ErrUndefVar, name)
		return nil
	}

	pile := c.TokenStack(op, false)
	rhs := p.expression(pile)
	if rhs == nil {
		return nil
	}
	if bop, compound := compoundOps[op.Kind]; compound {
		t, ok := binaryType(bop, d.Type, rhs.Type())
		if !ok || !t.AssignableTo(d.Type) {
			pile.SetError(vm.ErrBadType2, op)
			return nil
		}
	} else if !rhs.Type().AssignableTo(d.Type) {
		pile.SetError(vm.ErrBadType1, rhs.Token())
		return nil
	}
	c.Return(pile)
	return &Assign{base: newBase(c, op), id: d.ID, name: d.Name, op: op.Kind, typ: d.Type, rhs: rhs}
}

func (p *parser) conditional(c *compiler.CStack) Expr {
	s := p.s
	cond := p.binary(c, 0)
	if cond == nil || !s.Is(token.Question) {
		return cond
	}
	q := s.Next()
	if cond.Type() != vm.TypeBool {
		c.SetError(vm.ErrNotBoolean, cond.Token())
		return nil
	}
	then := p.expression(c)
	if then == nil {
		return nil
	}
	if !s.IsOfType(token.Colon) {
		c.SetError(vm.ErrNoDoubleDots, s.Peek())
		return nil
	}
	els := p.conditional(c)
	if els == nil {
		return nil
	}

	typ := then.Type()
	switch {
	case then.Type() == els.Type():
	case then.Type().IsNumeric() && els.Type().IsNumeric():
		typ = vm.TypeFloat
	default:
		c.SetError(vm.ErrBadType2, q)
		return nil
	}
	return &Cond{base: newBase(c, q), cond: cond, then: then, els: els, typ: typ}
}

func (p *parser) binary(c *compiler.CStack, level int) Expr {
	if level == len(levels) {
		return p.unary(c)
	}
	s := p.s
	left := p.binary(c, level+1)
	for left != nil && s.Is(levels[level]...) {
		op := s.Next()
		right := p.binary(c, level+1)
		if right == nil {
			return nil
		}
		typ, ok := binaryType(op.Kind, left.Type(), right.Type())
		if !ok {
			c.SetError(vm.ErrBadType2, op)
			return nil
		}
		left = &Binary{base: newBase(c, op), op: op.Kind, left: left, right: right, typ: typ}
	}
	return left
}

func (p *parser) unary(c *compiler.CStack) Expr {
	s := p.s
	tok := s.Peek()
	switch tok.Kind {
	case token.Minus, token.Not, token.Tilde:
		s.Next()
		x := p.unary(c)
		if x == nil {
			return nil
		}
		typ, ok := unaryType(tok.Kind, x.Type())
		if !ok {
			c.SetError(vm.ErrBadType1, tok)
			return nil
		}
		return &Unary{base: newBase(c, tok), op: tok.Kind, operand: x, typ: typ}
	case token.Inc, token.Dec:
		s.Next()
		name := s.Peek()
		if name.Kind != token.Ident {
			c.SetError(vm.ErrBadLeft, name)
			return nil
		}
		s.Next()
		return p.incDec(c, tok, name, true)
	}
	return p.primary(c)
}

func (p *parser) incDec(c *compiler.CStack, op, name token.Token, prefix bool) Expr {
	d := c.FindVar(name.Text)
	if d == nil {
		c.SetError(vm.ErrUndefVar, name)
		return nil
	}
	if !d.Type.IsNumeric() {
		c.SetError(vm.ErrBadType1, op)
		return nil
	}
	return &IncDec{base: newBase(c, op), id: d.ID, name: d.Name, typ: d.Type, prefix: prefix}
}

func (p *parser) primary(c *compiler.CStack) Expr {
	s := p.s
	tok := s.Peek()
	switch tok.Kind {
	case token.Int:
		s.Next()
		v, err := parseInt(tok.Text)
		if err != nil {
			c.SetError(vm.ErrBadNum, tok)
			return nil
		}
		return &Lit{base: newBase(c, tok), val: vm.IntValue(v)}
	case token.Float:
		s.Next()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			c.SetError(vm.ErrBadNum, tok)
			return nil
		}
		return &Lit{base: newBase(c, tok), val: vm.FloatValue(v)}
	case token.String:
		s.Next()
		return &Lit{base: newBase(c, tok), val: vm.StrValue(tok.Text)}
	case token.True, token.False:
		s.Next()
		return &Lit{base: newBase(c, tok), val: vm.BoolValue(tok.Kind == token.True)}
	case token.LParen:
		s.Next()
		e := p.expression(c)
		if e == nil {
			return nil
		}
		if !s.IsOfType(token.RParen) {
			c.SetError(vm.ErrClosePar, s.Peek())
			return nil
		}
		return e
	case token.Ident:
		if s.PeekAt(1).Kind == token.LParen {
			return p.call(c)
		}
		s.Next()
		if code, ok := vm.ErrorConstants[tok.Text]; ok {
			return &Lit{base: newBase(c, tok), val: vm.IntValue(code)}
		}
		d := c.FindVar(tok.Text)
		if d == nil {
			c.SetError(vm.ErrUndefVar, tok)
			return nil
		}
		if s.Is(token.Inc, token.Dec) {
			return p.incDec(c, s.Next(), tok, false)
		}
		return &VarRef{base: newBase(c, tok), id: d.ID, name: d.Name, typ: d.Type}
	}
	c.SetError(vm.ErrNoExpression, tok)
	return nil
}

func parseInt(text string) (int64, error) {
	base := 10
	digits := strings.ToLower(text)
	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	return int64(v), err
}
