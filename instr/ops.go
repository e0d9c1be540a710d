package instr

import (
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Lit is a constant. It leaves its value in the parent frame without taking
// a frame of its own.
type Lit struct {
	base
	val vm.Value
}

func (n *Lit) Name() string                  { return "Lit " + n.val.String() }
func (n *Lit) Type() vm.Type                 { return n.val.Type() }
func (n *Lit) Const() (vm.Value, bool)       { return n.val, true }
func (n *Lit) RestoreState(*interp.Frame, bool) {}

func (n *Lit) Execute(f *interp.Frame) bool {
	f.SetValue(n.val)
	return true
}

// VarRef reads a variable. Like Lit it works directly on the parent frame.
type VarRef struct {
	base
	id   int
	name string
	typ  vm.Type
}

func (n *VarRef) Name() string                  { return "Var " + n.name }
func (n *VarRef) Type() vm.Type                 { return n.typ }
func (n *VarRef) Const() (vm.Value, bool)       { return nil, false }
func (n *VarRef) RestoreState(*interp.Frame, bool) {}

func (n *VarRef) Execute(f *interp.Frame) bool {
	v := f.FindVar(n.id)
	if v == nil || v.Value == nil {
		f.SetError(vm.ErrNotInit, n.tok)
		return false
	}
	f.SetValue(v.Value)
	return true
}

var compoundOps = map[token.Kind]token.Kind{
	token.AddAssign: token.Plus,
	token.SubAssign: token.Minus,
	token.MulAssign: token.Star,
	token.DivAssign: token.Slash,
	token.ModAssign: token.Percent,
}

func isAssignOp(k token.Kind) bool {
	_, compound := compoundOps[k]
	return k == token.Assign || compound
}

// Assign stores into a variable, plain or compound. State 0 evaluates the
// right hand side; the store happens once, in state 1.
type Assign struct {
	base
	id   int
	name string
	op   token.Kind
	typ  vm.Type
	rhs  Expr
}

func (n *Assign) Name() string            { return "Assign " + n.name + " " + n.op.String() }
func (n *Assign) Type() vm.Type           { return n.typ }
func (n *Assign) Const() (vm.Value, bool) { return nil, false }
func (n *Assign) Links() []Link           { return addLink(nil, "value", n.rhs) }

func (n *Assign) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	if pile.State() == 0 {
		if !n.rhs.Execute(pile) {
			return false
		}
		if !pile.SetState(1) {
			return false
		}
	}

	v := pile.FindVar(n.id)
	val := pile.Value()
	if op, ok := compoundOps[n.op]; ok {
		if v.Value == nil {
			pile.SetError(vm.ErrNotInit, n.tok)
			return f.Return(pile)
		}
		r, code := binaryOp(op, v.Value, val)
		if code != vm.NoError {
			pile.SetError(code, n.tok)
			return f.Return(pile)
		}
		val = r
	}
	val, _ = vm.Convert(val, v.Type)
	v.Value = val
	pile.SetValue(val)
	return f.Return(pile)
}

func (n *Assign) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	if pile := f.Restore(n); pile != nil && pile.State() == 0 {
		n.rhs.RestoreState(pile, true)
	}
}

// IncDec is ++ or -- in prefix or postfix position.
type IncDec struct {
	base
	id     int
	name   string
	typ    vm.Type
	prefix bool
}

func (n *IncDec) Name() string {
	if n.prefix {
		return n.tok.Text + n.name
	}
	return n.name + n.tok.Text
}

func (n *IncDec) Type() vm.Type           { return n.typ }
func (n *IncDec) Const() (vm.Value, bool) { return nil, false }

func (n *IncDec) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	v := pile.FindVar(n.id)
	if v.Value == nil {
		pile.SetError(vm.ErrNotInit, n.tok)
		return f.Return(pile)
	}
	op := token.Plus
	if n.tok.Kind == token.Dec {
		op = token.Minus
	}
	old := v.Value
	next, _ := binaryOp(op, old, vm.IntValue(1))
	v.Value, _ = vm.Convert(next, v.Type)
	if n.prefix {
		pile.SetValue(v.Value)
	} else {
		pile.SetValue(old)
	}
	return f.Return(pile)
}

func (n *IncDec) RestoreState(f *interp.Frame, main bool) {
	if main {
		f.Restore(n)
	}
}

type Unary struct {
	base
	op      token.Kind
	operand Expr
	typ     vm.Type
}

func (n *Unary) Name() string  { return "Unary " + n.op.String() }
func (n *Unary) Type() vm.Type { return n.typ }
func (n *Unary) Links() []Link { return addLink(nil, "operand", n.operand) }

func (n *Unary) Const() (vm.Value, bool) {
	v, ok := n.operand.Const()
	if !ok {
		return nil, false
	}
	return unaryOp(n.op, v), true
}

func (n *Unary) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	if !n.operand.Execute(pile) {
		return false
	}
	pile.SetValue(unaryOp(n.op, pile.Value()))
	return f.Return(pile)
}

func (n *Unary) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	if pile := f.Restore(n); pile != nil {
		n.operand.RestoreState(pile, true)
	}
}

// Binary evaluates left into its own frame and right into an anonymous frame
// above it. && and || skip the right operand when the left decides.
type Binary struct {
	base
	op    token.Kind
	left  Expr
	right Expr
	typ   vm.Type
}

func (n *Binary) Name() string  { return "Binary " + n.op.String() }
func (n *Binary) Type() vm.Type { return n.typ }

func (n *Binary) Links() []Link {
	return addLink(addLink(nil, "left", n.left), "right", n.right)
}

func (n *Binary) Const() (vm.Value, bool) {
	a, ok := n.left.Const()
	if !ok {
		return nil, false
	}
	b, ok := n.right.Const()
	if !ok {
		return nil, false
	}
	v, code := binaryOp(n.op, a, b)
	if code != vm.NoError {
		return nil, false
	}
	return v, true
}

func (n *Binary) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	if pile.State() == 0 {
		if !n.left.Execute(pile) {
			return false
		}
		switch left := pile.Value().AsBool(); {
		case n.op == token.AndAnd && !left:
			pile.SetValue(vm.BoolFalse)
			return f.Return(pile)
		case n.op == token.OrOr && left:
			pile.SetValue(vm.BoolTrue)
			return f.Return(pile)
		}
		if !pile.SetState(1) {
			return false
		}
	}

	right := pile.EnterAnon()
	if !n.right.Execute(right) {
		return false
	}
	v, code := binaryOp(n.op, pile.Value(), right.Value())
	if code != vm.NoError {
		pile.SetError(code, n.tok)
		return f.Return(pile)
	}
	pile.SetValue(v)
	return f.Return(pile)
}

func (n *Binary) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	if pile.State() == 0 {
		n.left.RestoreState(pile, true)
	} else if right := pile.RestoreAnon(); right != nil {
		n.right.RestoreState(right, true)
	}
}

const (
	condTest = iota
	condThen
	condElse
)

// Cond is the conditional operator a ? b : c.
type Cond struct {
	base
	cond Expr
	then Expr
	els  Expr
	typ  vm.Type
}

func (n *Cond) Name() string  { return "Cond" }
func (n *Cond) Type() vm.Type { return n.typ }

func (n *Cond) Links() []Link {
	out := addLink(nil, "condition", n.cond)
	out = addLink(out, "then", n.then)
	return addLink(out, "else", n.els)
}

func (n *Cond) Const() (vm.Value, bool) {
	c, ok := n.cond.Const()
	if !ok {
		return nil, false
	}
	branch := n.els
	if c.AsBool() {
		branch = n.then
	}
	v, ok := branch.Const()
	if !ok {
		return nil, false
	}
	return vm.Convert(v, n.typ)
}

func (n *Cond) Execute(f *interp.Frame) bool {
	pile := f.Enter(n)
	if pile.IfStep() {
		return false
	}
	if pile.State() == condTest {
		if !n.cond.Execute(pile) {
			return false
		}
		next := condElse
		if pile.Value().AsBool() {
			next = condThen
		}
		if !pile.SetState(next) {
			return false
		}
	}
	branch := n.els
	if pile.State() == condThen {
		branch = n.then
	}
	if !branch.Execute(pile) {
		return false
	}
	v, _ := vm.Convert(pile.Value(), n.typ)
	pile.SetValue(v)
	return f.Return(pile)
}

func (n *Cond) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(n)
	if pile == nil {
		return
	}
	switch pile.State() {
	case condTest:
		n.cond.RestoreState(pile, true)
	case condThen:
		n.then.RestoreState(pile, true)
	case condElse:
		n.els.RestoreState(pile, true)
	}
}
