// Package instr holds the instruction tree: every statement and expression
// node, how it compiles, and how it executes on a resumable frame stack.
//
// Each node obtains exactly one frame per activation (Frame.Enter), keeps its
// resumption point in that frame's state and returns false from Execute when
// it must be called again on a later tick. Finishing a node always goes
// through the parent's Return, which releases the node's frame.
package instr

import (
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Debug is the introspection surface used by tooling.
type Debug interface {
	Name() string
	Links() []Link
}

// Link names the role a child plays in its parent.
type Link struct {
	Role string
	Node Debug
}

// Instr is a node of the instruction tree. The set of implementations is
// closed to this package.
type Instr interface {
	interp.Node
	Debug
	Execute(f *interp.Frame) bool
	// RestoreState re-attaches the node to a saved frame tree without side
	// effects. main is false for nodes that already completed, which only
	// re-declare their variables.
	RestoreState(f *interp.Frame, main bool)
	HasReturn() bool
	instr()
}

// Expr is an instruction that leaves a value in its parent's frame.
type Expr interface {
	Instr
	Type() vm.Type
	// Const returns the value of a constant expression.
	Const() (vm.Value, bool)
}

type base struct {
	id  int
	tok token.Token
}

func newBase(c *compiler.CStack, tok token.Token) base {
	return base{id: c.NextID(), tok: tok}
}

func (b *base) ID() int            { return b.id }
func (b *base) Token() token.Token { return b.tok }
func (b *base) HasReturn() bool    { return false }
func (b *base) Links() []Link      { return nil }
func (b *base) instr()             {}

// addLink appends n under role unless it is absent. Optional children are
// always stored as untyped nil.
func addLink(out []Link, role string, n Debug) []Link {
	if n == nil {
		return out
	}
	return append(out, Link{Role: role, Node: n})
}

func typeOf(k token.Kind) (vm.Type, bool) {
	switch k {
	case token.TypeInt:
		return vm.TypeInt, true
	case token.TypeFloat:
		return vm.TypeFloat, true
	case token.TypeBool:
		return vm.TypeBool, true
	case token.TypeString:
		return vm.TypeString, true
	case token.TypeVoid:
		return vm.TypeVoid, true
	}
	return vm.TypeVoid, false
}
