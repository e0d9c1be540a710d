package instr

import (
	"github.com/timewinder-dev/cbot/interp"
)

// Block is a statement list. State counts the statements that completed, so
// a resumed block never repeats one. A scoped block owns the variables
// declared in it; expression lists in for headers are unscoped.
type Block struct {
	base
	list  []Instr
	scope bool
}

func (b *Block) Name() string { return "Block" }

func (b *Block) Links() []Link {
	var out []Link
	for _, i := range b.list {
		out = addLink(out, "statement", i)
	}
	return out
}

// HasReturn reports whether some statement of the block always returns.
func (b *Block) HasReturn() bool {
	for _, i := range b.list {
		if i.HasReturn() {
			return true
		}
	}
	return false
}

func (b *Block) enter(f *interp.Frame) *interp.Frame {
	if b.scope {
		return f.EnterBlock(b)
	}
	return f.Enter(b)
}

func (b *Block) Execute(f *interp.Frame) bool {
	pile := b.enter(f)
	if pile.StackOver() {
		return f.Return(pile)
	}
	for i := pile.State(); i < len(b.list); i++ {
		if !b.list[i].Execute(pile) {
			return false
		}
		if !pile.IncState() {
			return false
		}
	}
	return f.Return(pile)
}

func (b *Block) RestoreState(f *interp.Frame, main bool) {
	if !main {
		return
	}
	pile := f.Restore(b)
	if pile == nil {
		return
	}
	done := pile.State()
	for i := 0; i < done && i < len(b.list); i++ {
		b.list[i].RestoreState(pile, false)
	}
	if done < len(b.list) {
		b.list[done].RestoreState(pile, true)
	}
}
