package compiler

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Signature describes a callable known at compile time.
type Signature struct {
	Name     string
	Params   []vm.Type
	Variadic bool
	Result   vm.Type
}

// Resolver finds the functions a script may call.
type Resolver interface {
	Lookup(name string) (Signature, bool)
}

// Decl is a compile-time variable declaration.
type Decl struct {
	ID    int
	Name  string
	Type  vm.Type
	Token token.Token
}

type shared struct {
	code   vm.ErrorCode
	start  int
	end    int
	nextID int
	levels []level
	ret    vm.Type
	funcs  Resolver
}

// CStack is the compile-time counterpart of the execution stack. Each
// construct opens a child with TokenStack, compiles into it and hands the
// result back with Return. Errors and nesting levels are shared by the chain;
// the first error recorded wins.
type CStack struct {
	sh    *shared
	prev  *CStack
	next  *CStack
	block bool
	vars  []*Decl

	typ     vm.Type
	hasType bool
}

func New(funcs Resolver) *CStack {
	return &CStack{sh: &shared{funcs: funcs}, block: true}
}

// TokenStack opens a child stack for the construct starting at tok. A block
// child is a scope of its own.
func (c *CStack) TokenStack(tok token.Token, block bool) *CStack {
	child := &CStack{sh: c.sh, prev: c, block: block}
	c.next = child
	return child
}

// Return closes child, taking over the type of the expression it compiled.
func (c *CStack) Return(child *CStack) {
	if child == nil || child == c {
		return
	}
	c.typ = child.typ
	c.hasType = child.hasType
	c.next = nil
}

func (c *CStack) IsOk() bool {
	return c.sh.code == vm.NoError
}

// SetError records code at tok unless an error is already recorded.
func (c *CStack) SetError(code vm.ErrorCode, tok token.Token) {
	c.SetErrorAt(code, tok.Start(), tok.End)
}

func (c *CStack) SetErrorAt(code vm.ErrorCode, start, end int) {
	if c.sh.code != vm.NoError || code == vm.NoError {
		return
	}
	c.sh.code = code
	c.sh.start = start
	c.sh.end = end
	log.Trace().Int("code", int(code)).Int("start", start).Msg("compile error")
}

// ResetError replaces any recorded error.
func (c *CStack) ResetError(code vm.ErrorCode, start, end int) {
	c.sh.code = vm.NoError
	c.SetErrorAt(code, start, end)
}

func (c *CStack) Error() vm.ErrorCode {
	return c.sh.code
}

// Err returns the recorded error as a CompileError, or nil.
func (c *CStack) Err() *vm.CompileError {
	if c.sh.code == vm.NoError {
		return nil
	}
	return &vm.CompileError{Code: c.sh.code, Start: c.sh.start, End: c.sh.end}
}

// SetType records the type of the expression just compiled.
func (c *CStack) SetType(t vm.Type) {
	c.typ = t
	c.hasType = true
}

// Type returns the type of the last expression, TypeVoid if there was none.
func (c *CStack) Type() vm.Type {
	if !c.hasType {
		return vm.TypeVoid
	}
	return c.typ
}

func (c *CStack) ClearType() {
	c.hasType = false
	c.typ = vm.TypeVoid
}

// NextID hands out the unique numbers used for node identity and variable
// declarations. Numbering follows compile order, so the same source always
// yields the same IDs.
func (c *CStack) NextID() int {
	c.sh.nextID++
	return c.sh.nextID
}

func (c *CStack) scope() *CStack {
	p := c
	for p.prev != nil && !p.block {
		p = p.prev
	}
	return p
}

// AddVar declares d in the innermost scope.
func (c *CStack) AddVar(d *Decl) {
	p := c.scope()
	p.vars = append(p.vars, d)
}

// CheckVarLocal reports whether name is already declared in the innermost scope.
func (c *CStack) CheckVarLocal(name string) bool {
	for _, d := range c.scope().vars {
		if d.Name == name {
			return true
		}
	}
	return false
}

// FindVar resolves name through the enclosing scopes.
func (c *CStack) FindVar(name string) *Decl {
	for p := c; p != nil; p = p.prev {
		for i := len(p.vars) - 1; i >= 0; i-- {
			if p.vars[i].Name == name {
				return p.vars[i]
			}
		}
	}
	return nil
}

// Function looks up a callable by name.
func (c *CStack) Function(name string) (Signature, bool) {
	if c.sh.funcs == nil {
		return Signature{}, false
	}
	return c.sh.funcs.Lookup(name)
}

// SetReturnType declares the result type of the function being compiled.
func (c *CStack) SetReturnType(t vm.Type) {
	c.sh.ret = t
}

func (c *CStack) ReturnType() vm.Type {
	return c.sh.ret
}
