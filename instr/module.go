package instr

import (
	"errors"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot/compiler"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// Module is a compiled source file: its functions plus the natives they were
// linked against.
type Module struct {
	src     string
	funcs   map[string]*Function
	order   []*Function
	natives map[string]*interp.Native
}

// Compile compiles src in two passes. Signatures are collected first so
// functions may call each other in any order; bodies are compiled after, all
// from one root compile stack so node identities are unique and stable.
func Compile(src string, natives []*interp.Native) (*Module, error) {
	m := &Module{
		src:     src,
		funcs:   make(map[string]*Function),
		natives: make(map[string]*interp.Native),
	}
	for _, n := range natives {
		m.natives[n.Name] = n
	}

	toks, err := token.Lex(src)
	if err != nil {
		var le *token.LexError
		if errors.As(err, &le) {
			return nil, &vm.CompileError{Code: vm.ErrLex, Start: le.Pos.Offset, End: le.Pos.Offset + 1, Line: le.Pos.Line, Col: le.Pos.Column}
		}
		return nil, err
	}

	p := &parser{s: token.NewStream(toks), mod: m}
	root := compiler.New(m)
	for !p.s.Is(token.EOF) {
		fn := p.header(root)
		if fn == nil {
			return nil, m.compileError(root)
		}
		_, native := m.natives[fn.name]
		if _, dup := m.funcs[fn.name]; dup || native {
			root.SetError(vm.ErrRedefFunc, fn.tok)
			return nil, m.compileError(root)
		}
		m.funcs[fn.name] = fn
		m.order = append(m.order, fn)
	}

	for _, fn := range m.order {
		if !p.compileBody(root, fn) {
			return nil, m.compileError(root)
		}
	}
	log.Debug().Int("functions", len(m.order)).Msg("module compiled")
	return m, nil
}

func (m *Module) compileError(c *compiler.CStack) error {
	ce := c.Err()
	if ce == nil {
		return errors.New("compile failed without an error code")
	}
	ce.Line, ce.Col = 1, 1
	for i := 0; i < ce.Start && i < len(m.src); i++ {
		if m.src[i] == '\n' {
			ce.Line++
			ce.Col = 1
		} else {
			ce.Col++
		}
	}
	log.Debug().Int("code", int(ce.Code)).Int("line", ce.Line).Int("col", ce.Col).Msg("compile failed")
	return ce
}

// Lookup resolves calls for the compile stack.
func (m *Module) Lookup(name string) (compiler.Signature, bool) {
	if fn, ok := m.funcs[name]; ok {
		return fn.Signature(), true
	}
	if n, ok := m.natives[name]; ok {
		return compiler.Signature{Name: n.Name, Params: n.Params, Variadic: n.Variadic, Result: n.Result}, true
	}
	return compiler.Signature{}, false
}

func (m *Module) Source() string {
	return m.src
}

func (m *Module) Function(name string) *Function {
	return m.funcs[name]
}

// Functions lists the script functions in source order.
func (m *Module) Functions() []*Function {
	return m.order
}

func (m *Module) Native(name string) *interp.Native {
	return m.natives[name]
}

// Dump writes the tree of every function.
func (m *Module) Dump(w io.Writer) error {
	for _, fn := range m.order {
		if err := Dump(w, fn); err != nil {
			return err
		}
	}
	return nil
}
