package cbot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shamaton/msgpack/v2"
	"github.com/timewinder-dev/cbot/instr"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/vm"
)

// Status is the outcome of one tick.
type Status int

const (
	Idle Status = iota
	Suspended
	Finished
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Suspended:
		return "suspended"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var (
	ErrNotStarted  = errors.New("no function started")
	ErrNotRunning  = errors.New("program is not suspended")
	ErrTickLimit   = errors.New("tick limit reached")
	ErrBadSnapshot = errors.New("snapshot does not match the program")
)

// Program is a compiled script and, once started, one running function.
// A Program is not safe for concurrent use.
type Program struct {
	mod      *instr.Module
	entry    *instr.Function
	args     []vm.Value
	stack    *interp.Stack
	status   Status
	result   vm.Value
	err      error
	maxDepth int
}

// Compile compiles src, linking calls against natives.
func Compile(src string, natives []*interp.Native) (*Program, error) {
	mod, err := instr.Compile(src, natives)
	if err != nil {
		return nil, err
	}
	return &Program{mod: mod, maxDepth: interp.DefaultMaxDepth}, nil
}

func (p *Program) Module() *instr.Module {
	return p.mod
}

// SetMaxDepth bounds frame nesting for the next Start or Restore.
func (p *Program) SetMaxDepth(n int) {
	if n <= 0 {
		n = interp.DefaultMaxDepth
	}
	p.maxDepth = n
}

// Functions lists the signatures of the script functions in source order.
func (p *Program) Functions() []string {
	var out []string
	for _, fn := range p.mod.Functions() {
		out = append(out, fn.String())
	}
	return out
}

// Start prepares a call of the named function. Nothing runs until Run.
func (p *Program) Start(name string, args ...vm.Value) error {
	fn := p.mod.Function(name)
	if fn == nil {
		return fmt.Errorf("start %s: %w", name, &vm.RuntimeError{Code: vm.ErrNoRun, Function: name})
	}
	params := fn.Signature().Params
	if len(args) != len(params) {
		return fmt.Errorf("start %s: want %d arguments, got %d", name, len(params), len(args))
	}
	conv := make([]vm.Value, len(args))
	for i, a := range args {
		v, ok := vm.Convert(a, params[i])
		if !ok {
			return fmt.Errorf("start %s: argument %d: cannot use %s as %s", name, i+1, a.Type(), params[i])
		}
		conv[i] = v
	}

	p.entry = fn
	p.args = conv
	p.stack = interp.NewStack()
	p.stack.SetMaxDepth(p.maxDepth)
	p.status = Suspended
	p.result = nil
	p.err = nil
	log.Debug().Str("function", name).Int("args", len(args)).Msg("program started")
	return nil
}

// Run executes one tick with the given step budget. A budget of zero or less
// runs in single-step mode.
func (p *Program) Run(budget int) (Status, error) {
	if p.stack == nil {
		return Idle, ErrNotStarted
	}
	if p.status != Suspended {
		return p.status, p.err
	}
	p.stack.BeginTick(budget)
	root := p.stack.Root()
	if p.entry.Call(root, p.args) {
		p.status = Finished
		p.result = root.Value()
		log.Debug().Int("tick", p.stack.Tick()).Str("result", p.result.String()).Msg("program finished")
		return p.status, nil
	}
	if root.IsOk() {
		return Suspended, nil
	}

	code := root.Error()
	start, end := p.stack.ErrorPos()
	name := p.entry.FuncName()
	if fn, _ := p.stack.Position(); fn != nil {
		if f, ok := fn.(*instr.Function); ok {
			name = f.FuncName()
		}
	}
	p.status = Failed
	p.err = &vm.RuntimeError{Code: code, Start: start, End: end, Function: name}
	log.Debug().Int("tick", p.stack.Tick()).Int("code", int(code)).Str("function", name).Msg("program failed")
	return p.status, p.err
}

// RunToEnd runs ticks until the program finishes or fails. maxTicks of zero
// means no limit.
func (p *Program) RunToEnd(budget, maxTicks int) (vm.Value, error) {
	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		st, err := p.Run(budget)
		switch st {
		case Finished:
			return p.result, nil
		case Failed, Idle:
			return nil, err
		}
	}
	return nil, ErrTickLimit
}

func (p *Program) Status() Status {
	return p.status
}

// Result is the value returned by the started function once it finished.
func (p *Program) Result() vm.Value {
	return p.result
}

// Err is the runtime error the program failed with.
func (p *Program) Err() error {
	return p.err
}

// Ticks is the number of ticks run so far.
func (p *Program) Ticks() int {
	if p.stack == nil {
		return 0
	}
	return p.stack.Tick()
}

// Stop cancels the running function. Pending natives are cancelled now; the
// next Run fails with ErrCancelled.
func (p *Program) Stop() {
	if p.stack == nil || p.status != Suspended {
		return
	}
	p.stack.Cancel()
}

// Position is where a suspended program will resume.
type Position struct {
	Function string
	Node     string
	Start    int
	End      int
	Line     int
	Col      int
}

func (p *Program) Position() (Position, bool) {
	if p.stack == nil || p.status != Suspended {
		return Position{}, false
	}
	fn, at := p.stack.Position()
	if at == nil {
		return Position{}, false
	}
	var pos Position
	if f, ok := fn.(*instr.Function); ok {
		pos.Function = f.FuncName()
	}
	if d, ok := at.(instr.Debug); ok {
		pos.Node = d.Name()
	}
	tok := at.Token()
	pos.Start, pos.End = tok.Start(), tok.End
	pos.Line, pos.Col = tok.Pos.Line, tok.Pos.Column
	return pos, true
}

type snapshotImage struct {
	Function string
	Args     []vm.Encoded
	Stack    []byte
}

// Snapshot serializes a suspended program.
func (p *Program) Snapshot() ([]byte, error) {
	if p.stack == nil || p.status != Suspended {
		return nil, ErrNotRunning
	}
	st, err := p.stack.Snapshot()
	if err != nil {
		return nil, err
	}
	img := snapshotImage{Function: p.entry.FuncName(), Stack: st}
	for _, a := range p.args {
		img.Args = append(img.Args, vm.Encode(a))
	}
	var buf bytes.Buffer
	if err := msgpack.MarshalWrite(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the running function with one saved by Snapshot from a
// program compiled from the same source.
func (p *Program) Restore(data []byte) error {
	var img snapshotImage
	if err := msgpack.UnmarshalRead(bytes.NewReader(data), &img); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	fn := p.mod.Function(img.Function)
	if fn == nil || len(img.Args) != len(fn.Signature().Params) {
		return fmt.Errorf("%w: function %q", ErrBadSnapshot, img.Function)
	}
	st, err := interp.LoadSnapshot(img.Stack)
	if err != nil {
		return err
	}
	st.SetMaxDepth(p.maxDepth)
	fn.RestoreState(st.Root(), true)

	p.entry = fn
	p.args = p.args[:0]
	for _, a := range img.Args {
		p.args = append(p.args, a.Decode())
	}
	p.stack = st
	p.status = Suspended
	p.result = nil
	p.err = nil
	log.Debug().Str("function", fn.FuncName()).Int("tick", st.Tick()).Msg("program restored")
	return nil
}
