// Package runner drives scripts described by TOML run specs: it runs ticks,
// stores checkpoints in a CAS and checks the outcome against expectations.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/cbot"
	"github.com/timewinder-dev/cbot/cas"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/loader"
	"github.com/timewinder-dev/cbot/stdlib"
	"github.com/timewinder-dev/cbot/vm"
)

// An Executor is the context of one run of a spec.
type Executor struct {
	RunID       uuid.UUID
	Spec        *Spec
	Program     *cbot.Program
	CAS         cas.CAS
	Reporter    Reporter
	Checkpoints []cas.Hash

	source  string
	natives []*interp.Native
	output  bytes.Buffer
}

// Result is the outcome of a run. Err is the script's own runtime error, if
// it failed.
type Result struct {
	RunID       uuid.UUID
	Status      cbot.Status
	Value       vm.Value
	Err         error
	Ticks       int
	Checkpoints int
	Output      string
}

// BuildExecutor loads and compiles the script and starts its entry function.
// Printed output goes to out as well as to the result.
func (s *Spec) BuildExecutor(store cas.CAS, out io.Writer) (*Executor, error) {
	src, err := loader.Load(s.Script.File)
	if err != nil {
		return nil, err
	}
	e := &Executor{
		RunID:    uuid.New(),
		Spec:     s,
		CAS:      store,
		Reporter: &SilentReporter{},
		source:   src,
	}
	w := io.Writer(&e.output)
	if out != nil {
		w = io.MultiWriter(out, &e.output)
	}
	e.natives = stdlib.Natives(w)

	if e.Program, err = e.compile(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", s.Script.File, err)
	}
	args := make([]vm.Value, len(s.Script.Args))
	for i, a := range s.Script.Args {
		if args[i], err = valueOf(a); err != nil {
			return nil, err
		}
	}
	if err := e.Program.Start(s.Script.Entry, args...); err != nil {
		return nil, err
	}
	log.Debug().Str("run", e.RunID.String()).Str("file", s.Script.File).Str("entry", s.Script.Entry).Msg("executor built")
	return e, nil
}

func (e *Executor) compile() (*cbot.Program, error) {
	p, err := cbot.Compile(e.source, e.natives)
	if err != nil {
		return nil, err
	}
	p.SetMaxDepth(e.Spec.Engine.MaxDepth)
	return p, nil
}

// Run drives the program until it finishes, fails or hits the tick limit.
func (e *Executor) Run() (*Result, error) {
	eng := e.Spec.Engine
	for n := 0; eng.MaxTicks <= 0 || n < eng.MaxTicks; n++ {
		st, err := e.Program.Run(eng.Budget)
		switch st {
		case cbot.Finished, cbot.Failed:
			return e.result(st, err), nil
		case cbot.Idle:
			return nil, err
		}
		if every := e.Spec.Checkpoint.Every; every > 0 && e.Program.Ticks()%every == 0 {
			if err := e.checkpoint(); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("run %s: %w after %d ticks", e.RunID, cbot.ErrTickLimit, eng.MaxTicks)
}

func (e *Executor) checkpoint() error {
	snap, err := e.Program.Snapshot()
	if err != nil {
		return err
	}
	tick := e.Program.Ticks()
	h, err := cas.PutCheckpoint(e.CAS, e.RunID.String(), tick, e.Spec.Script.Entry, snap)
	if err != nil {
		return err
	}
	e.Checkpoints = append(e.Checkpoints, h)
	e.Reporter.Printf("%s tick %d %s\n", color.Cyan.Sprint("checkpoint"), tick, color.Gray.Sprint(h))
	log.Debug().Str("run", e.RunID.String()).Int("tick", tick).Str("hash", h.String()).Int("bytes", len(snap)).Msg("checkpoint stored")

	if !e.Spec.Checkpoint.Resume {
		return nil
	}
	return e.Resume(h)
}

// Resume replaces the running program with one restored from a checkpoint.
func (e *Executor) Resume(h cas.Hash) error {
	cp, snap, err := cas.GetCheckpoint(e.CAS, h)
	if err != nil {
		return err
	}
	p, err := e.compile()
	if err != nil {
		return err
	}
	if err := p.Restore(snap); err != nil {
		return fmt.Errorf("resuming from %s: %w", h, err)
	}
	e.Program = p
	log.Debug().Str("run", e.RunID.String()).Int("tick", cp.Tick).Msg("resumed from checkpoint")
	return nil
}

func (e *Executor) result(st cbot.Status, err error) *Result {
	return &Result{
		RunID:       e.RunID,
		Status:      st,
		Value:       e.Program.Result(),
		Err:         err,
		Ticks:       e.Program.Ticks(),
		Checkpoints: len(e.Checkpoints),
		Output:      e.output.String(),
	}
}

// Verify checks a result against the spec's expectations.
func (s *Spec) Verify(r *Result) error {
	ex := s.Expect
	if ex.Error != nil {
		want, err := errorCode(ex.Error)
		if err != nil {
			return err
		}
		var re *vm.RuntimeError
		if !errors.As(r.Err, &re) {
			return fmt.Errorf("expected error %s, run %s", want, r.Status)
		}
		if re.Code != want {
			return fmt.Errorf("expected error %s, got %s", want, re.Code)
		}
	} else if r.Err != nil {
		return fmt.Errorf("unexpected error: %w", r.Err)
	}
	if ex.Value != nil {
		want, err := valueOf(ex.Value)
		if err != nil {
			return err
		}
		if r.Value == nil || !vm.Equal(want, r.Value) {
			return fmt.Errorf("expected value %s, got %v", want, r.Value)
		}
	}
	if ex.Output != nil && *ex.Output != r.Output {
		return fmt.Errorf("expected output %q, got %q", *ex.Output, r.Output)
	}
	return nil
}
