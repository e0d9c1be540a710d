package interp

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/shamaton/msgpack/v2"
	"github.com/timewinder-dev/cbot/vm"
)

// stackImage is the serialized form of a suspended stack. Nodes are stored by
// ID; RestoreState binds them back.
type stackImage struct {
	Tick     int
	MaxDepth int
	Root     *frameImage
}

type frameImage struct {
	Owner int
	State int
	Step  int
	Depth int
	Block bool
	Func  bool
	Value vm.Encoded
	Vars  []varImage
	Fault faultImage
	Call  *callImage
	Next  *frameImage
	Next2 *frameImage
}

type varImage struct {
	ID    int
	Name  string
	Type  int
	Value vm.Encoded
}

type faultImage struct {
	Code   int
	Signal int
	Label  string
	Start  int
	End    int
	Ret    vm.Encoded
}

type callImage struct {
	Name  string
	Args  []vm.Encoded
	State vm.Encoded
}

var ErrNotSuspended = errors.New("stack is unwinding and cannot be saved")

// Serialize writes the frame tree. Only a stack suspended between ticks can
// be saved.
func (s *Stack) Serialize(w io.Writer) error {
	if !s.IsOk() {
		return ErrNotSuspended
	}
	img := stackImage{
		Tick:     s.tick,
		MaxDepth: s.maxDepth,
		Root:     encodeFrame(s.root),
	}
	return msgpack.MarshalWrite(w, img)
}

// Snapshot is Serialize into a byte slice.
func (s *Stack) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize rebuilds a stack from Serialize output. Frames come back
// unbound: the program must run RestoreState over it before reporting
// positions, and pending native calls stay unbound until then.
func Deserialize(r io.Reader) (*Stack, error) {
	var img stackImage
	if err := msgpack.UnmarshalRead(r, &img); err != nil {
		return nil, fmt.Errorf("decoding stack: %w", err)
	}
	if img.Root == nil {
		return nil, errors.New("decoding stack: missing root frame")
	}
	s := &Stack{tick: img.Tick, maxDepth: img.MaxDepth}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	s.root = decodeFrame(s, nil, img.Root)
	log.Debug().Int("tick", s.tick).Int("depth", s.Depth()).Msg("stack loaded")
	return s, nil
}

func LoadSnapshot(data []byte) (*Stack, error) {
	return Deserialize(bytes.NewReader(data))
}

func encodeFrame(f *Frame) *frameImage {
	if f == nil {
		return nil
	}
	img := &frameImage{
		Owner: f.owner,
		State: f.state,
		Step:  f.step,
		Depth: f.depth,
		Block: f.block,
		Func:  f.fn,
		Value: vm.Encode(f.value),
		Fault: faultImage{
			Code:   int(f.Fault.Code),
			Signal: int(f.Fault.Signal),
			Label:  f.Fault.Label,
			Start:  f.Fault.Start,
			End:    f.Fault.End,
			Ret:    vm.Encode(f.Fault.Ret),
		},
		Next:  encodeFrame(f.next),
		Next2: encodeFrame(f.next2),
	}
	for _, v := range f.vars {
		img.Vars = append(img.Vars, varImage{ID: v.ID, Name: v.Name, Type: int(v.Type), Value: vm.Encode(v.Value)})
	}
	if f.call != nil {
		ci := &callImage{Name: f.call.name, State: vm.Encode(f.call.State)}
		for _, a := range f.call.Args {
			ci.Args = append(ci.Args, vm.Encode(a))
		}
		img.Call = ci
	}
	return img
}

func decodeFrame(s *Stack, prev *Frame, img *frameImage) *Frame {
	if img == nil {
		return nil
	}
	f := &Frame{
		stack: s,
		prev:  prev,
		owner: img.Owner,
		state: img.State,
		step:  img.Step,
		depth: img.Depth,
		block: img.Block,
		fn:    img.Func,
		value: img.Value.Decode(),
		Fault: Fault{
			Code:   vm.ErrorCode(img.Fault.Code),
			Signal: Signal(img.Fault.Signal),
			Label:  img.Fault.Label,
			Start:  img.Fault.Start,
			End:    img.Fault.End,
			Ret:    img.Fault.Ret.Decode(),
		},
	}
	for _, v := range img.Vars {
		f.vars = append(f.vars, &Variable{ID: v.ID, Name: v.Name, Type: vm.Type(v.Type), Value: v.Value.Decode()})
	}
	if img.Call != nil {
		c := &Call{name: img.Call.Name, State: img.Call.State.Decode(), stack: s}
		for _, a := range img.Call.Args {
			c.Args = append(c.Args, a.Decode())
		}
		f.call = c
	}
	f.next = decodeFrame(s, f, img.Next)
	f.next2 = decodeFrame(s, f, img.Next2)
	return f
}

// Restore binds n to the frame it owned when the stack was saved and returns
// it, or nil when n holds no frame. It never creates frames.
func (f *Frame) Restore(n Node) *Frame {
	c := f.next
	if c == nil || c.owner != n.ID() {
		return nil
	}
	c.node = n
	return c
}

// RestoreAnon returns the anonymous child frame, or nil.
func (f *Frame) RestoreAnon() *Frame {
	c := f.next
	if c == nil || c.owner != 0 {
		return nil
	}
	return c
}

// RestoreSecondary returns the secondary frame, or nil.
func (f *Frame) RestoreSecondary() *Frame {
	return f.next2
}

// RestoreVar makes sure a declaration that completed before the save is
// bound in f's scope. Missing bindings are recreated uninitialized.
func (f *Frame) RestoreVar(id int, name string, t vm.Type) *Variable {
	p := f.scope()
	for _, v := range p.vars {
		if v.ID == id {
			v.Name = name
			return v
		}
	}
	v := &Variable{ID: id, Name: name, Type: t}
	p.vars = append(p.vars, v)
	return v
}
