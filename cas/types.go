package cas

import (
	"fmt"
	"io"

	"github.com/shamaton/msgpack/v2"
)

// Blob is an opaque snapshot as produced by Program.Snapshot.
type Blob struct {
	Data []byte
}

func (b *Blob) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, b)
}

func (b *Blob) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, b)
}

// Checkpoint records where a run was when its snapshot was taken. The
// snapshot itself is stored separately so identical snapshots share storage.
type Checkpoint struct {
	RunID    string
	Tick     int
	Function string
	Snapshot Hash
}

func (c *Checkpoint) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, c)
}

func (c *Checkpoint) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, c)
}

// PutCheckpoint stores snap and a checkpoint referring to it.
func PutCheckpoint(c CAS, runID string, tick int, function string, snap []byte) (Hash, error) {
	sh, err := c.Put(&Blob{Data: snap})
	if err != nil {
		return 0, fmt.Errorf("storing snapshot: %w", err)
	}
	return c.Put(&Checkpoint{RunID: runID, Tick: tick, Function: function, Snapshot: sh})
}

// GetCheckpoint loads a checkpoint and the snapshot it refers to.
func GetCheckpoint(c CAS, h Hash) (*Checkpoint, []byte, error) {
	cp, err := Retrieve[Checkpoint](c, h)
	if err != nil {
		return nil, nil, err
	}
	blob, err := Retrieve[Blob](c, cp.Snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint %s: %w", h, err)
	}
	return cp, blob.Data, nil
}
