// Package cas is a content-addressed store for program checkpoints.
package cas

import (
	"bytes"
	"fmt"
	"io"
)

type CAS interface {
	Put(item Hashable) (Hash, error)
	Has(hash Hash) bool
	getValue(hash Hash) (bool, []byte, error)
}

type Serde interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

type Hashable interface {
	Serde
}

type Hash uint64

func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Retrieve loads the item stored under hash into a new T.
func Retrieve[T any, PT interface {
	*T
	Hashable
}](c CAS, hash Hash) (*T, error) {
	has, data, err := c.getValue(hash)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("hash not found in CAS: %s", hash)
	}
	out := PT(new(T))
	if err := out.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("deserializing %T: %w", out, err)
	}
	return (*T)(out), nil
}

func encode(item Hashable) ([]byte, error) {
	var buf bytes.Buffer
	if err := item.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
