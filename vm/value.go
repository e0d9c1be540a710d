package vm

import (
	"fmt"
	"math"
	"strconv"
)

type Type int

const (
	TypeVoid Type = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// AssignableTo reports whether a value of type t can be stored in a variable of type dst.
func (t Type) AssignableTo(dst Type) bool {
	if t == dst {
		return true
	}
	if dst == TypeString {
		return t != TypeVoid
	}
	return t.IsNumeric() && dst.IsNumeric()
}

type Value interface {
	isValue()
	Type() Type
	AsBool() bool
	String() string
}

type IntValue int64

func (IntValue) isValue()         {}
func (IntValue) Type() Type       { return TypeInt }
func (i IntValue) AsBool() bool   { return i != 0 }
func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }

type FloatValue float64

func (FloatValue) isValue()         {}
func (FloatValue) Type() Type       { return TypeFloat }
func (f FloatValue) AsBool() bool   { return f != 0 }
func (f FloatValue) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

type BoolValue bool

var (
	BoolTrue  = BoolValue(true)
	BoolFalse = BoolValue(false)
)

func (BoolValue) isValue()       {}
func (BoolValue) Type() Type     { return TypeBool }
func (b BoolValue) AsBool() bool { return bool(b) }
func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}

type StrValue string

func (StrValue) isValue()         {}
func (StrValue) Type() Type       { return TypeString }
func (s StrValue) AsBool() bool   { return s != "" }
func (s StrValue) String() string { return string(s) }

type VoidValue struct{}

var Void = VoidValue{}

func (VoidValue) isValue()       {}
func (VoidValue) Type() Type     { return TypeVoid }
func (VoidValue) AsBool() bool   { return false }
func (VoidValue) String() string { return "void" }

// Zero is the value a freshly initialized variable of type t holds.
func Zero(t Type) Value {
	switch t {
	case TypeInt:
		return IntValue(0)
	case TypeFloat:
		return FloatValue(0)
	case TypeBool:
		return BoolFalse
	case TypeString:
		return StrValue("")
	}
	return Void
}

// Convert coerces v to type t for assignment. Int and float convert into each
// other and anything but void converts to its string form.
func Convert(v Value, t Type) (Value, bool) {
	if v.Type() == t {
		return v, true
	}
	switch t {
	case TypeString:
		if v.Type() != TypeVoid {
			return StrValue(v.String()), true
		}
	case TypeInt:
		if f, ok := v.(FloatValue); ok {
			return IntValue(int64(f)), true
		}
	case TypeFloat:
		if i, ok := v.(IntValue); ok {
			return FloatValue(float64(i)), true
		}
	}
	return nil, false
}

func AsInt(v Value) int64 {
	switch x := v.(type) {
	case IntValue:
		return int64(x)
	case FloatValue:
		return int64(x)
	case BoolValue:
		if x {
			return 1
		}
	}
	return 0
}

func AsFloat(v Value) float64 {
	switch x := v.(type) {
	case IntValue:
		return float64(x)
	case FloatValue:
		return float64(x)
	}
	return math.NaN()
}

// Equal compares values of compatible types; int and float compare numerically.
func Equal(a, b Value) bool {
	if a.Type().IsNumeric() && b.Type().IsNumeric() {
		if a.Type() == TypeInt && b.Type() == TypeInt {
			return AsInt(a) == AsInt(b)
		}
		return AsFloat(a) == AsFloat(b)
	}
	return a == b
}

// Encoded is the flat, serializable form of a Value.
type Encoded struct {
	Set bool
	T   Type
	I   int64
	F   float64
	S   string
}

func Encode(v Value) Encoded {
	switch x := v.(type) {
	case nil:
		return Encoded{}
	case IntValue:
		return Encoded{Set: true, T: TypeInt, I: int64(x)}
	case FloatValue:
		return Encoded{Set: true, T: TypeFloat, F: float64(x)}
	case BoolValue:
		e := Encoded{Set: true, T: TypeBool}
		if x {
			e.I = 1
		}
		return e
	case StrValue:
		return Encoded{Set: true, T: TypeString, S: string(x)}
	}
	return Encoded{Set: true, T: TypeVoid}
}

func (e Encoded) Decode() Value {
	if !e.Set {
		return nil
	}
	switch e.T {
	case TypeInt:
		return IntValue(e.I)
	case TypeFloat:
		return FloatValue(e.F)
	case TypeBool:
		return BoolValue(e.I != 0)
	case TypeString:
		return StrValue(e.S)
	}
	return Void
}
