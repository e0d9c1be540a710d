package instr

import (
	"cmp"
	"math"
	"strings"

	"github.com/timewinder-dev/cbot/token"
	"github.com/timewinder-dev/cbot/vm"
)

// binaryType is the result type of l op r, or false when the operands do
// not fit the operator.
func binaryType(op token.Kind, l, r vm.Type) (vm.Type, bool) {
	numeric := l.IsNumeric() && r.IsNumeric()
	promoted := vm.TypeInt
	if l == vm.TypeFloat || r == vm.TypeFloat {
		promoted = vm.TypeFloat
	}
	switch op {
	case token.AndAnd, token.OrOr:
		return vm.TypeBool, l == vm.TypeBool && r == vm.TypeBool
	case token.Amp, token.Pipe, token.Caret:
		if l == vm.TypeBool && r == vm.TypeBool {
			return vm.TypeBool, true
		}
		return vm.TypeInt, l == vm.TypeInt && r == vm.TypeInt
	case token.Shl, token.Shr:
		return vm.TypeInt, l == vm.TypeInt && r == vm.TypeInt
	case token.Eq, token.Ne:
		return vm.TypeBool, numeric || (l == r && l != vm.TypeVoid)
	case token.Lt, token.Le, token.Gt, token.Ge:
		return vm.TypeBool, numeric || (l == vm.TypeString && r == vm.TypeString)
	case token.Plus:
		if l == vm.TypeString || r == vm.TypeString {
			return vm.TypeString, l != vm.TypeVoid && r != vm.TypeVoid
		}
		return promoted, numeric
	case token.Minus, token.Star, token.Slash, token.Percent, token.Pow:
		return promoted, numeric
	}
	return vm.TypeVoid, false
}

func unaryType(op token.Kind, t vm.Type) (vm.Type, bool) {
	switch op {
	case token.Minus:
		return t, t.IsNumeric()
	case token.Not:
		return vm.TypeBool, t == vm.TypeBool
	case token.Tilde:
		return vm.TypeInt, t == vm.TypeInt
	}
	return vm.TypeVoid, false
}

// binaryOp applies op. Operand types were checked when compiling.
func binaryOp(op token.Kind, a, b vm.Value) (vm.Value, vm.ErrorCode) {
	switch op {
	case token.AndAnd:
		return vm.BoolValue(a.AsBool() && b.AsBool()), vm.NoError
	case token.OrOr:
		return vm.BoolValue(a.AsBool() || b.AsBool()), vm.NoError
	case token.Eq:
		return vm.BoolValue(vm.Equal(a, b)), vm.NoError
	case token.Ne:
		return vm.BoolValue(!vm.Equal(a, b)), vm.NoError
	case token.Lt, token.Le, token.Gt, token.Ge:
		return compare(op, a, b), vm.NoError
	}

	if a.Type() == vm.TypeString || b.Type() == vm.TypeString {
		return vm.StrValue(a.String() + b.String()), vm.NoError
	}
	if a.Type() == vm.TypeBool {
		x, y := a.AsBool(), b.AsBool()
		switch op {
		case token.Amp:
			return vm.BoolValue(x && y), vm.NoError
		case token.Pipe:
			return vm.BoolValue(x || y), vm.NoError
		case token.Caret:
			return vm.BoolValue(x != y), vm.NoError
		}
	}
	if a.Type() == vm.TypeInt && b.Type() == vm.TypeInt {
		return intOp(op, vm.AsInt(a), vm.AsInt(b))
	}
	return floatOp(op, vm.AsFloat(a), vm.AsFloat(b))
}

func intOp(op token.Kind, x, y int64) (vm.Value, vm.ErrorCode) {
	switch op {
	case token.Plus:
		return vm.IntValue(x + y), vm.NoError
	case token.Minus:
		return vm.IntValue(x - y), vm.NoError
	case token.Star:
		return vm.IntValue(x * y), vm.NoError
	case token.Slash:
		if y == 0 {
			return nil, vm.ErrZeroDiv
		}
		return vm.IntValue(x / y), vm.NoError
	case token.Percent:
		if y == 0 {
			return nil, vm.ErrZeroDiv
		}
		return vm.IntValue(x % y), vm.NoError
	case token.Pow:
		return vm.IntValue(int64(math.Pow(float64(x), float64(y)))), vm.NoError
	case token.Amp:
		return vm.IntValue(x & y), vm.NoError
	case token.Pipe:
		return vm.IntValue(x | y), vm.NoError
	case token.Caret:
		return vm.IntValue(x ^ y), vm.NoError
	case token.Shl:
		return vm.IntValue(x << uint64(y&63)), vm.NoError
	case token.Shr:
		return vm.IntValue(x >> uint64(y&63)), vm.NoError
	}
	return nil, vm.ErrBadType2
}

func floatOp(op token.Kind, x, y float64) (vm.Value, vm.ErrorCode) {
	switch op {
	case token.Plus:
		return vm.FloatValue(x + y), vm.NoError
	case token.Minus:
		return vm.FloatValue(x - y), vm.NoError
	case token.Star:
		return vm.FloatValue(x * y), vm.NoError
	case token.Slash:
		if y == 0 {
			return nil, vm.ErrZeroDiv
		}
		return vm.FloatValue(x / y), vm.NoError
	case token.Percent:
		if y == 0 {
			return nil, vm.ErrZeroDiv
		}
		return vm.FloatValue(math.Mod(x, y)), vm.NoError
	case token.Pow:
		return vm.FloatValue(math.Pow(x, y)), vm.NoError
	}
	return nil, vm.ErrBadType2
}

func compare(op token.Kind, a, b vm.Value) vm.Value {
	var c int
	switch {
	case a.Type() == vm.TypeString:
		c = strings.Compare(a.String(), b.String())
	case a.Type() == vm.TypeInt && b.Type() == vm.TypeInt:
		c = cmp.Compare(vm.AsInt(a), vm.AsInt(b))
	default:
		c = cmp.Compare(vm.AsFloat(a), vm.AsFloat(b))
	}
	switch op {
	case token.Lt:
		return vm.BoolValue(c < 0)
	case token.Le:
		return vm.BoolValue(c <= 0)
	case token.Gt:
		return vm.BoolValue(c > 0)
	}
	return vm.BoolValue(c >= 0)
}

func unaryOp(op token.Kind, v vm.Value) vm.Value {
	switch op {
	case token.Minus:
		if f, ok := v.(vm.FloatValue); ok {
			return -f
		}
		return vm.IntValue(-vm.AsInt(v))
	case token.Not:
		return vm.BoolValue(!v.AsBool())
	}
	return vm.IntValue(^vm.AsInt(v))
}
