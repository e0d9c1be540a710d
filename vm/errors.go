package vm

import "fmt"

// ErrorCode identifies a compile or runtime fault. Codes in the 5000 range are
// compile errors, codes from 6000 are runtime errors. Scripts may throw any
// positive code.
type ErrorCode int

const NoError ErrorCode = 0

// Compile errors.
const (
	ErrOpenPar ErrorCode = 5000 + iota
	ErrClosePar
	ErrNotBoolean
	ErrUndefVar
	ErrBadLeft
	ErrNoTerminator
	ErrCaseOut
	ErrNoExpression
	ErrCloseBlock
	ErrElseWithoutIf
	ErrOpenBlock
	ErrBadType1
	ErrRedefVar
	ErrBadType2
	ErrUndefCall
	ErrNoDoubleDots
	ErrNoWhile
	ErrBreakOutside
	ErrLabel
	ErrUndefLabel
	ErrNoCase
	ErrBadNum
	ErrVoid
	ErrNoType
	ErrNoVar
	ErrNoFunc
	ErrOverParam
	ErrRedefFunc
	ErrLowParam
	ErrBadParam
	ErrNbParam
)

const (
	ErrReserved ErrorCode = 5036 + iota
	ErrRedefCase
	ErrNoReturn
	ErrBadCase
	ErrLex
)

// Runtime errors.
const (
	ErrZeroDiv ErrorCode = 6000 + iota
	ErrNotInit
	ErrBadThrow
	ErrNoRetVal
	ErrNoRun
	ErrUndefFunc
	_
	ErrNull
	ErrNan
	ErrOutArray
	ErrStackOver
)

const (
	ErrCancelled ErrorCode = 6016 + iota
	ErrAssert
	ErrFail
	ErrWrite
)

var errorText = map[ErrorCode]string{
	NoError:          "no error",
	ErrOpenPar:       "opening parenthesis missing",
	ErrClosePar:      "closing parenthesis missing",
	ErrNotBoolean:    "the expression must return a boolean value",
	ErrUndefVar:      "variable not declared",
	ErrBadLeft:       "assignment impossible",
	ErrNoTerminator:  "semicolon terminator missing",
	ErrCaseOut:       "instruction \"case\" outside a block \"switch\"",
	ErrNoExpression:  "expression expected",
	ErrCloseBlock:    "end of block missing",
	ErrElseWithoutIf: "instruction \"else\" without corresponding \"if\"",
	ErrOpenBlock:     "opening brace missing",
	ErrBadType1:      "wrong type for the assignment",
	ErrRedefVar:      "a variable can not be declared twice",
	ErrBadType2:      "the types of the two operands are incompatible",
	ErrUndefCall:     "unknown function",
	ErrNoDoubleDots:  "sign \" : \" missing",
	ErrNoWhile:       "keyword \"while\" missing",
	ErrBreakOutside:  "instruction \"break\" outside a loop",
	ErrLabel:         "a label must be followed by \"for\", \"while\", \"do\" or \"repeat\"",
	ErrUndefLabel:    "this label does not exist",
	ErrNoCase:        "instruction \"case\" missing",
	ErrBadNum:        "number missing",
	ErrVoid:          "void parameter",
	ErrNoType:        "type declaration missing",
	ErrNoVar:         "variable name missing",
	ErrNoFunc:        "function name missing",
	ErrOverParam:     "too many parameters",
	ErrRedefFunc:     "function already exists",
	ErrLowParam:      "parameters missing",
	ErrBadParam:      "no function of this name accepts this kind of parameter",
	ErrNbParam:       "no function of this name accepts this number of parameters",
	ErrReserved:      "this word is reserved",
	ErrRedefCase:     "duplicate case value",
	ErrNoReturn:      "missing return at end of function",
	ErrBadCase:       "case value must be a constant integer",
	ErrLex:           "invalid source text",
	ErrZeroDiv:       "dividing by zero",
	ErrNotInit:       "variable not initialized",
	ErrBadThrow:      "negative value rejected by \"throw\"",
	ErrNoRetVal:      "the function returned no value",
	ErrNoRun:         "no function running",
	ErrUndefFunc:     "calling an unknown function",
	ErrNull:          "null pointer",
	ErrNan:           "the value is not a number",
	ErrOutArray:      "access beyond array limit",
	ErrStackOver:     "stack overflow",
	ErrCancelled:     "execution cancelled",
	ErrAssert:        "assertion failed",
	ErrFail:          "explicit failure",
	ErrWrite:         "write failed",
}

func (c ErrorCode) String() string {
	if s, ok := errorText[c]; ok {
		return s
	}
	return fmt.Sprintf("error %d", int(c))
}

// Fatal faults cannot be intercepted by catch clauses.
func (c ErrorCode) Fatal() bool {
	return c == ErrStackOver || c == ErrCancelled
}

func (c ErrorCode) IsCompile() bool {
	return c >= 5000 && c < 6000
}

// ErrorConstants are the predeclared integer identifiers scripts use to name codes,
// e.g. catch(CBotErrZeroDiv).
var ErrorConstants = map[string]ErrorCode{
	"CBotErrZeroDiv":   ErrZeroDiv,
	"CBotErrNotInit":   ErrNotInit,
	"CBotErrBadThrow":  ErrBadThrow,
	"CBotErrNoRetVal":  ErrNoRetVal,
	"CBotErrNoRun":     ErrNoRun,
	"CBotErrUndefFunc": ErrUndefFunc,
	"CBotErrNull":      ErrNull,
	"CBotErrNan":       ErrNan,
	"CBotErrOutArray":  ErrOutArray,
	"CBotErrStackOver": ErrStackOver,
	"CBotErrAssert":    ErrAssert,
	"CBotErrFail":      ErrFail,
}

// CompileError reports the first error found while compiling. Start and End are
// byte offsets into the source.
type CompileError struct {
	Code  ErrorCode
	Start int
	End   int
	Line  int
	Col   int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s (%d)", e.Line, e.Col, e.Code, int(e.Code))
	}
	return fmt.Sprintf("offset %d: %s (%d)", e.Start, e.Code, int(e.Code))
}

// RuntimeError is an uncaught fault surfaced to the host.
type RuntimeError struct {
	Code     ErrorCode
	Start    int
	End      int
	Function string
}

func (e *RuntimeError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (%d) at offset %d", e.Function, e.Code, int(e.Code), e.Start)
	}
	return fmt.Sprintf("%s (%d) at offset %d", e.Code, int(e.Code), e.Start)
}
