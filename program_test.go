package cbot

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/stdlib"
	"github.com/timewinder-dev/cbot/vm"
)

const maxTestTicks = 200000

type runMode struct {
	name    string
	budget  int
	restore bool
}

var allModes = []runMode{
	{"step", 0, false},
	{"step-restore", 0, true},
	{"budget-1", 1, false},
	{"budget-3-restore", 3, true},
	{"budget-7", 7, false},
	{"budget-1000", 1000, false},
	{"budget-1000-restore", 1000, true},
}

// slicingModes suspend inside short loops, which polled catch clauses need.
var slicingModes = allModes[:5]

func runFunc(t *testing.T, src string, natives []*interp.Native, name string, m runMode, args ...vm.Value) (vm.Value, error) {
	t.Helper()
	p, err := Compile(src, natives)
	require.NoError(t, err)
	require.NoError(t, p.Start(name, args...))
	for tick := 0; tick < maxTestTicks; tick++ {
		st, err := p.Run(m.budget)
		switch st {
		case Finished:
			return p.Result(), nil
		case Failed:
			return nil, err
		}
		if m.restore {
			data, err := p.Snapshot()
			require.NoError(t, err)
			p, err = Compile(src, natives)
			require.NoError(t, err)
			require.NoError(t, p.Restore(data))
		}
	}
	t.Fatalf("%s did not finish in %d ticks", name, maxTestTicks)
	return nil, nil
}

// executeTest compiles src and runs every extern function in each mode. want
// is the compile or runtime error expected, or NoError.
func executeTest(t *testing.T, src string, want vm.ErrorCode, modes []runMode) {
	t.Helper()
	natives := stdlib.Natives(io.Discard)
	p, err := Compile(src, natives)
	if want.IsCompile() {
		var ce *vm.CompileError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, want, ce.Code, ce.Error())
		return
	}
	require.NoError(t, err)
	for _, fn := range p.Module().Functions() {
		if !fn.Extern() {
			continue
		}
		for _, m := range modes {
			name := fn.FuncName()
			t.Run(name+"/"+m.name, func(t *testing.T) {
				_, err := runFunc(t, src, natives, name, m)
				if want == vm.NoError {
					require.NoError(t, err)
					return
				}
				var re *vm.RuntimeError
				require.ErrorAs(t, err, &re)
				require.Equal(t, want, re.Code, re.Error())
			})
		}
	}
}

// recorder is a native that appends its argument to a log.
type recorder struct {
	log []int64
}

func (r *recorder) native() *interp.Native {
	return &interp.Native{
		Name:   "note",
		Params: []vm.Type{vm.TypeInt},
		Result: vm.TypeVoid,
		Run: func(c *interp.Call) bool {
			r.log = append(r.log, vm.AsInt(c.Args[0]))
			return true
		},
	}
}

func TestFunctionCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want vm.ErrorCode
	}{
		{"public", "public", vm.ErrNoType},
		{"extern", "extern", vm.ErrNoType},
		{"public void", "public void", vm.ErrNoFunc},
		{"extern void", "extern void", vm.ErrNoFunc},
		{"missing param type", "extern void MissingParameterType(", vm.ErrNoType},
		{"missing param name", "extern void MissingParamName(int", vm.ErrNoVar},
		{"missing close paren", "extern void MissingCloseParen(int i", vm.ErrClosePar},
		{"trailing comma", "extern void ParamTrailingComma(int i, ) {}", vm.ErrNoType},
		{"missing open block", "extern void MissingOpenBlock(int i)", vm.ErrOpenBlock},
		{"missing close block", "extern void MissingCloseBlock() {", vm.ErrCloseBlock},
		{"missing semicolon", "extern void f() { string a = \"hello\" }", vm.ErrNoTerminator},
		{"undefined function", "extern void f() { foo(); }", vm.ErrUndefCall},
		{"undefined variable", "extern void f() { ASSERT(a == 0); }", vm.ErrUndefVar},
		{"redefined variable", "extern void f() { int a = 5; int a = 3; }", vm.ErrRedefVar},
		{"redefined function", "int f(int t) { return 1; } int f(int t) { return 2; }", vm.ErrRedefFunc},
		{"bad return", "int f() { return \"test\"; } extern void g() { int a = f(); }", vm.ErrBadType1},
		{"no return", "int f() { } extern void g() { f(); }", vm.ErrNoReturn},
		{"throw bool", "extern void f() { throw true; }", vm.ErrBadType1},
		{"bad type in finally", `extern void f() { try { 5/0; } finally { 1 - "hello"; } }`, vm.ErrBadType2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executeTest(t, tt.src, tt.want, nil)
		})
	}
}

func TestNoReturnPaths(t *testing.T) {
	executeTest(t, `
		int FuncDoesNotReturnAValue()
		{
			if (false) return 1;
			while (false) return 1;
			if (true) ; else return 1;
			do { break; return 1; } while (false);
			do { continue; return 1; } while (false);
		}
	`, vm.ErrNoReturn, nil)

	executeTest(t, `
		int FuncHasReturn()
		{
			return 1;
		}
		int BlockHasReturn()
		{
			{
				{
				}
				return 2;
			}
		}
		int IfElseHasReturn()
		{
			if (false) {
				return 3;
			} else {
				if (false) return 3;
				else return 3;
			}
		}
		extern void Test()
		{
			ASSERT(1 == FuncHasReturn());
			ASSERT(2 == BlockHasReturn());
			ASSERT(3 == IfElseHasReturn());
		}
	`, vm.NoError, allModes)
}

func TestBasicOperations(t *testing.T) {
	executeTest(t, `
		extern void Comparisons()
		{
			ASSERT(1 != 0);
			ASSERT(1 == 1);
			ASSERT(1 > 0);
			ASSERT(1 >= 0);
			ASSERT(1 >= 1);
			ASSERT(0 < 1);
			ASSERT(0 <= 1);
			ASSERT(1 <= 1);
		}

		extern void BasicMath()
		{
			ASSERT(2+2 == 4);
			ASSERT(4-2 == 2);
			ASSERT(2*2 == 4);
			ASSERT(2/2 == 1);
			ASSERT(5%2 == 1);
			ASSERT(5**3 == 125);
		}

		extern void BitwiseMath()
		{
			ASSERT((1 << 5) == 32);
			ASSERT((32 >> 5) == 1);
			ASSERT((3 & 2) == 2);
			ASSERT((1 & 2) == 0);
			ASSERT((1 | 2) == 3);
			ASSERT((5 ^ 3) == 6);
			ASSERT((~1024) == -1025);
		}

		extern void BooleanLogic()
		{
			ASSERT(true);
			ASSERT(!false);
			ASSERT(true && true);
			ASSERT(!(true && false));
			ASSERT(true || false);
			ASSERT(!(false || false));
			ASSERT(!(true ^ true));
			ASSERT(true ^ false);
		}

		extern void NumberFormats()
		{
			ASSERT(2.0 == 2);
			ASSERT(2.50000 == 2.5);
			ASSERT(-2.0 == -2);
			ASSERT(2e3 == 2000);
			ASSERT(-2e-3 == -0.002);
			ASSERT(0xFF == 255);
			ASSERT(0xAB == 171);
			ASSERT(512 == 0b1000000000);
			ASSERT(2147483646 * -1 == -2147483646);
		}

		extern void VarBasic()
		{
			int a = 5;
			int b = 3;
			b = a;
			ASSERT(b == 5);
			b = a + b;
			ASSERT(b == 10);
			b += 2;
			ASSERT(b == 12);
			ASSERT(b == 2*a + 2);
			ASSERT((b > 10 ? 1 : 2) == 1);
		}

		extern void ImplicitCast()
		{
			int a = 5;
			string b = a;
			ASSERT(b == "5");
			string c = 2.5;
			ASSERT(c == "2.5");
			ASSERT("x" + 1 == "x1");
		}
	`, vm.NoError, allModes)

	executeTest(t, `
		string func()
		{
			return 5;
		}
		extern void ImplicitCastOnReturn()
		{
			string a = func();
			ASSERT(a == "5");
		}
	`, vm.NoError, allModes)
}

func TestRuntimeErrors(t *testing.T) {
	executeTest(t, "extern void DivideByZero() { float a = 5/0; }", vm.ErrZeroDiv, allModes)
	executeTest(t, "extern void NotInit() { int a; a += 1; }", vm.ErrNotInit, allModes)
	executeTest(t, "extern void Fail() { FAIL(); }", vm.ErrFail, allModes)
	executeTest(t, "extern void Throw() { throw 1234; }", vm.ErrorCode(1234), allModes)
	executeTest(t, "extern void Negative() { throw -1; }", vm.ErrBadThrow, allModes)
	executeTest(t, "extern void Zero() { throw 0; }", vm.NoError, allModes)
}

func TestScenarios(t *testing.T) {
	const src = `
		int forContinue()
		{
			int sum = 0;
			for (int i = 0; i < 3; i++) {
				if (i == 1) continue;
				sum = sum + i;
			}
			return sum;
		}

		int catchMatches()
		{
			int x = 0;
			int y = 0;
			try { throw 5; } catch(5) { x = 1; } finally { y = 2; }
			return x*10 + y;
		}

		int catchMisses()
		{
			int x = 0;
			int y = 0;
			try { throw 5; } catch(6) { x = 1; } finally { y = 2; note(y); }
			return x;
		}
	`
	for _, m := range allModes {
		t.Run(m.name, func(t *testing.T) {
			rec := &recorder{}
			natives := []*interp.Native{rec.native()}

			v, err := runFunc(t, src, natives, "forContinue", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(2), v)

			v, err = runFunc(t, src, natives, "catchMatches", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(12), v)

			_, err = runFunc(t, src, natives, "catchMisses", m)
			var re *vm.RuntimeError
			require.ErrorAs(t, err, &re)
			require.Equal(t, vm.ErrorCode(5), re.Code)
			require.Equal(t, "catchMisses", re.Function)
			require.Equal(t, []int64{2}, rec.log)
		})
	}
}

func TestForResumesWithoutRepeatingWork(t *testing.T) {
	const src = `
		int loop()
		{
			int n = 0;
			int i;
			for (i = start(); i < 5; i++) {
				note(i);
				n = n + 1;
				note(100 + i);
			}
			return n;
		}
	`
	for _, m := range allModes {
		t.Run(m.name, func(t *testing.T) {
			rec := &recorder{}
			starts := 0
			start := &interp.Native{
				Name:   "start",
				Result: vm.TypeInt,
				Run: func(c *interp.Call) bool {
					starts++
					c.Result = vm.IntValue(0)
					return true
				},
			}
			v, err := runFunc(t, src, []*interp.Native{rec.native(), start}, "loop", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(5), v)
			require.Equal(t, 1, starts)
			require.Equal(t, []int64{0, 100, 1, 101, 2, 102, 3, 103, 4, 104}, rec.log)
		})
	}
}

func TestResumptionEquivalence(t *testing.T) {
	const src = `
		int mix(int n)
		{
			int total = 0;
			for (int i = 0; i < n; i++) {
				switch (i % 3) {
					case 0: total += i; note(i); break;
					case 1: total -= 1;
					default: total *= 2; note(total);
				}
				try {
					if (i == 2) throw 42;
					note(100 + i);
				} catch (42) {
					note(-1);
				} finally {
					note(-2);
				}
				int k = 0;
				do { k++; } while (k < i);
				repeat (2) note(k);
				total = total + helper(i);
			}
			return total;
		}

		int helper(int x)
		{
			if (x > 1) return x * x;
			return 1;
		}
	`
	reference := &recorder{}
	want, err := runFunc(t, src, []*interp.Native{reference.native()}, "mix", runMode{"reference", 100000, false}, vm.IntValue(7))
	require.NoError(t, err)
	require.NotEmpty(t, reference.log)

	for _, budget := range []int{0, 1, 2, 3, 5, 8, 13, 21} {
		for _, restore := range []bool{false, true} {
			m := runMode{name: "budget", budget: budget, restore: restore}
			rec := &recorder{}
			got, err := runFunc(t, src, []*interp.Native{rec.native()}, "mix", m, vm.IntValue(7))
			require.NoError(t, err)
			require.Equal(t, want, got, "budget %d restore %v", budget, restore)
			require.Equal(t, reference.log, rec.log, "budget %d restore %v", budget, restore)
		}
	}
}

func TestControlFlow(t *testing.T) {
	const src = `
		int labels()
		{
			int c = 0;
			outer: for (int i = 0; i < 5; i++) {
				for (int j = 0; j < 5; j++) {
					if (j == 2) continue outer;
					if (i == 3) break outer;
					c++;
				}
			}
			return c;
		}

		int fallthrough(int x)
		{
			int r = 0;
			switch (x) {
				case 1: r = r + 1;
				case 2: r = r + 10; break;
				case 3: r = r + 100;
				default: r = r + 1000;
			}
			return r;
		}

		int continueThroughSwitch()
		{
			int r = 0;
			for (int i = 0; i < 4; i++) {
				switch (i) {
					case 1: continue;
					default: r = r + 1;
				}
				r = r + 10;
			}
			return r;
		}

		int repeatCount()
		{
			int c = 0;
			for (int i = 1; i < 11; ++i) {
				repeat (i) ++c;
			}
			return c;
		}

		int whileBreak()
		{
			int n = 0;
			while (true) {
				n++;
				if (n == 4) break;
			}
			do { n += 10; } while (n < 30);
			return n;
		}
	`
	tests := []struct {
		fn   string
		args []vm.Value
		want vm.Value
	}{
		{"labels", nil, vm.IntValue(6)},
		{"fallthrough", []vm.Value{vm.IntValue(1)}, vm.IntValue(11)},
		{"fallthrough", []vm.Value{vm.IntValue(2)}, vm.IntValue(10)},
		{"fallthrough", []vm.Value{vm.IntValue(3)}, vm.IntValue(1100)},
		{"fallthrough", []vm.Value{vm.IntValue(9)}, vm.IntValue(1000)},
		{"continueThroughSwitch", nil, vm.IntValue(33)},
		{"repeatCount", nil, vm.IntValue(55)},
		{"whileBreak", nil, vm.IntValue(34)},
	}
	for _, tt := range tests {
		for _, m := range allModes {
			t.Run(tt.fn+"/"+m.name, func(t *testing.T) {
				v, err := runFunc(t, src, nil, tt.fn, m, tt.args...)
				require.NoError(t, err)
				require.Equal(t, tt.want, v)
			})
		}
	}
}

func TestSwitchCase(t *testing.T) {
	executeTest(t, `
		extern void Test_Switch_Case() {
			int n = 0, c = 0;
			for (int i = -9; i < 11; ++i) {
				switch (i) {
					case -9: n = -9; ++c; break;
					case -5: n = -5; ++c; break;
					case -1: n = -1; ++c; break;
					case 0: n = 0; ++c; break;
					case 1: n = 1; ++c; break;
					case 4: n = 4; ++c; break;
					case 9: n = 9; ++c; break;
					default: n = i; ++c; break;
				}
				ASSERT(n == i);
			}
			ASSERT(n == 10);
			ASSERT(c == 20);
		}
		extern void Test_Case_With_Math() {
			int n = 0, c = 0;
			for (int i = -9; i < 11; ++i) {
				switch (i * 10) {
					case -9*10: n = -90; ++c; break;
					case -1*10: n = -10; ++c; break;
					case 0*10: n = 0; ++c; break;
					case 3*10: n = 30; ++c; break;
					default: n = i * 10; ++c; break;
				}
				ASSERT(n == i * 10);
			}
			ASSERT(n == 100);
			ASSERT(c == 20);
		}
	`, vm.NoError, allModes)

	tests := []struct {
		name string
		src  string
		want vm.ErrorCode
	}{
		{"duplicate case", "extern void f() { switch(0) { case 1000: case 10*100: } }", vm.ErrRedefCase},
		{"duplicate default", "extern void f() { switch(0) { default: default: } }", vm.ErrRedefCase},
		{"statement before case", "extern void f() { switch(0) { f(); case 1: } }", vm.ErrNoCase},
		{"variable case", "extern void f() { int a = 1; switch(0) { case a: } }", vm.ErrBadCase},
		{"case outside switch", "extern void f() { case 1: }", vm.ErrCaseOut},
		{"string switch", `extern void f() { switch("a") { } }`, vm.ErrBadType1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executeTest(t, tt.src, tt.want, nil)
		})
	}
}

func TestRepeatInstruction(t *testing.T) {
	executeTest(t, `
		extern void TestRepeatBreakAndContinue() {
			int c = 0;
			repeat (10)
			{
				if (++c == 5) break;
				continue;
				FAIL();
			}
			ASSERT(c == 5);
			label:repeat (10)
			{
				if (++c == 10) break label;
				continue label;
				FAIL();
			}
			ASSERT(c == 10);
		}
		extern void NoRepeatNumberLessThanOne() {
			repeat (0) FAIL();
			repeat (-1) FAIL();
			repeat (-2) FAIL();
		}
		extern void EvaluateExpressionOnlyOnce() {
			int c = 0;
			repeat (c + 5) ASSERT(++c < 6);
			ASSERT(c == 5);
		}
		extern void HugeRepeatCount() {
			int c = 0;
			repeat (9223372036854775807)
			{
				if (++c == 5) break;
			}
			ASSERT(c == 5);
		}
	`, vm.NoError, allModes)

	tests := []struct {
		name string
		src  string
		want vm.ErrorCode
	}{
		{"missing open paren", "extern void f() { repeat ; }", vm.ErrOpenPar},
		{"missing number", "extern void f() { repeat (; }", vm.ErrBadNum},
		{"wrong type", `extern void f() { repeat ("not number"); }`, vm.ErrBadType1},
		{"missing close paren", "extern void f() { repeat (2; }", vm.ErrClosePar},
		{"break outside", "extern void f() { break; }", vm.ErrBreakOutside},
		{"unknown label", "extern void f() { while (true) { break nowhere; } }", vm.ErrUndefLabel},
		{"label on if", "extern void f() { here: if (true) ; }", vm.ErrLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executeTest(t, tt.src, tt.want, nil)
		})
	}
}

func TestFunctions(t *testing.T) {
	executeTest(t, `
		bool notThisOne()
		{
			return false;
		}
		bool testFunction()
		{
			return true;
		}
		int fact(int x)
		{
			if (x == 0) return 1;
			return fact(x-1) * x;
		}
		extern void Functions()
		{
			ASSERT(testFunction());
			ASSERT(!notThisOne());
			ASSERT(fact(10) == 3628800);
		}
	`, vm.NoError, allModes)

	executeTest(t, `
		extern void StackOverflow()
		{
			StackOverflow();
		}
	`, vm.ErrStackOver, []runMode{allModes[0], allModes[2], allModes[5]})
}

func TestTry(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  vm.ErrorCode
		modes []runMode
	}{
		{"catch not executed normally", `
			extern void TestCatchNotExecutedNormally() {
				bool caught = false;
				bool tried = false;
				try {
					tried = true;
				} catch(CBotErrZeroDiv) {
					caught = true;
				}
				ASSERT(caught == false);
				ASSERT(tried == true);
			}`, vm.NoError, allModes},
		{"catch executed on error", `
			extern void TestCatchExecutedOnError() {
				bool caught = false;
				bool tried = false;
				try {
					tried = true;
					5/0;
					ASSERT(false);
				} catch(CBotErrZeroDiv) {
					caught = true;
				}
				ASSERT(caught == true);
				ASSERT(tried == true);
			}`, vm.NoError, allModes},
		{"catch only one error type", `
			extern void TestCatchOnlyOneErrorType() {
				try {
					5/0;
					ASSERT(false);
				} catch(CBotErrNull) {
					ASSERT(false);
				}
				ASSERT(false);
			}`, vm.ErrZeroDiv, allModes},
		{"catch from other function", `
			void divzero() { 5/0; }
			extern void TestCatchFromOtherFunction() {
				bool caught = false;
				try {
					divzero();
					ASSERT(false);
				} catch(CBotErrZeroDiv) {
					caught = true;
				}
				ASSERT(caught == true);
			}`, vm.NoError, allModes},
		{"throw caught", `
			void thrownull() { throw CBotErrNull; }
			extern void TestThrowCaught() {
				bool caught = false;
				try {
					thrownull();
					ASSERT(false);
				} catch(CBotErrNull) {
					caught = true;
				}
				ASSERT(caught == true);
			}`, vm.NoError, allModes},
		{"throw uncaught", `
			void thrownull() { throw CBotErrNull; }
			extern void TestThrowUncaught() {
				try {
					thrownull();
					ASSERT(false);
				} catch(CBotErrZeroDiv) {
					ASSERT(false);
				}
				ASSERT(false);
			}`, vm.ErrNull, allModes},
		{"catch condition polled", `
			extern void TestTryCatchCondition() {
				int foo = 0;
				try {
					foo = 1;
					for (int i = 0; i < 20; ++i);
					foo = 2;
				} catch(foo == 1);
				ASSERT(foo == 1);
			}`, vm.NoError, slicingModes},
		{"exception in catch condition", `
			extern void TestExceptionInCatchCondition() {
				try {
					for (int i = 0; i < 20; ++i);
				} catch(1/0 == 0);
			}`, vm.ErrZeroDiv, slicingModes},
		{"typed guard not evaluated without fault", `
			extern void ErrorCodeIsNotEvaluatedUnlessThereIsAnException() {
				try {
					for (int i = 0; i < 20; ++i);
				} catch(1/0) {
				}
			}`, vm.NoError, allModes},
		{"catch zero is not catch true", `
			extern void CatchZeroIsNotCatchTrue() {
				int result = 0;
				try {
					for (int i = 0; i < 20; ++i);
					result = 1;
				} catch(0) {
					result = 2;
				}
				ASSERT(result == 1);
			}`, vm.NoError, allModes},
		{"catch order", `
			extern void CatchOrder() {
				int r = 0;
				try { throw 7; } catch(5) { r = 1; } catch(7) { r = 2; } catch(7) { r = 3; }
				ASSERT(r == 2);
			}`, vm.NoError, allModes},
		{"fatal fault is not caught", `
			void recurse() { recurse(); }
			extern void FatalNotCaught() {
				try { recurse(); } catch(CBotErrStackOver) { } finally { FAIL(); }
			}`, vm.ErrStackOver, []runMode{allModes[2], allModes[5]}},
		{"thrown fatal code is a bad throw", `
			extern void ThrownFatalCode() {
				int n = 0;
				try { throw CBotErrStackOver; } catch(CBotErrBadThrow) { n = 1; } finally { n = n + 10; }
				ASSERT(n == 11);
				try { throw 6016; } catch(CBotErrBadThrow) { n = 2; }
				ASSERT(n == 2);
			}`, vm.NoError, allModes},
		{"uncaught fatal code fails as bad throw", `
			extern void UncaughtFatalCode() {
				throw 6010;
			}`, vm.ErrBadThrow, allModes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executeTest(t, tt.src, tt.want, tt.modes)
		})
	}
}

func TestFinally(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want vm.ErrorCode
	}{
		{"executed normally", `
			extern void TestFinallyExecutedNormally() {
				bool caught = false;
				bool finally_ran = false;
				try {
				} catch(CBotErrZeroDiv) {
					caught = true;
				} finally {
					finally_ran = true;
				}
				ASSERT(caught == false);
				ASSERT(finally_ran == true);
			}`, vm.NoError},
		{"executed on error", `
			extern void TestFinallyExecutedOnError() {
				bool caught = false;
				bool finally_ran = false;
				try {
					5/0;
					ASSERT(false);
				} catch(CBotErrZeroDiv) {
					caught = true;
				} finally {
					finally_ran = true;
				}
				ASSERT(caught == true);
				ASSERT(finally_ran == true);
			}`, vm.NoError},
		{"handler error replaces fault", `
			extern void TestFinallyOverrideError() {
				try {
					5/0;
					ASSERT(false);
				} catch(CBotErrZeroDiv) {
					throw CBotErrNull;
				}
				ASSERT(false);
			}`, vm.ErrNull},
		{"handler error survives finally", `
			extern void HandlerErrorAfterFinally() {
				try {
					5/0;
				} catch(CBotErrZeroDiv) {
					throw CBotErrNull;
				} finally {
					int x = 1;
				}
			}`, vm.ErrNull},
		{"finally wins", `
			extern void FinallyWins() {
				try {
					throw 5;
				} finally {
					throw 6;
				}
			}`, vm.ErrorCode(6)},
		{"finally reraises uncaught", `
			extern void FinallyReraises() {
				try {
					throw 5;
				} catch(6) {
				} finally {
				}
			}`, vm.ErrorCode(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executeTest(t, tt.src, tt.want, allModes)
		})
	}
}

func TestFinallyRunsOnSignals(t *testing.T) {
	const src = `
		int returns()
		{
			try {
				return 1;
			} finally {
				note(99);
			}
			return 2;
		}

		int breaks()
		{
			int n = 0;
			while (true) {
				try {
					n = n + 1;
					if (n == 3) break;
				} finally {
					note(n);
				}
			}
			return n;
		}

		int continues()
		{
			int n = 0;
			outer: for (int i = 0; i < 3; i++) {
				for (int j = 0; j < 3; j++) {
					try {
						n = n + 1;
						if (j == 1) continue outer;
					} finally {
						n = n + 1000;
						note(j);
					}
				}
			}
			return n;
		}
	`
	for _, m := range allModes {
		t.Run(m.name, func(t *testing.T) {
			rec := &recorder{}
			natives := []*interp.Native{rec.native()}
			v, err := runFunc(t, src, natives, "returns", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(1), v)
			require.Equal(t, []int64{99}, rec.log)

			rec.log = nil
			v, err = runFunc(t, src, natives, "breaks", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(3), v)
			require.Equal(t, []int64{1, 2, 3}, rec.log)

			rec.log = nil
			v, err = runFunc(t, src, natives, "continues", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(6006), v)
			require.Equal(t, []int64{0, 1, 0, 1, 0, 1}, rec.log)
		})
	}
}

// TestFinallyRunsOnceAfterSuspension pushes the try statement to every
// offset within a tick so that finally is suspended at each of its statements.
func TestFinallyRunsOnceAfterSuspension(t *testing.T) {
	tests := []struct {
		name  string
		guard string
		want  vm.ErrorCode
		log   []int64
	}{
		{"clean", "try { note(1); }", vm.NoError, []int64{1, 2, 3, 4}},
		{"handled", "try { throw 7; note(0); } catch(7) { note(1); }", vm.NoError, []int64{1, 2, 3, 4}},
		{"reraised", "try { note(1); throw 7; }", vm.ErrorCode(7), []int64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		for k := 0; k < 16; k++ {
			src := fmt.Sprintf(`
				int f()
				{
					int g = 0;
					int done = 0;
					%s
					%s finally { done++; note(2); done++; note(3); done++; note(4); }
					return done * 100 + g;
				}`, strings.Repeat("g++; ", k), tt.guard)
			for _, m := range allModes {
				t.Run(fmt.Sprintf("%s/%d/%s", tt.name, k, m.name), func(t *testing.T) {
					rec := &recorder{}
					v, err := runFunc(t, src, []*interp.Native{rec.native()}, "f", m)
					require.Equal(t, tt.log, rec.log)
					if tt.want != vm.NoError {
						var re *vm.RuntimeError
						require.ErrorAs(t, err, &re)
						require.Equal(t, tt.want, re.Code)
						return
					}
					require.NoError(t, err)
					require.Equal(t, vm.IntValue(int64(300+k)), v)
				})
			}
		}
	}
}

// pending returns a native that never completes on its own, and a pointer to
// the number of times it was cancelled.
func pending() (*interp.Native, *int) {
	cancels := 0
	return &interp.Native{
		Name:   "slow",
		Result: vm.TypeVoid,
		Run:    func(c *interp.Call) bool { return false },
		Cancel: func(c *interp.Call) { cancels++ },
	}, &cancels
}

func TestConditionalCatchCancelsNative(t *testing.T) {
	const src = `
		int cancelWait()
		{
			bool stop = false;
			int r = 0;
			try {
				stop = true;
				slow();
				r = 1;
			} catch(stop) {
				r = 2;
			}
			return r;
		}
	`
	for _, m := range allModes {
		t.Run(m.name, func(t *testing.T) {
			slow, cancels := pending()
			v, err := runFunc(t, src, []*interp.Native{slow}, "cancelWait", m)
			require.NoError(t, err)
			require.Equal(t, vm.IntValue(2), v)
			require.Equal(t, 1, *cancels)
		})
	}
}

func TestStop(t *testing.T) {
	slow, cancels := pending()
	p, err := Compile(`
		extern void spin() { int n = 0; while (true) { n++; } }
		extern void block() { slow(); }
	`, []*interp.Native{slow})
	require.NoError(t, err)

	require.NoError(t, p.Start("spin"))
	for i := 0; i < 3; i++ {
		st, err := p.Run(5)
		require.NoError(t, err)
		require.Equal(t, Suspended, st)
	}
	p.Stop()
	st, err := p.Run(5)
	require.Equal(t, Failed, st)
	var re *vm.RuntimeError
	require.ErrorAs(t, err, &re)
	require.Equal(t, vm.ErrCancelled, re.Code)

	require.NoError(t, p.Start("block"))
	st, err = p.Run(100)
	require.NoError(t, err)
	require.Equal(t, Suspended, st)
	p.Stop()
	require.Equal(t, 1, *cancels)
	st, err = p.Run(100)
	require.Equal(t, Failed, st)
	require.ErrorAs(t, err, &re)
	require.Equal(t, vm.ErrCancelled, re.Code)
}

func TestStdlib(t *testing.T) {
	var out bytes.Buffer
	p, err := Compile(`
		extern int waiter() { print("start", 1, 2.5, true); wait(2); print("done"); return ticks(); }
	`, stdlib.Natives(&out))
	require.NoError(t, err)
	require.NoError(t, p.Start("waiter"))

	v, err := p.RunToEnd(1000, 10)
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(3), v)
	require.Equal(t, 3, p.Ticks())
	require.Equal(t, "start 1 2.5 true\ndone\n", out.String())
}

func TestPositionAndSnapshot(t *testing.T) {
	const src = "extern void w() { int a = 1; wait(5); a = 2; }"
	natives := stdlib.Natives(io.Discard)
	p, err := Compile(src, natives)
	require.NoError(t, err)
	require.Equal(t, []string{"void w()"}, p.Functions())

	_, ok := p.Position()
	require.False(t, ok)
	_, err = p.Snapshot()
	require.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, p.Start("w"))
	st, err := p.Run(1000)
	require.NoError(t, err)
	require.Equal(t, Suspended, st)

	pos, ok := p.Position()
	require.True(t, ok)
	require.Equal(t, "w", pos.Function)
	require.Equal(t, "Call wait", pos.Node)
	require.Equal(t, 1, pos.Line)

	data, err := p.Snapshot()
	require.NoError(t, err)
	q, err := Compile(src, natives)
	require.NoError(t, err)
	require.NoError(t, q.Restore(data))
	pos2, ok := q.Position()
	require.True(t, ok)
	require.Equal(t, pos, pos2)

	_, err = q.RunToEnd(1000, 10)
	require.NoError(t, err)
	require.Equal(t, Finished, q.Status())

	other, err := Compile("extern void x() { }", natives)
	require.NoError(t, err)
	require.ErrorIs(t, other.Restore(data), ErrBadSnapshot)
}

func TestStartErrors(t *testing.T) {
	p, err := Compile("int add(int a, int b) { return a + b; }", nil)
	require.NoError(t, err)

	_, err = p.Run(10)
	require.ErrorIs(t, err, ErrNotStarted)

	var re *vm.RuntimeError
	require.ErrorAs(t, p.Start("missing"), &re)
	require.Equal(t, vm.ErrNoRun, re.Code)
	require.Error(t, p.Start("add", vm.IntValue(1)))
	require.Error(t, p.Start("add", vm.IntValue(1), vm.BoolTrue))

	require.NoError(t, p.Start("add", vm.IntValue(1), vm.FloatValue(2)))
	v, err := p.RunToEnd(0, 100)
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(3), v)
}
