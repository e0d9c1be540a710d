package stdlib

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/cbot"
	"github.com/timewinder-dev/cbot/interp"
	"github.com/timewinder-dev/cbot/vm"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken") }

func run(t *testing.T, src string, out io.Writer) (*cbot.Program, vm.Value, error) {
	t.Helper()
	p, err := cbot.Compile(src, Natives(out))
	require.NoError(t, err)
	require.NoError(t, p.Start("main"))
	v, err := p.RunToEnd(100, 1000)
	return p, v, err
}

func runtimeCode(t *testing.T, err error) vm.ErrorCode {
	t.Helper()
	var re *vm.RuntimeError
	require.ErrorAs(t, err, &re)
	return re.Code
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	_, _, err := run(t, `extern void main() { print("a", 1, 2.5, false); print(); }`, &out)
	require.NoError(t, err)
	require.Equal(t, "a 1 2.5 false\n\n", out.String())
}

func TestPrintWriteError(t *testing.T) {
	p, err := cbot.Compile(`extern void main() { print("x"); }`, []*interp.Native{Print(brokenWriter{})})
	require.NoError(t, err)
	require.NoError(t, p.Start("main"))
	_, err = p.RunToEnd(100, 10)
	require.Equal(t, vm.ErrWrite, runtimeCode(t, err))
}

func TestAssertAndFail(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want vm.ErrorCode
	}{
		{"assert true", "extern bool main() { return ASSERT(1 < 2); }", vm.NoError},
		{"assert false", "extern bool main() { return ASSERT(2 < 1); }", vm.ErrAssert},
		{"fail", "extern void main() { FAIL(); }", vm.ErrFail},
		{"assert caught", "extern int main() { try { ASSERT(false); } catch(CBotErrAssert) { return 1; } return 0; }", vm.NoError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.src, nil)
			if tt.want == vm.NoError {
				require.NoError(t, err)
				return
			}
			require.Equal(t, tt.want, runtimeCode(t, err))
		})
	}
}

func TestWait(t *testing.T) {
	p, err := cbot.Compile("extern int main() { wait(3); return ticks(); }", Natives(nil))
	require.NoError(t, err)
	require.NoError(t, p.Start("main"))
	for i := 0; i < 3; i++ {
		st, err := p.Run(1000)
		require.NoError(t, err)
		require.Equal(t, cbot.Suspended, st, "tick %d", i+1)
	}
	st, err := p.Run(1000)
	require.NoError(t, err)
	require.Equal(t, cbot.Finished, st)
	require.Equal(t, vm.IntValue(4), p.Result())
}

func TestWaitNonPositive(t *testing.T) {
	p, err := cbot.Compile("extern int main() { wait(0); wait(-4); return ticks(); }", Natives(nil))
	require.NoError(t, err)
	require.NoError(t, p.Start("main"))
	st, err := p.Run(1000)
	require.NoError(t, err)
	require.Equal(t, cbot.Finished, st)
	require.Equal(t, vm.IntValue(1), p.Result())
}

func TestWaitSurvivesSnapshot(t *testing.T) {
	const src = "extern int main() { wait(2); return ticks(); }"
	p, err := cbot.Compile(src, Natives(nil))
	require.NoError(t, err)
	require.NoError(t, p.Start("main"))
	st, err := p.Run(1000)
	require.NoError(t, err)
	require.Equal(t, cbot.Suspended, st)
	snap, err := p.Snapshot()
	require.NoError(t, err)

	q, err := cbot.Compile(src, Natives(nil))
	require.NoError(t, err)
	require.NoError(t, q.Restore(snap))
	v, err := q.RunToEnd(1000, 10)
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(3), v)
}
