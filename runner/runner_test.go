package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/cbot"
	"github.com/timewinder-dev/cbot/cas"
	"github.com/timewinder-dev/cbot/vm"
)

// TestSpecs runs all TOML spec files in testdata as subtests
func TestSpecs(t *testing.T) {
	testdataDir := "testdata"
	err := filepath.Walk(testdataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".toml") {
			return nil
		}
		relPath, _ := filepath.Rel(testdataDir, path)
		testName := strings.TrimSuffix(relPath, ".toml")

		t.Run(testName, func(t *testing.T) {
			spec, err := LoadSpecFromFile(path)
			require.NoError(t, err, "Failed to load spec file")

			store := cas.NewLRUCache(cas.NewMemoryCAS(), spec.Checkpoint.CacheSize)
			exec, err := spec.BuildExecutor(store, nil)
			require.NoError(t, err, "Failed to build executor")

			result, err := exec.Run()
			require.NoError(t, err, "Error during run")
			require.NoError(t, spec.Verify(result))
			if spec.Checkpoint.Every > 0 {
				require.Len(t, exec.Checkpoints, result.Checkpoints)
				for _, h := range exec.Checkpoints {
					require.True(t, store.Has(h))
				}
			}
			t.Logf("%s: %d ticks, %d checkpoints", result.Status, result.Ticks, result.Checkpoints)
		})
		return nil
	})
	require.NoError(t, err, "Error walking testdata directory")
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSpecDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prog.toml", "")
	spec, err := LoadSpecFromFile(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "prog.cbot"), spec.Script.File)
	require.Equal(t, DefaultEntry, spec.Script.Entry)
	require.Equal(t, DefaultBudget, spec.Engine.Budget)
	require.Equal(t, DefaultMaxTicks, spec.Engine.MaxTicks)
}

func TestValidateCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.toml", `
[script]
args = [[1, 2]]

[engine]
budget = -1
max_depth = -3

[checkpoint]
resume = true

[expect]
error = "CBotErrNope"
`)
	_, err := LoadSpecFromFile(path)
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 5)
	require.Contains(t, err.Error(), "engine.budget")
	require.Contains(t, err.Error(), "unknown error constant")
}

func TestTickLimit(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "spin.cbot", "extern void main() { while (true) { } }")
	spec := ScriptSpecFor(file)
	spec.Engine.MaxTicks = 5
	exec, err := spec.BuildExecutor(cas.NewMemoryCAS(), nil)
	require.NoError(t, err)
	_, err = exec.Run()
	require.ErrorIs(t, err, cbot.ErrTickLimit)
	require.Equal(t, 5, exec.Program.Ticks())
}

func TestVerify(t *testing.T) {
	out := "x\n"
	spec := &Spec{Expect: ExpectSpec{Value: int64(2), Output: &out}}
	require.NoError(t, spec.Verify(&Result{Status: cbot.Finished, Value: vm.IntValue(2), Output: "x\n"}))
	require.ErrorContains(t, spec.Verify(&Result{Status: cbot.Finished, Value: vm.IntValue(3), Output: "x\n"}), "expected value")
	require.ErrorContains(t, spec.Verify(&Result{Status: cbot.Finished, Value: vm.IntValue(2), Output: ""}), "expected output")

	spec = &Spec{Expect: ExpectSpec{Error: int64(1234)}}
	require.NoError(t, spec.Verify(&Result{Status: cbot.Failed, Err: &vm.RuntimeError{Code: 1234}}))
	require.ErrorContains(t, spec.Verify(&Result{Status: cbot.Finished}), "expected error")
	require.ErrorContains(t, spec.Verify(&Result{Status: cbot.Failed, Err: &vm.RuntimeError{Code: vm.ErrZeroDiv}}), "expected error")

	spec = &Spec{}
	require.ErrorContains(t, spec.Verify(&Result{Status: cbot.Failed, Err: &vm.RuntimeError{Code: vm.ErrFail}}), "unexpected error")
}

func TestRunOutputAndFormat(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "hello.cbot", `extern string main() { print("hello"); wait(2); return "bye"; }`)
	spec := ScriptSpecFor(file)
	spec.Checkpoint.Every = 1
	var sb strings.Builder
	exec, err := spec.BuildExecutor(cas.NewMemoryCAS(), &sb)
	require.NoError(t, err)
	exec.Reporter = &ColorReporter{Writer: &sb}
	result, err := exec.Run()
	require.NoError(t, err)
	require.Equal(t, cbot.Finished, result.Status)
	require.Equal(t, vm.StrValue("bye"), result.Value)
	require.Equal(t, "hello\n", result.Output)
	require.Equal(t, 2, result.Checkpoints)
	require.True(t, strings.HasPrefix(sb.String(), "hello\n"))
	require.Contains(t, sb.String(), "checkpoint")

	text := FormatResult(result)
	require.Contains(t, text, "FINISHED")
	require.Contains(t, text, "bye")
	require.Contains(t, text, result.RunID.String())
}
