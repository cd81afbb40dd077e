package e2e_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	buildOnce   sync.Once
	binaryPath  string
	buildErr    error
	buildOutput []byte
	binaryDir   string
)

func TestMain(m *testing.M) {
	code := m.Run()
	if binaryDir != "" {
		_ = os.RemoveAll(binaryDir)
	}
	os.Exit(code)
}

// buildBinary compiles the stepgraph binary once per test process.
func buildBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		binaryDir, buildErr = os.MkdirTemp("", "stepgraph-e2e-")
		if buildErr != nil {
			return
		}
		binaryPath = filepath.Join(binaryDir, "stepgraph")
		if runtime.GOOS == "windows" {
			binaryPath += ".exe"
		}
		build := exec.Command("go", "build", "-o", binaryPath, "./cmd/stepgraph")
		build.Dir = projectRoot()
		build.Env = append(os.Environ(), "CGO_ENABLED=0")
		buildOutput, buildErr = build.CombinedOutput()
	})
	require.NoError(t, buildErr, "building stepgraph: %s", string(buildOutput))
	return binaryPath
}

// testProject is an isolated working directory plus the built binary.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject returns a fresh project directory. E2E tests are skipped in
// short mode.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}
	return &testProject{Dir: t.TempDir(), BinaryPath: buildBinary(t), t: t}
}

// projectRoot returns the absolute path to the root of the repository.
// It uses runtime.Caller(0) to find this source file's location and navigates
// two directories up (tests/e2e/ -> tests/ -> repo root).
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeFile writes content to name relative to tp.Dir and returns the path.
func (tp *testProject) writeFile(name, content string) string {
	tp.t.Helper()
	path := filepath.Join(tp.Dir, name)
	require.NoError(tp.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tp.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run creates an exec.Cmd for stepgraph inside tp.Dir.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",                // disable ANSI color in output
		"STEPGRAPH_LOG_FORMAT=json", // structured logs for easier parsing
	)
	return cmd
}

// result is the captured outcome of one invocation.
type result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// exec runs stepgraph and captures stdout and stderr separately.
func (tp *testProject) exec(args ...string) result {
	tp.t.Helper()
	cmd := tp.run(args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
		res.ExitCode = exitErr.ExitCode()
	}
	return res
}

// runExpectSuccess runs stepgraph and asserts exit code 0.
func (tp *testProject) runExpectSuccess(args ...string) result {
	tp.t.Helper()
	res := tp.exec(args...)
	require.Equal(tp.t, 0, res.ExitCode, "stepgraph %v failed:\n%s%s", args, res.Stdout, res.Stderr)
	return res
}

// runExpectFailure runs stepgraph and asserts a non-zero exit code.
func (tp *testProject) runExpectFailure(args ...string) result {
	tp.t.Helper()
	res := tp.exec(args...)
	require.NotEqual(tp.t, 0, res.ExitCode, "stepgraph %v expected to fail but succeeded:\n%s", args, res.Stdout)
	return res
}

// branchGraph returns a YAML graph that routes on the "mode" key.
func branchGraph(name string) string {
	return fmt.Sprintf(`name: %s
entry: classify
max_steps: 10
state:
  mode:
    type: string
    default: slow
  trail:
    type: list
    reducer: append
nodes:
  - name: classify
    kind: append
    params: {key: trail, value: classify}
  - name: fast
    kind: append
    params: {key: trail, value: fast}
  - name: slow
    kind: append
    params: {key: trail, value: slow}
branches:
  - from: classify
    router: key
    params: {key: mode}
    routes:
      fast: fast
      slow: slow
edges:
  - from: fast
    to: __end__
  - from: slow
    to: __end__
`, name)
}
