package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurax/internal/config"
	"aurax/internal/workspace"
)

// testEngine uses sh as the interpreter so the tests run without a Python
// installation; the engine only cares about the .py extension.
func testEngine(t *testing.T, timeout time.Duration) (*Engine, string) {
	t.Helper()
	cfg := config.Default()
	cfg.ProjectsRoot = t.TempDir()
	cfg.PythonCommand = "sh"
	cfg.ExecutionTimeout = timeout
	return NewEngine(cfg), cfg.ProjectsRoot
}

func writeProjectFile(t *testing.T, projectsRoot, projectName, fileName, content string) {
	t.Helper()
	ws, err := workspace.New(projectsRoot, projectName)
	require.NoError(t, err)
	_, err = ws.WriteFile(fileName, content)
	require.NoError(t, err)
}

func TestRunFileSuccessNoOutput(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "quiet.py", "exit 0\n")

	result, err := engine.RunFile(context.Background(), "demo", "quiet.py")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ReturnCode)
	assert.False(t, result.TimedOut)
	assert.Empty(t, result.Stderr)
	assert.False(t, result.HasError())
}

func TestRunFileCapturesStdout(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "hello.py", "echo hello\n")

	result, err := engine.RunFile(context.Background(), "demo", "hello.py")
	require.NoError(t, err)

	assert.Equal(t, "hello\n", result.Stdout)
	assert.False(t, result.HasError())
}

func TestRunFileStderrWithZeroExitIsError(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "warn.py", "echo 'DeprecationWarning: old api' 1>&2\nexit 0\n")

	result, err := engine.RunFile(context.Background(), "demo", "warn.py")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ReturnCode)
	assert.True(t, result.HasError())
}

func TestRunFileNonZeroExit(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "fail.py", "exit 3\n")

	result, err := engine.RunFile(context.Background(), "demo", "fail.py")
	require.NoError(t, err)

	assert.Equal(t, 3, result.ReturnCode)
	assert.True(t, result.HasError())
}

func TestRunFileTimeoutKillsProcessTree(t *testing.T) {
	engine, root := testEngine(t, 300*time.Millisecond)
	marker := filepath.Join(t.TempDir(), "marker")
	// The script would create the marker after sleeping past the timeout;
	// a killed process group never gets there.
	writeProjectFile(t, root, "demo", "slow.py",
		"sleep 2\ntouch "+marker+"\n")

	start := time.Now()
	result, err := engine.RunFile(context.Background(), "demo", "slow.py")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second, "timeout must fire before the sleep finishes")
	assert.True(t, result.TimedOut)
	assert.Equal(t, 124, result.ReturnCode)
	assert.Contains(t, result.Stderr, "timed out")
	assert.True(t, result.HasError())

	time.Sleep(2200 * time.Millisecond)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "killed process must not leave surviving work")
}

func TestRunFileWorkingDirectoryIsFileParent(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "sub/where.py", "pwd\n")

	result, err := engine.RunFile(context.Background(), "demo", "sub/where.py")
	require.NoError(t, err)

	ws, err := workspace.New(root, "demo")
	require.NoError(t, err)
	expected, err := ws.Resolve("sub")
	require.NoError(t, err)
	assert.Equal(t, expected, filepath.Clean(assertOneLine(t, result.Stdout)))
}

func TestRunFileMissingFile(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "present.py", "exit 0\n")

	_, err := engine.RunFile(context.Background(), "demo", "absent.py")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestRunFileUnsupportedExtension(t *testing.T) {
	engine, root := testEngine(t, 10*time.Second)
	writeProjectFile(t, root, "demo", "notes.txt", "just text")

	_, err := engine.RunFile(context.Background(), "demo", "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestRunFileRejectsEscapingPath(t *testing.T) {
	engine, _ := testEngine(t, 10*time.Second)

	_, err := engine.RunFile(context.Background(), "demo", "../outside.py")
	assert.ErrorIs(t, err, workspace.ErrPathEscape)
}

func assertOneLine(t *testing.T, out string) string {
	t.Helper()
	return strings.TrimRight(out, "\r\n")
}
