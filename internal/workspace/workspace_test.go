package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir(), "demo-project")
	require.NoError(t, err)
	return ws
}

func TestResolveRejectsTraversal(t *testing.T) {
	ws := newTestWorkspace(t)

	escapes := []string{
		"../outside.txt",
		"../../etc/passwd",
		"a/../../../b",
		"nested/../../escape.py",
	}

	for _, p := range escapes {
		_, err := ws.Resolve(p)
		assert.ErrorIs(t, err, ErrPathEscape, "path %q must be rejected", p)
	}

	// No filesystem mutation on rejection: the project root was never created
	_, statErr := os.Stat(ws.Root())
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolveRejectsAbsolutePaths(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.Resolve("/etc/passwd")
	assert.ErrorIs(t, err, ErrPathEscape)

	_, err = ws.Resolve(" /tmp/injected.py")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolveRejectsEmptyPath(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.Resolve("   ")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolveAcceptsInRootPaths(t *testing.T) {
	ws := newTestWorkspace(t)

	for _, p := range []string{"main.py", "pkg/util.py", "docs/deep/nested/readme.md", "./app.py"} {
		resolved, err := ws.Resolve(p)
		require.NoError(t, err, "path %q must resolve", p)
		assert.True(t, strings.HasPrefix(resolved, ws.Root()+string(filepath.Separator)),
			"resolved %q not under root", resolved)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	parent := t.TempDir()
	outside := t.TempDir()

	ws, err := New(parent, "demo")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ws.Root(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(ws.Root(), "link")))

	_, err = ws.Resolve("link/secret.txt")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestWriteFileCreatesParentsIdempotently(t *testing.T) {
	ws := newTestWorkspace(t)

	first, err := ws.WriteFile("pkg/sub/mod.py", "print('a')")
	require.NoError(t, err)

	second, err := ws.WriteFile("pkg/sub/other.py", "print('b')")
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(first), filepath.Dir(second))

	content, err := ws.ReadFile("pkg/sub/mod.py")
	require.NoError(t, err)
	assert.Equal(t, "print('a')", content)
}

func TestWriteThenOverwrite(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.WriteFile("main.py", "raise SystemExit(1)")
	require.NoError(t, err)

	_, err = ws.WriteFile("main.py", "print('fixed')")
	require.NoError(t, err)

	content, err := ws.ReadFile("main.py")
	require.NoError(t, err)
	assert.Equal(t, "print('fixed')", content)
}

func TestSanitizeProjectName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"todo_app", "todo_app"},
		{"My Cool App", "My-Cool-App"},
		{"  spaced  ", "spaced"},
		{"weird/../name!", "weirdname"},
		{"snake-case-2", "snake-case-2"},
	}

	for _, tc := range cases {
		got, err := SanitizeProjectName(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := SanitizeProjectName("  !!! ")
	assert.ErrorIs(t, err, ErrEmptyProjectName)
}
