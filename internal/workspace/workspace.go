// Package workspace confines every file operation of a project run to its
// project root. It is the only component allowed to turn a plan-relative
// path into a filesystem path.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrPathEscape reports a candidate path that resolves outside the project
// root, whether by `..` traversal, absolute-path injection, or a symlink.
var ErrPathEscape = errors.New("path escapes project root")

// ErrEmptyProjectName reports a project name with no usable characters.
var ErrEmptyProjectName = errors.New("project name is empty after sanitization")

// Workspace is a sandboxed project directory under the projects root. The
// directory itself is created lazily on the first write.
type Workspace struct {
	root string
}

// New builds a workspace for a sanitized project name.
func New(projectsRoot, projectName string) (*Workspace, error) {
	name, err := SanitizeProjectName(projectName)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(filepath.Join(projectsRoot, name))
	if err != nil {
		return nil, fmt.Errorf("resolve projects root: %w", err)
	}
	return &Workspace{root: absRoot}, nil
}

// Root returns the absolute project root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve validates a plan-relative path and returns its absolute location
// under the project root. Absolute inputs, `..` traversal, and symlinks
// pointing outside the root all fail with ErrPathEscape. The same
// resolution is used for write targets and execution targets.
func (w *Workspace) Resolve(relativePath string) (string, error) {
	cleaned := strings.TrimSpace(relativePath)
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscape)
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, relativePath)
	}

	canonicalRoot, err := canonicalize(w.root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}

	target, err := canonicalize(filepath.Join(canonicalRoot, filepath.Clean(cleaned)))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", relativePath, err)
	}

	if target != canonicalRoot && !strings.HasPrefix(target, canonicalRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, relativePath)
	}
	return target, nil
}

// WriteFile resolves the target, creates missing parent directories, and
// writes the content. Parent creation is idempotent.
func (w *Workspace) WriteFile(relativePath, content string) (string, error) {
	target, err := w.Resolve(relativePath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create parent directories for %s: %w", relativePath, err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", relativePath, err)
	}
	return target, nil
}

// ReadFile resolves the target and returns its content.
func (w *Workspace) ReadFile(relativePath string) (string, error) {
	target, err := w.Resolve(relativePath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", relativePath, err)
	}
	return string(data), nil
}

// SanitizeProjectName reduces a model-chosen project name to a
// filesystem-safe identifier: alphanumerics, '_' and '-' only.
func SanitizeProjectName(name string) (string, error) {
	var builder strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			builder.WriteRune(r)
		case r == '_' || r == '-':
			builder.WriteRune(r)
		case unicode.IsSpace(r):
			builder.WriteRune('-')
		}
	}

	sanitized := strings.Trim(builder.String(), "-")
	if sanitized == "" {
		return "", ErrEmptyProjectName
	}
	return sanitized, nil
}

// canonicalize resolves symlinks for the deepest existing prefix of path
// and rejoins the non-existing remainder, so confinement checks hold even
// before the project directory exists.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir, base := filepath.Split(filepath.Clean(path))
	dir = strings.TrimSuffix(dir, string(filepath.Separator))
	if dir == "" || dir == path {
		return path, nil
	}

	resolvedDir, err := canonicalize(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
