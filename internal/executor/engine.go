// Package executor runs one generated file at a time in an isolated child
// process with a wall-clock timeout.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"aurax/internal/config"
	"aurax/internal/logging"
	"aurax/internal/workspace"
)

// ErrFileNotFound reports an execution target that does not exist.
var ErrFileNotFound = errors.New("cannot execute missing file")

// ErrUnsupportedKind reports a file whose extension is not runnable.
var ErrUnsupportedKind = errors.New("only python files can be executed")

// timeoutReturnCode is the conventional "timed out" exit status.
const timeoutReturnCode = 124

// Result captures one execution attempt. Instances are never mutated after
// creation; the orchestrator consumes one per attempt and discards it.
type Result struct {
	FilePath   string
	ReturnCode int
	Stdout     string
	Stderr     string
	TimedOut   bool
}

// HasError reports whether the attempt failed. Non-empty stderr counts as
// failure even with exit code 0: interpreter tracebacks and warnings land
// on stderr, and the repair loop is deliberately conservative about them.
func (r *Result) HasError() bool {
	return r.TimedOut || r.ReturnCode != 0 || strings.TrimSpace(r.Stderr) != ""
}

// Engine executes generated Python files under the projects root.
type Engine struct {
	projectsRoot string
	interpreter  string
	timeout      time.Duration
	logger       logging.Logger
}

// NewEngine builds an engine from the pipeline configuration.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{
		projectsRoot: cfg.ProjectsRoot,
		interpreter:  cfg.PythonCommand,
		timeout:      cfg.ExecutionTimeout,
		logger:       logging.NewComponentLogger("executor"),
	}
}

// RunFile executes one file of a project and reports the outcome. The child
// runs in its own process group with the file's directory as working
// directory and no interactive stdin; on timeout the whole group is killed.
func (e *Engine) RunFile(ctx context.Context, projectName, fileName string) (*Result, error) {
	ws, err := workspace.New(e.projectsRoot, projectName)
	if err != nil {
		return nil, err
	}

	filePath, err := ws.Resolve(fileName)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
		}
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if strings.ToLower(filepath.Ext(filePath)) != ".py" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, filePath)
	}

	cmd := exec.Command(e.interpreter, filePath)
	cmd.Dir = filepath.Dir(filePath)
	cmd.Stdin = nil // /dev/null; generated scripts must not block on input
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	e.logger.Debug("Running %s (timeout %v)", filePath, e.timeout)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", filePath, err)
	}

	pgid := cmd.Process.Pid
	if gid, gidErr := syscall.Getpgid(cmd.Process.Pid); gidErr == nil {
		pgid = gid
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	timedOut := false
	var waitErr error

	select {
	case waitErr = <-waitCh:
	case <-timer.C:
		timedOut = true
		// Kill the whole group so descendants don't survive the parent
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		waitErr = <-waitCh
	case <-ctx.Done():
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-waitCh
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	}

	returnCode := 0
	if timedOut {
		returnCode = timeoutReturnCode
	} else if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			returnCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("wait for %s: %w", filePath, waitErr)
		}
	}

	stdout := decodePermissive(stdoutBuf.Bytes())
	stderr := decodePermissive(stderrBuf.Bytes())

	if timedOut {
		notice := fmt.Sprintf("Execution timed out after %v.", e.timeout)
		stderr = strings.TrimSpace(stderr + "\n" + notice)
	}

	e.logger.Debug("Finished %s in %v (code %d, timed_out %v)",
		filePath, time.Since(start).Round(time.Millisecond), returnCode, timedOut)

	return &Result{
		FilePath:   filePath,
		ReturnCode: returnCode,
		Stdout:     stdout,
		Stderr:     stderr,
		TimedOut:   timedOut,
	}, nil
}

// decodePermissive drops invalid UTF-8 byte sequences instead of failing;
// generated programs print whatever they like.
func decodePermissive(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}
