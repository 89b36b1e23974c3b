// Package launcher opens a finished project for the user: web apps get a
// detached dev server and a browser tab, everything else gets a summary
// page. Launching is best effort and never fails the run.
package launcher

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"aurax/internal/config"
	"aurax/internal/logging"
)

// ProjectType classifies what kind of project was generated.
type ProjectType string

const (
	TypeFastAPI    ProjectType = "fastapi"
	TypeFlask      ProjectType = "flask"
	TypeStaticHTML ProjectType = "static_html"
	TypeCLI        ProjectType = "cli"
)

const (
	flaskURL        = "http://127.0.0.1:5000"
	fastAPIURL      = "http://127.0.0.1:8000"
	summaryFileName = "aurax_summary.html"
	startupWait     = 800 * time.Millisecond
	serverOpenDelay = 1500 * time.Millisecond
	fileListLimit   = 200
)

var (
	fastAPIImportRe   = regexp.MustCompile(`from\s+fastapi\s+import\s+FastAPI`)
	fastAPIInstanceRe = regexp.MustCompile(`(?m)^\s*app\s*=\s*FastAPI\s*\(`)
	flaskImportRe     = regexp.MustCompile(`from\s+flask\s+import\s+Flask`)
	flaskInstanceRe   = regexp.MustCompile(`(?m)^\s*[A-Za-z_]\w*\s*=\s*Flask\s*\(`)
)

// skipDirs are vendor and tool directories excluded from project scans.
var skipDirs = map[string]bool{
	"__pycache__":  true,
	".git":         true,
	".venv":        true,
	"venv":         true,
	"node_modules": true,
}

// Result reports what the launcher did.
type Result struct {
	Type             ProjectType
	Launched         bool
	BrowserScheduled bool
	Details          string
}

// Launcher detects the project type and opens it.
type Launcher struct {
	interpreter string
	openBrowser func(target string) error
	waitAfter   time.Duration
	logger      logging.Logger
}

// NewLauncher builds a launcher using the configured interpreter.
func NewLauncher(cfg config.Config) *Launcher {
	return &Launcher{
		interpreter: cfg.PythonCommand,
		openBrowser: openBrowserCommand,
		waitAfter:   startupWait,
		logger:      logging.NewComponentLogger("launcher"),
	}
}

// LaunchProject inspects projectRoot and opens it the most useful way.
func (l *Launcher) LaunchProject(projectRoot string) Result {
	root, err := filepath.Abs(projectRoot)
	if err == nil {
		if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
			err = fmt.Errorf("not a directory: %s", root)
		}
	}
	if err != nil {
		return Result{Type: TypeCLI, Details: fmt.Sprintf("Project path not found: %s", projectRoot)}
	}

	projectType, entryPath := l.DetectProjectType(root)

	switch projectType {
	case TypeFastAPI:
		return l.launchFastAPI(root, entryPath)
	case TypeFlask:
		return l.launchFlask(root, entryPath)
	case TypeStaticHTML:
		l.openBrowserAsync(fileURI(entryPath), 100*time.Millisecond)
		return Result{Type: TypeStaticHTML, Launched: true, BrowserScheduled: true, Details: "Opened " + filepath.Base(entryPath)}
	}

	summaryPath, err := l.writeSummaryPage(root)
	if err != nil {
		return Result{Type: TypeCLI, Details: fmt.Sprintf("Summary page failed: %v", err)}
	}
	l.openBrowserAsync(fileURI(summaryPath), 100*time.Millisecond)
	return Result{Type: TypeCLI, Launched: true, BrowserScheduled: true, Details: "Opened " + filepath.Base(summaryPath)}
}

// DetectProjectType classifies the project and returns the entry file for
// web projects.
func (l *Launcher) DetectProjectType(root string) (ProjectType, string) {
	if appFile := findFileByName(root, "app.py"); appFile != "" {
		content := safeReadText(appFile)
		if fastAPIImportRe.MatchString(content) && fastAPIInstanceRe.MatchString(content) {
			return TypeFastAPI, appFile
		}
		if flaskImportRe.MatchString(content) && flaskInstanceRe.MatchString(content) {
			return TypeFlask, appFile
		}
	}

	if indexFile := findFileByName(root, "index.html"); indexFile != "" {
		return TypeStaticHTML, indexFile
	}

	return TypeCLI, ""
}

func (l *Launcher) launchFlask(root, appFile string) Result {
	command := []string{
		l.interpreter, "-m", "flask",
		"--app", appFile,
		"run", "--host", "127.0.0.1", "--port", "5000",
	}
	if !l.startDetached(command, root) {
		return Result{Type: TypeFlask, Details: "Failed to start Flask server."}
	}
	l.openBrowserAsync(flaskURL, serverOpenDelay)
	return Result{Type: TypeFlask, Launched: true, BrowserScheduled: true, Details: "Flask server started."}
}

func (l *Launcher) launchFastAPI(root, appFile string) Result {
	command := []string{
		l.interpreter, "-m", "uvicorn",
		moduleReference(root, appFile) + ":app",
		"--host", "127.0.0.1", "--port", "8000",
	}
	if !l.startDetached(command, root) {
		return Result{Type: TypeFastAPI, Details: "Failed to start FastAPI server."}
	}
	l.openBrowserAsync(fastAPIURL, serverOpenDelay)
	return Result{Type: TypeFastAPI, Launched: true, BrowserScheduled: true, Details: "FastAPI server started."}
}

// startDetached launches a server in its own session so it survives the
// CLI exiting. Returns false when the process dies during startup.
func (l *Launcher) startDetached(command []string, cwd string) bool {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = cwd
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		l.logger.Warn("Failed to start %s: %v", command[0], err)
		return false
	}
	go func() { _ = cmd.Wait() }()

	time.Sleep(l.waitAfter)
	if err := cmd.Process.Signal(syscall.Signal(0)); err != nil {
		l.logger.Warn("Server process exited during startup: %v", err)
		return false
	}
	return true
}

func (l *Launcher) openBrowserAsync(target string, delay time.Duration) {
	open := l.openBrowser
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		if err := open(target); err != nil {
			l.logger.Warn("Failed to open browser for %s: %v", target, err)
		}
	}()
}

// moduleReference converts project-root-relative app.py into a dotted
// module path for uvicorn.
func moduleReference(root, appFile string) string {
	rel, err := filepath.Rel(root, appFile)
	if err != nil {
		rel = filepath.Base(appFile)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}

// findFileByName prefers a direct child, then walks the tree skipping
// vendor directories.
func findFileByName(root, fileName string) string {
	direct := filepath.Join(root, fileName)
	if info, err := os.Stat(direct); err == nil && info.Mode().IsRegular() {
		return direct
	}

	lowerName := strings.ToLower(fileName)
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if found == "" && strings.ToLower(d.Name()) == lowerName {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func safeReadText(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(raw), "")
}

func collectFileList(root string) []string {
	var items []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		items = append(items, filepath.ToSlash(rel))
		return nil
	})

	sort.Strings(items)
	if len(items) > fileListLimit {
		items = append(items[:fileListLimit], "... additional files omitted ...")
	}
	if len(items) == 0 {
		items = append(items, "No files were generated.")
	}
	return items
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// openBrowserCommand opens the platform default browser.
func openBrowserCommand(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}
