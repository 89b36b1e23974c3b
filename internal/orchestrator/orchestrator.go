// Package orchestrator drives the generate → write → execute → repair
// pipeline. Files are processed strictly sequentially; each file gets at
// most one repair attempt, and one file's failure never stops the run.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"aurax/internal/config"
	"aurax/internal/diff"
	"aurax/internal/executor"
	"aurax/internal/logging"
	"aurax/internal/plan"
	"aurax/internal/workspace"
)

// PlannerAgent produces the project plan.
type PlannerAgent interface {
	CreatePlan(ctx context.Context, userRequest string) (*plan.Plan, error)
}

// CoderAgent generates full file content.
type CoderAgent interface {
	GenerateFileCode(ctx context.Context, fileName, taskDescription, projectRequest string) (string, error)
}

// DebuggerAgent produces full replacement content for a failing file.
type DebuggerAgent interface {
	FixCode(ctx context.Context, originalCode, errorMessage, fileName string) (string, error)
}

// Runner executes one project file.
type Runner interface {
	RunFile(ctx context.Context, projectName, fileName string) (*executor.Result, error)
}

// Stage identifies where in its lifecycle a file currently is.
type Stage string

const (
	StageGenerating  Stage = "generating"
	StageWriting     Stage = "writing"
	StageExecuting   Stage = "executing"
	StageRepairing   Stage = "repairing"
	StageReExecuting Stage = "re-executing"
)

// FileStatus is the terminal outcome of one file.
type FileStatus string

const (
	// StatusSucceeded - executed cleanly on the first attempt
	StatusSucceeded FileStatus = "succeeded"
	// StatusWritten - non-runnable file, finished at writing
	StatusWritten FileStatus = "written"
	// StatusCorrected - failed once, repaired, then executed cleanly
	StatusCorrected FileStatus = "corrected"
	// StatusFailedAfterRepair - still failing after the single repair attempt
	StatusFailedAfterRepair FileStatus = "failed after repair"
	// StatusSkipped - a collaborator failed; the file was abandoned
	StatusSkipped FileStatus = "skipped"
)

// FileReport is the audited outcome of one file.
type FileReport struct {
	StepNumber int
	FileName   string
	Status     FileStatus
	Stage      Stage // the stage reached when processing ended
	Detail     string
	Executions int
	Repaired   bool
}

// Summary aggregates a whole run.
type Summary struct {
	ProjectName string
	ProjectRoot string
	Reports     []FileReport
}

// Succeeded counts files that ended in a good state.
func (s *Summary) Succeeded() int {
	count := 0
	for _, r := range s.Reports {
		switch r.Status {
		case StatusSucceeded, StatusWritten, StatusCorrected:
			count++
		}
	}
	return count
}

// Failed counts files still broken after their repair attempt.
func (s *Summary) Failed() int {
	count := 0
	for _, r := range s.Reports {
		if r.Status == StatusFailedAfterRepair {
			count++
		}
	}
	return count
}

// Skipped counts files abandoned because a collaborator failed.
func (s *Summary) Skipped() int {
	count := 0
	for _, r := range s.Reports {
		if r.Status == StatusSkipped {
			count++
		}
	}
	return count
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Orchestrator coordinates the collaborators for one run.
type Orchestrator struct {
	planner      PlannerAgent
	coder        CoderAgent
	debugger     DebuggerAgent
	runner       Runner
	projectsRoot string
	diffGen      *diff.Generator
	out          io.Writer
	logger       logging.Logger
}

// New builds an orchestrator. out receives the human-readable run report.
func New(planner PlannerAgent, coder CoderAgent, debugger DebuggerAgent, runner Runner, cfg config.Config, out io.Writer) *Orchestrator {
	return &Orchestrator{
		planner:      planner,
		coder:        coder,
		debugger:     debugger,
		runner:       runner,
		projectsRoot: cfg.ProjectsRoot,
		diffGen:      diff.NewGenerator(true),
		out:          out,
		logger:       logging.NewComponentLogger("orchestrator"),
	}
}

// Run executes the full pipeline for one project request. Planning failure
// aborts the run; anything after that is isolated per file.
func (o *Orchestrator) Run(ctx context.Context, userRequest string) (*Summary, error) {
	projectPlan, err := o.planner.CreatePlan(ctx, userRequest)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	ws, err := workspace.New(o.projectsRoot, projectPlan.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("prepare workspace: %w", err)
	}

	o.printPlan(projectPlan)

	summary := &Summary{
		ProjectName: projectPlan.ProjectName,
		ProjectRoot: ws.Root(),
	}

	for _, task := range projectPlan.Tasks {
		for _, fileName := range task.FilesToCreate {
			report := o.processFile(ctx, ws, projectPlan, task, fileName, userRequest)
			summary.Reports = append(summary.Reports, report)
		}
	}

	o.printSummary(summary)
	return summary, nil
}

// processFile walks one file through the state machine. Collaborator
// failures are converted into a logged skip so the run continues.
func (o *Orchestrator) processFile(ctx context.Context, ws *workspace.Workspace, projectPlan *plan.Plan, task plan.Task, fileName, userRequest string) FileReport {
	report := FileReport{
		StepNumber: task.StepNumber,
		FileName:   fileName,
	}

	fmt.Fprintf(o.out, "\n%s %s\n", cyan("Generating"), fileName)

	report.Stage = StageGenerating
	content, err := o.coder.GenerateFileCode(ctx, fileName, task.Description, userRequest)
	if err != nil {
		return o.skip(report, err)
	}

	report.Stage = StageWriting
	if _, err := ws.WriteFile(fileName, content); err != nil {
		return o.skip(report, err)
	}

	// Only the supported runtime kind gets executed; everything else is
	// done once written.
	if !isRunnable(fileName) {
		report.Status = StatusWritten
		fmt.Fprintf(o.out, "%s %s (not executable, written only)\n", green("Done"), fileName)
		return report
	}

	report.Stage = StageExecuting
	fmt.Fprintf(o.out, "%s %s\n", cyan("Running"), fileName)
	result, err := o.runner.RunFile(ctx, projectPlan.ProjectName, fileName)
	if err != nil {
		return o.skip(report, err)
	}
	report.Executions++
	o.printExecution(result)

	if !result.HasError() {
		report.Status = StatusSucceeded
		fmt.Fprintf(o.out, "%s %s\n", green("Execution successful:"), fileName)
		return report
	}

	// Exactly one repair attempt, never recursive.
	report.Stage = StageRepairing
	fmt.Fprintf(o.out, "%s %s\n", yellow("Error detected, attempting auto-fix:"), fileName)

	originalCode, err := ws.ReadFile(fileName)
	if err != nil {
		return o.skip(report, err)
	}

	fixedCode, err := o.debugger.FixCode(ctx, originalCode, errorMessage(result), fileName)
	if err != nil {
		return o.skip(report, err)
	}

	if _, err := ws.WriteFile(fileName, fixedCode); err != nil {
		return o.skip(report, err)
	}
	report.Repaired = true
	o.printRepairDiff(originalCode, fixedCode, fileName)

	report.Stage = StageReExecuting
	fmt.Fprintf(o.out, "%s %s\n", cyan("Re-running after fix:"), fileName)
	retryResult, err := o.runner.RunFile(ctx, projectPlan.ProjectName, fileName)
	if err != nil {
		return o.skip(report, err)
	}
	report.Executions++
	o.printExecution(retryResult)

	// No second repair attempt regardless of outcome.
	if retryResult.HasError() {
		report.Status = StatusFailedAfterRepair
		fmt.Fprintf(o.out, "%s %s\n", red("Still failing after repair:"), fileName)
	} else {
		report.Status = StatusCorrected
		fmt.Fprintf(o.out, "%s %s\n", green("Fix successful:"), fileName)
	}
	return report
}

func (o *Orchestrator) skip(report FileReport, err error) FileReport {
	report.Status = StatusSkipped
	report.Detail = err.Error()
	o.logger.Warn("Skipping %s at stage %s: %v", report.FileName, report.Stage, err)
	fmt.Fprintf(o.out, "%s %s (%s: %v)\n", red("Skipped"), report.FileName, report.Stage, err)
	return report
}

// errorMessage prefers stderr; when the process failed silently it
// synthesizes a message from the exit code so the debugger has something
// to work with.
func errorMessage(result *executor.Result) string {
	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		return stderr
	}
	return fmt.Sprintf("Process exited with code %d and no error output.", result.ReturnCode)
}

func isRunnable(fileName string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(fileName)), ".py")
}

func (o *Orchestrator) printPlan(projectPlan *plan.Plan) {
	fmt.Fprintf(o.out, "%s %s\n", bold("Project:"), projectPlan.ProjectName)
	if len(projectPlan.TechStack) > 0 {
		fmt.Fprintf(o.out, "%s %s\n", bold("Tech stack:"), strings.Join(projectPlan.TechStack, ", "))
	}
	for _, task := range projectPlan.Tasks {
		fmt.Fprintf(o.out, "  %d. %s -> %s\n", task.StepNumber, task.Description, strings.Join(task.FilesToCreate, ", "))
	}
}

func (o *Orchestrator) printExecution(result *executor.Result) {
	if stdout := strings.TrimSpace(result.Stdout); stdout != "" {
		fmt.Fprintf(o.out, "STDOUT:\n%s\n", stdout)
	}
	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		fmt.Fprintf(o.out, "STDERR:\n%s\n", stderr)
	}
	if result.TimedOut {
		fmt.Fprintf(o.out, "%s\n", red("Execution timed out."))
	}
}

func (o *Orchestrator) printRepairDiff(originalCode, fixedCode, fileName string) {
	result := o.diffGen.Unified(originalCode, fixedCode, fileName)
	if result.UnifiedDiff == "" {
		return
	}
	fmt.Fprintf(o.out, "%s\n%s", yellow("Applied fix:"), result.UnifiedDiff)
}

func (o *Orchestrator) printSummary(summary *Summary) {
	fmt.Fprintf(o.out, "\n%s\n", bold("Project generation complete."))
	fmt.Fprintf(o.out, "%s %d succeeded, %d failed, %d skipped (of %d files)\n",
		bold("Result:"), summary.Succeeded(), summary.Failed(), summary.Skipped(), len(summary.Reports))
	for _, r := range summary.Reports {
		marker := green("ok")
		switch r.Status {
		case StatusFailedAfterRepair:
			marker = red("fail")
		case StatusSkipped:
			marker = yellow("skip")
		}
		fmt.Fprintf(o.out, "  [%s] %s - %s\n", marker, r.FileName, r.Status)
	}
	fmt.Fprintf(o.out, "%s %s\n", bold("Project root:"), summary.ProjectRoot)
}
