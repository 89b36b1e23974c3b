// Package diff renders a unified diff between the original and the
// repaired content of a file, for the run report.
package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxDiffSize skips diffing very large content for performance.
const maxDiffSize = 10 * 1024 * 1024

// Generator renders unified diffs.
type Generator struct {
	colorEnabled bool
}

// NewGenerator creates a diff generator.
func NewGenerator(colorEnabled bool) *Generator {
	return &Generator{colorEnabled: colorEnabled}
}

// Result contains the rendered diff and its statistics.
type Result struct {
	UnifiedDiff  string
	AddedLines   int
	DeletedLines int
}

// Unified creates a unified diff between old and new content.
func (g *Generator) Unified(oldContent, newContent, fileName string) *Result {
	if oldContent == newContent {
		return &Result{}
	}

	if len(oldContent) > maxDiffSize || len(newContent) > maxDiffSize {
		return &Result{
			UnifiedDiff: fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ Large file, diff skipped @@\n", fileName, fileName),
		}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldContent, newContent, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	patches := dmp.PatchMake(oldContent, diffs)
	patchText := dmp.PatchToText(patches)

	added, deleted := countChanges(diffs)

	var out strings.Builder
	out.WriteString(g.colorize("--- a/"+fileName+"\n", color.FgRed))
	out.WriteString(g.colorize("+++ b/"+fileName+"\n", color.FgGreen))

	for _, line := range strings.Split(patchText, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			out.WriteString(g.colorize(line+"\n", color.FgCyan))
		case strings.HasPrefix(line, "+"):
			out.WriteString(g.colorize(line+"\n", color.FgGreen))
		case strings.HasPrefix(line, "-"):
			out.WriteString(g.colorize(line+"\n", color.FgRed))
		case line != "":
			out.WriteString(line + "\n")
		}
	}

	return &Result{
		UnifiedDiff:  out.String(),
		AddedLines:   added,
		DeletedLines: deleted,
	}
}

func (g *Generator) colorize(text string, attr color.Attribute) string {
	if !g.colorEnabled {
		return text
	}
	return color.New(attr).Sprint(text)
}

func countChanges(diffs []diffmatchpatch.Diff) (added, deleted int) {
	for _, d := range diffs {
		lines := strings.Count(d.Text, "\n")
		if lines == 0 && strings.TrimSpace(d.Text) != "" {
			lines = 1
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += lines
		case diffmatchpatch.DiffDelete:
			deleted += lines
		}
	}
	return added, deleted
}
