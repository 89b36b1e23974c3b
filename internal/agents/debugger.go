package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aurax/internal/config"
	"aurax/internal/llm"
	"aurax/internal/logging"
	"aurax/internal/textutil"
)

// ErrEmptyOriginalCode reports a repair request with no code to fix.
var ErrEmptyOriginalCode = errors.New("original code is empty")

// Debugger rewrites a failing file from its content and runtime error.
type Debugger struct {
	client Generator
	settings
	logger logging.Logger
}

// NewDebugger builds a debugger agent.
func NewDebugger(client Generator, cfg config.Config) *Debugger {
	return &Debugger{
		client:   client,
		settings: settingsFrom(cfg),
		logger:   logging.NewComponentLogger("debugger"),
	}
}

// FixCode returns full replacement content for the file, never a diff.
func (d *Debugger) FixCode(ctx context.Context, originalCode, errorMessage, fileName string) (string, error) {
	if strings.TrimSpace(originalCode) == "" {
		return "", ErrEmptyOriginalCode
	}

	prompt := d.buildPrompt(originalCode, strings.TrimSpace(errorMessage), strings.TrimSpace(fileName))

	raw, err := d.client.Generate(ctx, prompt, d.model, d.options(), d.keepAlive)
	if err != nil {
		return "", fmt.Errorf("debugger generation failed for %s: %w", fileName, err)
	}

	fixed := textutil.StripCodeFences(raw)
	if fixed == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyGeneration, fileName)
	}

	d.logger.Debug("Produced corrected content for %s (%d bytes)", fileName, len(fixed))
	return fixed, nil
}

func (d *Debugger) buildPrompt(originalCode, errorMessage, fileName string) string {
	return "You are Debugger Agent in a local autonomous AI system.\n" +
		"Fix the provided file according to the runtime error.\n" +
		"Return only corrected full file content.\n" +
		"Do not include markdown fences.\n" +
		"Do not include explanations.\n\n" +
		"Target file: " + fileName + "\n" +
		"Error output:\n" + errorMessage + "\n\n" +
		"Original file content:\n" + originalCode + "\n"
}

func (d *Debugger) options() llm.Options {
	return llm.Options{
		"temperature": 0.1,
		"top_p":       0.85,
		"num_ctx":     3072,
		"num_predict": 1000,
		"num_thread":  d.numThreads,
	}
}
