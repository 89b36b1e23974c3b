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

// ErrEmptyFileName reports a blank target file name.
var ErrEmptyFileName = errors.New("file name is empty")

// ErrEmptyGeneration reports model output that was empty after cleanup.
var ErrEmptyGeneration = errors.New("model returned empty file content")

// maxRequestEcho bounds how much of the original user request is repeated
// into each file prompt.
const maxRequestEcho = 800

// Coder generates the content of one file at a time from its task
// description.
type Coder struct {
	client Generator
	settings
	logger logging.Logger
}

// NewCoder builds a coder agent.
func NewCoder(client Generator, cfg config.Config) *Coder {
	return &Coder{
		client:   client,
		settings: settingsFrom(cfg),
		logger:   logging.NewComponentLogger("coder"),
	}
}

// GenerateFileCode produces the full content for fileName. The raw model
// output is fence-stripped before returning; empty content is an error.
func (c *Coder) GenerateFileCode(ctx context.Context, fileName, taskDescription, projectRequest string) (string, error) {
	cleanedName := strings.TrimSpace(fileName)
	if cleanedName == "" {
		return "", ErrEmptyFileName
	}

	prompt := c.buildPrompt(cleanedName, strings.TrimSpace(taskDescription), strings.TrimSpace(projectRequest))

	raw, err := c.client.Generate(ctx, prompt, c.model, c.options(cleanedName), c.keepAlive)
	if err != nil {
		return "", fmt.Errorf("coder generation failed for %s: %w", cleanedName, err)
	}

	content := textutil.StripCodeFences(raw)
	if content == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyGeneration, cleanedName)
	}

	c.logger.Debug("Generated %d bytes for %s", len(content), cleanedName)
	return content, nil
}

func (c *Coder) buildPrompt(fileName, taskDescription, projectRequest string) string {
	if len(projectRequest) > maxRequestEcho {
		projectRequest = projectRequest[:maxRequestEcho]
	}
	return "You are Coder Agent in a local autonomous AI system.\n" +
		"Generate production-ready file content.\n" +
		"Return only raw file content.\n" +
		"Do not include markdown fences.\n" +
		"Do not include explanations.\n\n" +
		"Target file: " + fileName + "\n" +
		"Task description: " + taskDescription + "\n" +
		"Original user request: " + projectRequest + "\n"
}

// options sizes the generation budget by file kind: code files get the
// largest budget, documentation and config a smaller one.
func (c *Coder) options(fileName string) llm.Options {
	lowerName := strings.ToLower(fileName)

	numPredict := 750
	switch {
	case strings.HasSuffix(lowerName, ".py"):
		numPredict = 900
	case strings.HasSuffix(lowerName, ".md"),
		strings.HasSuffix(lowerName, ".txt"),
		strings.HasSuffix(lowerName, ".json"),
		strings.HasSuffix(lowerName, ".yaml"),
		strings.HasSuffix(lowerName, ".yml"):
		numPredict = 650
	}

	return llm.Options{
		"temperature": 0.1,
		"top_p":       0.85,
		"num_ctx":     3072,
		"num_predict": numPredict,
		"num_thread":  c.numThreads,
	}
}
