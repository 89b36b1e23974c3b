package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aurax/internal/config"
	"aurax/internal/llm"
	"aurax/internal/logging"
	"aurax/internal/plan"
	"aurax/internal/textutil"
	"aurax/internal/workspace"
)

// ErrEmptyRequest reports a blank project request.
var ErrEmptyRequest = errors.New("project request is empty")

// ErrMalformedPlan reports planner output that cannot be turned into a
// valid plan.
var ErrMalformedPlan = errors.New("planner output is not a valid plan")

// Planner turns a natural-language project request into a validated Plan.
type Planner struct {
	client Generator
	settings
	logger logging.Logger
}

// NewPlanner builds a planner agent.
func NewPlanner(client Generator, cfg config.Config) *Planner {
	return &Planner{
		client:   client,
		settings: settingsFrom(cfg),
		logger:   logging.NewComponentLogger("planner"),
	}
}

// CreatePlan asks the model for a plan and validates it.
func (p *Planner) CreatePlan(ctx context.Context, userRequest string) (*plan.Plan, error) {
	request := strings.TrimSpace(userRequest)
	if request == "" {
		return nil, ErrEmptyRequest
	}

	raw, err := p.client.Generate(ctx, p.buildPrompt(request), p.model, p.options(), p.keepAlive)
	if err != nil {
		return nil, fmt.Errorf("planner generation failed: %w", err)
	}

	parsed, err := textutil.ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	validated, err := validatePlan(parsed)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Plan for %q: %d tasks, %d files", validated.ProjectName, len(validated.Tasks), validated.FileCount())
	return validated, nil
}

func (p *Planner) buildPrompt(userRequest string) string {
	return "You are Planner Agent for a local autonomous AI system.\n" +
		"Create a strict concise development plan from the user request.\n" +
		"Return only valid JSON.\n" +
		"Do not include markdown, comments, or extra text.\n\n" +
		"JSON schema:\n" +
		"{\n" +
		"  \"project_name\": \"string\",\n" +
		"  \"tech_stack\": [\"string\"],\n" +
		"  \"tasks\": [\n" +
		"    {\n" +
		"      \"step_number\": 1,\n" +
		"      \"description\": \"string\",\n" +
		"      \"files_to_create\": [\"path/filename.ext\"]\n" +
		"    }\n" +
		"  ]\n" +
		"}\n\n" +
		"User request:\n" + userRequest
}

func (p *Planner) options() llm.Options {
	return llm.Options{
		"temperature": 0.1,
		"top_p":       0.8,
		"num_ctx":     2048,
		"num_predict": 250,
		"num_thread":  p.numThreads,
	}
}

// validatePlan normalizes the raw object: the project name is sanitized to
// a filesystem-safe identifier before any path can be derived from it, and
// tasks lacking a description or files are dropped.
func validatePlan(raw map[string]any) (*plan.Plan, error) {
	rawName, _ := raw["project_name"].(string)
	projectName, err := workspace.SanitizeProjectName(rawName)
	if err != nil {
		return nil, fmt.Errorf("%w: missing or unusable project_name", ErrMalformedPlan)
	}

	rawTasks, ok := raw["tasks"].([]any)
	if !ok || len(rawTasks) == 0 {
		return nil, fmt.Errorf("%w: missing non-empty tasks list", ErrMalformedPlan)
	}

	tasks := make([]plan.Task, 0, len(rawTasks))
	for index, rawTask := range rawTasks {
		taskObj, ok := rawTask.(map[string]any)
		if !ok {
			continue
		}

		description, _ := taskObj["description"].(string)
		description = strings.TrimSpace(description)
		if description == "" {
			continue
		}

		files := normalizeFileList(taskObj["files_to_create"])
		if len(files) == 0 {
			continue
		}

		stepNumber := index + 1
		if number, ok := asInt(taskObj["step_number"]); ok {
			stepNumber = number
		}

		tasks = append(tasks, plan.Task{
			StepNumber:    stepNumber,
			Description:   description,
			FilesToCreate: files,
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: no valid tasks after validation", ErrMalformedPlan)
	}

	return &plan.Plan{
		ProjectName: projectName,
		TechStack:   normalizeStringList(raw["tech_stack"]),
		Tasks:       tasks,
	}, nil
}

func normalizeFileList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	files := make([]string, 0, len(items))
	for _, item := range items {
		text, _ := item.(string)
		text = strings.TrimSpace(text)
		if text != "" {
			files = append(files, text)
		}
	}
	return files
}

func normalizeStringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(fmt.Sprintf("%v", item))
		if text != "" && text != "<nil>" {
			result = append(result, text)
		}
	}
	return result
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
