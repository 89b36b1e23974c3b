// Package plan defines the validated project plan produced by the planner.
package plan

// Task is one ordered step of a plan. FilesToCreate ordering defines the
// generation order within the task.
type Task struct {
	StepNumber    int      `json:"step_number"`
	Description   string   `json:"description"`
	FilesToCreate []string `json:"files_to_create"`
}

// Plan is the full project plan. ProjectName is already sanitized to a
// filesystem-safe identifier; a Plan is never mutated after validation.
type Plan struct {
	ProjectName string   `json:"project_name"`
	TechStack   []string `json:"tech_stack"`
	Tasks       []Task   `json:"tasks"`
}

// FileCount returns the total number of files across all tasks.
func (p *Plan) FileCount() int {
	total := 0
	for _, task := range p.Tasks {
		total += len(task.FilesToCreate)
	}
	return total
}
