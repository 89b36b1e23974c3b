// Package agents contains the three LLM collaborators of the pipeline:
// the planner, the coder, and the debugger. Each one builds its prompt,
// calls the shared client, and cleans the raw model output at the boundary.
package agents

import (
	"context"

	"aurax/internal/config"
	"aurax/internal/llm"
)

// Generator is the slice of the RPC client the agents depend on.
type Generator interface {
	Generate(ctx context.Context, prompt, model string, options llm.Options, keepAlive string) (string, error)
}

// settings carries the knobs shared by every agent.
type settings struct {
	model      string
	keepAlive  string
	numThreads int
}

func settingsFrom(cfg config.Config) settings {
	return settings{
		model:      cfg.Model,
		keepAlive:  cfg.KeepAlive,
		numThreads: cfg.NumThreads,
	}
}
