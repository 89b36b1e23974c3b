package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"aurax/internal/agents"
	"aurax/internal/config"
	"aurax/internal/executor"
	"aurax/internal/launcher"
	"aurax/internal/llm"
	"aurax/internal/logging"
	"aurax/internal/orchestrator"
)

const appVersion = "0.2.0"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var launchFlag bool
	var debugFlag bool

	rootCmd := &cobra.Command{
		Use:   "aurax [request]",
		Short: "Local autonomous project generator backed by Ollama",
		Long: fmt.Sprintf(`%s

Turns a natural-language request into a runnable project: a local model
plans the file set, generates each file, executes the runnable ones in a
sandbox, and repairs failures once.

%s
  aurax "build a todo list CLI in python"
  aurax                          # prompted for the request
  aurax --launch "flask hello world app"
  aurax check                    # verify Ollama server and model`,
			bold("AURA-X "+appVersion), bold("EXAMPLES:")),
		Args: cobra.ArbitraryArgs,
	}

	runRequest := func(cmd *cobra.Command, args []string) error {
		if debugFlag {
			logging.SetLevel(logging.DEBUG)
		}

		request := strings.TrimSpace(strings.Join(args, " "))
		if request == "" {
			prompted, err := promptForRequest()
			if err != nil {
				return err
			}
			request = prompted
		}
		return runPipeline(cmd, request, launchFlag)
	}
	rootCmd.RunE = runRequest

	rootCmd.PersistentFlags().BoolVar(&launchFlag, "launch", false, "Open the generated project when the run finishes")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run [request]",
		Short: "Generate, execute and repair a project from a request",
		Args:  cobra.ArbitraryArgs,
		RunE:  runRequest,
	})
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func promptForRequest() (string, error) {
	prompt := promptui.Prompt{
		Label: "What should I build",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("request must not be empty")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("read request: %w", err)
	}
	return strings.TrimSpace(result), nil
}

func runPipeline(cmd *cobra.Command, request string, launchProject bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if launchProject {
		cfg.Launch = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewClient(cfg)
	if err := ensureBackend(ctx, cmd, client, cfg.Model); err != nil {
		return err
	}

	orch := orchestrator.New(
		agents.NewPlanner(client, cfg),
		agents.NewCoder(client, cfg),
		agents.NewDebugger(client, cfg),
		executor.NewEngine(cfg),
		cfg,
		cmd.OutOrStdout(),
	)

	summary, err := orch.Run(ctx, request)
	if err != nil {
		return err
	}

	if cfg.Launch {
		result := launcher.NewLauncher(cfg).LaunchProject(summary.ProjectRoot)
		if result.Launched {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", green("Launched:"), result.Details, result.Type)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", yellow("Launch skipped:"), result.Details)
		}
	}

	if summary.Failed() > 0 {
		return fmt.Errorf("%d file(s) still failing after repair", summary.Failed())
	}
	return nil
}

// ensureBackend verifies the Ollama server is reachable and the model is
// pulled before spending any generation time.
func ensureBackend(ctx context.Context, cmd *cobra.Command, client *llm.Client, model string) error {
	ok, detail := client.CheckServer(ctx)
	if !ok {
		return fmt.Errorf("ollama server unavailable: %s", detail)
	}
	ok, detail = client.CheckModel(ctx, model)
	if !ok {
		return fmt.Errorf("model %q unavailable: %s", model, detail)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s model %s ready\n", green("Backend:"), model)
	return nil
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Ollama server and configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			client := llm.NewClient(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ok, detail := client.CheckServer(ctx)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red("Server:"), detail)
				return errors.New("ollama server unavailable")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Server:"), cfg.OllamaBaseURL)

			ok, detail = client.CheckModel(ctx, cfg.Model)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red("Model:"), detail)
				return fmt.Errorf("model %q unavailable", cfg.Model)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Model:"), cfg.Model)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aurax %s\n", appVersion)
		},
	}
}
