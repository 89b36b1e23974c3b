// Package config carries every tunable of the pipeline in one immutable
// value handed to constructors, so tests can inject deterministic settings.
package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultModel          = "qwen2.5:7b"
	DefaultOllamaBaseURL  = "http://localhost:11434"
	DefaultKeepAlive      = "30m"
	DefaultProjectsRoot   = "projects"
	DefaultPythonCommand  = "python3"
	defaultReadTimeout    = 240 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultMaxRetries     = 2
	defaultRetryBackoff   = 1500 * time.Millisecond
	defaultExecTimeout    = 45 * time.Second
)

// Config holds every knob of the generation pipeline.
type Config struct {
	// Ollama connection
	OllamaBaseURL  string
	Model          string
	KeepAlive      string
	ReadTimeout    time.Duration
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration

	// Execution
	ProjectsRoot     string
	PythonCommand    string
	ExecutionTimeout time.Duration

	// Inference option shared by all agents
	NumThreads int

	// Launch the generated project when the run finishes
	Launch bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OllamaBaseURL:    DefaultOllamaBaseURL,
		Model:            DefaultModel,
		KeepAlive:        DefaultKeepAlive,
		ReadTimeout:      defaultReadTimeout,
		ConnectTimeout:   defaultConnectTimeout,
		MaxRetries:       defaultMaxRetries,
		RetryBackoff:     defaultRetryBackoff,
		ProjectsRoot:     DefaultProjectsRoot,
		PythonCommand:    DefaultPythonCommand,
		ExecutionTimeout: defaultExecTimeout,
		NumThreads:       defaultNumThreads(),
		Launch:           false,
	}
}

// Load resolves configuration from defaults, an optional aurax-config.json
// in $HOME or the working directory, and AURAX_* environment variables, in
// increasing precedence.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("aurax-config")
	v.SetConfigType("json")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	bindDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is the normal case
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	return fromViper(v), nil
}

func bindDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("ollama_base_url", defaults.OllamaBaseURL)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("keep_alive", defaults.KeepAlive)
	v.SetDefault("ollama_timeout_seconds", int(defaults.ReadTimeout/time.Second))
	v.SetDefault("ollama_connect_timeout_seconds", int(defaults.ConnectTimeout/time.Second))
	v.SetDefault("ollama_max_retries", defaults.MaxRetries)
	v.SetDefault("ollama_retry_backoff_seconds", defaults.RetryBackoff.Seconds())
	v.SetDefault("projects_root", defaults.ProjectsRoot)
	v.SetDefault("python_command", defaults.PythonCommand)
	v.SetDefault("execution_timeout_seconds", int(defaults.ExecutionTimeout/time.Second))
	v.SetDefault("num_threads", defaults.NumThreads)
	v.SetDefault("launch", defaults.Launch)

	v.SetEnvPrefix("AURAX")
	v.AutomaticEnv()

	// Environment names kept compatible with the original tool
	_ = v.BindEnv("ollama_base_url", "AURAX_OLLAMA_BASE_URL")
	_ = v.BindEnv("ollama_timeout_seconds", "AURAX_OLLAMA_TIMEOUT_SECONDS")
	_ = v.BindEnv("ollama_connect_timeout_seconds", "AURAX_OLLAMA_CONNECT_TIMEOUT_SECONDS")
	_ = v.BindEnv("ollama_max_retries", "AURAX_OLLAMA_MAX_RETRIES")
	_ = v.BindEnv("ollama_retry_backoff_seconds", "AURAX_OLLAMA_RETRY_BACKOFF_SECONDS")
	_ = v.BindEnv("keep_alive", "AURAX_OLLAMA_KEEP_ALIVE")
	_ = v.BindEnv("execution_timeout_seconds", "AURAX_EXECUTION_TIMEOUT_SECONDS")
	_ = v.BindEnv("model", "AURAX_MODEL")
	_ = v.BindEnv("projects_root", "AURAX_PROJECTS_ROOT")
	_ = v.BindEnv("python_command", "AURAX_PYTHON_COMMAND")
	_ = v.BindEnv("launch", "AURAX_LAUNCH")
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		OllamaBaseURL:    v.GetString("ollama_base_url"),
		Model:            v.GetString("model"),
		KeepAlive:        v.GetString("keep_alive"),
		ReadTimeout:      time.Duration(v.GetInt("ollama_timeout_seconds")) * time.Second,
		ConnectTimeout:   time.Duration(v.GetInt("ollama_connect_timeout_seconds")) * time.Second,
		MaxRetries:       v.GetInt("ollama_max_retries"),
		RetryBackoff:     time.Duration(v.GetFloat64("ollama_retry_backoff_seconds") * float64(time.Second)),
		ProjectsRoot:     v.GetString("projects_root"),
		PythonCommand:    v.GetString("python_command"),
		ExecutionTimeout: time.Duration(v.GetInt("execution_timeout_seconds")) * time.Second,
		NumThreads:       v.GetInt("num_threads"),
		Launch:           v.GetBool("launch"),
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	defaults := Default()

	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = defaults.OllamaBaseURL
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.ProjectsRoot == "" {
		c.ProjectsRoot = defaults.ProjectsRoot
	}
	if c.PythonCommand == "" {
		c.PythonCommand = defaults.PythonCommand
	}
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = defaults.ExecutionTimeout
	}
	if c.NumThreads < 1 {
		c.NumThreads = 1
	}
	return c
}

func defaultNumThreads() int {
	threads := runtime.NumCPU() - 1
	if threads < 1 {
		threads = 1
	}
	return threads
}
