// Package llm talks to a local Ollama server over its non-streaming
// generate API. Transport failures are retried with bounded exponential
// backoff; deterministic server-side rejections are surfaced immediately.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"aurax/internal/config"
	auraxerrors "aurax/internal/errors"
	"aurax/internal/logging"
)

// Options carries per-request inference options, serialized verbatim into
// the request's "options" object.
type Options map[string]any

// Client is a resilient Ollama API client.
type Client struct {
	generateURL string
	tagsURL     string
	httpClient  *http.Client
	retryConfig auraxerrors.RetryConfig
	logger      logging.Logger
}

// NewClient builds a client from the pipeline configuration.
func NewClient(cfg config.Config) *Client {
	base := strings.TrimRight(cfg.OllamaBaseURL, "/")
	if base == "" {
		base = config.DefaultOllamaBaseURL
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	return &Client{
		generateURL: base + "/api/generate",
		tagsURL:     base + "/api/tags",
		httpClient: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		retryConfig: auraxerrors.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBackoff,
			MaxDelay:    2 * time.Minute,
		},
		logger: logging.NewComponentLogger("ollama-client"),
	}
}

// Generate sends a prompt and returns the trimmed model output.
func (c *Client) Generate(ctx context.Context, prompt, model string, options Options, keepAlive string) (string, error) {
	payload := generateRequest{
		Model:     model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: keepAlive,
		Options:   options,
	}

	body, err := auraxerrors.RetryWithResult(ctx, c.retryConfig, func(ctx context.Context) (*generateResponse, error) {
		return c.postGenerate(ctx, payload)
	}, c.logger)
	if err != nil {
		return "", unwrapRPCError(err)
	}

	if errText := strings.TrimSpace(body.Error); errText != "" {
		return "", &RPCError{Kind: KindServer, Message: fmt.Sprintf("ollama error: %s", errText)}
	}

	generated := strings.TrimSpace(body.Response)
	if generated == "" {
		return "", &RPCError{Kind: KindEmptyOutput, Message: "ollama returned an empty response"}
	}
	return generated, nil
}

// CheckServer probes the tags endpoint once, without retries. It reports
// availability instead of failing; probes are advisory.
func (c *Client) CheckServer(ctx context.Context) (bool, string) {
	if _, err := c.getTags(ctx); err != nil {
		return false, fmt.Sprintf("Ollama server unavailable: %v", err)
	}
	return true, "Ollama server is reachable."
}

// CheckModel probes the tags endpoint once and looks for the model by name.
func (c *Client) CheckModel(ctx context.Context, modelName string) (bool, string) {
	tags, err := c.getTags(ctx)
	if err != nil {
		return false, fmt.Sprintf("Failed to query local models: %v", err)
	}

	for _, item := range tags.Models {
		if strings.TrimSpace(item.Name) == modelName || strings.TrimSpace(item.Model) == modelName {
			return true, fmt.Sprintf("Model %q is available.", modelName)
		}
	}
	return false, fmt.Sprintf("Model %q not found. Run: ollama pull %s", modelName, modelName)
}

func (c *Client) postGenerate(ctx context.Context, payload generateRequest) (*generateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, auraxerrors.NewPermanentError(err, fmt.Sprintf("marshal generate request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, auraxerrors.NewPermanentError(err, fmt.Sprintf("build generate request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection refused, reset, timeout: worth retrying
		return nil, auraxerrors.NewTransientError(err, fmt.Sprintf("ollama request failed: %v", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		rpcErr := &RPCError{
			Kind:    KindProtocol,
			Message: fmt.Sprintf("ollama request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
		// Deterministic rejection; retrying will not help
		return nil, auraxerrors.NewPermanentError(rpcErr, rpcErr.Message)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		rpcErr := &RPCError{Kind: KindProtocol, Message: fmt.Sprintf("decode ollama response: %v", err)}
		return nil, auraxerrors.NewPermanentError(rpcErr, rpcErr.Message)
	}

	return &decoded, nil
}

func (c *Client) getTags(ctx context.Context) (*tagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tagsURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tags request failed with status %d", resp.StatusCode)
	}

	var decoded tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	return &decoded, nil
}

type generateRequest struct {
	Model     string  `json:"model"`
	Prompt    string  `json:"prompt"`
	Stream    bool    `json:"stream"`
	KeepAlive string  `json:"keep_alive,omitempty"`
	Options   Options `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}
