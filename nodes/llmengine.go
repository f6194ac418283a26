package nodes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/providers/ai"
	"github.com/genstack/genstack/providers/ai/gemini"
	"github.com/genstack/genstack/providers/retry"
	"github.com/genstack/genstack/workflow"
)

// Default sampling parameters applied when a node's config leaves them unset.
const (
	defaultTemperature float32 = 0.7
	defaultMaxTokens           = 1000
)

// LLMEngineExecutor runs an inference node: it assembles the prompt from the
// node's upstream context and the user query, picks the chat provider, and
// calls it with bounded retries.
type LLMEngineExecutor struct {
	providers map[string]ai.ChatCompletionProvider
	logger    *slog.Logger
}

func (e *LLMEngineExecutor) Execute(ctx context.Context, node workflow.Node, input string, runCtx *engine.RunContext) (string, error) {
	config, err := configAs[workflow.LLMEngineConfig](node)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindInternal, err)
	}

	provider, err := e.selectProvider(config)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindLLMProvider, err)
	}

	request := ai.ChatRequest{
		Model:        config.Model,
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: buildPrompt(config, input, runCtx.Query())}},
		SystemPrompt: config.SystemPrompt,
		Temperature:  config.Temperature,
		MaxTokens:    config.MaxTokens,
	}
	if request.Temperature == 0 {
		request.Temperature = defaultTemperature
	}
	if request.MaxTokens == 0 {
		request.MaxTokens = defaultMaxTokens
	}

	complete := func() (*ai.ChatResponse, error) {
		return retry.Do(ctx, retry.Config{Retryable: retry.Kinds(ai.KindRateLimited)},
			func(ctx context.Context) (*ai.ChatResponse, error) {
				return provider.Complete(ctx, request)
			})
	}

	response, err := complete()
	if kind, ok := ai.ErrorKind(err); ok && kind == ai.KindTimeout {
		// A single timed-out call gets one fresh attempt; a second timeout
		// aborts the node.
		e.logger.Warn("completion timed out, retrying once", "node", node.ID, "model", config.Model)
		response, err = complete()
	}
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindLLMProvider, err)
	}

	e.logger.Debug("completion finished",
		"node", node.ID,
		"provider", provider.Name(),
		"model", config.Model,
	)
	return response.Content, nil
}

// selectProvider routes by model name first (any model containing "gemini"
// goes to the Gemini backend), then by the configured provider name. A
// per-node API key overrides the backend's ambient credentials.
func (e *LLMEngineExecutor) selectProvider(config workflow.LLMEngineConfig) (ai.ChatCompletionProvider, error) {
	name := strings.ToLower(config.Provider)
	if gemini.IsGeminiModel(config.Model) {
		name = "gemini"
	}

	provider, ok := e.providers[name]
	if !ok {
		return nil, fmt.Errorf("no chat provider configured for %q", name)
	}
	if config.APIKey != "" {
		provider = provider.WithAPIKey(config.APIKey)
	}
	return provider, nil
}

// buildPrompt renders the node's prompt template, substituting {context} with
// the upstream outputs and {query} with the raw user message. Without a
// template, upstream context is framed as background for the question.
func buildPrompt(config workflow.LLMEngineConfig, input, query string) string {
	if config.Prompt != "" {
		prompt := strings.ReplaceAll(config.Prompt, "{context}", input)
		return strings.ReplaceAll(prompt, "{query}", query)
	}

	if input != "" && input != query {
		return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", input, query)
	}
	return query
}
