// Package llm wraps the generative-model transport behind a narrow Invoker
// interface (prompt text in, raw completion text out) and provides the
// tolerant JSON extraction step applied to model output. Keeping both here
// isolates every assumption about model behaviour in one package.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrInvocation covers every transport-level failure of a model call
// (timeout, throttling, malformed transport response). Callers treat these
// uniformly as retryable-by-policy; within one pipeline run they are
// terminal.
var ErrInvocation = errors.New("model invocation failed")

// Params carries the sampling configuration for completions.
//
// TopK is accepted for configuration parity but is not forwarded by the
// OpenAI transport, which does not expose top-k sampling.
type Params struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	TopP        float64
	TopK        int64
}

// Invoker is the opaque generative-model transport consumed by the pipeline.
type Invoker interface {
	// Invoke sends the prompt and returns the raw completion text.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Client is the OpenAI-backed Invoker.
type Client struct {
	oc     openai.Client
	params Params
}

// NewClient builds a Client with the given API key and sampling parameters.
func NewClient(apiKey string, p Params) *Client {
	return &Client{
		oc:     openai.NewClient(option.WithAPIKey(apiKey)),
		params: p,
	}
}

// Invoke sends prompt as a single user message and returns the assistant's
// text. All transport failures are surfaced as ErrInvocation; the caller is
// responsible for bounding the call with a context deadline.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	completion, err := c.oc.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.params.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(c.params.MaxTokens),
		Temperature: openai.Float(c.params.Temperature),
		TopP:        openai.Float(c.params.TopP),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion carried no choices", ErrInvocation)
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: completion text is empty", ErrInvocation)
	}
	return text, nil
}
