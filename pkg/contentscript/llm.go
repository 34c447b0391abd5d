package contentscript

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// promptTextLimit bounds the page text sent to the model.
	promptTextLimit = 4000
)

const classifierSystemPrompt = "You classify web pages. Reply with exactly one word from this list: " +
	"article, ecommerce, search, social, general."

// LLMClassifier asks an OpenAI-compatible chat model for the page label.
// Any failure or unusable answer falls back to another classifier.
type LLMClassifier struct {
	client   openai.Client
	model    string
	fallback Classifier
	logger   *logging.Logger
}

// LLMOption configures an LLMClassifier.
type LLMOption func(*llmConfig)

type llmConfig struct {
	model    string
	fallback Classifier
	logger   *logging.Logger
	request  []option.RequestOption
}

// WithModel sets the chat model.
func WithModel(model string) LLMOption {
	return func(c *llmConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) LLMOption {
	return func(c *llmConfig) {
		if baseURL != "" {
			c.request = append(c.request, option.WithBaseURL(baseURL))
		}
	}
}

// WithFallback replaces the heuristic fallback.
func WithFallback(fallback Classifier) LLMOption {
	return func(c *llmConfig) {
		c.fallback = fallback
	}
}

// WithLLMLogger sets the logger used to report fallbacks.
func WithLLMLogger(logger *logging.Logger) LLMOption {
	return func(c *llmConfig) {
		c.logger = logger
	}
}

// WithRequestOptions passes raw client options through.
func WithRequestOptions(opts ...option.RequestOption) LLMOption {
	return func(c *llmConfig) {
		c.request = append(c.request, opts...)
	}
}

// NewLLMClassifier creates a classifier for the given API key.
func NewLLMClassifier(apiKey string, opts ...LLMOption) *LLMClassifier {
	cfg := &llmConfig{
		model:    DefaultModel,
		fallback: HeuristicClassifier{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, cfg.request...)
	return &LLMClassifier{
		client:   openai.NewClient(reqOpts...),
		model:    cfg.model,
		fallback: cfg.fallback,
		logger:   cfg.logger,
	}
}

// Model returns the configured chat model.
func (c *LLMClassifier) Model() string {
	return c.model
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, pageURL string, e *Extraction) (string, error) {
	label, err := c.ask(ctx, pageURL, e)
	if err == nil {
		return label, nil
	}
	c.logger.Warnf("model classification failed for %s, using fallback: %v", pageURL, err)
	return c.fallback.Classify(ctx, pageURL, e)
}

func (c *LLMClassifier) ask(ctx context.Context, pageURL string, e *Extraction) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifierSystemPrompt),
			openai.UserMessage(buildClassifyPrompt(pageURL, e)),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	answer := resp.Choices[0].Message.Content
	label, ok := parseLabel(answer)
	if !ok {
		return "", fmt.Errorf("unrecognized label %q", answer)
	}
	return label, nil
}

func buildClassifyPrompt(pageURL string, e *Extraction) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("URL: %s\n", pageURL))
	prompt.WriteString(fmt.Sprintf("Title: %s\n", e.Title))
	if e.Description != "" {
		prompt.WriteString(fmt.Sprintf("Description: %s\n", e.Description))
	}
	if len(e.Headings) > 0 {
		prompt.WriteString(fmt.Sprintf("Headings: %s\n", strings.Join(e.Headings, " | ")))
	}
	prompt.WriteString(fmt.Sprintf("Words: %d, links: %d, forms: %d, prices: %d\n\n",
		e.WordCount, e.Links, e.Forms, e.PriceMentions))

	text, _ := truncate(e.Text, promptTextLimit)
	prompt.WriteString("Page text:\n")
	prompt.WriteString(text)
	prompt.WriteString("\n\nWhich category fits this page best?")

	return prompt.String()
}

// parseLabel picks the first known label in a model answer.
func parseLabel(answer string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, w := range words {
		if w == "e-commerce" {
			w = LabelEcommerce
		}
		if IsLabel(w) {
			return w, true
		}
	}
	return "", false
}
