package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"field-mapper/internal/match"
	"field-mapper/internal/source"
)

// ErrNoChoices is returned when the model answers without content.
var ErrNoChoices = errors.New("model returned no choices")

// Enhancer suggests values for target fields.
type Enhancer interface {
	Enhance(ctx context.Context, targets []string, rec source.Record) (match.Enhancement, error)
}

// Options tunes an OpenAIEnhancer.
type Options struct {
	Model string
	// RPS and Burst bound outgoing requests.
	RPS   float64
	Burst int
	// MaxTries bounds attempts per Enhance call, first attempt included.
	MaxTries uint
	// InitialInterval is the first retry delay; later delays grow
	// exponentially up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Timeout bounds each attempt.
	Timeout time.Duration
}

// DefaultOptions returns conservative defaults.
func DefaultOptions() Options {
	return Options{
		Model:           openai.GPT4oMini,
		RPS:             3,
		Burst:           5,
		MaxTries:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Timeout:         60 * time.Second,
	}
}

// OpenAIEnhancer implements Enhancer with the OpenAI chat completion API.
type OpenAIEnhancer struct {
	client  *openai.Client
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger
}

// NewOpenAIEnhancer creates an enhancer for the given API key.
func NewOpenAIEnhancer(apiKey string, opts Options, logger *zap.Logger) *OpenAIEnhancer {
	return NewOpenAIEnhancerWithConfig(openai.DefaultConfig(apiKey), opts, logger)
}

// NewOpenAIEnhancerWithConfig creates an enhancer from a client config,
// e.g. one pointing at a proxy or Azure deployment.
func NewOpenAIEnhancerWithConfig(cfg openai.ClientConfig, opts Options, logger *zap.Logger) *OpenAIEnhancer {
	def := DefaultOptions()

	if opts.Model == "" {
		opts.Model = def.Model
	}

	if opts.RPS <= 0 {
		opts.RPS = def.RPS
	}

	if opts.Burst <= 0 {
		opts.Burst = def.Burst
	}

	if opts.MaxTries == 0 {
		opts.MaxTries = def.MaxTries
	}

	if opts.InitialInterval <= 0 {
		opts.InitialInterval = def.InitialInterval
	}

	if opts.MaxInterval <= 0 {
		opts.MaxInterval = def.MaxInterval
	}

	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIEnhancer{
		client:  openai.NewClientWithConfig(cfg),
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		opts:    opts,
		logger:  logger,
	}
}

const systemPrompt = "You map patient enrollment data onto form fields. " +
	"Answer with a JSON object whose keys are the requested field names and whose values are " +
	`objects {"value": string, "confidence": number between 0 and 1}. ` +
	"Omit fields the data does not support. Never invent identifiers."

// Enhance asks the model for the given targets. Suggestions for fields
// that were not requested, and empty values, are dropped.
func (e *OpenAIEnhancer) Enhance(ctx context.Context, targets []string, rec source.Record) (match.Enhancement, error) {
	if len(targets) == 0 || rec.Len() == 0 {
		return match.Enhancement{}, nil
	}

	req := openai.ChatCompletionRequest{
		Model: e.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(targets, rec)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.InitialInterval
	b.MaxInterval = e.opts.MaxInterval

	attempt := 0

	content, err := backoff.Retry(ctx, func() (string, error) {
		attempt++

		if err := e.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}

		return e.complete(ctx, req, attempt)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.opts.MaxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("enhancement request failed after %d attempts: %w", attempt, err)
	}

	return parseEnhancement(content, targets)
}

func (e *OpenAIEnhancer) complete(ctx context.Context, req openai.ChatCompletionRequest, attempt int) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(attemptCtx, req)
	if err != nil {
		e.logger.Warn("enhancement attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if !retryable(err) {
			return "", backoff.Permanent(err)
		}

		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", backoff.Permanent(ErrNoChoices)
	}

	return resp.Choices[0].Message.Content, nil
}

// retryable reports whether a failed call may succeed when repeated:
// rate limiting, server errors and transport failures.
func retryable(err error) bool {
	status := 0

	var apiErr *openai.APIError

	var reqErr *openai.RequestError

	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return !errors.Is(err, context.Canceled)
	}

	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func buildPrompt(targets []string, rec source.Record) string {
	var sb strings.Builder

	sb.WriteString("Fields:\n")

	for _, t := range targets {
		sb.WriteString("- ")
		sb.WriteString(t)
		sb.WriteByte('\n')
	}

	sb.WriteString("\nData:\n")

	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}

	return sb.String()
}

func parseEnhancement(content string, targets []string) (match.Enhancement, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw map[string]match.EnhancedValue
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse enhancement response: %w", err)
	}

	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		wanted[t] = true
	}

	out := make(match.Enhancement, len(raw))

	for field, v := range raw {
		if !wanted[field] || strings.TrimSpace(v.Value) == "" {
			continue
		}

		out[field] = v
	}

	return out, nil
}
