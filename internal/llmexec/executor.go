// Package llmexec executes stages with a chat completion model behind an OpenAI compatible API.
package llmexec

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

var (
	ErrAPIKeyMustBeSet   = errors.New("api key must be set")
	ErrEmptyCompletion   = errors.New("empty completion")
	ErrInvalidCompletion = errors.New("completion is not a JSON object")
)

// Executor asks a model for the output of every stage.
type Executor struct {
	client   *openai.Client
	cfg      Config
	limiter  *rate.Limiter
	logger   *zap.Logger
	prompts  map[model.Stage]*template.Template
	fallback *template.Template
	http     *http.Client
}

type Option func(e *Executor) error

func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) error {
		e.logger = logger

		return nil
	}
}

// WithPrompt replaces the prompt template of a stage. The template receives .Stage and .Input, and a json function.
func WithPrompt(stage model.Stage, text string) Option {
	return func(e *Executor) error {
		tpl, err := parsePrompt(stage, text)
		if err != nil {
			return err
		}

		e.prompts[stage] = tpl

		return nil
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) error {
		e.http = client

		return nil
	}
}

// New creates an executor with a prompt for every stage of the default registry.
func New(cfg Config, opts ...Option) (*Executor, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMustBeSet
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	exec := &Executor{
		cfg:     cfg,
		logger:  zap.NewNop(),
		prompts: make(map[model.Stage]*template.Template, len(defaultPrompts)),
		limiter: rate.NewLimiter(rate.Inf, 1),
		http:    &http.Client{Timeout: cfg.Timeout},
	}

	if cfg.RequestsPerMinute > 0 {
		exec.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	for stage, text := range defaultPrompts {
		tpl, err := parsePrompt(stage, text)
		if err != nil {
			return nil, err
		}

		exec.prompts[stage] = tpl
	}

	fallback, err := parsePrompt("fallback", fallbackPrompt)
	if err != nil {
		return nil, err
	}

	exec.fallback = fallback

	for _, opt := range opts {
		err := opt(exec)
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply option")
		}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientCfg.HTTPClient = exec.http
	exec.client = openai.NewClientWithConfig(clientCfg)

	return exec, nil
}

// Execute renders the prompt of stage with input and decodes the JSON object answered by the model.
func (e *Executor) Execute(ctx context.Context, stage model.Stage, input map[string]any) (map[string]any, error) {
	tpl, ok := e.prompts[stage]
	if !ok {
		tpl = e.fallback
	}

	prompt, err := render(tpl, stage, input)
	if err != nil {
		return nil, err
	}

	err = e.limiter.Wait(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	logger := e.logger.With(zap.String("stage", string(stage)), zap.String("model", e.cfg.Model))
	logger.Debug("requesting completion", zap.Int("prompt_length", len(prompt)))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: e.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to complete stage %s", stage)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, errors.Wrapf(ErrEmptyCompletion, "stage %s", stage)
	}

	logger.Debug("completion received",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return decodeCompletion(resp.Choices[0].Message.Content)
}

// decodeCompletion parses a JSON object, optionally wrapped in a markdown code fence.
func decodeCompletion(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var output map[string]any

	err := json.Unmarshal([]byte(content), &output)
	if err != nil || output == nil {
		return nil, errors.Wrapf(ErrInvalidCompletion, "%.80q", content)
	}

	return output, nil
}

var _ pipeline.Executor = (*Executor)(nil)
