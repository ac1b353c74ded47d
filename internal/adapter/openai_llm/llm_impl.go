package openai_llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/user/page-insight-service/internal/repository"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Options configures the OpenAI-compatible client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// LanguageModelImpl implements repository.LanguageModel on the chat completions API.
type LanguageModelImpl struct {
	client openai.Client
	model  string
}

var _ repository.LanguageModel = (*LanguageModelImpl)(nil)

// NewLanguageModel creates a chat completions client. Requests are not retried.
func NewLanguageModel(opts Options) (*LanguageModelImpl, error) {
	if opts.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &LanguageModelImpl{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
	}, nil
}

// GenerateText returns the first choice's content.
func (m *LanguageModelImpl) GenerateText(ctx context.Context, req repository.TextRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: messages(req.System, req.Prompt),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured requests a strict json_schema response. A response
// without choices yields an empty string and no error.
func (m *LanguageModelImpl) GenerateStructured(ctx context.Context, req repository.StructuredRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: messages(req.System, req.Prompt),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("structured chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func messages(system, prompt string) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	return append(msgs, openai.UserMessage(prompt))
}
