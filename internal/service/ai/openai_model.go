package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/mindscope/backend/internal/config"
)

var errNoChoices = errors.New("openai: empty choices")

// openAIModel 把 OpenAI 兼容接口（如 Ollama 的 /v1）包装为 eino 的 ChatModel，
// 使其可以直接接入同一条 compose 链。
type openAIModel struct {
	client      *openai.Client
	model       string
	temperature *float64
	topP        *float64
	maxTokens   *int
}

var _ model.ChatModel = (*openAIModel)(nil)

func newOpenAIModel(cfg config.AIConfig) (*openAIModel, error) {
	if cfg.Provider != config.ProviderOpenAI || !cfg.Enabled() {
		return nil, fmt.Errorf("OpenAI 兼容接口配置缺失，至少提供 OPENAI_BASE_URL + OPENAI_MODEL")
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}

	return &openAIModel{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.OpenAIModel,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (m *openAIModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req := m.buildRequest(input, opts...)

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream 目前以单个分片返回完整回复。
func (m *openAIModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *openAIModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		return fmt.Errorf("openai model: tools are not supported")
	}
	return nil
}

func (m *openAIModel) buildRequest(input []*schema.Message, opts ...model.Option) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: messages,
	}
	if m.temperature != nil {
		req.Temperature = float32(*m.temperature)
	}
	if m.topP != nil {
		req.TopP = float32(*m.topP)
	}
	if m.maxTokens != nil {
		req.MaxTokens = *m.maxTokens
	}

	common := model.GetCommonOptions(nil, opts...)
	if common.Model != nil && *common.Model != "" {
		req.Model = *common.Model
	}
	if common.Temperature != nil {
		req.Temperature = *common.Temperature
	}
	if common.TopP != nil {
		req.TopP = *common.TopP
	}
	if common.MaxTokens != nil {
		req.MaxTokens = *common.MaxTokens
	}

	return req
}
