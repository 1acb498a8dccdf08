package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/mindscope/backend/internal/config"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
)

// ErrEmptyMessage 表示用户消息为空。
var ErrEmptyMessage = errors.New("ai: message is required")

// DefaultHistoryLimit 是未配置时保留的历史条数。
const DefaultHistoryLimit = 24

// Service encapsulates the companion chat chain.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	system       string
	historyLimit int
}

// NewService 根据配置选择模型提供方并构建对话链。
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	var (
		chatModel model.ChatModel
		err       error
	)

	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, err = cfg.NewChatModel(ctx)
	case config.ProviderOpenAI:
		chatModel, err = newOpenAIModel(cfg)
	default:
		err = fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return NewServiceWithModel(ctx, chatModel, DefaultTemplate(), cfg.HistoryLimit)
}

// NewServiceWithModel 使用给定模型构建服务，便于替换为测试桩。
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, tmpl PromptTemplate, historyLimit int) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:        runnable,
		system:       tmpl.SystemPrompt(),
		historyLimit: historyLimit,
	}, nil
}

// Reply 生成一条陪伴回复。模型返回空内容时返回空字符串，由调用方决定兜底文案。
func (s *Service) Reply(ctx context.Context, message string, history []chat.Turn) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	input := s.buildChainInput(message, history)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", nil
	}

	reply := strings.TrimSpace(response.Content)
	logging.L().Debugw("[ai] generated reply", "turns", len(history), "length", len(reply))
	return reply, nil
}

// SystemPrompt 返回当前使用的系统提示词。
func (s *Service) SystemPrompt() string {
	return s.system
}

func (s *Service) buildChainInput(message string, history []chat.Turn) map[string]any {
	return map[string]any{
		"system":  s.system,
		"history": s.buildHistoryMessages(history),
		"query":   message,
	}
}

// buildHistoryMessages 保留最近 historyLimit 条合法角色的消息。
func (s *Service) buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return []*schema.Message{}
	}

	startIdx := 0
	if len(turns) > s.historyLimit {
		startIdx = len(turns) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		case chat.RoleSystem:
			history = append(history, schema.SystemMessage(turn.Content))
		}
	}

	return history
}
