package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	Auth      AuthConfig
	Inference InferenceConfig
	AI        AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.AI.loadSampling(); err != nil {
		return nil, err
	}
	if cfg.AI.HistoryLimit < 1 {
		cfg.AI.HistoryLimit = 1
	}

	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ServerConfig 描述网关 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
}

// Addr 解析服务器监听地址。
func (c ServerConfig) Addr() (string, error) {
	return listenAddr("PORT", c.Port)
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"`
}

// StoreConfig 描述文档存储后端。
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	Path   string `env:"STORE_PATH" envDefault:"data/mindscope.db"`
}

func (c StoreConfig) validate() error {
	switch c.Driver {
	case "memory":
		return nil
	case "sqlite":
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("STORE_PATH is required for the sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("invalid STORE_DRIVER value: %q", c.Driver)
	}
}

// AuthConfig 描述身份提供方配置。
type AuthConfig struct {
	Driver    string        `env:"AUTH_DRIVER" envDefault:"sqlite"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"720h"`
}

func (c AuthConfig) validate() error {
	switch c.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid AUTH_DRIVER value: %q", c.Driver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid JWT_TTL value: %s", c.TokenTTL)
	}
	return nil
}

// InferenceConfig 描述推理服务的地址，客户端与服务端共用。
type InferenceConfig struct {
	BaseURL string        `env:"INFERENCE_BASE_URL" envDefault:"http://localhost:5000"`
	Timeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"60s"`
	Port    string        `env:"INFERENCE_PORT" envDefault:"5000"`
}

// Addr 解析推理服务监听地址。
func (c InferenceConfig) Addr() (string, error) {
	return listenAddr("INFERENCE_PORT", c.Port)
}

// LLM providers.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openai"`

	APIKey    string `env:"ARK_API_KEY"`
	AccessKey string `env:"ARK_ACCESS_KEY"`
	SecretKey string `env:"ARK_SECRET_KEY"`
	Model     string `env:"ARK_MODEL"`
	BaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string `env:"ARK_REGION" envDefault:"cn-beijing"`

	// OpenAI 兼容接口，默认指向本地 Ollama。
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" envDefault:"ollama"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"llama3"`

	HistoryLimit int `env:"CHAT_HISTORY_LIMIT" envDefault:"24"`

	// 采样参数由 loadSampling 解析，未设置时保持 nil。
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示所选提供方的必需配置是否齐全。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	case ProviderOpenAI:
		return c.OpenAIModel != "" && c.OpenAIBaseURL != ""
	default:
		return false
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func (c *AIConfig) loadSampling() error {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return err
	}

	c.Temperature = temperature
	c.TopP = topP
	c.MaxTokens = maxTokens
	return nil
}

func listenAddr(key, port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		return "", fmt.Errorf("%s is empty", key)
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid %s value: %q", key, port)
	}

	return ":" + port, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
