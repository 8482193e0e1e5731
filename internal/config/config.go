package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/river-app/river/internal/scheduler"
	"github.com/river-app/river/pkg/protocol"
)

// Provider types understood by the daemon.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var providerTypes = []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic}

// Config is the top-level River configuration.
type Config struct {
	App           AppConfig                 `json:"app" yaml:"app"`
	Providers     map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Assistant     AssistantConfig           `json:"assistant" yaml:"assistant"`
	Voice         VoiceConfig               `json:"voice" yaml:"voice"`
	Connectors    ConnectorConfig           `json:"connectors" yaml:"connectors"`
	Notifications NotificationConfig        `json:"notifications" yaml:"notifications"`
	Schedules     []ScheduleConfig          `json:"schedules,omitempty" yaml:"schedules,omitempty"`
	Personality   *protocol.Personality     `json:"personality,omitempty" yaml:"personality,omitempty"`
	API           APIConfig                 `json:"api" yaml:"api"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	LogCapacity int    `json:"log_capacity,omitempty" yaml:"log_capacity,omitempty"`
}

// ProviderConfig holds LLM provider settings. An empty APIKey is allowed;
// chats report it as missing configuration at runtime.
type ProviderConfig struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"` // "gemini" (default), "openai" or "anthropic"
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// AssistantConfig selects the providers behind text chat and voice.
type AssistantConfig struct {
	Provider      string `json:"provider,omitempty" yaml:"provider,omitempty"`
	VoiceProvider string `json:"voice_provider,omitempty" yaml:"voice_provider,omitempty"`
	Model         string `json:"model,omitempty" yaml:"model,omitempty"`
}

// VoiceConfig holds speech-to-text and text-to-speech settings.
type VoiceConfig struct {
	WhisperURL    string `json:"whisper_url,omitempty" yaml:"whisper_url,omitempty"`
	WhisperAPIKey string `json:"whisper_api_key,omitempty" yaml:"whisper_api_key,omitempty"`
	WhisperModel  string `json:"whisper_model,omitempty" yaml:"whisper_model,omitempty"`
	TTSURL        string `json:"tts_url,omitempty" yaml:"tts_url,omitempty"`
	TTSAPIKey     string `json:"tts_api_key,omitempty" yaml:"tts_api_key,omitempty"`
	TTSModel      string `json:"tts_model,omitempty" yaml:"tts_model,omitempty"`
	PlaybackWait  int    `json:"playback_wait,omitempty" yaml:"playback_wait,omitempty"` // seconds, default 60
}

// ConnectorConfig holds settings for external platform connectors.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty" yaml:"slack,omitempty"`
	Webhook  *WebhookConfig  `json:"webhook,omitempty" yaml:"webhook,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token" yaml:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty" yaml:"allow_from,omitempty"`
}

// SlackConfig holds Slack socket mode settings.
type SlackConfig struct {
	BotToken string   `json:"bot_token" yaml:"bot_token"`
	AppToken string   `json:"app_token" yaml:"app_token"`
	Channels []string `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// WebhookConfig lists the inbound webhook endpoints by name.
type WebhookConfig struct {
	Endpoints map[string]EndpointConfig `json:"endpoints" yaml:"endpoints"`
}

// EndpointConfig authenticates one inbound webhook endpoint.
type EndpointConfig struct {
	Secret      string `json:"secret,omitempty" yaml:"secret,omitempty"`
	BearerToken string `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"`
}

// NotificationConfig selects where service notifications are delivered
// besides the in-app feed.
type NotificationConfig struct {
	WebhookURL     string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	WebhookSecret  string `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty"`
	TelegramChatID string `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id,omitempty"`
	SlackChannel   string `json:"slack_channel,omitempty" yaml:"slack_channel,omitempty"`
	FeedSize       int    `json:"feed_size,omitempty" yaml:"feed_size,omitempty"`
}

// ScheduleConfig is the starting auto-service setting for one service.
type ScheduleConfig struct {
	Service   protocol.ServiceKind `json:"service" yaml:"service"`
	Enabled   bool                 `json:"enabled" yaml:"enabled"`
	Frequency string               `json:"frequency" yaml:"frequency"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port"`
	Key         string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// Addr returns host:port for the API listener.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Load reads configuration from a JSON or YAML file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv builds a config from environment variables with the RIVER_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			DataDir: getenv("RIVER_DATA_DIR", "./data"),
		},
		Providers: make(map[string]ProviderConfig),
		Voice: VoiceConfig{
			WhisperURL:    os.Getenv("RIVER_WHISPER_URL"),
			WhisperAPIKey: os.Getenv("RIVER_WHISPER_API_KEY"),
			WhisperModel:  os.Getenv("RIVER_WHISPER_MODEL"),
			TTSURL:        os.Getenv("RIVER_TTS_URL"),
			TTSAPIKey:     os.Getenv("RIVER_TTS_API_KEY"),
			TTSModel:      os.Getenv("RIVER_TTS_MODEL"),
		},
		Notifications: NotificationConfig{
			WebhookURL:     os.Getenv("RIVER_NOTIFY_WEBHOOK_URL"),
			WebhookSecret:  os.Getenv("RIVER_NOTIFY_WEBHOOK_SECRET"),
			TelegramChatID: os.Getenv("RIVER_NOTIFY_TELEGRAM_CHAT"),
			SlackChannel:   os.Getenv("RIVER_NOTIFY_SLACK_CHANNEL"),
		},
		API: APIConfig{
			Host: getenv("RIVER_API_HOST", "0.0.0.0"),
			Port: getenvInt("RIVER_API_PORT", 8080),
			Key:  os.Getenv("RIVER_API_KEY"),
		},
	}

	// The first provider key found becomes the default provider.
	switch {
	case os.Getenv("RIVER_GEMINI_API_KEY") != "":
		cfg.Providers["default"] = ProviderConfig{
			Type:   ProviderGemini,
			APIKey: os.Getenv("RIVER_GEMINI_API_KEY"),
			Model:  getenv("RIVER_MODEL", "gemini-2.5-flash"),
		}
	case os.Getenv("RIVER_OPENAI_API_KEY") != "":
		cfg.Providers["default"] = ProviderConfig{
			Type:    ProviderOpenAI,
			APIKey:  os.Getenv("RIVER_OPENAI_API_KEY"),
			BaseURL: os.Getenv("RIVER_OPENAI_BASE_URL"),
			Model:   getenv("RIVER_MODEL", "gpt-4o-mini"),
		}
	case os.Getenv("RIVER_ANTHROPIC_API_KEY") != "":
		cfg.Providers["default"] = ProviderConfig{
			Type:   ProviderAnthropic,
			APIKey: os.Getenv("RIVER_ANTHROPIC_API_KEY"),
			Model:  getenv("RIVER_MODEL", "claude-sonnet-4-20250514"),
		}
	}

	if token := os.Getenv("RIVER_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("RIVER_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: RIVER_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}

	if bot := os.Getenv("RIVER_SLACK_BOT_TOKEN"); bot != "" {
		cfg.Connectors.Slack = &SlackConfig{
			BotToken: bot,
			AppToken: os.Getenv("RIVER_SLACK_APP_TOKEN"),
			Channels: splitList(os.Getenv("RIVER_SLACK_CHANNELS")),
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields. It is called by Load and LoadFromEnv.
func (c *Config) ApplyDefaults() {
	if c.App.DataDir == "" {
		c.App.DataDir = "./data"
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	for name, p := range c.Providers {
		if p.Type == "" {
			p.Type = ProviderGemini
			c.Providers[name] = p
		}
	}
	if c.Assistant.Provider == "" && len(c.Providers) > 0 {
		c.Assistant.Provider = firstProvider(c.Providers)
	}
	if c.Assistant.VoiceProvider == "" {
		c.Assistant.VoiceProvider = c.Assistant.Provider
	}
	if c.Voice.PlaybackWait == 0 {
		c.Voice.PlaybackWait = 60
	}
	if c.Notifications.FeedSize == 0 {
		c.Notifications.FeedSize = 100
	}
	// An explicit empty list turns automatic service off.
	if c.Schedules == nil {
		c.Schedules = DefaultSchedules()
	}
}

// DefaultSchedules is the auto-service setup of a new household: weekly
// refills and weekly pickups, both on.
func DefaultSchedules() []ScheduleConfig {
	return []ScheduleConfig{
		{Service: protocol.ServiceRefill, Enabled: true, Frequency: string(scheduler.Weekly)},
		{Service: protocol.ServicePickup, Enabled: true, Frequency: string(scheduler.Weekly)},
	}
}

// Validate checks field consistency and reports every problem at once.
// A provider without an api_key is not an error.
func (c *Config) Validate() error {
	var errs []string

	if c.App.DataDir == "" {
		errs = append(errs, "app.data_dir is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	for name, p := range c.Providers {
		if p.Type != "" && !slices.Contains(providerTypes, p.Type) {
			errs = append(errs, fmt.Sprintf("providers.%s.type %q is not one of %v", name, p.Type, providerTypes))
		}
	}
	if c.Assistant.Provider != "" {
		if _, ok := c.Providers[c.Assistant.Provider]; !ok {
			errs = append(errs, fmt.Sprintf("assistant.provider references unknown provider %q", c.Assistant.Provider))
		}
	}
	if c.Assistant.VoiceProvider != "" {
		if _, ok := c.Providers[c.Assistant.VoiceProvider]; !ok {
			errs = append(errs, fmt.Sprintf("assistant.voice_provider references unknown provider %q", c.Assistant.VoiceProvider))
		}
	}

	if t := c.Connectors.Telegram; t != nil && t.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if s := c.Connectors.Slack; s != nil {
		if s.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
		if s.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
	}
	if c.Notifications.TelegramChatID != "" && c.Connectors.Telegram == nil {
		errs = append(errs, "notifications.telegram_chat_id requires connectors.telegram")
	}
	if c.Notifications.SlackChannel != "" && c.Connectors.Slack == nil {
		errs = append(errs, "notifications.slack_channel requires connectors.slack")
	}

	for i, s := range c.Schedules {
		allowed, ok := scheduler.Frequencies[s.Service]
		if !ok {
			errs = append(errs, fmt.Sprintf("schedules[%d].service %q is unknown", i, s.Service))
			continue
		}
		if !slices.Contains(allowed, scheduler.Frequency(s.Frequency)) {
			errs = append(errs, fmt.Sprintf("schedules[%d].frequency %q is not one of %v", i, s.Frequency, allowed))
		}
	}

	if c.Personality != nil {
		if err := c.Personality.Validate(); err != nil {
			errs = append(errs, "personality: "+err.Error())
		}
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// firstProvider prefers "default", then the alphabetically first name.
func firstProvider(ps map[string]ProviderConfig) string {
	if _, ok := ps["default"]; ok {
		return "default"
	}
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}
