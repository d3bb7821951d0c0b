// Package config loads the bot configuration from a YAML file, BOT_*
// environment variables and built-in defaults, and validates it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every fatal load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the complete, read-only application configuration.
type Config struct {
	Logger              LoggerConfig              `mapstructure:"logger" yaml:"logger"`
	Database            DatabaseConfig            `mapstructure:"database" yaml:"database"`
	Gemini              GeminiConfig              `mapstructure:"gemini" yaml:"gemini"`
	Telegram            TelegramConfig            `mapstructure:"telegram" yaml:"telegram"`
	Persona             PersonaConfig             `mapstructure:"persona" yaml:"persona"`
	KeywordPrompts      KeywordPromptsConfig      `mapstructure:"keyword_prompts" yaml:"keyword_prompts"`
	ConversationContext ConversationContextConfig `mapstructure:"conversation_context" yaml:"conversation_context"`
	ContentGeneration   ContentGenerationConfig   `mapstructure:"content_generation" yaml:"content_generation"`
	DetailedExplanation DetailedExplanationConfig `mapstructure:"detailed_explanation" yaml:"detailed_explanation"`
	Segmentation        SegmentationConfig        `mapstructure:"segmentation" yaml:"segmentation"`
	Scheduler           SchedulerConfig           `mapstructure:"scheduler" yaml:"scheduler"`
	Messages            MessagesConfig            `mapstructure:"messages" yaml:"messages"`
}

// LoggerConfig controls log level, format and optional file rotation.
type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"               validate:"oneof=debug info warn error"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"   validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"   validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"min=0"`
}

// DatabaseConfig holds the SQLite history store settings.
type DatabaseConfig struct {
	Path               string        `mapstructure:"path" yaml:"path"                                 validate:"required"`
	MaxHistoryMessages int           `mapstructure:"max_history_messages" yaml:"max_history_messages" validate:"min=1"`
	Retention          time.Duration `mapstructure:"retention" yaml:"retention"                       validate:"min=0"`
}

// GeminiConfig holds the generation backend settings.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"                         validate:"required"`
	ModelName         string        `mapstructure:"model_name" yaml:"model_name"                   validate:"required"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"                 validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction" yaml:"system_instruction"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"                 validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds" validate:"min=0"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"                         validate:"min=0"`
}

// TelegramConfig holds the bot token and admin identity.
type TelegramConfig struct {
	Token       string `mapstructure:"token" yaml:"token"                 validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" yaml:"admin_user_id" validate:"required,gt=0"`
	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-" yaml:"-"`
}

// PersonaConfig describes the bot's fixed persona.
type PersonaConfig struct {
	Name         string        `mapstructure:"name" yaml:"name"                     validate:"required"`
	Base         string        `mapstructure:"base" yaml:"base"                     validate:"required"`
	DefaultMood  string        `mapstructure:"default_mood" yaml:"default_mood"`
	MoodCacheTTL time.Duration `mapstructure:"mood_cache_ttl" yaml:"mood_cache_ttl" validate:"min=0"`
	MoodTimeout  time.Duration `mapstructure:"mood_timeout" yaml:"mood_timeout"     validate:"min=0"`
}

// KeywordPromptsConfig is the raw keyword rule configuration.
type KeywordPromptsConfig struct {
	Enable        bool                `mapstructure:"enable" yaml:"enable"`
	CaseSensitive bool                `mapstructure:"case_sensitive" yaml:"case_sensitive"`
	MatchStrategy string              `mapstructure:"match_strategy" yaml:"match_strategy"`
	Rules         []KeywordRuleConfig `mapstructure:"rules" yaml:"rules"`
}

// KeywordRuleConfig is one raw keyword rule. Malformed rules are dropped at
// load time rather than failing the whole configuration.
type KeywordRuleConfig struct {
	Keywords      []string `mapstructure:"keywords" yaml:"keywords"`
	Prompt        string   `mapstructure:"prompt" yaml:"prompt"`
	Priority      int      `mapstructure:"priority" yaml:"priority"`
	CaseSensitive *bool    `mapstructure:"case_sensitive" yaml:"case_sensitive"`
}

// ConversationContextConfig sizes the context window.
type ConversationContextConfig struct {
	Enable              bool          `mapstructure:"enable" yaml:"enable"`
	MaxMessages         int           `mapstructure:"max_messages" yaml:"max_messages"                   validate:"min=0"`
	AnchorTailCount     int           `mapstructure:"anchor_tail_count" yaml:"anchor_tail_count"         validate:"min=0"`
	FetchHeadroomFactor float64       `mapstructure:"fetch_headroom_factor" yaml:"fetch_headroom_factor" validate:"min=0"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"                             validate:"required_if=Enable true,min=0"`
}

// ContentGenerationConfig controls prompt extras and search augmentation.
type ContentGenerationConfig struct {
	EnableTools       bool          `mapstructure:"enable_tools" yaml:"enable_tools"`
	SearchToolNames   []string      `mapstructure:"search_tool_names" yaml:"search_tool_names"`
	ExtraPrompt       string        `mapstructure:"extra_prompt" yaml:"extra_prompt"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" yaml:"generation_timeout" validate:"min=0"`
}

// DetailedExplanationConfig controls activation and delivery.
type DetailedExplanationConfig struct {
	Enable             bool          `mapstructure:"enable" yaml:"enable"`
	ActivationKeywords []string      `mapstructure:"activation_keywords" yaml:"activation_keywords"`
	MaxTotalLength     int           `mapstructure:"max_total_length" yaml:"max_total_length" validate:"min=0"`
	SegmentLength      int           `mapstructure:"segment_length" yaml:"segment_length"     validate:"min=1"`
	MinSegments        int           `mapstructure:"min_segments" yaml:"min_segments"         validate:"min=1"`
	MaxSegments        int           `mapstructure:"max_segments" yaml:"max_segments"         validate:"min=1,gtefield=MinSegments"`
	SendDelay          time.Duration `mapstructure:"send_delay" yaml:"send_delay"             validate:"min=0"`
	ShowProgress       bool          `mapstructure:"show_progress" yaml:"show_progress"`
	StripMarkdown      bool          `mapstructure:"strip_markdown" yaml:"strip_markdown"`
	ShowStartHint      bool          `mapstructure:"show_start_hint" yaml:"show_start_hint"`
	StartHintMessage   string        `mapstructure:"start_hint_message" yaml:"start_hint_message"`
}

// SegmentationConfig selects the segmentation algorithm.
type SegmentationConfig struct {
	Algorithm              string   `mapstructure:"algorithm" yaml:"algorithm"                       validate:"oneof=smart sentence length"`
	SentenceSeparators     []string `mapstructure:"sentence_separators" yaml:"sentence_separators"`
	KeepParagraphIntegrity bool     `mapstructure:"keep_paragraph_integrity" yaml:"keep_paragraph_integrity"`
	MinParagraphLength     int      `mapstructure:"min_paragraph_length" yaml:"min_paragraph_length" validate:"min=0"`
}

// SchedulerConfig lists maintenance tasks by registry name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" yaml:"tasks" validate:"dive"`
}

// TaskConfig schedules one task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Schedule string `mapstructure:"schedule" yaml:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds user-facing strings.
type MessagesConfig struct {
	Welcome              string `mapstructure:"welcome" yaml:"welcome"`
	Help                 string `mapstructure:"help" yaml:"help"`
	HelpKeywordsFmt      string `mapstructure:"help_keywords_fmt" yaml:"help_keywords_fmt"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized" yaml:"error_unauthorized"`
	ErrorGeneralMsg      string `mapstructure:"error_general" yaml:"error_general"`
	ExplainUsageMsg      string `mapstructure:"explain_usage" yaml:"explain_usage"`
	ExplainDisabledMsg   string `mapstructure:"explain_disabled" yaml:"explain_disabled"`
	GenerationFailedMsg  string `mapstructure:"generation_failed" yaml:"generation_failed"`
	MoodUsageMsg         string `mapstructure:"mood_usage" yaml:"mood_usage"`
	MoodSetFmt           string `mapstructure:"mood_set_fmt" yaml:"mood_set_fmt"`
	MoodCurrentFmt       string `mapstructure:"mood_current_fmt" yaml:"mood_current_fmt"`
}

// LoadConfig reads path, overlays BOT_* environment variables on top of the
// file and defaults, and validates the result. A missing file is tolerated so
// the bot can run from the environment alone.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %w", ErrConfiguration, path, err)
		}
		slog.Warn("Config file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints. Keyword rules are checked separately
// by KeywordConfig because a bad rule is not fatal.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
