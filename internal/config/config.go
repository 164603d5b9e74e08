package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret      string `yaml:"jwt_secret"`
		TokenTTLHours  int64  `yaml:"token_ttl_hours"`
		AllowAnonymous bool   `yaml:"allow_anonymous"`
	} `yaml:"auth"`
	ModelService struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"model_service"`
	Inference struct {
		Workers        int            `yaml:"workers"`
		QueueSize      int            `yaml:"queue_size"`
		MaxLength      int            `yaml:"max_length"`
		CrisisPhrases  []CrisisPhrase `yaml:"crisis_phrases"`
		CrisisSeverity int            `yaml:"crisis_severity"`
	} `yaml:"inference"`
	Chat struct {
		IdleTimeoutSeconds int64 `yaml:"idle_timeout_seconds"`
	} `yaml:"chat"`
	Escalation struct {
		CheckIntervalSeconds int64 `yaml:"check_interval_seconds"`
		ThresholdMinutes     int64 `yaml:"threshold_minutes"`
	} `yaml:"escalation"`
	Notifier struct {
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   int64  `yaml:"telegram_chat_id"`
	} `yaml:"notifier"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// CrisisPhrase is one reviewed crisis indicator with its severity grade
// (1..10). Phrases with no severity in the config file fall back to
// inference.crisis_severity.
type CrisisPhrase struct {
	Phrase   string `yaml:"phrase"`
	Severity int    `yaml:"severity"`
}

// DefaultCrisisPhrases mirrors the graded phrase list the counseling team
// reviewed. Matching is case-insensitive substring search; explicit mentions
// grade higher than despair language.
var DefaultCrisisPhrases = []CrisisPhrase{
	{Phrase: "suicide", Severity: 10},
	{Phrase: "kill myself", Severity: 10},
	{Phrase: "end my life", Severity: 10},
	{Phrase: "want to die", Severity: 9},
	{Phrase: "better off dead", Severity: 9},
	{Phrase: "end it all", Severity: 9},
	{Phrase: "no point living", Severity: 8},
	{Phrase: "can't go on", Severity: 8},
	{Phrase: "self harm", Severity: 7},
	{Phrase: "hurt myself", Severity: 7},
	{Phrase: "hopeless", Severity: 6},
}

// LoadConfig reads configuration from the specified YAML file. Secrets may be
// overridden from the environment so they stay out of the config file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (config file or JWT_SECRET env)")
	}

	return config, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		cfg.ModelService.URL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifier.TelegramBotToken = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.ModelService.TimeoutSeconds <= 0 {
		cfg.ModelService.TimeoutSeconds = 30
	}
	if cfg.Inference.Workers <= 0 {
		cfg.Inference.Workers = 4
	}
	if cfg.Inference.QueueSize <= 0 {
		cfg.Inference.QueueSize = 64
	}
	if cfg.Inference.MaxLength <= 0 {
		cfg.Inference.MaxLength = 512
	}
	if cfg.Inference.CrisisSeverity <= 0 {
		cfg.Inference.CrisisSeverity = 8
	}
	if len(cfg.Inference.CrisisPhrases) == 0 {
		cfg.Inference.CrisisPhrases = DefaultCrisisPhrases
	}
	for i := range cfg.Inference.CrisisPhrases {
		if cfg.Inference.CrisisPhrases[i].Severity <= 0 {
			cfg.Inference.CrisisPhrases[i].Severity = cfg.Inference.CrisisSeverity
		}
	}
	if cfg.Chat.IdleTimeoutSeconds <= 0 {
		cfg.Chat.IdleTimeoutSeconds = 300
	}
	if cfg.Escalation.CheckIntervalSeconds <= 0 {
		cfg.Escalation.CheckIntervalSeconds = 300
	}
	if cfg.Escalation.ThresholdMinutes <= 0 {
		cfg.Escalation.ThresholdMinutes = 30
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
}
