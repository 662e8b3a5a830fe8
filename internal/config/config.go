package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

// EnvPrefix is the namespace prefix for all Ghost Scribe environment variables.
const EnvPrefix = "GHOST_SCRIBE_"

const (
	MinSilenceTimeout = 1 * time.Second
	MaxSilenceTimeout = 20 * time.Second
)

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	DBPath                string `yaml:"db_path" env:"DB_PATH"`
	JournalDir            string `yaml:"journal_dir" env:"JOURNAL_DIR"`
	AudioDir              string `yaml:"audio_dir" env:"AUDIO_DIR"`
	KeepAudio             bool   `yaml:"keep_audio" env:"KEEP_AUDIO"`
	HTTPAddr              string `yaml:"http_addr" env:"HTTP_ADDR"`
	Sounds                bool   `yaml:"sounds" env:"SOUNDS"`
	GDriveFolderID        string `yaml:"gdrive_folder_id" env:"GDRIVE_FOLDER_ID"`
	GoogleCredentialsFile string `yaml:"google_credentials_file" env:"GOOGLE_CREDENTIALS_FILE"`

	Mic     MicConfig     `yaml:"mic" envPrefix:"MIC_"`
	Engine  EngineConfig  `yaml:"engine" envPrefix:"ENGINE_"`
	Session SessionConfig `yaml:"session" envPrefix:"SESSION_"`
	Text    TextConfig    `yaml:"text" envPrefix:"TEXT_"`
	LLM     LLMConfig     `yaml:"llm" envPrefix:"LLM_"`

	Secrets Secrets `yaml:"-"`
}

type MicConfig struct {
	SampleRate      int   `yaml:"sample_rate" env:"SAMPLE_RATE"`
	SampleRates     []int `yaml:"sample_rates" env:"SAMPLE_RATES"`
	FramesPerBuffer int   `yaml:"frames_per_buffer" env:"FRAMES_PER_BUFFER"`
}

type EngineConfig struct {
	// Backend is one of whisper, openai or deepgram.
	Backend   string `yaml:"backend" env:"BACKEND"`
	Model     string `yaml:"model" env:"MODEL"`
	ModelsDir string `yaml:"models_dir" env:"MODELS_DIR"`
	Command   string `yaml:"command" env:"COMMAND"`
	Language  string `yaml:"language" env:"LANGUAGE"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
}

type SessionConfig struct {
	// SilenceTimeout of zero or less disables auto-stop.
	SilenceTimeout     time.Duration `yaml:"silence_timeout" env:"SILENCE_TIMEOUT"`
	SilenceThreshold   float32       `yaml:"silence_threshold" env:"SILENCE_THRESHOLD"`
	LongSessionWarning time.Duration `yaml:"long_session_warning" env:"LONG_SESSION_WARNING"`
	PartialInterval    time.Duration `yaml:"partial_interval" env:"PARTIAL_INTERVAL"`
}

type TextConfig struct {
	Punctuation      bool     `yaml:"punctuation" env:"PUNCTUATION"`
	Snippets         bool     `yaml:"snippets" env:"SNIPPETS"`
	Fillers          bool     `yaml:"fillers" env:"FILLERS"`
	Vocabulary       bool     `yaml:"vocabulary" env:"VOCABULARY"`
	Rewrite          bool     `yaml:"rewrite" env:"REWRITE"`
	RewriteStyle     string   `yaml:"rewrite_style" env:"REWRITE_STYLE"`
	DisabledCommands []string `yaml:"disabled_commands" env:"DISABLED_COMMANDS"`
	SnippetsFile     string   `yaml:"snippets_file" env:"SNIPPETS_FILE"`
	VocabularyFile   string   `yaml:"vocabulary_file" env:"VOCABULARY_FILE"`
}

type LLMConfig struct {
	// Model is "provider/model_name".
	Model     string `yaml:"model" env:"MODEL"`
	MaxTokens int    `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// Secrets are read from the unprefixed provider variables. The prefixed
// form is accepted too and loses to the unprefixed one.
type Secrets struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	DeepgramAPIKey  string `env:"DEEPGRAM_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

func defaults() Config {
	return Config{
		DBPath:                "data/ghost-scribe.db",
		JournalDir:            "data/journal",
		AudioDir:              "data/audio",
		KeepAudio:             true,
		HTTPAddr:              "127.0.0.1:8765",
		Sounds:                true,
		GoogleCredentialsFile: "./service-account.json",
		Mic: MicConfig{
			SampleRate:      16000,
			SampleRates:     []int{48000, 44100},
			FramesPerBuffer: 1024,
		},
		Engine: EngineConfig{
			Backend:   "whisper",
			Model:     "base.en",
			ModelsDir: "data/models",
			Command:   "whisper-cli --no-timestamps --no-prints",
			Language:  "en",
		},
		Session: SessionConfig{
			SilenceTimeout:     2 * time.Second,
			SilenceThreshold:   0.05,
			LongSessionWarning: 60 * time.Second,
			PartialInterval:    1500 * time.Millisecond,
		},
		Text: TextConfig{
			Punctuation:    true,
			Snippets:       true,
			Fillers:        true,
			Vocabulary:     true,
			SnippetsFile:   "data/snippets.yaml",
			VocabularyFile: "data/vocabulary.yaml",
		},
		LLM: LLMConfig{
			Model:     "openai/gpt-4o-mini",
			MaxTokens: 1024,
		},
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := env.Parse(&cfg.Secrets); err != nil {
		return cfg, nil, fmt.Errorf("parse secrets: %w", err)
	}

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// SampleRateCandidates returns a deduplicated ordered list of sample rates
// to try: preferred rate first, then configured alternatives, then defaults.
func (c *Config) SampleRateCandidates() []int {
	hardcoded := []int{16000, 48000, 44100, 32000, 24000}

	combined := make([]int, 0, 1+len(c.Mic.SampleRates)+len(hardcoded))
	combined = append(combined, c.Mic.SampleRate)
	combined = append(combined, c.Mic.SampleRates...)
	combined = append(combined, hardcoded...)

	seen := make(map[int]struct{}, len(combined))
	result := make([]int, 0, len(combined))
	for _, rate := range combined {
		if rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}
	return result
}

// APIKeyFor returns the key for an LLM provider or speech backend.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case "openai":
		return c.Secrets.OpenAIAPIKey
	case "deepgram":
		return c.Secrets.DeepgramAPIKey
	case "anthropic":
		return c.Secrets.AnthropicAPIKey
	case "gemini":
		return c.Secrets.GeminiAPIKey
	default:
		return ""
	}
}

func validate(cfg *Config) []string {
	var warnings []string

	cfg.Engine.Backend = strings.ToLower(strings.TrimSpace(cfg.Engine.Backend))
	switch cfg.Engine.Backend {
	case "whisper":
	case "openai", "deepgram":
		if cfg.APIKeyFor(cfg.Engine.Backend) == "" {
			warnings = append(warnings, fmt.Sprintf("%s API key not configured, falling back to local whisper. Set %s_API_KEY.",
				cfg.Engine.Backend, strings.ToUpper(cfg.Engine.Backend)))
			cfg.Engine.Backend = "whisper"
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown engine backend %q, using whisper.", cfg.Engine.Backend))
		cfg.Engine.Backend = "whisper"
	}

	if cfg.Session.SilenceTimeout > 0 {
		if cfg.Session.SilenceTimeout < MinSilenceTimeout {
			warnings = append(warnings, fmt.Sprintf("silence_timeout %s below minimum, using %s.", cfg.Session.SilenceTimeout, MinSilenceTimeout))
			cfg.Session.SilenceTimeout = MinSilenceTimeout
		} else if cfg.Session.SilenceTimeout > MaxSilenceTimeout {
			warnings = append(warnings, fmt.Sprintf("silence_timeout %s above maximum, using %s.", cfg.Session.SilenceTimeout, MaxSilenceTimeout))
			cfg.Session.SilenceTimeout = MaxSilenceTimeout
		}
	}
	if cfg.Session.SilenceThreshold <= 0 || cfg.Session.SilenceThreshold >= 1 {
		warnings = append(warnings, fmt.Sprintf("Invalid silence_threshold %v, using 0.05.", cfg.Session.SilenceThreshold))
		cfg.Session.SilenceThreshold = 0.05
	}
	if cfg.Session.PartialInterval <= 0 {
		cfg.Session.PartialInterval = 1500 * time.Millisecond
	}

	if len(cfg.Text.DisabledCommands) > 0 {
		known := make([]string, 0, len(cfg.Text.DisabledCommands))
		for _, name := range cfg.Text.DisabledCommands {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := textproc.LookupCommand(name); !ok {
				warnings = append(warnings, fmt.Sprintf("Unknown voice command %q in disabled_commands, ignoring it. Run `ghost-scribe commands` for valid names.", name))
				continue
			}
			known = append(known, name)
		}
		cfg.Text.DisabledCommands = known
	}

	if style := strings.TrimSpace(cfg.Text.RewriteStyle); style != "" {
		if _, ok := textproc.LookupCommand("rewrite." + style); !ok {
			warnings = append(warnings, fmt.Sprintf("Unknown rewrite_style %q, rewriting only runs on spoken rewrite commands.", style))
			style = ""
		}
		cfg.Text.RewriteStyle = style
	}

	if cfg.Text.Rewrite {
		provider, _, ok := strings.Cut(cfg.LLM.Model, "/")
		switch {
		case !ok:
			warnings = append(warnings, fmt.Sprintf("Invalid llm model %q, rewriting is disabled. Use provider/model_name.", cfg.LLM.Model))
			cfg.Text.Rewrite = false
		case cfg.APIKeyFor(provider) == "":
			warnings = append(warnings, fmt.Sprintf("%s API key not configured, rewriting is disabled.", provider))
			cfg.Text.Rewrite = false
		}
	}

	if cfg.GDriveFolderID != "" {
		if _, err := os.Stat(cfg.GoogleCredentialsFile); err != nil {
			warnings = append(warnings, fmt.Sprintf("Google credentials file %q not readable, journal upload is disabled.", cfg.GoogleCredentialsFile))
			cfg.GDriveFolderID = ""
		}
	}

	return warnings
}
