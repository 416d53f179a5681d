package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Config is the process configuration. It is built once at startup and
// passed by pointer to the components that need it; nothing mutates it
// after Load returns.
type Config struct {
	Server     Server     `yaml:"server"`
	LLM        LLM        `yaml:"llm"`
	TTS        TTS        `yaml:"tts"`
	Automation Automation `yaml:"automation"`
	YouTube    YouTube    `yaml:"youtube"`
	Logging    Logging    `yaml:"logging"`

	// Secrets holds credential values resolved from the environment.
	Secrets Secrets `yaml:"-"`
}

type Server struct {
	Port          int    `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

type LLM struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	APIKeyEnv        string        `yaml:"api_key_env"`
	MaxTokens        int           `yaml:"max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
	StructuredOutput bool          `yaml:"structured_output"`
}

type TTS struct {
	Provider    string        `yaml:"provider"`
	Language    string        `yaml:"language"`
	OutputDir   string        `yaml:"output_dir"`
	Timeout     time.Duration `yaml:"timeout"`
	OpenAIModel string        `yaml:"openai_model"`
	OpenAIVoice string        `yaml:"openai_voice"`
	APIKeyEnv   string        `yaml:"api_key_env"`
}

type Automation struct {
	Schedule    []string      `yaml:"schedule"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
	Workers     int           `yaml:"workers"`
	HistorySize int           `yaml:"history_size"`
	HistoryDB   string        `yaml:"history_db"`
}

type YouTube struct {
	ChannelIDEnv    string `yaml:"channel_id_env"`
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Secrets are the credential values named by the *_env settings.
type Secrets struct {
	LLMAPIKey           string
	TTSAPIKey           string
	ChannelID           string
	YouTubeClientID     string
	YouTubeClientSecret string
}

// HasYouTubeKeys reports whether both YouTube OAuth values are present.
func (s Secrets) HasYouTubeKeys() bool {
	return s.YouTubeClientID != "" && s.YouTubeClientSecret != ""
}

// VideosPerDay is the number of scheduled slots per day.
func (c *Config) VideosPerDay() int {
	return len(c.Automation.Schedule)
}

// ConfigDir returns the XDG config directory for ytauto.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "ytauto")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/ytauto/config.yaml > ./config.yaml.
// An empty path with a nil error means no file exists and the embedded
// defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads a config YAML file (or only the defaults when path is empty),
// loads .env if present and resolves credentials from the environment.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// A missing .env is the normal case in hosted deployments.
	_ = godotenv.Load()

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(DefaultConfigYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing default config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "huggingface", "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch strings.ToLower(c.TTS.Provider) {
	case "google", "openai":
	default:
		return fmt.Errorf("unknown tts provider %q", c.TTS.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.TTS.Language == "" {
		return fmt.Errorf("tts.language must be set")
	}
	if c.TTS.OutputDir == "" {
		return fmt.Errorf("tts.output_dir must be set")
	}
	if c.Automation.Workers <= 0 {
		c.Automation.Workers = 1
	}
	return nil
}

// applyEnv resolves the *_env settings and the PORT override.
func (c *Config) applyEnv(getenv func(string) string) error {
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}

	lookup := func(name string) string {
		if name == "" {
			return ""
		}
		return strings.TrimSpace(getenv(name))
	}

	c.Secrets = Secrets{
		LLMAPIKey:           lookup(c.LLM.APIKeyEnv),
		TTSAPIKey:           lookup(c.TTS.APIKeyEnv),
		ChannelID:           lookup(c.YouTube.ChannelIDEnv),
		YouTubeClientID:     lookup(c.YouTube.ClientIDEnv),
		YouTubeClientSecret: lookup(c.YouTube.ClientSecretEnv),
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
