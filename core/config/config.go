package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EngineService  = "service"
	EngineDeepgram = "deepgram"
	EngineGroq     = "groq"
)

// Config holds the settings shared by all ordersim commands. Zero values in
// a file keep the defaults.
type Config struct {
	Scenarios     string              `yaml:"scenarios"`
	Service       ServiceConfig       `yaml:"service"`
	Simulation    SimulationConfig    `yaml:"simulation"`
	Speech        SpeechConfig        `yaml:"speech"`
	Parser        ParserConfig        `yaml:"parser"`
	Transcription TranscriptionConfig `yaml:"transcription"`
}

type ServiceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SimulationConfig struct {
	MessageDelay *time.Duration `yaml:"message_delay"`
}

type SpeechConfig struct {
	OutputDir string `yaml:"output_dir"`
	AssetRoot string `yaml:"asset_root"`
	// Engine is one of auto, rest or stream.
	Engine string            `yaml:"engine"`
	Voices map[string]string `yaml:"voices"`
	APIKey string            `yaml:"deepgram_api_key"`
}

type ParserConfig struct {
	// Backend is service or groq.
	Backend   string `yaml:"backend"`
	GroqModel string        `yaml:"groq_model"`
	APIKey    string        `yaml:"groq_api_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

type TranscriptionConfig struct {
	// Engine is service or deepgram.
	Engine string `yaml:"engine"`
	Model  string `yaml:"model"`
}

func Default() *Config {
	delay := 500 * time.Millisecond
	return &Config{
		Scenarios: filepath.Join("public", "tts", "conversations.json"),
		Service: ServiceConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Simulation: SimulationConfig{MessageDelay: &delay},
		Speech: SpeechConfig{
			OutputDir: filepath.Join("public", "tts"),
			AssetRoot: "/tts",
			Engine:    "auto",
		},
		Parser:        ParserConfig{Backend: EngineService, Timeout: 30 * time.Second},
		Transcription: TranscriptionConfig{Engine: EngineService},
	}
}

// Load reads a YAML config on top of the defaults and applies environment
// overrides. An empty path only uses defaults and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if baseURL := os.Getenv("ORDERSIM_BASE_URL"); baseURL != "" {
		c.Service.BaseURL = baseURL
	}
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" {
		c.Speech.APIKey = key
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Parser.APIKey = key
	}
}

// MessageDelay is the pause between replayed messages.
func (c *Config) MessageDelay() time.Duration {
	if c.Simulation.MessageDelay == nil {
		return 0
	}
	return *c.Simulation.MessageDelay
}

func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Service.BaseURL, "http://") && !strings.HasPrefix(c.Service.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("service.base_url must be an http(s) URL, got %q", c.Service.BaseURL))
	}
	if c.Service.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("service.timeout must be positive"))
	}
	if c.Parser.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("parser.timeout must be positive"))
	}
	if c.MessageDelay() < 0 {
		errs = append(errs, fmt.Errorf("simulation.message_delay must not be negative"))
	}
	switch c.Speech.Engine {
	case "auto", "rest", "stream":
	default:
		errs = append(errs, fmt.Errorf("speech.engine must be auto, rest or stream, got %q", c.Speech.Engine))
	}
	for role := range c.Speech.Voices {
		if role != "customer" && role != "seller" {
			errs = append(errs, fmt.Errorf("speech.voices has unknown role %q", role))
		}
	}
	if c.Parser.Backend != EngineService && c.Parser.Backend != EngineGroq {
		errs = append(errs, fmt.Errorf("parser.backend must be %s or %s, got %q", EngineService, EngineGroq, c.Parser.Backend))
	}
	if c.Transcription.Engine != EngineService && c.Transcription.Engine != EngineDeepgram {
		errs = append(errs, fmt.Errorf("transcription.engine must be %s or %s, got %q", EngineService, EngineDeepgram, c.Transcription.Engine))
	}
	return errors.Join(errs...)
}
