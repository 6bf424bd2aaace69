// Package config loads TickerDesk configuration from defaults, an optional
// YAML file and TICKERDESK_ environment overrides (in that precedence order,
// later wins). Environment keys use double underscores as section
// separators: TICKERDESK_LOG__LEVEL=debug maps to log.level,
// TICKERDESK_SEARCH__BASE_URL maps to search.base_url.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "TICKERDESK_"

// Hand-off annotation variants.
const (
	HandoffAlways    = "always"
	HandoffIfMissing = "if-missing"
)

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LLMConfig selects the model provider backing the agents. API keys are read
// by the provider SDKs from their own environment variables.
type LLMConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
}

// SearchConfig points the web_search tool at a JSON search endpoint. An
// empty base URL selects the offline static searcher.
type SearchConfig struct {
	BaseURL string `koanf:"base_url"`
}

// HandoffConfig selects the delegation annotation policy.
type HandoffConfig struct {
	Variant string `koanf:"variant"`
}

// AgentsConfig tunes per-agent conversation behavior.
type AgentsConfig struct {
	MaxHistory int `koanf:"max_history"`
}

// Config is the root configuration shape.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	LLM     LLMConfig     `koanf:"llm"`
	Search  SearchConfig  `koanf:"search"`
	Handoff HandoffConfig `koanf:"handoff"`
	Agents  AgentsConfig  `koanf:"agents"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		LLM:     LLMConfig{Provider: "openai", Model: ""},
		Search:  SearchConfig{BaseURL: ""},
		Handoff: HandoffConfig{Variant: HandoffIfMissing},
		Agents:  AgentsConfig{MaxHistory: 20},
	}
}

// Load reads configuration from the optional YAML file at path (skipped when
// empty) and TICKERDESK_ environment variables layered over the defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects unknown enum values.
func (c Config) Validate() error {
	switch c.Handoff.Variant {
	case HandoffAlways, HandoffIfMissing:
	default:
		return fmt.Errorf("invalid handoff.variant %q (want %q or %q)",
			c.Handoff.Variant, HandoffAlways, HandoffIfMissing)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "scripted":
	default:
		return fmt.Errorf("invalid llm.provider %q (want openai, anthropic or scripted)", c.LLM.Provider)
	}

	return nil
}

// envKey maps TICKERDESK_LOG__LEVEL to log.level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
