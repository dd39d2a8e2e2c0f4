// Package fabrikconfig loads cmd/fabrik's run configuration the way the
// teacher's pkg/config loads agent configuration: a koanf instance fed by
// the file provider and the YAML parser, with ${env.NAME} expansion and
// optional .env loading and config-file watching layered on top.
package fabrikconfig

import (
	"fmt"
	"time"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/gateway"
)

// ProviderKind selects which gateway.Provider construction to use.
type ProviderKind string

const (
	ProviderOpenAI         ProviderKind = "openai"
	ProviderAnthropic      ProviderKind = "anthropic"
	ProviderChatGPTSession ProviderKind = "chatgpt-session"
)

// ProviderConfig selects and authenticates the LLM gateway provider used
// for discovery, generation, and LLM-backed assertions.
type ProviderConfig struct {
	Kind    ProviderKind `yaml:"kind"`
	APIKey  string       `yaml:"apiKey,omitempty"`
	Model   string       `yaml:"model,omitempty"`
	BaseURL string       `yaml:"baseURL,omitempty"`
	// AuthPath is the chatgpt-session provider's saved session path.
	AuthPath string `yaml:"authPath,omitempty"`
}

// BuildProvider constructs the gateway.Provider described by c. Callers
// that want instrumentation wrap the result before passing it to
// gateway.New; BuildGateway does that without instrumentation for callers
// that don't need it (tests, simple scripts).
func (c ProviderConfig) BuildProvider() (gateway.Provider, error) {
	switch c.Kind {
	case ProviderOpenAI:
		return gateway.NewOpenAIProvider(c.APIKey, c.Model, c.BaseURL), nil
	case ProviderAnthropic:
		return gateway.NewAnthropicProvider(c.APIKey, c.Model), nil
	case ProviderChatGPTSession:
		return gateway.NewChatGPTSessionProvider(c.Model, c.AuthPath), nil
	default:
		return nil, fmt.Errorf("fabrikconfig: unknown provider kind %q", c.Kind)
	}
}

// BuildGateway constructs an uninstrumented gateway.Gateway from c.
func (c ProviderConfig) BuildGateway() (*gateway.Gateway, error) {
	provider, err := c.BuildProvider()
	if err != nil {
		return nil, err
	}
	return gateway.New(provider), nil
}

// DiscoveryConfig tunes pkg/discovery.
type DiscoveryConfig struct {
	// SourceKind and SourceValue identify the AUT, mirroring
	// profile.Source: "repo-url"/"local-dir" drive RunCodebase,
	// "http-endpoint" drives RunHTTP.
	SourceKind      string `yaml:"sourceKind,omitempty"`
	SourceValue     string `yaml:"sourceValue,omitempty"`
	RootDir         string `yaml:"rootDir,omitempty"`
	DescriptionHint string `yaml:"descriptionHint,omitempty"`
}

// GenerateConfig tunes pkg/generator.
type GenerateConfig struct {
	Count      int      `yaml:"count,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	OutputDir  string   `yaml:"outputDir,omitempty"`
}

// RunConfig tunes pkg/runner.
type RunConfig struct {
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Retries     int           `yaml:"retries,omitempty"`
	Parallelism int           `yaml:"parallelism,omitempty"`
	ScenarioDir string        `yaml:"scenarioDir,omitempty"`
	Tag         string        `yaml:"tag,omitempty"`
}

// TraceConfig points at pkg/tracestore's SQLite database and the diff
// regression threshold.
type TraceConfig struct {
	DBPath              string  `yaml:"dbPath,omitempty"`
	RegressionThreshold float64 `yaml:"regressionThreshold,omitempty"`
}

// Config is the top-level structure cmd/fabrik loads from a YAML file.
type Config struct {
	Version   string          `yaml:"version,omitempty"`
	Provider  ProviderConfig  `yaml:"provider"`
	Adapter   adapter.Config  `yaml:"adapter"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
	Generate  GenerateConfig  `yaml:"generate,omitempty"`
	Run       RunConfig       `yaml:"run,omitempty"`
	Trace     TraceConfig     `yaml:"trace,omitempty"`
}

// applyDefaults fills in zero-valued fields cmd/fabrik and the libraries
// otherwise default internally, so a loaded Config is always complete
// enough to act on directly.
func (c *Config) applyDefaults() {
	if c.Run.Parallelism < 1 {
		c.Run.Parallelism = 1
	}
	if c.Run.Timeout <= 0 {
		c.Run.Timeout = 30 * time.Second
	}
	if c.Generate.Count <= 0 {
		c.Generate.Count = 10
	}
	if c.Trace.RegressionThreshold <= 0 {
		c.Trace.RegressionThreshold = 0.05
	}
	if c.Trace.DBPath == "" {
		c.Trace.DBPath = "fabrik-traces.db"
	}
}

// Validate checks the loaded Config is well-formed enough to build a
// pipeline from.
func (c Config) Validate() error {
	if c.Provider.Kind == "" {
		return fmt.Errorf("fabrikconfig: provider.kind is required")
	}
	if err := c.Adapter.Validate(); err != nil {
		return fmt.Errorf("fabrikconfig: %w", err)
	}
	return nil
}
