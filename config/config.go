// Package config loads engine and policy settings from YAML, translating the
// declarative file into a policy.Set and engine tuning values. Everything is
// optional; omitted sections fall back to the built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rolemesh/rolemesh/logging"
	"github.com/rolemesh/rolemesh/policy"
)

// Config is the root of the YAML document.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	Policies PoliciesConfig `yaml:"policies"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// EngineConfig carries engine tuning values.
type EngineConfig struct {
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`
}

// PoliciesConfig mirrors the policy set in declarative form.
type PoliciesConfig struct {
	Completion     CompletionConfig     `yaml:"completion"`
	Termination    TerminationConfig    `yaml:"termination"`
	LoopPrevention LoopPreventionConfig `yaml:"loop_prevention"`
	Approval       ApprovalConfig       `yaml:"approval"`
	Checkpoint     CheckpointConfig     `yaml:"checkpoint"`
	FollowUp       FollowUpConfig       `yaml:"follow_up"`
}

// CompletionConfig tunes the marker completion detector.
type CompletionConfig struct {
	Markers []string `yaml:"markers"`
	Window  int      `yaml:"window"`
}

// TerminationConfig tunes the bounded termination policy.
type TerminationConfig struct {
	MaxIterations        int      `yaml:"max_iterations"`
	OnMax                string   `yaml:"on_max"` // error or partial
	TerminalCapabilities []string `yaml:"terminal_capabilities"`
}

// LoopPreventionConfig tunes the repeat detector.
type LoopPreventionConfig struct {
	Threshold int `yaml:"threshold"`
	Window    int `yaml:"window"`
}

// ApprovalConfig tunes human approval gating.
type ApprovalConfig struct {
	Scope    string   `yaml:"scope"` // none, writes or all
	WriteSet []string `yaml:"write_set"`
}

// CheckpointConfig tunes the interval checkpoint policy.
type CheckpointConfig struct {
	Interval int `yaml:"interval"`
}

// FollowUpConfig tunes coordinator follow-up rounds.
type FollowUpConfig struct {
	MaxPhases int `yaml:"max_phases"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document and validates it.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the policies cannot honor.
func (c *Config) Validate() error {
	switch c.Policies.Termination.OnMax {
	case "", "error", "partial":
	default:
		return fmt.Errorf("termination.on_max must be \"error\" or \"partial\", got %q", c.Policies.Termination.OnMax)
	}
	switch c.Policies.Approval.Scope {
	case "", "none", "writes", "all":
	default:
		return fmt.Errorf("approval.scope must be \"none\", \"writes\" or \"all\", got %q", c.Policies.Approval.Scope)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Policies.Termination.MaxIterations < 0 {
		return fmt.Errorf("termination.max_iterations must not be negative")
	}
	return nil
}

// PolicySet builds a policy.Set from the declarative values, defaulting
// omitted fields.
func (c *Config) PolicySet() policy.Set {
	set := policy.DefaultSet()

	if p := c.Policies.Completion; len(p.Markers) > 0 || p.Window > 0 {
		set.Completion = policy.NewMarkerCompletion(func(o *policy.MarkerCompletion) {
			if len(p.Markers) > 0 {
				o.Markers = p.Markers
			}
			if p.Window > 0 {
				o.Window = p.Window
			}
		})
	}

	if p := c.Policies.Termination; p.MaxIterations > 0 || p.OnMax != "" || len(p.TerminalCapabilities) > 0 {
		set.Termination = policy.NewBoundedTermination(func(o *policy.BoundedTermination) {
			if p.MaxIterations > 0 {
				o.MaxIterations = p.MaxIterations
			}
			if p.OnMax == "partial" {
				o.OnMax = policy.OnMaxReturnPartial
			}
			if len(p.TerminalCapabilities) > 0 {
				o.TerminalCapabilities = make(map[string]bool, len(p.TerminalCapabilities))
				for _, name := range p.TerminalCapabilities {
					o.TerminalCapabilities[name] = true
				}
			}
		})
	}

	if p := c.Policies.LoopPrevention; p.Threshold > 0 || p.Window > 0 {
		set.LoopPrevention = policy.NewRepeatDetector(func(o *policy.RepeatDetector) {
			if p.Threshold > 0 {
				o.Threshold = p.Threshold
			}
			if p.Window > 0 {
				o.Window = p.Window
			}
		})
	}

	if p := c.Policies.Approval; p.Scope != "" {
		set.Approval = policy.NewScopedApproval(func(o *policy.ScopedApproval) {
			o.Scope = policy.ApprovalScope(p.Scope)
			if len(p.WriteSet) > 0 {
				o.WriteSet = make(map[string]bool, len(p.WriteSet))
				for _, name := range p.WriteSet {
					o.WriteSet[name] = true
				}
			}
		})
	}

	if p := c.Policies.Checkpoint; p.Interval > 0 {
		set.Checkpoint = policy.NewIntervalCheckpoint(func(o *policy.IntervalCheckpoint) {
			o.Interval = p.Interval
		})
	}

	if p := c.Policies.FollowUp; p.MaxPhases > 0 {
		set.FollowUp = policy.NewBoundedFollowUp(func(o *policy.BoundedFollowUp) {
			o.MaxPhases = p.MaxPhases
		})
	}

	return set
}

// Logger builds a MeshLogger from the logging section.
func (c *Config) Logger() *logging.MeshLogger {
	cfg := logging.DefaultLoggerConfig()
	switch c.Logging.Level {
	case "debug":
		cfg.Level = logging.LogLevelDebug
	case "warn":
		cfg.Level = logging.LogLevelWarn
	case "error":
		cfg.Level = logging.LogLevelError
	}
	if c.Logging.Format != "" {
		cfg.Format = c.Logging.Format
	}
	return logging.NewLogger(cfg)
}
