package config

import "fmt"

// Validate checks the configuration for contradictions and missing
// required fields. Defaults are assumed to have been applied.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic":
	default:
		return fmt.Errorf("llm.provider: unsupported provider %q", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key: required (set ANTHROPIC_API_KEY and use ${ANTHROPIC_API_KEY})")
	}

	switch c.Maps.Provider {
	case "amap", "tencent":
	default:
		return fmt.Errorf("maps.provider: unsupported provider %q", c.Maps.Provider)
	}
	if c.Maps.APIKey == "" {
		return fmt.Errorf("maps.api_key: required")
	}

	switch c.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger.format: unsupported format %q", c.Logger.Format)
	}

	switch c.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("tracer.exporter: unsupported exporter %q", c.Tracer.Exporter)
	}

	return nil
}
