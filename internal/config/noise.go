package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// LoadNoiseRules reads the denylist rules file. An empty path yields the
// compiled-in defaults; a present but unreadable file is an error so that a
// misconfigured deployment fails loudly at startup rather than silently
// serving unfiltered noise.
func LoadNoiseRules(path string) (domain.NoiseRules, error) {
	if path == "" {
		return domain.DefaultNoiseRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.NoiseRules{}, fmt.Errorf("read noise rules: %w", err)
	}

	var rules domain.NoiseRules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return domain.NoiseRules{}, fmt.Errorf("parse noise rules: %w", err)
	}
	return rules, nil
}
