package ctxmgr

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PolicyConfig is the on-disk (YAML) shape of the Policy overrides a
// deployment may supply. Fields absent from the file keep DefaultPolicy's
// value.
type PolicyConfig struct {
	SavedRatioThreshold *float64 `koanf:"savedRatioThreshold,omitempty"`
	KeepHalfPoint       *float64 `koanf:"keepHalfPoint,omitempty"`
}

// LoadPolicy reads Policy overrides from configPath, a YAML file. A missing
// file is not an error: it yields DefaultPolicy() unchanged.
func LoadPolicy(configPath string) (Policy, error) {
	policy := DefaultPolicy()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return policy, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return Policy{}, fmt.Errorf("ctxmgr: error loading policy config: %w", err)
	}

	var cfg PolicyConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return Policy{}, fmt.Errorf("ctxmgr: error unmarshaling policy config: %w", err)
	}

	if cfg.SavedRatioThreshold != nil {
		policy.SavedRatioThreshold = *cfg.SavedRatioThreshold
	}
	if cfg.KeepHalfPoint != nil {
		policy.KeepHalfPoint = *cfg.KeepHalfPoint
	}
	return policy, nil
}
