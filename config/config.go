package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration at path. Files ending in .yaml or .yml are
// decoded as YAML, everything else as TOML. The result is normalised and
// validated.
func Load(path string) (*GlobalConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path required")
	}
	cfg := &GlobalConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}

	cfg.normalize()
	if err := ValidateConfig(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *GlobalConfig) normalize() {
	c.ProgramID = strings.TrimSpace(c.ProgramID)
	c.GovernanceAuthority = strings.TrimSpace(c.GovernanceAuthority)
	c.TokenMint = strings.TrimSpace(c.TokenMint)
	if c.MaxPositions == 0 {
		c.MaxPositions = DefaultMaxPositions
	}
	if c.EpochDuration == 0 {
		c.EpochDuration = DefaultEpochDuration
	}
	if c.UnlockingDuration == 0 {
		c.UnlockingDuration = DefaultUnlockingDuration
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
}

// Staking parses the key fields and returns the typed parameters.
func (c GlobalConfig) Staking() (Staking, error) {
	programID, err := parseKey("ProgramID", c.ProgramID)
	if err != nil {
		return Staking{}, err
	}
	governance, err := parseKey("GovernanceAuthority", c.GovernanceAuthority)
	if err != nil {
		return Staking{}, err
	}
	mint, err := parseKey("TokenMint", c.TokenMint)
	if err != nil {
		return Staking{}, err
	}
	return Staking{
		ProgramID:           programID,
		GovernanceAuthority: governance,
		TokenMint:           mint,
		UnlockingDuration:   c.UnlockingDuration,
		EpochDuration:       c.EpochDuration,
		MaxPositions:        c.MaxPositions,
	}, nil
}

func parseKey(field, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%s required", field)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	if key.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%s must not be the zero key", field)
	}
	return key, nil
}
