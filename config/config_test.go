package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
)

var (
	testProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	testGovernance = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	testMint       = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "staking.toml", `ProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
GovernanceAuthority = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
TokenMint = " EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v "
UnlockingDuration = 3
EpochDuration = 7200

[storage]
Backend = "LevelDB"
Path = "./data"

[logging]
Format = "console"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxPositions != DefaultMaxPositions {
		t.Fatalf("expected default max positions, got %d", cfg.MaxPositions)
	}
	if cfg.Storage.Backend != BackendLevelDB || cfg.Storage.Path != "./data" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}

	staking, err := cfg.Staking()
	if err != nil {
		t.Fatalf("staking: %v", err)
	}
	if !staking.ProgramID.Equals(testProgramID) || !staking.GovernanceAuthority.Equals(testGovernance) || !staking.TokenMint.Equals(testMint) {
		t.Fatalf("unexpected keys %+v", staking)
	}
	if staking.UnlockingDuration != 3 || staking.EpochDuration != 7200 {
		t.Fatalf("unexpected durations %+v", staking)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "staking.yaml", `program_id: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
governance_authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
token_mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
max_positions: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxPositions != 2 {
		t.Fatalf("expected max positions 2, got %d", cfg.MaxPositions)
	}
	if cfg.EpochDuration != DefaultEpochDuration || cfg.UnlockingDuration != DefaultUnlockingDuration {
		t.Fatalf("expected defaulted durations, got %+v", cfg)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "staking.toml", `ProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
GovernanceAuthority = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
TokenMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
PythTokenMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "PythTokenMint") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	base := GlobalConfig{
		ProgramID:           testProgramID.String(),
		GovernanceAuthority: testGovernance.String(),
		TokenMint:           testMint.String(),
		EpochDuration:       3600,
		MaxPositions:        100,
		Storage:             Storage{Backend: BackendMemory},
	}
	if err := ValidateConfig(base); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(*GlobalConfig){
		"missing mint":      func(c *GlobalConfig) { c.TokenMint = "" },
		"bad program id":    func(c *GlobalConfig) { c.ProgramID = "not-base58-0OIl" },
		"zero governance":   func(c *GlobalConfig) { c.GovernanceAuthority = solana.PublicKey{}.String() },
		"too many slots":    func(c *GlobalConfig) { c.MaxPositions = MaxPositionsLimit + 1 },
		"no slots":          func(c *GlobalConfig) { c.MaxPositions = 0 },
		"zero epoch":        func(c *GlobalConfig) { c.EpochDuration = 0 },
		"leveldb no path":   func(c *GlobalConfig) { c.Storage.Backend = BackendLevelDB },
		"unknown backend":   func(c *GlobalConfig) { c.Storage.Backend = "rocksdb" },
		"unknown logformat": func(c *GlobalConfig) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := ValidateConfig(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
