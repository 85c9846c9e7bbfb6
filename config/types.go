package config

import "github.com/gagliardetto/solana-go"

// GlobalConfig is the file representation of the chain-wide staking
// parameters. Keys are base58 strings until Parse turns them into typed
// values.
type GlobalConfig struct {
	ProgramID           string  `toml:"ProgramID" yaml:"program_id"`
	GovernanceAuthority string  `toml:"GovernanceAuthority" yaml:"governance_authority"`
	TokenMint           string  `toml:"TokenMint" yaml:"token_mint"`
	UnlockingDuration   uint8   `toml:"UnlockingDuration" yaml:"unlocking_duration"`
	EpochDuration       uint64  `toml:"EpochDuration" yaml:"epoch_duration"`
	MaxPositions        int     `toml:"MaxPositions" yaml:"max_positions"`
	Storage             Storage `toml:"storage" yaml:"storage"`
	Logging             Logging `toml:"logging" yaml:"logging"`
}

// Storage selects the key-value backend the ledger state lives in.
type Storage struct {
	Backend string `toml:"Backend" yaml:"backend"`
	Path    string `toml:"Path" yaml:"path"`
}

// Logging mirrors logging.Options for file based configuration.
type Logging struct {
	Level  string `toml:"Level" yaml:"level"`
	Format string `toml:"Format" yaml:"format"`
	File   string `toml:"File" yaml:"file"`
}

// Staking is the validated, typed view of GlobalConfig injected into the
// staking engine. It is read-only once built.
type Staking struct {
	ProgramID           solana.PublicKey
	GovernanceAuthority solana.PublicKey
	TokenMint           solana.PublicKey
	UnlockingDuration   uint8
	EpochDuration       uint64
	MaxPositions        int
}

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"

	DefaultMaxPositions      = 100
	DefaultEpochDuration     = uint64(3600)
	DefaultUnlockingDuration = uint8(2)
)
