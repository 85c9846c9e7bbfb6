package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seeds used to derive the accounts that belong to a stake account. Every
// derivation is rooted at the positions account key.
const (
	AuthoritySeed            = "authority"
	CustodySeed              = "custody"
	StakeAccountMetadataSeed = "stake_metadata"
	ConfigSeed               = "config"
)

// DerivedAccount is a program address together with the bump that makes it
// fall off the ed25519 curve.
type DerivedAccount struct {
	Address solana.PublicKey
	Bump    uint8
}

// Authorizer is the capability check that runs before every mutating
// operation. It answers two questions: does the caller own the stake account,
// and are the accounts recorded for it the canonical derived ones.
type Authorizer struct {
	programID solana.PublicKey
}

// NewAuthorizer returns an authorizer deriving addresses under programID.
func NewAuthorizer(programID solana.PublicKey) *Authorizer {
	return &Authorizer{programID: programID}
}

// ProgramID returns the program the addresses are derived under.
func (a *Authorizer) ProgramID() solana.PublicKey { return a.programID }

// Derive finds the canonical address for seed under the given positions key.
func (a *Authorizer) Derive(seed string, positions solana.PublicKey) (DerivedAccount, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(seed), positions.Bytes()}, a.programID)
	if err != nil {
		return DerivedAccount{}, fmt.Errorf("derive %s address: %w", seed, err)
	}
	return DerivedAccount{Address: addr, Bump: bump}, nil
}

// ConfigAddress derives the global config account address.
func (a *Authorizer) ConfigAddress() (DerivedAccount, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(ConfigSeed)}, a.programID)
	if err != nil {
		return DerivedAccount{}, fmt.Errorf("derive config address: %w", err)
	}
	return DerivedAccount{Address: addr, Bump: bump}, nil
}

// NewMetadata derives every account bound to positions and records them for
// owner.
func (a *Authorizer) NewMetadata(owner, positions solana.PublicKey) (StakeAccountMetadata, error) {
	metadata, err := a.Derive(StakeAccountMetadataSeed, positions)
	if err != nil {
		return StakeAccountMetadata{}, err
	}
	custody, err := a.Derive(CustodySeed, positions)
	if err != nil {
		return StakeAccountMetadata{}, err
	}
	authority, err := a.Derive(AuthoritySeed, positions)
	if err != nil {
		return StakeAccountMetadata{}, err
	}
	return StakeAccountMetadata{
		Owner:         owner,
		Positions:     positions,
		Metadata:      metadata.Address,
		Custody:       custody.Address,
		Authority:     authority.Address,
		MetadataBump:  metadata.Bump,
		CustodyBump:   custody.Bump,
		AuthorityBump: authority.Bump,
	}, nil
}

// VerifyBinding checks that the metadata records the canonical derived
// addresses for its positions key, using the stored bumps.
func (a *Authorizer) VerifyBinding(meta StakeAccountMetadata) error {
	checks := []struct {
		seed string
		addr solana.PublicKey
		bump uint8
	}{
		{StakeAccountMetadataSeed, meta.Metadata, meta.MetadataBump},
		{CustodySeed, meta.Custody, meta.CustodyBump},
		{AuthoritySeed, meta.Authority, meta.AuthorityBump},
	}
	for _, c := range checks {
		want, err := solana.CreateProgramAddress([][]byte{[]byte(c.seed), meta.Positions.Bytes(), {c.bump}}, a.programID)
		if err != nil || !want.Equals(c.addr) {
			return fmt.Errorf("%w: %s account %s", ErrNonCanonicalAccount, c.seed, c.addr)
		}
	}
	return nil
}

// CheckTokenAccount rejects a deposit source or withdrawal destination that
// is the stake account's own custody, the zero key, or any derived address.
// Derived addresses sit off the ed25519 curve, so only wallet keys pass.
func (a *Authorizer) CheckTokenAccount(meta StakeAccountMetadata, account solana.PublicKey) error {
	switch {
	case account.Equals(meta.Custody):
		return fmt.Errorf("%w: %s is the custody of %s", ErrInvalidTokenAccount, account, meta.Positions)
	case account.IsZero():
		return fmt.Errorf("%w: zero key", ErrInvalidTokenAccount)
	case !account.IsOnCurve():
		return fmt.Errorf("%w: %s is a derived address", ErrInvalidTokenAccount, account)
	}
	return nil
}

// Authorize verifies the binding and that caller is the recorded owner.
func (a *Authorizer) Authorize(meta StakeAccountMetadata, caller solana.PublicKey) error {
	if err := a.VerifyBinding(meta); err != nil {
		return err
	}
	if caller.IsZero() || !caller.Equals(meta.Owner) {
		return ErrUnauthorized
	}
	return nil
}
