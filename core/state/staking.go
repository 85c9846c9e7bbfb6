package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"stakeledger/native/staking"
	"stakeledger/storage"
)

const stakeAccountVersion uint8 = 1

var (
	errUnsupportedVersion = errors.New("state: unsupported stake account record version")
	errInsolventRecord    = errors.New("state: stake account positions exceed custody balance")
)

// StakingStore persists stake accounts as RLP records under hashed keys. It
// implements the state backend expected by the staking engine.
type StakingStore struct {
	db storage.Database
}

// NewStakingStore wraps db.
func NewStakingStore(db storage.Database) *StakingStore {
	return &StakingStore{db: db}
}

type storedPosition struct {
	Product   [32]byte
	Publisher [32]byte
	Amount    uint64
}

type storedSchedule struct {
	Kind           uint8
	Start          uint64
	Cliff          uint64
	End            uint64
	PeriodDuration uint64
	NumPeriods     uint64
}

type storedStakeAccount struct {
	Version       uint8
	Owner         [32]byte
	Positions     [32]byte
	Metadata      [32]byte
	Custody       [32]byte
	Authority     [32]byte
	MetadataBump  uint8
	CustodyBump   uint8
	AuthorityBump uint8
	Mint          [32]byte
	TotalAmount   uint64
	Schedule      storedSchedule
	Slots         []storedPosition
}

func newStoredStakeAccount(acct *staking.StakeAccount) *storedStakeAccount {
	meta := acct.Metadata
	sched := acct.Custody.Vesting
	stored := &storedStakeAccount{
		Version:       stakeAccountVersion,
		Owner:         meta.Owner,
		Positions:     meta.Positions,
		Metadata:      meta.Metadata,
		Custody:       meta.Custody,
		Authority:     meta.Authority,
		MetadataBump:  meta.MetadataBump,
		CustodyBump:   meta.CustodyBump,
		AuthorityBump: meta.AuthorityBump,
		Mint:          acct.Custody.Mint,
		TotalAmount:   acct.Custody.TotalAmount,
		Schedule: storedSchedule{
			Kind:           uint8(sched.Kind),
			Start:          uint64(sched.Start),
			Cliff:          uint64(sched.Cliff),
			End:            uint64(sched.End),
			PeriodDuration: uint64(sched.PeriodDuration),
			NumPeriods:     sched.NumPeriods,
		},
	}
	slots := acct.Positions.Slots()
	stored.Slots = make([]storedPosition, len(slots))
	for i, p := range slots {
		stored.Slots[i] = storedPosition{Product: p.Product, Publisher: p.Publisher, Amount: p.Amount}
	}
	return stored
}

func (s *storedStakeAccount) toStakeAccount() (*staking.StakeAccount, error) {
	if s.Version != stakeAccountVersion {
		return nil, fmt.Errorf("%w: %d", errUnsupportedVersion, s.Version)
	}
	sched := staking.VestingSchedule{
		Kind:           staking.ScheduleKind(s.Schedule.Kind),
		Start:          int64(s.Schedule.Start),
		Cliff:          int64(s.Schedule.Cliff),
		End:            int64(s.Schedule.End),
		PeriodDuration: int64(s.Schedule.PeriodDuration),
		NumPeriods:     s.Schedule.NumPeriods,
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	slots := make([]staking.Position, len(s.Slots))
	for i, p := range s.Slots {
		slots[i] = staking.Position{Product: p.Product, Publisher: p.Publisher, Amount: p.Amount}
	}
	ledger, err := staking.LoadPositionLedger(slots)
	if err != nil {
		return nil, err
	}
	staked, err := ledger.Staked()
	if err != nil {
		return nil, err
	}
	if staked > s.TotalAmount {
		return nil, fmt.Errorf("%w: staked %d, custody %d", errInsolventRecord, staked, s.TotalAmount)
	}
	return &staking.StakeAccount{
		Metadata: staking.StakeAccountMetadata{
			Owner:         s.Owner,
			Positions:     s.Positions,
			Metadata:      s.Metadata,
			Custody:       s.Custody,
			Authority:     s.Authority,
			MetadataBump:  s.MetadataBump,
			CustodyBump:   s.CustodyBump,
			AuthorityBump: s.AuthorityBump,
		},
		Custody: staking.CustodyAccount{
			Mint:        s.Mint,
			TotalAmount: s.TotalAmount,
			Vesting:     sched,
		},
		Positions: ledger,
	}, nil
}

func hashedStakeAccountKey(handle solana.PublicKey) []byte {
	return ethcrypto.Keccak256(StakeAccountKey(handle))
}

// StakeAccountGet loads the account stored for handle.
func (s *StakingStore) StakeAccountGet(handle solana.PublicKey) (*staking.StakeAccount, bool, error) {
	data, err := s.db.Get(hashedStakeAccountKey(handle))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stored := new(storedStakeAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("decode stake account %s: %w", handle, err)
	}
	acct, err := stored.toStakeAccount()
	if err != nil {
		return nil, false, fmt.Errorf("decode stake account %s: %w", handle, err)
	}
	return acct, true, nil
}

// StakeAccountPut writes acct under its handle.
func (s *StakingStore) StakeAccountPut(acct *staking.StakeAccount) error {
	if acct == nil || acct.Positions == nil {
		return fmt.Errorf("state: nil stake account")
	}
	encoded, err := rlp.EncodeToBytes(newStoredStakeAccount(acct))
	if err != nil {
		return err
	}
	return s.db.Put(hashedStakeAccountKey(acct.Handle()), encoded)
}

// StakeAccountDelete removes the record for handle. Deleting a missing record
// is not an error.
func (s *StakingStore) StakeAccountDelete(handle solana.PublicKey) error {
	return s.db.Delete(hashedStakeAccountKey(handle))
}
