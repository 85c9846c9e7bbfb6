package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"stakeledger/config"
	"stakeledger/native/staking"
	"stakeledger/storage"
)

var (
	testProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	testMint      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testOwner     = solana.PublicKey{0x0A}
	testHandle    = solana.PublicKey{0x0B}
	testProduct   = solana.PublicKey{0x0C}
	testPublisher = solana.PublicKey{0x0D}
	testFunder    = solana.NewWallet().PublicKey()
	testPayee     = solana.NewWallet().PublicKey()
)

func newEngine(db storage.Database, maxPositions int) (*staking.Engine, *TokenLedger) {
	tokens := NewTokenLedger(db, testMint)
	engine := staking.NewEngine(config.Staking{
		ProgramID:    testProgramID,
		TokenMint:    testMint,
		MaxPositions: maxPositions,
	})
	engine.SetState(NewStakingStore(db))
	engine.SetTransferer(tokens)
	return engine, tokens
}

func TestStakingStoreRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	store := NewStakingStore(db)

	auth := staking.NewAuthorizer(testProgramID)
	meta, err := auth.NewMetadata(testOwner, testHandle)
	require.NoError(t, err)
	schedule, err := staking.NewPeriodicSchedule(1_000, 60, 12)
	require.NoError(t, err)
	ledger, err := staking.NewPositionLedger(5)
	require.NoError(t, err)
	acct := &staking.StakeAccount{
		Metadata:  meta,
		Custody:   staking.CustodyAccount{Mint: testMint, TotalAmount: 900, Vesting: schedule},
		Positions: ledger,
	}
	_, err = acct.CreatePosition(testProduct, testPublisher, 300)
	require.NoError(t, err)
	_, err = acct.CreatePosition(testProduct, testPublisher, 200)
	require.NoError(t, err)
	_, err = acct.Positions.ClosePosition(0)
	require.NoError(t, err)

	require.NoError(t, store.StakeAccountPut(acct))
	loaded, ok, err := store.StakeAccountGet(testHandle)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, acct.Metadata, loaded.Metadata)
	require.Equal(t, acct.Custody, loaded.Custody)
	require.Equal(t, acct.Positions.Slots(), loaded.Positions.Slots())
	require.NoError(t, auth.VerifyBinding(loaded.Metadata))

	require.NoError(t, store.StakeAccountDelete(testHandle))
	_, ok, err = store.StakeAccountGet(testHandle)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStakingStoreRejectsCorruptRecord(t *testing.T) {
	db := storage.NewMemDB()
	store := NewStakingStore(db)
	require.NoError(t, db.Put(hashedStakeAccountKey(testHandle), []byte{0xFF, 0x00}))
	_, _, err := store.StakeAccountGet(testHandle)
	require.Error(t, err)
}

func TestStakingStoreRejectsInsolventRecord(t *testing.T) {
	db := storage.NewMemDB()
	store := NewStakingStore(db)

	meta, err := staking.NewAuthorizer(testProgramID).NewMetadata(testOwner, testHandle)
	require.NoError(t, err)
	ledger, err := staking.NewPositionLedger(2)
	require.NoError(t, err)
	acct := &staking.StakeAccount{
		Metadata:  meta,
		Custody:   staking.CustodyAccount{Mint: testMint, TotalAmount: 500, Vesting: staking.FullyVested()},
		Positions: ledger,
	}
	_, err = acct.CreatePosition(testProduct, testPublisher, 400)
	require.NoError(t, err)

	record := newStoredStakeAccount(acct)
	record.TotalAmount = 100
	encoded, err := rlp.EncodeToBytes(record)
	require.NoError(t, err)
	require.NoError(t, db.Put(hashedStakeAccountKey(testHandle), encoded))

	_, _, err = store.StakeAccountGet(testHandle)
	require.ErrorIs(t, err, errInsolventRecord)
}

func TestDepositRejectsCustodySources(t *testing.T) {
	db := storage.NewMemDB()
	engine, tokens := newEngine(db, 0)
	require.NoError(t, tokens.Credit(testFunder, 700))

	acct, err := engine.CreateStakeAccount(testHandle, testOwner, staking.FullyVested())
	require.NoError(t, err)
	require.NoError(t, engine.Deposit(testHandle, testFunder, 200))

	other := solana.PublicKey{0x0E}
	otherAcct, err := engine.CreateStakeAccount(other, testOwner, staking.FullyVested())
	require.NoError(t, err)
	require.NoError(t, engine.Deposit(other, testFunder, 500))

	// A self deposit would be a no-op transfer that still credits custody.
	require.ErrorIs(t, engine.Deposit(testHandle, acct.Metadata.Custody, 200), staking.ErrInvalidTokenAccount)
	// Depositing out of another account's custody would drain its escrow.
	require.ErrorIs(t, engine.Deposit(testHandle, otherAcct.Metadata.Custody, 500), staking.ErrInvalidTokenAccount)

	stored, err := engine.StakeAccount(testHandle)
	require.NoError(t, err)
	require.EqualValues(t, 200, stored.Custody.TotalAmount)
	bal, err := tokens.Balance(otherAcct.Metadata.Custody)
	require.NoError(t, err)
	require.EqualValues(t, 500, bal)
	otherStored, err := engine.StakeAccount(other)
	require.NoError(t, err)
	require.EqualValues(t, 500, otherStored.Custody.TotalAmount)
}

func TestWithdrawRejectsOwnCustodyDestination(t *testing.T) {
	db := storage.NewMemDB()
	engine, tokens := newEngine(db, 0)
	require.NoError(t, tokens.Credit(testFunder, 300))

	acct, err := engine.CreateStakeAccount(testHandle, testOwner, staking.FullyVested())
	require.NoError(t, err)
	require.NoError(t, engine.Deposit(testHandle, testFunder, 300))

	err = engine.Withdraw(testHandle, testOwner, acct.Metadata.Custody, 300, 0)
	require.ErrorIs(t, err, staking.ErrInvalidTokenAccount)

	stored, err := engine.StakeAccount(testHandle)
	require.NoError(t, err)
	require.EqualValues(t, 300, stored.Custody.TotalAmount)
	require.Equal(t, staking.StatusActive, stored.Status())
	bal, err := tokens.Balance(acct.Metadata.Custody)
	require.NoError(t, err)
	require.EqualValues(t, 300, bal)
}

func TestEngineOverBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) storage.Database{
		"memory": func(t *testing.T) storage.Database {
			return storage.NewMemDB()
		},
		"leveldb": func(t *testing.T) storage.Database {
			db, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "ldb"))
			require.NoError(t, err)
			return db
		},
		"bolt": func(t *testing.T) storage.Database {
			db, err := storage.NewBoltDB(filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			return db
		},
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			defer db.Close()
			engine, tokens := newEngine(db, 2)

			funder, payee := testFunder, testPayee
			require.NoError(t, tokens.Credit(funder, 1_000))

			schedule, err := staking.NewLinearSchedule(0, 0, 100)
			require.NoError(t, err)
			acct, err := engine.CreateStakeAccount(testHandle, testOwner, schedule)
			require.NoError(t, err)
			require.NoError(t, engine.Deposit(testHandle, funder, 1_000))

			custodyBal, err := tokens.Balance(acct.Metadata.Custody)
			require.NoError(t, err)
			require.EqualValues(t, 1_000, custodyBal)

			_, err = engine.CreatePosition(testHandle, testOwner, testProduct, testPublisher, 300)
			require.NoError(t, err)
			require.ErrorIs(t, engine.Withdraw(testHandle, testOwner, payee, 250, 50), staking.ErrExceedsWithdrawable)
			require.NoError(t, engine.Withdraw(testHandle, testOwner, payee, 200, 50))

			stored, err := engine.StakeAccount(testHandle)
			require.NoError(t, err)
			require.EqualValues(t, 800, stored.Custody.TotalAmount)
			payeeBal, err := tokens.Balance(payee)
			require.NoError(t, err)
			require.EqualValues(t, 200, payeeBal)
		})
	}
}

func TestWithdrawRollbackAgainstTokenLedger(t *testing.T) {
	db := storage.NewMemDB()
	engine, tokens := newEngine(db, 0)
	funder := testFunder
	require.NoError(t, tokens.Credit(funder, 100))

	acct, err := engine.CreateStakeAccount(testHandle, testOwner, staking.FullyVested())
	require.NoError(t, err)
	require.NoError(t, engine.Deposit(testHandle, funder, 100))

	// Drain the custody token account behind the engine's back so the
	// transfer out fails.
	require.NoError(t, tokens.Transfer(acct.Metadata.Custody, funder, 100))
	err = engine.Withdraw(testHandle, testOwner, funder, 40, 0)
	require.ErrorIs(t, err, staking.ErrTransfer)
	require.True(t, errors.Is(err, ErrInsufficientFunds))

	stored, err := engine.StakeAccount(testHandle)
	require.NoError(t, err)
	require.EqualValues(t, 100, stored.Custody.TotalAmount)
}
