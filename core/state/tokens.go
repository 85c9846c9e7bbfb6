package state

import (
	"errors"
	"fmt"
	"math"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"stakeledger/storage"
)

var (
	// ErrInsufficientFunds is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	// ErrBalanceOverflow is returned when a credit would overflow the
	// recipient's balance.
	ErrBalanceOverflow = errors.New("token: balance overflow")
	// ErrSelfTransfer is returned when the source and destination are the
	// same token account.
	ErrSelfTransfer = errors.New("token: source and destination are the same account")
)

// TokenLedger keeps balances of a single mint keyed by token account. It is
// the transfer primitive the staking engine moves custody funds through.
type TokenLedger struct {
	db   storage.Database
	mint solana.PublicKey
}

// NewTokenLedger returns a ledger for mint backed by db.
func NewTokenLedger(db storage.Database, mint solana.PublicKey) *TokenLedger {
	return &TokenLedger{db: db, mint: mint}
}

// Mint returns the token mint the ledger tracks.
func (l *TokenLedger) Mint() solana.PublicKey { return l.mint }

// Balance returns the balance held by owner.
func (l *TokenLedger) Balance(owner solana.PublicKey) (uint64, error) {
	data, err := l.db.Get(ethcrypto.Keccak256(TokenBalanceKey(l.mint, owner)))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var amount uint64
	if err := rlp.DecodeBytes(data, &amount); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	return amount, nil
}

func (l *TokenLedger) setBalance(owner solana.PublicKey, amount uint64) error {
	key := ethcrypto.Keccak256(TokenBalanceKey(l.mint, owner))
	if amount == 0 {
		return l.db.Delete(key)
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return l.db.Put(key, encoded)
}

// Credit adds amount to owner's balance. It is used to fund accounts.
func (l *TokenLedger) Credit(owner solana.PublicKey, amount uint64) error {
	balance, err := l.Balance(owner)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-balance {
		return ErrBalanceOverflow
	}
	return l.setBalance(owner, balance+amount)
}

// Transfer moves amount from one token account to another. On failure both
// balances are left unchanged.
func (l *TokenLedger) Transfer(from, to solana.PublicKey, amount uint64) error {
	if from.Equals(to) {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, from)
	}
	fromBal, err := l.Balance(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, fromBal, amount)
	}
	toBal, err := l.Balance(to)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-toBal {
		return ErrBalanceOverflow
	}
	if err := l.setBalance(from, fromBal-amount); err != nil {
		return err
	}
	if err := l.setBalance(to, toBal+amount); err != nil {
		if rerr := l.setBalance(from, fromBal); rerr != nil {
			return errors.Join(err, fmt.Errorf("restore sender balance: %w", rerr))
		}
		return err
	}
	return nil
}
