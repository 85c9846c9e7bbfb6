package state

import (
	"github.com/gagliardetto/solana-go"
)

var (
	stakeAccountPrefix = []byte("staking/account/")
	tokenBalancePrefix = []byte("token/balance/")
)

// StakeAccountKey returns the raw key a stake account record is filed under.
// The store hashes it before touching the database.
func StakeAccountKey(handle solana.PublicKey) []byte {
	buf := make([]byte, len(stakeAccountPrefix)+solana.PublicKeyLength)
	copy(buf, stakeAccountPrefix)
	copy(buf[len(stakeAccountPrefix):], handle[:])
	return buf
}

// TokenBalanceKey returns the raw key of owner's balance of mint.
func TokenBalanceKey(mint, owner solana.PublicKey) []byte {
	buf := make([]byte, len(tokenBalancePrefix)+2*solana.PublicKeyLength+1)
	copy(buf, tokenBalancePrefix)
	n := len(tokenBalancePrefix)
	copy(buf[n:], mint[:])
	buf[n+solana.PublicKeyLength] = ':'
	copy(buf[n+solana.PublicKeyLength+1:], owner[:])
	return buf
}
