package state

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestStakingKeyFormats(t *testing.T) {
	handle := solana.PublicKey{0x01, 0x02, 0x03}
	acctKey := StakeAccountKey(handle)
	expected := append([]byte("staking/account/"), handle[:]...)
	if !bytes.Equal(acctKey, expected) {
		t.Fatalf("unexpected account key: %x", acctKey)
	}

	mint := solana.PublicKey{0xAA}
	owner := solana.PublicKey{0xBB}
	balKey := TokenBalanceKey(mint, owner)
	if !bytes.HasPrefix(balKey, []byte("token/balance/")) {
		t.Fatalf("unexpected balance key prefix: %q", balKey)
	}
	if bytes.Equal(balKey, TokenBalanceKey(owner, mint)) {
		t.Fatalf("balance key must depend on argument order")
	}
}
