package chain_test

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func TestContractNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "cis2_multi", chain.ContractNameFromInit("init_cis2_multi"))
	assert.Equal(t, "already", chain.ContractNameFromInit("already"))
	assert.Equal(t, "cis2_multi.balanceOf", chain.ReceiveName("cis2_multi", "balanceOf"))
}

func testTx() *chain.UpdateTx {
	var sender wire.AccountAddress
	sender[0] = 0x01
	now := time.Unix(1_700_000_000, 0)
	return chain.NewTokenTransferTx(sender, 7, wire.ContractAddress{Index: 9, Subindex: 0}, "cis2_multi", []byte{0xaa, 0xbb}, now)
}

func TestUpdateTxSerialize(t *testing.T) {
	t.Parallel()

	tx := testTx()
	assert.Equal(t, "cis2_multi.transfer", tx.Receive)
	assert.Equal(t, chain.DefaultMaxContractEnergy, tx.MaxEnergy)

	payload, err := tx.Payload()
	require.NoError(t, err)
	// tag + amount + index + subindex + name + param
	assert.Len(t, payload, 1+8+16+2+len("cis2_multi.transfer")+2+2)
	assert.Equal(t, byte(2), payload[0])

	raw, err := tx.Serialize()
	require.NoError(t, err)
	require.Len(t, raw, 60+len(payload))

	assert.Equal(t, tx.Sender[:], raw[:32])
	assert.Equal(t, uint64(7), binary.BigEndian.Uint64(raw[32:40]))
	assert.Equal(t, 100+uint64(60+len(payload))+30_000, binary.BigEndian.Uint64(raw[40:48]))
	assert.Equal(t, uint32(len(payload)), binary.BigEndian.Uint32(raw[48:52]))
	assert.Equal(t, uint64(1_700_000_000+300), binary.BigEndian.Uint64(raw[52:60]))
	assert.Equal(t, payload, raw[60:])
}

func TestUpdateTxSign(t *testing.T) {
	t.Parallel()

	tx := testTx()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	sig, err := tx.Sign(priv)
	require.NoError(t, err)

	raw, err := tx.Serialize()
	require.NoError(t, err)
	digest := sha256.Sum256(raw)
	assert.True(t, ed25519.Verify(pub, digest[:], sig))

	_, err = tx.Sign(nil)
	require.ErrorIs(t, err, walleterr.ErrWalletLocked)
}

func TestUpdateTxInvalid(t *testing.T) {
	t.Parallel()

	tx := testTx()
	tx.Receive = ""
	_, err := tx.Serialize()
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)

	tx = testTx()
	tx.Parameter = make([]byte, 70_000)
	_, err = tx.SignDigest()
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)
}
