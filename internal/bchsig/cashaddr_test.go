package bchsig_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/opentab/internal/bchsig"
)

// Published cashaddr test vectors: cash address / pubkey hash pairs.
var cashAddrVectors = []struct {
	cashAddr string
	hashHex  string
}{
	{
		cashAddr: "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a",
		hashHex:  "76a04053bda0a88bda5177b86a15c3b29f559873",
	},
	{
		cashAddr: "bitcoincash:qr95sy3j9xwd2ap32xkykttr4cvcu7as4y0qverfuy",
		hashHex:  "cb481232299cd5743151ac4b2d63ae198e7bb0a9",
	},
	{
		cashAddr: "bitcoincash:qqq3728yw0y47sqn6l2na30mcw6zm78dzqre909m2r",
		hashHex:  "011f28e473c95f4013d7d53ec5fbc3b42df8ed10",
	},
}

func TestDecodeCashAddr_Vectors(t *testing.T) {
	t.Parallel()

	for _, v := range cashAddrVectors {
		hash, err := bchsig.DecodeCashAddr(v.cashAddr)
		require.NoError(t, err, v.cashAddr)
		assert.Equal(t, v.hashHex, hex.EncodeToString(hash))
	}
}

func TestDecodeCashAddr_NoPrefix(t *testing.T) {
	t.Parallel()

	hash, err := bchsig.DecodeCashAddr("qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a")
	require.NoError(t, err)
	assert.Equal(t, cashAddrVectors[0].hashHex, hex.EncodeToString(hash))
}

func TestDecodeCashAddr_UpperCase(t *testing.T) {
	t.Parallel()

	hash, err := bchsig.DecodeCashAddr("BITCOINCASH:QPM2QSZNHKS23Z7629MMS6S4CWEF74VCWVY22GDX6A")
	require.NoError(t, err)
	assert.Equal(t, cashAddrVectors[0].hashHex, hex.EncodeToString(hash))
}

func TestDecodeCashAddr_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
	}{
		{name: "empty", addr: ""},
		{name: "mixed case", addr: "bitcoincash:qpm2Qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"},
		{name: "bad checksum", addr: "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6b"},
		{name: "wrong prefix", addr: "bchtest:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"},
		{name: "bad charset", addr: "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx1b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := bchsig.DecodeCashAddr(tt.addr)
			assert.Error(t, err)
		})
	}
}

func TestEncodeCashAddr_Vectors(t *testing.T) {
	t.Parallel()

	for _, v := range cashAddrVectors {
		hash, err := hex.DecodeString(v.hashHex)
		require.NoError(t, err)

		addr, err := bchsig.EncodeCashAddr(hash)
		require.NoError(t, err)
		assert.Equal(t, v.cashAddr, addr)
	}
}

func TestEncodeCashAddr_RoundTrip(t *testing.T) {
	t.Parallel()

	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i * 7)
	}

	addr, err := bchsig.EncodeCashAddr(hash)
	require.NoError(t, err)

	decoded, err := bchsig.DecodeCashAddr(addr)
	require.NoError(t, err)
	assert.Equal(t, hash, decoded)
}

func TestEncodeCashAddr_BadLength(t *testing.T) {
	t.Parallel()

	_, err := bchsig.EncodeCashAddr(make([]byte, 19))
	assert.Error(t, err)
}
