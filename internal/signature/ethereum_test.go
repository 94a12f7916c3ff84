package signature

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func signPersonal(t *testing.T, payload []byte) (sig string, addr string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sigBytes, err := crypto.Sign(accounts.TextHash(payload), key)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(sigBytes), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestEthereumVerify(t *testing.T) {
	payload := []byte(`{"buy_currency":"ETH","sell_currency":"ALGO"}`)
	sig, addr := signPersonal(t, payload)

	require.True(t, Ethereum{}.Verify(payload, sig, addr))
}

func TestEthereumVerifyLegacyRecoveryByte(t *testing.T) {
	payload := []byte(`{"buy_currency":"ETH"}`)
	sig, addr := signPersonal(t, payload)

	// wallets emit V as 27/28 rather than 0/1
	raw, err := hex.DecodeString(sig[2:])
	require.NoError(t, err)
	raw[64] += 27
	require.True(t, Ethereum{}.Verify(payload, "0x"+hex.EncodeToString(raw), addr))
}

func TestEthereumVerifyCaseInsensitiveAddress(t *testing.T) {
	payload := []byte(`{"buy_amount":3}`)
	sig, addr := signPersonal(t, payload)

	require.True(t, Ethereum{}.Verify(payload, sig, addr))
	require.True(t, Ethereum{}.Verify(payload, sig, strings.ToLower(addr)))
}

func TestEthereumVerifyRejects(t *testing.T) {
	payload := []byte(`{"buy_amount":1}`)
	sig, addr := signPersonal(t, payload)
	_, otherAddr := signPersonal(t, payload)

	require.False(t, Ethereum{}.Verify(payload, sig, otherAddr), "wrong signer")
	require.False(t, Ethereum{}.Verify([]byte(`{"buy_amount":2}`), sig, addr), "tampered payload")
	require.False(t, Ethereum{}.Verify(payload, "0xdeadbeef", addr), "short signature")
	require.False(t, Ethereum{}.Verify(payload, "not hex at all", addr))
}
