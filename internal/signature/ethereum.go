package signature

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// Ethereum verifies personal-message signatures: the payload is hashed with
// the "\x19Ethereum Signed Message:\n"+len prefix, the signer address is
// recovered from the signature and compared with senderPK.
type Ethereum struct{}

var _ Verifier = Ethereum{}

func (Ethereum) Verify(payload []byte, sig, senderPK string) bool {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil || len(sigBytes) != 65 {
		return false
	}
	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(payload), sigBytes)
	if err != nil {
		return false
	}
	return strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), senderPK)
}
