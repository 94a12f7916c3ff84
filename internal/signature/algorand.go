package signature

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// bytesPrefix is prepended to the message before signing, per Algorand's
// arbitrary-bytes signing convention.
var bytesPrefix = []byte("MX")

// Algorand verifies ed25519 signatures over raw bytes. senderPK is the
// base32 Algorand address (the public key plus checksum), sig is base64.
type Algorand struct{}

var _ Verifier = Algorand{}

func (Algorand) Verify(payload []byte, sig, senderPK string) bool {
	addr, err := types.DecodeAddress(senderPK)
	if err != nil {
		return false
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sig)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return false
	}
	msg := append(append([]byte{}, bytesPrefix...), payload...)
	return ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sigBytes)
}
