package signature

import "errors"

// Platform names as they appear in trade payloads.
const (
	PlatformAlgorand = "Algorand"
	PlatformEthereum = "Ethereum"
)

// ErrUnsupportedPlatform is returned when a payload names a platform no
// verifier is registered for. The intake treats it as a malformed request.
var ErrUnsupportedPlatform = errors.New("unsupported signing platform")

// Verifier checks that sig is a valid signature over payload by the holder
// of senderPK. Implementations are pure predicates with no side effects.
type Verifier interface {
	Verify(payload []byte, sig, senderPK string) bool
}

// Registry dispatches verification to the platform named in the payload.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry returns a registry with the Algorand and Ethereum verifiers
// installed.
func NewRegistry() *Registry {
	return &Registry{
		verifiers: map[string]Verifier{
			PlatformAlgorand: Algorand{},
			PlatformEthereum: Ethereum{},
		},
	}
}

func (r *Registry) Register(platform string, v Verifier) {
	r.verifiers[platform] = v
}

func (r *Registry) Verify(platform string, payload []byte, sig, senderPK string) (bool, error) {
	v, ok := r.verifiers[platform]
	if !ok {
		return false, ErrUnsupportedPlatform
	}
	return v.Verify(payload, sig, senderPK), nil
}
