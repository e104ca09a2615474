package facilitator

import "github.com/mrz1836/opentab/internal/network"

// SupportedKind describes one scheme/network pair the facilitator serves.
type SupportedKind struct {
	ProtocolVersion int    `json:"protocolVersion"`
	Scheme          string `json:"scheme"`
	Network         string `json:"network"`
}

// SupportedResponse is the static capability descriptor.
type SupportedResponse struct {
	Kinds      []SupportedKind     `json:"kinds"`
	Extensions []string            `json:"extensions"`
	Signers    map[string][]string `json:"signers"`
}

// SupportedKinds returns the capability descriptor: a single utxo scheme on
// the canonical network, no extensions, and the bip122 signer namespace.
func SupportedKinds() SupportedResponse {
	return SupportedResponse{
		Kinds: []SupportedKind{
			{
				ProtocolVersion: 2,
				Scheme:          network.Scheme,
				Network:         network.CanonicalID,
			},
		},
		Extensions: []string{},
		Signers: map[string][]string{
			network.SignerNamespace: {},
		},
	}
}
