// Package network resolves legacy and CAIP-2 network identifiers for the
// facilitator's native chain.
package network

import "strings"

// CanonicalID is the CAIP-2 identifier of the Bitcoin Cash mainnet, the only
// network this facilitator serves.
const CanonicalID = "bip122:000000000000000000651ef99cb9fcbe"

// LegacyID is the pre-CAIP network tag accepted as an alias of CanonicalID.
const LegacyID = "bch"

// Scheme is the payment scheme implemented by the facilitator.
const Scheme = "utxo"

// SignerNamespace is the CAIP family under which payer addresses live.
const SignerNamespace = "bip122:*"

// Canonicalize maps a network tag to its canonical form. Empty and legacy
// tags resolve to CanonicalID; every other tag passes through unchanged and
// is treated as a foreign network.
func Canonicalize(net string) string {
	switch strings.TrimSpace(net) {
	case "", LegacyID, CanonicalID:
		return CanonicalID
	default:
		return net
	}
}

// Same reports whether two network tags both refer to the facilitator's
// native chain. Foreign networks never match, even when textually equal:
// this facilitator serves exactly one chain.
func Same(a, b string) bool {
	return Canonicalize(a) == CanonicalID && Canonicalize(b) == CanonicalID
}
