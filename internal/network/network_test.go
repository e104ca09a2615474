package network_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/opentab/internal/network"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: network.CanonicalID},
		{name: "whitespace only", input: "  ", want: network.CanonicalID},
		{name: "legacy bch", input: "bch", want: network.CanonicalID},
		{name: "already canonical", input: network.CanonicalID, want: network.CanonicalID},
		{
			name:  "foreign bip122 passes through",
			input: "bip122:000000000019d6689c085ae165831e93",
			want:  "bip122:000000000019d6689c085ae165831e93",
		},
		{name: "unknown tag passes through", input: "btc", want: "btc"},
		{name: "eip155 passes through", input: "eip155:1", want: "eip155:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, network.Canonicalize(tt.input))
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "bch", network.CanonicalID, "btc", "bip122:deadbeef"} {
		once := network.Canonicalize(in)
		assert.Equal(t, once, network.Canonicalize(once), "input %q", in)
	}
}

func TestSame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "legacy vs canonical", a: "bch", b: network.CanonicalID, want: true},
		{name: "both empty", a: "", b: "", want: true},
		{name: "both legacy", a: "bch", b: "bch", want: true},
		{name: "native vs foreign", a: "bch", b: "btc", want: false},
		// Textually equal foreign networks still never match.
		{name: "equal foreign networks", a: "eip155:1", b: "eip155:1", want: false},
		{name: "foreign bip122 pair", a: "bip122:abc", b: "bip122:abc", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, network.Same(tt.a, tt.b))
			// Symmetry holds for all inputs.
			assert.Equal(t, network.Same(tt.a, tt.b), network.Same(tt.b, tt.a))
		})
	}
}
