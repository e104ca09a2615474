package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/opentab/internal/config"
)

// runCommand executes the root command with args, capturing stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExecutePrintsErrors(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"no-such-command"})

	require.Error(t, Execute())
	assert.Contains(t, out.String(), "Error:")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "opentab")
}

func TestRebuildIndexCommand(t *testing.T) {
	t.Setenv(config.EnvDBPath, t.TempDir()+"/ledger")

	_, err := runCommand(t, "rebuild-index")
	require.NoError(t, err)
}

func TestServerAddressPrefersConfigured(t *testing.T) {
	cfg = &config.Config{ServerAddress: "bitcoincash:qconfigured"}
	t.Cleanup(func() { cfg = nil })

	assert.Equal(t, "bitcoincash:qconfigured", serverAddress())
}

func TestServerAddressDerivesFromMnemonic(t *testing.T) {
	cfg = &config.Config{
		Mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	}
	t.Cleanup(func() { cfg = nil })

	addr := serverAddress()
	assert.NotEmpty(t, addr)
	assert.Contains(t, addr, "bitcoincash:")
}

func TestServerAddressEmptyWithoutIdentity(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	assert.Empty(t, serverAddress())
}
