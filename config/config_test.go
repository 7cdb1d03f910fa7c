// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, params, _, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "mainnet", cfg.Network)
	require.Equal(t, "cpu", cfg.MiningBackend)
	require.Equal(t, "Astram-mainnet", params.NetworkID)
}

func TestLoadConfigFileThenCLIPrecedence(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "astramd.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("network=testnet\np2p_port=9999\n"), 0o600))

	cfg, params, _, err := Load([]string{"--configfile", confPath})
	require.NoError(t, err)
	require.Equal(t, "testnet", cfg.Network)
	require.Equal(t, "9999", cfg.P2PPort)
	require.Equal(t, "Astram-testnet", params.NetworkID)

	// A CLI flag overrides the same key set in the config file.
	cfg, _, _, err = Load([]string{"--configfile", confPath, "--network", "regtest"})
	require.NoError(t, err)
	require.Equal(t, "regtest", cfg.Network)
}

func TestLoadFallsBackOnUnrecognizedNetwork(t *testing.T) {
	cfg, params, _, err := Load([]string{"--network", "notanetwork"})
	require.NoError(t, err)
	require.Equal(t, "mainnet", cfg.Network)
	require.Equal(t, "Astram-mainnet", params.NetworkID)
}

func TestEnvOverridesNetworkIdentity(t *testing.T) {
	t.Setenv("ASTRAM_NETWORK_ID", "Astram-custom")
	t.Setenv("ASTRAM_CHAIN_ID", "42")

	_, params, _, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "Astram-custom", params.NetworkID)
	require.Equal(t, uint32(42), params.ChainID)
}

func TestEnvNetworkOverrideSwitchesParams(t *testing.T) {
	t.Setenv("ASTRAM_NETWORK", "testnet")

	_, params, _, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "testnet", params.Name)
}
