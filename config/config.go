// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads astramd's configuration from an INI file and
// command-line flags using jessevdk/go-flags, with command-line
// options always taking final precedence: a first pass scans for
// -C/--configfile, the file (if any) is parsed, then flags are
// re-parsed on top of it. ASTRAM_NETWORK/ASTRAM_NETWORK_ID/ASTRAM_CHAIN_ID
// environment variables override the selected network identity after
// flags are resolved.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	flags "github.com/jessevdk/go-flags"

	"github.com/astram-project/astramd/chaincfg"
)

const appName = "astramd"

var (
	defaultDataDir    = AppDataDir(appName)
	defaultConfigFile = filepath.Join(defaultDataDir, fmt.Sprintf("%s.conf", appName))
	defaultLogDir     = filepath.Join(defaultDataDir, "logs")
)

// Config holds every setting astramd recognizes.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store data"`

	LogDir   string `long:"logdir" description:"Directory to log output"`
	LogLevel string `long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	P2PBindAddr string `long:"p2p_bind_addr" description:"P2P bind address"`
	P2PPort     string `long:"p2p_port" description:"P2P listen port"`

	DNSServerURL string `long:"dns_server_url" description:"Base URL of the advisory DNS registry consumed for peer discovery"`

	Proxy         string `long:"proxy" description:"SOCKS5 proxy to dial outbound peer connections through (host:port); direct dial if empty"`
	ProxyUser     string `long:"proxyuser" description:"Username for the SOCKS5 proxy, if it requires authentication"`
	ProxyPass     string `long:"proxypass" description:"Password for the SOCKS5 proxy, if it requires authentication"`

	Network string `long:"network" description:"Network to connect to {mainnet, testnet, regtest}"`

	MiningBackend string `long:"mining_backend" description:"Mining backend {cpu, cuda}"`
	MiningAddr    string `long:"mining_addr" description:"Hex-encoded payout address for mined block rewards; mining is disabled if empty"`

	MaxOpenFiles int `long:"max_open_files" description:"Maximum number of LevelDB open file handles"`
	DBCacheMB    int `long:"db_cache_mb" description:"LevelDB block cache size, in MiB"`

	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`
}

func defaultConfig() Config {
	return Config{
		ConfigFile:   defaultConfigFile,
		DataDir:      defaultDataDir,
		LogDir:       defaultLogDir,
		LogLevel:     "info",
		P2PBindAddr:  "0.0.0.0",
		P2PPort:      chaincfg.MainNetParams.DefaultPort,
		Network:      "mainnet",
		MiningBackend: "cpu",
		MaxOpenFiles: 0,
		DBCacheMB:    0,
	}
}

// Load initializes and parses the configuration using args (normally
// os.Args[1:]).
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings.
//  2. Pre-parse args to check for an alternative config file or the
//     version flag; errors other than the help message are ignored
//     here since the final parse below will catch them.
//  3. Load the config file, if any, overwriting defaults.
//  4. Parse args again so the command line always takes precedence.
//  5. Apply ASTRAM_* environment variable overrides to the resolved
//     network identity.
//
// Missing or invalid values fall back to defaults and are logged
// rather than treated as fatal.
func Load(args []string) (*Config, *chaincfg.Params, []string, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			log.Debugf("pre-parse of command line failed: %v", err)
		}
	}
	if preCfg.ShowVersion {
		return &preCfg, nil, nil, nil
	}

	if preCfg.ConfigFile != "" {
		if err := flags.NewIniParser(flags.NewParser(&cfg, flags.Default)).ParseFile(preCfg.ConfigFile); err != nil {
			if _, ok := err.(*os.PathError); !ok {
				log.Warnf("error parsing config file %s: %v -- using defaults/flags only", preCfg.ConfigFile, err)
			}
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, nil, err
	}

	params, err := chaincfg.ParamsForNetwork(cfg.Network)
	if err != nil {
		log.Warnf("unrecognized network %q, defaulting to mainnet", cfg.Network)
		cfg.Network = "mainnet"
		params = &chaincfg.MainNetParams
	}
	params = applyEnvOverrides(params)

	if cfg.P2PPort == "" {
		cfg.P2PPort = params.DefaultPort
	}
	if cfg.MiningBackend != "cpu" && cfg.MiningBackend != "cuda" {
		log.Warnf("unrecognized mining_backend %q, defaulting to cpu", cfg.MiningBackend)
		cfg.MiningBackend = "cpu"
	}

	return &cfg, params, remaining, nil
}

// applyEnvOverrides layers ASTRAM_NETWORK/ASTRAM_NETWORK_ID/
// ASTRAM_CHAIN_ID onto params, returning a copy so the caller's
// original *chaincfg.Params (one of the package-level vars) is never
// mutated in place.
func applyEnvOverrides(params *chaincfg.Params) *chaincfg.Params {
	networkName, hasNetwork := os.LookupEnv("ASTRAM_NETWORK")
	networkID, hasNetworkID := os.LookupEnv("ASTRAM_NETWORK_ID")
	chainIDStr, hasChainID := os.LookupEnv("ASTRAM_CHAIN_ID")

	if !hasNetwork && !hasNetworkID && !hasChainID {
		return params
	}

	overridden := *params
	if hasNetwork {
		if resolved, err := chaincfg.ParamsForNetwork(networkName); err == nil {
			overridden = *resolved
		} else {
			log.Warnf("ASTRAM_NETWORK=%q is not a recognized network, ignoring", networkName)
		}
	}
	if hasNetworkID {
		overridden.NetworkID = networkID
	}
	if hasChainID {
		chainID, err := strconv.ParseUint(chainIDStr, 10, 32)
		if err != nil {
			log.Warnf("ASTRAM_CHAIN_ID=%q is not a valid integer, ignoring", chainIDStr)
		} else {
			overridden.ChainID = uint32(chainID)
		}
	}
	return &overridden
}
