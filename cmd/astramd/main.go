// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command astramd runs a full Astram node: it loads configuration,
// wires every subsystem package's logger to a shared backend, builds
// an app.Node, and runs it until an interrupt signal requests
// graceful shutdown.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/astram-project/astramd/addrmgr"
	"github.com/astram-project/astramd/alog"
	"github.com/astram-project/astramd/app"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/config"
	"github.com/astram-project/astramd/connmgr"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/mining"
	"github.com/astram-project/astramd/netsync"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/peerdiversity"
	"github.com/astram-project/astramd/validatorstats"
)

// appVersion is reported by --version and logged at startup.
const appVersion = "0.1.0"

// maxLogRolls is the number of rotated log files astramd keeps
// alongside the active one.
const maxLogRolls = 10

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, params, _, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Printf("astramd version %s\n", appVersion)
		return nil
	}

	backend, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	useLoggers(backend, cfg.LogLevel)

	log := backend.Logger("MAIN")
	log.Infof("astramd version %s starting (network %s)", appVersion, params.Name)

	node, err := app.New(cfg, params)
	if err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}
	node.Start()

	interrupt := interruptListener()
	<-interrupt

	log.Infof("received shutdown signal")
	if err := node.Stop(); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
	log.Infof("shutdown complete")
	return nil
}

// setupLogging opens the rotating log file under cfg.LogDir and
// returns a backend writing to both it and stdout. Falls back to the
// package's stdout-only default backend if the log file cannot be
// opened, logging the failure rather than treating it as fatal.
// alog.NewRotatingWriter does not expose the underlying rotator, so
// there is nothing for this node to explicitly close at shutdown.
func setupLogging(cfg *config.Config) (*alog.Backend, func(), error) {
	logPath := cfg.LogDir + string(os.PathSeparator) + "astramd.log"
	w, err := alog.NewRotatingWriter(logPath, maxLogRolls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open log file %s: %v -- logging to stdout only\n", logPath, err)
		return alog.DefaultBackend(), func() {}, nil
	}
	return alog.NewBackend(w), func() {}, nil
}

// useLoggers wires backend into every subsystem package that logs,
// at the level cfg names.
func useLoggers(backend *alog.Backend, levelName string) {
	level, ok := alog.LevelFromString(levelName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unrecognized loglevel %q, defaulting to info\n", levelName)
	}

	subsystems := map[string]func(alog.Logger){
		"ADDR": addrmgr.UseLogger,
		"APPL": app.UseLogger,
		"CHST": chainstore.UseLogger,
		"CONF": config.UseLogger,
		"CONN": connmgr.UseLogger,
		"MEMP": mempool.UseLogger,
		"MINR": mining.UseLogger,
		"SYNC": netsync.UseLogger,
		"PEER": peer.UseLogger,
		"DIVR": peerdiversity.UseLogger,
		"STAT": validatorstats.UseLogger,
	}
	for tag, use := range subsystems {
		logger := backend.Logger(tag)
		logger.SetLevel(level)
		use(logger)
	}
}

// interruptListener returns a channel that is closed when a SIGINT or
// SIGTERM is received, firing exactly once regardless of how many
// further signals arrive.
func interruptListener() <-chan struct{} {
	ch := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(ch)
	}()
	return ch
}
