// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package app wires every subsystem package into a single running
// node: storage, chain store, mempool, mining, address book, the
// connection manager, and header-first sync. Node bundles one field
// per service behind a started/shutdown atomic pair, with Start/Stop
// methods and a constructor that wires each service's Config struct
// from the one before it.
package app

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/astram-project/astramd/addrmgr"
	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/config"
	"github.com/astram-project/astramd/connmgr"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/mining"
	"github.com/astram-project/astramd/netsync"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/peerdiversity"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/validatorstats"
	"github.com/astram-project/astramd/wire"
)

// sigCacheMaxEntries bounds the signature-verification cache shared
// across every transaction validated by the chain store and mempool.
const sigCacheMaxEntries = 100_000

// userAgentName and userAgentVersion identify this node in the
// Version message exchanged at handshake.
const (
	userAgentName    = "astramd"
	userAgentVersion = "0.1.0"
)

// Node is a fully assembled Astram full node: every subsystem
// package's concrete type, plus the glue that lets them call into
// each other (a peer set for relaying, and the callbacks the
// connection manager and sync manager need from one another).
type Node struct {
	cfg    *config.Config
	params *chaincfg.Params

	db          database.DB
	chain       *chainstore.Store
	pool        *mempool.Pool
	stats       *validatorstats.Counters
	addrManager *addrmgr.Manager
	diversity   *peerdiversity.Tracker
	connManager *connmgr.ConnManager
	syncManager *netsync.SyncManager
	driver      *mining.Driver

	peersMu sync.Mutex
	peers   map[string]*peer.Peer

	started  int32
	shutdown int32
}

// New assembles every subsystem from cfg and params but starts
// nothing; call Start to begin accepting connections and, if
// configured, mining.
func New(cfg *config.Config, params *chaincfg.Params) (*Node, error) {
	db, err := database.OpenLevelDBWithOptions(cfg.DataDir, cfg.DBCacheMB, cfg.MaxOpenFiles)
	if err != nil {
		return nil, fmt.Errorf("app: opening database: %w", err)
	}

	sigCache := txvalidate.NewSigCache(sigCacheMaxEntries)
	chain, err := chainstore.New(db, params, sigCache)
	if err != nil {
		return nil, fmt.Errorf("app: opening chain store: %w", err)
	}

	pool := mempool.New(chain, txvalidate.Params{
		CoinbaseMaturity: params.CoinbaseMaturity,
		SigCache:         sigCache,
	})
	chain.SetMempoolReconciler(pool)

	stats := validatorstats.New()

	port, err := strconv.ParseUint(cfg.P2PPort, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("app: invalid p2p_port %q: %w", cfg.P2PPort, err)
	}

	n := &Node{
		cfg:         cfg,
		params:      params,
		db:          db,
		chain:       chain,
		pool:        pool,
		stats:       stats,
		addrManager: addrmgr.New(uint16(port)),
		diversity:   peerdiversity.New(),
		peers:       make(map[string]*peer.Peer),
	}

	n.syncManager, err = netsync.New(&netsync.Config{
		PeerNotifier: n,
		Chain:        chain,
		TxMemPool:    pool,
		ChainParams:  params,
		FeeEstimator: pool.FeeEstimator(),
		Stats:        stats,
	})
	if err != nil {
		return nil, fmt.Errorf("app: constructing sync manager: %w", err)
	}

	listenAddr := net.JoinHostPort(cfg.P2PBindAddr, cfg.P2PPort)
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("app: listening on %s: %w", listenAddr, err)
	}

	n.connManager, err = connmgr.New(&connmgr.Config{
		Listeners:  []net.Listener{l},
		OnConnect:  n.onConnect,
		AddrSource: n.addrManager,
		Diversity:  n.diversity,
		Dial:       proxyDialer(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("app: constructing connection manager: %w", err)
	}

	if cfg.MiningAddr != "" {
		if cfg.MiningBackend != "cpu" {
			log.Warnf("mining_backend %q has no driver implementation yet, falling back to cpu", cfg.MiningBackend)
		}
		addrBytes, err := hex.DecodeString(cfg.MiningAddr)
		if err != nil {
			return nil, fmt.Errorf("app: invalid mining_addr %q: %w", cfg.MiningAddr, err)
		}
		minerAddr, err := astramutil.NewAddress(addrBytes)
		if err != nil {
			return nil, fmt.Errorf("app: invalid mining_addr %q: %w", cfg.MiningAddr, err)
		}
		n.driver = mining.NewDriver(chain, pool, minerAddr, 0)
		n.driver.OnBlockFound(n.onBlockMined)
	}

	return n, nil
}

// Start launches every subsystem: the sync manager's actor, the
// connection manager's accept/dial loops, registry seeding, and (if
// configured) the mining driver. Guarded by a CompareAndSwap so a
// repeated call is a no-op.
func (n *Node) Start() {
	if !atomic.CompareAndSwapInt32(&n.started, 0, 1) {
		return
	}
	log.Infof("starting astramd on network %q", n.params.Name)

	n.syncManager.Start()
	n.connManager.Start()
	n.maybeSeedFromRegistry()

	if n.driver != nil {
		log.Infof("mining enabled (cpu)")
		n.driver.Start()
	}
}

// Stop gracefully shuts every subsystem down in reverse dependency
// order.
func (n *Node) Stop() error {
	if !atomic.CompareAndSwapInt32(&n.shutdown, 0, 1) {
		log.Infof("astramd is already shutting down")
		return nil
	}
	log.Warnf("astramd shutting down")

	if n.driver != nil {
		n.driver.Stop()
	}
	n.connManager.Stop()
	if err := n.syncManager.Stop(); err != nil {
		log.Errorf("error stopping sync manager: %v", err)
	}
	return n.db.Close()
}

// maybeSeedFromRegistry bootstraps the address book from the DNS
// registry named by cfg.DNSServerURL. A configured but unreachable
// registry is logged and otherwise ignored: discovery is advisory,
// never a trust root.
func (n *Node) maybeSeedFromRegistry() {
	if n.cfg.DNSServerURL == "" {
		return
	}
	connmgr.SeedFromRegistry(n.cfg.DNSServerURL, 200, 0, http.DefaultClient, n.addrManager.AddAddresses)
}

// onBlockMined relays a block the local mining driver just mined to
// the rest of the peer set, the same path a block received from the
// network takes once accepted.
func (n *Node) onBlockMined(blk *wire.MsgBlock) {
	n.RelayInventory(wire.InvTypeBlock, blk.BlockHash())
}
