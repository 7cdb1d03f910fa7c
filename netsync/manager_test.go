// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/wire"
)

func testParams() *chaincfg.Params {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x00}))
	coinbase.AddTxOut(wire.NewTxOut(1, astramutil.Address{0xff}))

	genesisHeader := wire.BlockHeader{
		Version:    1,
		Timestamp:  time.Unix(1738800000, 0),
		Difficulty: 1,
	}
	genesis := wire.NewMsgBlock(&genesisHeader)
	genesis.AddTransaction(coinbase)
	genesis.Header.MerkleRoot = genesis.MerkleRoot()
	mineHeader(&genesis.Header)

	return &chaincfg.Params{
		Name:                   "netsync-test",
		Net:                    wire.SimNet,
		NetworkID:              "Astram-test",
		ChainID:                9999,
		GenesisBlock:           genesis,
		GenesisHash:            genesis.BlockHash(),
		GenesisTimestamp:       time.Unix(1738800000, 0),
		RetargetInterval:       30,
		TargetTimePerBlock:     120 * time.Second,
		MinDifficulty:          1,
		MaxDifficulty:          10,
		MaxHeaderDifficulty:    32,
		SlowStartHeight:        100000,
		MedianTimeBlocks:       11,
		MaxReorgDepth:          100,
		CriticalReorgDepth:     50,
		CoinbaseMaturity:       1,
		BaseSubsidy:            5 * astramutil.BaseUnitsPerASRM,
		SubsidyHalvingInterval: 262800,
		MinSubsidy:             astramutil.BaseUnitsPerASRM / 10,
	}
}

func mineHeader(header *wire.BlockHeader) {
	for nonce := uint64(0); ; nonce++ {
		header.Nonce = nonce
		if astramutil.HashMeetsTarget(header.BlockHash(), header.Difficulty) {
			return
		}
	}
}

func mineChild(parent *wire.MsgBlock, parentHeight int64, secondsAfterParent int64) *wire.MsgBlock {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{byte(parentHeight + 1)}))
	coinbase.AddTxOut(wire.NewTxOut(1, astramutil.Address{0xfe}))

	header := wire.BlockHeader{
		Version:    1,
		PrevBlock:  parent.BlockHash(),
		Timestamp:  parent.Header.Timestamp.Add(time.Duration(secondsAfterParent) * time.Second),
		Difficulty: 1,
	}
	block := wire.NewMsgBlock(&header)
	block.AddTransaction(coinbase)
	block.Header.MerkleRoot = block.MerkleRoot()
	mineHeader(&block.Header)
	return block
}

func newTestStore(t *testing.T, params *chaincfg.Params) *chainstore.Store {
	t.Helper()
	store, err := chainstore.New(database.NewMemDB(), params, txvalidate.NewSigCache(64))
	require.NoError(t, err)
	return store
}

func newTestPool(store *chainstore.Store, params *chaincfg.Params) *mempool.Pool {
	return mempool.New(store, txvalidate.Params{CoinbaseMaturity: params.CoinbaseMaturity, SigCache: txvalidate.NewSigCache(64)})
}

type fakeNotifier struct {
	updated  []astramutil.Hash256
	relayed  []astramutil.Hash256
	confirms []*wire.MsgTx
}

func (f *fakeNotifier) AnnounceNewTransactions(newTxs []*mempool.TxDesc) {}
func (f *fakeNotifier) UpdatePeerHeights(hash astramutil.Hash256, height int64, src *peer.Peer) {
	f.updated = append(f.updated, hash)
}
func (f *fakeNotifier) RelayInventory(invType wire.InvType, hash astramutil.Hash256) {
	f.relayed = append(f.relayed, hash)
}
func (f *fakeNotifier) TransactionConfirmed(tx *wire.MsgTx) {
	f.confirms = append(f.confirms, tx)
}

func TestBuildLocatorEndsAtGenesis(t *testing.T) {
	params := testParams()
	store := newTestStore(t, params)

	block := params.GenesisBlock
	for i := 0; i < 15; i++ {
		block = mineChild(block, int64(i), 150)
		require.NoError(t, store.ProcessBlock(block, time.Now()))
	}

	notifier := &fakeNotifier{}
	mgr, err := New(&Config{
		PeerNotifier: notifier,
		Chain:        store,
		TxMemPool:    newTestPool(store, params),
		ChainParams:  params,
	})
	require.NoError(t, err)

	locator := mgr.buildLocator()
	require.NotEmpty(t, locator)
	require.Equal(t, store.Tip().Hash, locator[0])
	require.Equal(t, params.GenesisHash, locator[len(locator)-1])
}

func TestValidateHeaderRejectsDifficultyJump(t *testing.T) {
	params := testParams()
	store := newTestStore(t, params)

	mgr, err := New(&Config{
		Chain:       store,
		TxMemPool:   newTestPool(store, params),
		ChainParams: params,
	})
	require.NoError(t, err)

	tip := store.Tip()
	header := wire.BlockHeader{
		Version:    1,
		PrevBlock:  tip.Hash,
		Timestamp:  tip.Header.Timestamp.Add(150 * time.Second),
		Difficulty: tip.Header.Difficulty + 3,
	}
	mineHeader(&header)

	require.Error(t, mgr.validateHeader(&header, time.Now()))
}

func TestValidateHeaderRejectsCheckpointMismatch(t *testing.T) {
	params := testParams()
	store := newTestStore(t, params)

	wrongHash := astramutil.Hash256{0x42}
	params.Checkpoints = []chaincfg.Checkpoint{{Height: 1, Hash: wrongHash}}

	mgr, err := New(&Config{
		Chain:       store,
		TxMemPool:   newTestPool(store, params),
		ChainParams: params,
	})
	require.NoError(t, err)

	tip := store.Tip()
	child := mineChild(params.GenesisBlock, tip.Height, 150)

	err = mgr.validateHeader(&child.Header, time.Now())
	require.Error(t, err)
}

// TestHeaderFirstSyncOverLoopback drives a real loopback connection
// between a server (two blocks ahead) and a client (genesis only),
// verifying the client's SyncManager requests headers, then bodies, and
// ends up at the server's tip.
func TestHeaderFirstSyncOverLoopback(t *testing.T) {
	params := testParams()

	serverStore := newTestStore(t, params)
	block1 := mineChild(params.GenesisBlock, 0, 150)
	require.NoError(t, serverStore.ProcessBlock(block1, time.Now()))
	block2 := mineChild(block1, 1, 150)
	require.NoError(t, serverStore.ProcessBlock(block2, time.Now()))

	clientStore := newTestStore(t, params)

	serverMgr, err := New(&Config{Chain: serverStore, TxMemPool: newTestPool(serverStore, params), ChainParams: params})
	require.NoError(t, err)
	clientMgr, err := New(&Config{Chain: clientStore, TxMemPool: newTestPool(clientStore, params), ChainParams: params})
	require.NoError(t, err)
	serverMgr.Start()
	clientMgr.Start()
	defer serverMgr.Stop()
	defer clientMgr.Stop()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	var serverPeer *peer.Peer
	accepted := make(chan struct{})
	go func() {
		conn, err := listener.Accept()
		require.NoError(t, err)
		serverPeer = peer.NewInboundPeer(&peer.Config{
			ChainParams: params,
			BestHeight:  func() uint64 { return uint64(serverStore.TipHeight()) },
			Listeners: peer.MessageListeners{
				OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) {
					serverMgr.QueueGetHeaders(msg, p)
				},
				OnGetData: func(p *peer.Peer, msg *wire.MsgGetData) {
					for _, iv := range msg.InvList {
						if iv.Type != wire.InvTypeBlock {
							continue
						}
						blk, err := serverStore.GetBlock(astramutil.Hash256(iv.Hash))
						if err == nil {
							p.QueueMessage(blk)
						}
					}
				},
			},
		})
		require.NoError(t, serverPeer.AssociateConnection(conn))
		close(accepted)
	}()

	clientPeer, err := peer.NewOutboundPeer(&peer.Config{
		ChainParams: params,
		BestHeight:  func() uint64 { return uint64(clientStore.TipHeight()) },
		Listeners: peer.MessageListeners{
			OnHeaders: func(p *peer.Peer, msg *wire.MsgHeaders) {
				clientMgr.QueueHeaders(msg, p)
			},
			OnBlock: func(p *peer.Peer, msg *wire.MsgBlock) {
				clientMgr.QueueBlock(msg, p)
			},
		},
	}, listener.Addr().String())
	require.NoError(t, err)

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, clientPeer.AssociateConnection(conn))

	<-accepted
	require.Eventually(t, func() bool {
		return clientPeer.State() == peer.StateReady && serverPeer.State() == peer.StateReady
	}, 2*time.Second, 10*time.Millisecond)

	clientMgr.NewPeer(clientPeer)
	serverMgr.NewPeer(serverPeer)

	require.Eventually(t, func() bool {
		return clientStore.TipHeight() == serverStore.TipHeight()
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, serverStore.Tip().Hash, clientStore.Tip().Hash)

	clientPeer.Disconnect()
	serverPeer.Disconnect()
	clientPeer.WaitForDisconnect()
	serverPeer.WaitForDisconnect()
}
