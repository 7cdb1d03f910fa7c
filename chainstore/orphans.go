// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"sync"
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// maxOrphans and orphanExpiry bound the orphan pool: blocks received
// before their parent is known are held for a bounded time, then
// dropped, so a slow or malicious peer cannot pin unbounded memory.
const (
	maxOrphans   = 100
	orphanExpiry = 30 * time.Minute
)

type orphanBlock struct {
	block    *wire.MsgBlock
	received time.Time
}

// orphanPool holds blocks whose parent has not yet been connected,
// indexed both by the orphan's own hash and by the parent hash it is
// waiting on, so that connecting a block can promote every orphan
// chained directly off it.
type orphanPool struct {
	mu            sync.Mutex
	byHash        map[astramutil.Hash256]*orphanBlock
	byParent      map[astramutil.Hash256][]astramutil.Hash256
	insertionOrder []astramutil.Hash256
}

func newOrphanPool() *orphanPool {
	return &orphanPool{
		byHash:   make(map[astramutil.Hash256]*orphanBlock),
		byParent: make(map[astramutil.Hash256][]astramutil.Hash256),
	}
}

// Add inserts a block into the orphan pool, evicting the oldest orphan
// first if the pool is at capacity.
func (p *orphanPool) Add(block *wire.MsgBlock, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := block.BlockHash()
	if _, exists := p.byHash[hash]; exists {
		return
	}

	p.expireLocked(now)
	if len(p.byHash) >= maxOrphans {
		p.evictOldestLocked()
	}

	p.byHash[hash] = &orphanBlock{block: block, received: now}
	parent := block.Header.PrevBlock
	p.byParent[parent] = append(p.byParent[parent], hash)
	p.insertionOrder = append(p.insertionOrder, hash)
}

// Children returns, and removes from the pool, every orphan directly
// chained off parentHash (for promotion once parentHash connects).
func (p *orphanPool) Children(parentHash astramutil.Hash256) []*wire.MsgBlock {
	p.mu.Lock()
	defer p.mu.Unlock()

	hashes := p.byParent[parentHash]
	delete(p.byParent, parentHash)

	var blocks []*wire.MsgBlock
	for _, h := range hashes {
		if ob, ok := p.byHash[h]; ok {
			blocks = append(blocks, ob.block)
			delete(p.byHash, h)
			p.removeFromOrderLocked(h)
		}
	}
	return blocks
}

func (p *orphanPool) expireLocked(now time.Time) {
	for hash, ob := range p.byHash {
		if now.Sub(ob.received) > orphanExpiry {
			p.deleteLocked(hash)
		}
	}
}

func (p *orphanPool) evictOldestLocked() {
	if len(p.insertionOrder) == 0 {
		return
	}
	oldest := p.insertionOrder[0]
	p.deleteLocked(oldest)
}

func (p *orphanPool) deleteLocked(hash astramutil.Hash256) {
	ob, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	p.removeFromOrderLocked(hash)

	parent := ob.block.Header.PrevBlock
	siblings := p.byParent[parent]
	for i, h := range siblings {
		if h == hash {
			p.byParent[parent] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(p.byParent[parent]) == 0 {
		delete(p.byParent, parent)
	}
}

func (p *orphanPool) removeFromOrderLocked(hash astramutil.Hash256) {
	for i, h := range p.insertionOrder {
		if h == hash {
			p.insertionOrder = append(p.insertionOrder[:i], p.insertionOrder[i+1:]...)
			break
		}
	}
}
