// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/astram-project/astramd/astramutil"
)

// MaxTxPerBlock bounds the number of transactions a single block may carry;
// chosen generously relative to MaxBlockPayload/MaxTxSize headroom.
const MaxTxPerBlock = 100000

// MaxBlockPayload is the maximum size in bytes a serialized block is
// permitted to be.
const MaxBlockPayload = 4 * 1000 * 1000

// MsgBlock implements the Message interface and represents an Astram block:
// (header, txs[]), where txs[0] is the coinbase.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// BlockHash computes the header's block hash.
func (msg *MsgBlock) BlockHash() astramutil.Hash256 {
	return msg.Header.BlockHash()
}

// MerkleRoot recomputes the canonical binary Merkle tree root over the
// block's transaction ids, duplicating the last hash at any level with an
// odd length. An empty transaction list has no defined root and callers
// must reject the block before calling this.
func (msg *MsgBlock) MerkleRoot() astramutil.Hash256 {
	leaves := make([]astramutil.Hash256, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		leaves[i] = tx.TxHash()
	}
	return astramutil.CalcMerkleRoot(leaves)
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgBlock) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	if err := readBlockHeader(r, pver, &msg.Header); err != nil {
		return err
	}

	buf := binarySerializer.Borrow()
	txCount, err := ReadVarIntBuf(r, pver, buf)
	binarySerializer.Return(buf)
	if err != nil {
		return err
	}
	if txCount > MaxTxPerBlock {
		return messageError("MsgBlock.FlcDecode",
			fmt.Sprintf("too many transactions to fit into a block [count %d, max %d]",
				txCount, MaxTxPerBlock))
	}

	msg.Transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := new(MsgTx)
		if err := tx.FlcDecode(r, pver, enc); err != nil {
			return err
		}
		msg.AddTransaction(tx)
	}

	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgBlock) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	if err := writeBlockHeader(w, pver, &msg.Header); err != nil {
		return err
	}

	buf := binarySerializer.Borrow()
	err := WriteVarIntBuf(w, pver, uint64(len(msg.Transactions)), buf)
	binarySerializer.Return(buf)
	if err != nil {
		return err
	}

	for _, tx := range msg.Transactions {
		if err := tx.FlcEncode(w, pver, enc); err != nil {
			return err
		}
	}

	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgBlock) Command() string {
	return CmdBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 {
	return MaxBlockPayload
}

// NewMsgBlock returns a new Astram block message that conforms to the
// Message interface using the provided header.
func NewMsgBlock(header *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *header,
		Transactions: make([]*MsgTx, 0, defaultTxInOutAlloc),
	}
}
