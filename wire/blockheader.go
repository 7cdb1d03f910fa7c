// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/astram-project/astramd/astramutil"
)

// MaxBlockHeaderPayload is the number of bytes a serialized BlockHeader
// occupies: 4 (version) + 32 (prev hash) + 32 (merkle root) + 8 (timestamp)
// + 4 (difficulty) + 8 (nonce).
const MaxBlockHeaderPayload = 4 + (astramutil.HashSize * 2) + 8 + 4 + 8

// BlockHeader holds the fields identifying and authenticating a block:
// version, prev_hash, merkle_root, timestamp, difficulty, and nonce.
type BlockHeader struct {
	// Version of the block.
	Version int32

	// Hash of the previous block header in the chain. The all-zero hash
	// marks the genesis block.
	PrevBlock astramutil.Hash256

	// Merkle tree root hash of all transactions in the block.
	MerkleRoot astramutil.Hash256

	// Timestamp the block was created, second precision.
	Timestamp time.Time

	// Difficulty is the leading-zero-nibble difficulty this block's hash
	// must satisfy, d in [1, 32].
	Difficulty uint32

	// Nonce used to satisfy the PoW target.
	Nonce uint64
}

// BlockHash computes block_hash = double_sha256(canonical_serialize(header)).
func (h *BlockHeader) BlockHash() astramutil.Hash256 {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	// Serialize cannot fail writing into a bytes.Buffer.
	_ = writeBlockHeader(buf, 0, h)
	return astramutil.DoubleSha256(buf.Bytes())
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (h *BlockHeader) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	return readBlockHeader(r, pver, h)
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (h *BlockHeader) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return writeBlockHeader(w, pver, h)
}

// Deserialize decodes a block header from r using the storage format, which
// is identical to the wire format for headers.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, 0, h)
}

// Serialize encodes the receiver to w using the storage format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, 0, h)
}

// NewBlockHeader returns a new BlockHeader using the provided version,
// previous block hash, merkle root hash, difficulty and nonce, stamped with
// the current time.
func NewBlockHeader(version int32, prevHash, merkleRootHash astramutil.Hash256,
	difficulty uint32, nonce uint64) *BlockHeader {

	return &BlockHeader{
		Version:    version,
		PrevBlock:  prevHash,
		MerkleRoot: merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Difficulty: difficulty,
		Nonce:      nonce,
	}
}

func readBlockHeader(r io.Reader, pver uint32, bh *BlockHeader) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	bh.Version = int32(littleEndian.Uint32(buf[:4]))

	if _, err := io.ReadFull(r, bh.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, bh.MerkleRoot[:]); err != nil {
		return err
	}

	ts, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	bh.Timestamp = time.Unix(int64(ts), 0)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	bh.Difficulty = littleEndian.Uint32(buf[:4])

	nonce, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	bh.Nonce = nonce

	return nil
}

func writeBlockHeader(w io.Writer, pver uint32, bh *BlockHeader) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	littleEndian.PutUint32(buf[:4], uint32(bh.Version))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}
	if _, err := w.Write(bh.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(bh.MerkleRoot[:]); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, uint64(bh.Timestamp.Unix())); err != nil {
		return err
	}

	littleEndian.PutUint32(buf[:4], bh.Difficulty)
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	return binarySerializer.PutUint64(w, littleEndian, bh.Nonce)
}
