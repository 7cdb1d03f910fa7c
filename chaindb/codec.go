// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

// ChainEntry is the block-index record for a single block: enough to
// walk the index and compare candidate tips without loading the full
// block body. CumulativeWork is tracked as a saturating Uint256 rather
// than a machine word so a pathological chain of high-difficulty
// blocks can't wrap it.
type ChainEntry struct {
	Hash           astramutil.Hash256
	PrevHash       astramutil.Hash256
	Height         int64
	Header         wire.BlockHeader
	CumulativeWork astramutil.Uint256
	// ArrivalOrder breaks ties between equal-work chains in favor of
	// the earlier-seen one.
	ArrivalOrder uint64
	Valid        bool
}

// Encode serializes a ChainEntry for storage.
func (e *ChainEntry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(e.PrevHash[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, e.Height); err != nil {
		return nil, err
	}
	if err := e.Header.Serialize(&buf); err != nil {
		return nil, err
	}
	workBytes := e.CumulativeWork.Bytes()
	if _, err := buf.Write(workBytes[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, e.ArrivalOrder); err != nil {
		return nil, err
	}
	validByte := byte(0)
	if e.Valid {
		validByte = 1
	}
	buf.WriteByte(validByte)
	return buf.Bytes(), nil
}

// DecodeChainEntry deserializes a ChainEntry previously written by Encode.
func DecodeChainEntry(hash astramutil.Hash256, data []byte) (*ChainEntry, error) {
	r := bytes.NewReader(data)
	e := &ChainEntry{Hash: hash}
	if _, err := io.ReadFull(r, e.PrevHash[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &e.Height); err != nil {
		return nil, err
	}
	if err := e.Header.Deserialize(r); err != nil {
		return nil, err
	}
	var workBytes [32]byte
	if _, err := io.ReadFull(r, workBytes[:]); err != nil {
		return nil, err
	}
	e.CumulativeWork = astramutil.NewUint256FromBigEndian(workBytes[:])
	if err := binary.Read(r, binary.BigEndian, &e.ArrivalOrder); err != nil {
		return nil, err
	}
	validByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	e.Valid = validByte == 1
	return e, nil
}

// encodeUTXOEntry serializes a utxo.Entry for storage.
func encodeUTXOEntry(e *utxo.Entry) []byte {
	buf := make([]byte, 8+astramutil.AddressSize+8+1)
	binary.BigEndian.PutUint64(buf[0:8], e.Amount)
	copy(buf[8:8+astramutil.AddressSize], e.Recipient[:])
	off := 8 + astramutil.AddressSize
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(e.BlockHeight))
	if e.IsCoinbase {
		buf[off+8] = 1
	}
	return buf
}

func decodeUTXOEntry(data []byte) (*utxo.Entry, error) {
	want := 8 + astramutil.AddressSize + 8 + 1
	if len(data) != want {
		return nil, io.ErrUnexpectedEOF
	}
	e := &utxo.Entry{}
	e.Amount = binary.BigEndian.Uint64(data[0:8])
	copy(e.Recipient[:], data[8:8+astramutil.AddressSize])
	off := 8 + astramutil.AddressSize
	e.BlockHeight = int64(binary.BigEndian.Uint64(data[off : off+8]))
	e.IsCoinbase = data[off+8] == 1
	return e, nil
}
