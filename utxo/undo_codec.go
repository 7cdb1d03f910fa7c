// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// EncodeUndo serializes an Undo record for storage in the undo_log
// table, restoring byte-equal UTXO state when later reverted.
func EncodeUndo(u *Undo) []byte {
	var buf bytes.Buffer
	buf.Write(u.BlockHash[:])
	writeUint64(&buf, uint64(u.Height))

	writeUint64(&buf, uint64(len(u.SpentEntries)))
	for _, se := range u.SpentEntries {
		writeOutPoint(&buf, se.OutPoint)
		writeUint64(&buf, se.Entry.Amount)
		buf.Write(se.Entry.Recipient[:])
		writeUint64(&buf, uint64(se.Entry.BlockHeight))
		writeBool(&buf, se.Entry.IsCoinbase)
	}

	writeUint64(&buf, uint64(len(u.CreatedOutPts)))
	for _, op := range u.CreatedOutPts {
		writeOutPoint(&buf, op)
	}

	return buf.Bytes()
}

// DecodeUndo deserializes an Undo record previously written by
// EncodeUndo.
func DecodeUndo(data []byte) (*Undo, error) {
	r := bytes.NewReader(data)
	u := &Undo{}

	if _, err := io.ReadFull(r, u.BlockHash[:]); err != nil {
		return nil, err
	}
	height, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	u.Height = int64(height)

	spentCount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	u.SpentEntries = make([]SpentEntry, spentCount)
	for i := range u.SpentEntries {
		op, err := readOutPoint(r)
		if err != nil {
			return nil, err
		}
		amount, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		var recipient astramutil.Address
		if _, err := io.ReadFull(r, recipient[:]); err != nil {
			return nil, err
		}
		blockHeight, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		isCoinbase, err := readBool(r)
		if err != nil {
			return nil, err
		}
		u.SpentEntries[i] = SpentEntry{
			OutPoint: op,
			Entry: Entry{
				Amount:      amount,
				Recipient:   recipient,
				BlockHeight: int64(blockHeight),
				IsCoinbase:  isCoinbase,
			},
		}
	}

	createdCount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	u.CreatedOutPts = make([]wire.OutPoint, createdCount)
	for i := range u.CreatedOutPts {
		op, err := readOutPoint(r)
		if err != nil {
			return nil, err
		}
		u.CreatedOutPts[i] = op
	}

	return u, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] == 1, nil
}

func writeOutPoint(buf *bytes.Buffer, op wire.OutPoint) {
	buf.Write(op.Hash[:])
	writeUint64(buf, uint64(op.Index))
}

func readOutPoint(r io.Reader) (wire.OutPoint, error) {
	var op wire.OutPoint
	if _, err := io.ReadFull(r, op.Hash[:]); err != nil {
		return op, err
	}
	index, err := readUint64(r)
	if err != nil {
		return op, err
	}
	op.Index = uint32(index)
	return op, nil
}
