// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/astram-project/astramd/astramutil"
)

// At most 1000 inputs/outputs, and a serialized transaction may not
// exceed 100 KB.
const (
	MaxTxInPerTx  = 1000
	MaxTxOutPerTx = 1000

	// MaxTxSize is the maximum serialized size of a single transaction.
	MaxTxSize = 100 * 1000

	// MaxTxPayload bounds a standalone tx message; equal to MaxTxSize
	// since a transaction is the entire payload.
	MaxTxPayload = MaxTxSize

	// MaxSignatureScriptSize bounds a single input's signature script so
	// that MaxTxInPerTx inputs cannot individually balloon past MaxTxSize.
	MaxSignatureScriptSize = 10000
)

// OutPoint identifies a single transaction output: (txid, index).
// Unique across the chain.
type OutPoint struct {
	Hash  astramutil.Hash256
	Index uint32
}

// NewOutPoint returns a new OutPoint.
func NewOutPoint(hash *astramutil.Hash256, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// IsNull reports whether the outpoint is the coinbase's null prevout: the
// all-zero hash with index 0xffffffff.
func (o *OutPoint) IsNull() bool {
	return o.Index == ^uint32(0) && o.Hash.IsZero()
}

// String returns "hash:index".
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash.String(), o.Index)
}

// TxIn defines an Astram transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// NewTxIn returns a new transaction input with the provided previous
// outpoint and signature script.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// MaxTxInSequenceNum is the default, final sequence number.
const MaxTxInSequenceNum uint32 = 0xffffffff

// SerializeSize returns the number of bytes this input occupies when
// serialized.
func (t *TxIn) SerializeSize() int {
	return 32 + 4 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript) + 4
}

// TxOut defines an Astram transaction output: a value in base units paid to
// a recipient address.
type TxOut struct {
	Value     uint64
	Recipient astramutil.Address
}

// NewTxOut returns a new transaction output.
func NewTxOut(value uint64, recipient astramutil.Address) *TxOut {
	return &TxOut{Value: value, Recipient: recipient}
}

// SerializeSize returns the number of bytes this output occupies when
// serialized: 8 (value) + 20 (recipient).
func (t *TxOut) SerializeSize() int {
	return 8 + astramutil.AddressSize
}

// MsgTx implements the Message interface and represents an Astram
// transaction: (version, inputs, outputs, lock_time).
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewMsgTx returns a new Astram transaction with the given version.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		Version: version,
		TxIn:    make([]*TxIn, 0, defaultTxInOutAlloc),
		TxOut:   make([]*TxOut, 0, defaultTxInOutAlloc),
	}
}

const defaultTxInOutAlloc = 4

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// IsCoinBase reports whether the transaction is a coinbase: exactly one
// input whose previous outpoint is null.
func (msg *MsgTx) IsCoinBase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].PreviousOutPoint.IsNull()
}

// TxHash computes txid = double_sha256(canonical_serialize(tx)).
func (msg *MsgTx) TxHash() astramutil.Hash256 {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	// Serialize cannot fail writing into a bytes.Buffer.
	_ = msg.Serialize(buf)
	return astramutil.DoubleSha256(buf.Bytes())
}

// SerializeSize returns the canonical serialized size of the transaction in
// bytes.
func (msg *MsgTx) SerializeSize() int {
	n := 4 + 4 // version + lock_time
	n += VarIntSerializeSize(uint64(len(msg.TxIn)))
	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	n += VarIntSerializeSize(uint64(len(msg.TxOut)))
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}
	return n
}

// Serialize encodes the transaction using the canonical codec (identical to
// the wire encoding; Astram has no separate witness/storage variant).
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.FlcEncode(w, 0, BaseEncoding)
}

// Deserialize decodes a transaction from r using the canonical codec.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	return msg.FlcDecode(r, 0, BaseEncoding)
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgTx) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.Version = int32(littleEndian.Uint32(buf[:4]))

	inCount, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if inCount > MaxTxInPerTx {
		return messageError("MsgTx.FlcDecode",
			fmt.Sprintf("too many input transactions to fit into max message size [count %d, max %d]",
				inCount, MaxTxInPerTx))
	}

	msg.TxIn = make([]*TxIn, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		ti := new(TxIn)
		if _, err := io.ReadFull(r, ti.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		ti.PreviousOutPoint.Index = littleEndian.Uint32(buf[:4])

		ti.SignatureScript, err = ReadVarBytes(r, pver, MaxSignatureScriptSize, "signature script")
		if err != nil {
			return err
		}

		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		ti.Sequence = littleEndian.Uint32(buf[:4])

		msg.AddTxIn(ti)
	}

	outCount, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if outCount > MaxTxOutPerTx {
		return messageError("MsgTx.FlcDecode",
			fmt.Sprintf("too many output transactions to fit into max message size [count %d, max %d]",
				outCount, MaxTxOutPerTx))
	}

	msg.TxOut = make([]*TxOut, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		to := new(TxOut)

		value, err := binarySerializer.Uint64(r, littleEndian)
		if err != nil {
			return err
		}
		to.Value = value

		if _, err := io.ReadFull(r, to.Recipient[:]); err != nil {
			return err
		}

		msg.AddTxOut(to)
	}

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.LockTime = littleEndian.Uint32(buf[:4])

	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgTx) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	littleEndian.PutUint32(buf[:4], uint32(msg.Version))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := WriteVarIntBuf(w, pver, uint64(len(msg.TxIn)), buf); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if _, err := w.Write(ti.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		littleEndian.PutUint32(buf[:4], ti.PreviousOutPoint.Index)
		if _, err := w.Write(buf[:4]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, pver, ti.SignatureScript); err != nil {
			return err
		}
		littleEndian.PutUint32(buf[:4], ti.Sequence)
		if _, err := w.Write(buf[:4]); err != nil {
			return err
		}
	}

	if err := WriteVarIntBuf(w, pver, uint64(len(msg.TxOut)), buf); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := binarySerializer.PutUint64(w, littleEndian, to.Value); err != nil {
			return err
		}
		if _, err := w.Write(to.Recipient[:]); err != nil {
			return err
		}
	}

	littleEndian.PutUint32(buf[:4], msg.LockTime)
	_, err := w.Write(buf[:4])
	return err
}

// Command returns the protocol command string for the message.
func (msg *MsgTx) Command() string {
	return CmdTx
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 {
	return MaxTxPayload
}
