// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MaxInvPerMsg is the maximum number of inventory vectors that can be in a
// single inv, getdata, or notfound message.
const MaxInvPerMsg = 50000

// defaultInvListAlloc is the default size used for the backing array of an
// inventory list. The array will dynamically grow as needed, but this
// figure avoids a few of the more expensive reallocations.
const defaultInvListAlloc = 1000

// InvType represents the type of inventory vector being relayed.
type InvType uint32

// Inventory vector types.
const (
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

var ivStrings = map[InvType]string{
	InvTypeTx:    "MSG_TX",
	InvTypeBlock: "MSG_BLOCK",
}

// String returns the InvType in human-readable form.
func (invtype InvType) String() string {
	if s, ok := ivStrings[invtype]; ok {
		return s
	}
	return fmt.Sprintf("Unknown InvType (%d)", uint32(invtype))
}

// maxInvVectPayload is the maximum size in bytes of a serialized inventory
// vector: 4 bytes type + 32 bytes hash.
const maxInvVectPayload = 4 + HashSizeWire

// InvVect defines a single inventory vector used to describe data
// carried by the Inv/GetData relay.
type InvVect struct {
	Type InvType
	Hash [HashSizeWire]byte
}

// NewInvVect returns a new InvVect using the provided type and hash.
func NewInvVect(typ InvType, hash [HashSizeWire]byte) *InvVect {
	return &InvVect{Type: typ, Hash: hash}
}

func readInvVectBuf(r io.Reader, pver uint32, iv *InvVect, buf []byte) error {
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	iv.Type = InvType(littleEndian.Uint32(buf[:4]))

	if _, err := io.ReadFull(r, iv.Hash[:]); err != nil {
		return err
	}
	return nil
}

func writeInvVectBuf(w io.Writer, pver uint32, iv *InvVect, buf []byte) error {
	littleEndian.PutUint32(buf[:4], uint32(iv.Type))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}
	_, err := w.Write(iv.Hash[:])
	return err
}

// MsgInv implements the Message interface and represents an Astram inv
// message, used to advertise transactions and blocks a peer has available.
type MsgInv struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return messageError("MsgInv.AddInvVect",
			fmt.Sprintf("too many invvect in message [max %v]", MaxInvPerMsg))
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgInv) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	count, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if count > MaxInvPerMsg {
		return messageError("MsgInv.FlcDecode",
			fmt.Sprintf("too many invvect in message [%v]", count))
	}

	invList := make([]InvVect, count)
	msg.InvList = make([]*InvVect, 0, count)
	for i := uint64(0); i < count; i++ {
		iv := &invList[i]
		if err := readInvVectBuf(r, pver, iv, buf); err != nil {
			return err
		}
		msg.AddInvVect(iv)
	}
	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgInv) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	count := len(msg.InvList)
	if count > MaxInvPerMsg {
		return messageError("MsgInv.FlcEncode",
			fmt.Sprintf("too many invvect in message [%v]", count))
	}

	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if err := WriteVarIntBuf(w, pver, uint64(count), buf); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		if err := writeInvVectBuf(w, pver, iv, buf); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgInv) Command() string {
	return CmdInv
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + (MaxInvPerMsg * maxInvVectPayload)
}

// NewMsgInv returns a new Astram inv message that conforms to the Message
// interface.
func NewMsgInv() *MsgInv {
	return &MsgInv{InvList: make([]*InvVect, 0, defaultInvListAlloc)}
}
