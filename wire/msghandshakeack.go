// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// MaxHandshakeRejectReasonLength bounds the human-readable rejection reason
// string carried in a rejected HandshakeAck.
const MaxHandshakeRejectReasonLength = 256

// MsgHandshakeAck implements the Message interface and represents the
// acking peer's reply to a Handshake. Accepted echoes back the acking
// peer's own net_id/chain_id/height/listen_port/features so both sides
// learn each other's view in one round trip; a rejected ack
// (cross-network mismatch) carries Reason and the connection is
// expected to close immediately after.
type MsgHandshakeAck struct {
	Accepted   bool
	Reason     string
	NetworkID  string
	ChainID    uint32
	Height     uint64
	ListenPort uint16
	Features   ServiceFlag
}

// NewMsgHandshakeAck returns an accepting Astram handshake-ack message.
func NewMsgHandshakeAck(networkID string, chainID uint32, height uint64, listenPort uint16, features ServiceFlag) *MsgHandshakeAck {
	return &MsgHandshakeAck{
		Accepted:   true,
		NetworkID:  networkID,
		ChainID:    chainID,
		Height:     height,
		ListenPort: listenPort,
		Features:   features,
	}
}

// NewMsgHandshakeReject returns a rejecting Astram handshake-ack message
// carrying the given reason.
func NewMsgHandshakeReject(reason string) *MsgHandshakeAck {
	return &MsgHandshakeAck{Accepted: false, Reason: reason}
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgHandshakeAck) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	accepted, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}
	msg.Accepted = accepted != 0

	if !msg.Accepted {
		reason, err := ReadVarBytes(r, pver, MaxHandshakeRejectReasonLength, "reject reason")
		if err != nil {
			return err
		}
		msg.Reason = string(reason)
		return nil
	}

	netID, err := ReadVarBytes(r, pver, MaxNetworkIDLength, "network id")
	if err != nil {
		return err
	}
	msg.NetworkID = string(netID)

	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.ChainID = littleEndian.Uint32(buf[:4])

	height, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Height = height

	port, err := binarySerializer.Uint16(r, littleEndian)
	if err != nil {
		return err
	}
	msg.ListenPort = port

	features, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Features = ServiceFlag(features)

	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgHandshakeAck) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	accepted := uint8(0)
	if msg.Accepted {
		accepted = 1
	}
	if err := binarySerializer.PutUint8(w, accepted); err != nil {
		return err
	}

	if !msg.Accepted {
		return WriteVarBytes(w, pver, []byte(msg.Reason))
	}

	if err := WriteVarBytes(w, pver, []byte(msg.NetworkID)); err != nil {
		return err
	}

	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)
	littleEndian.PutUint32(buf[:4], msg.ChainID)
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, msg.Height); err != nil {
		return err
	}
	if err := binarySerializer.PutUint16(w, littleEndian, msg.ListenPort); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, littleEndian, uint64(msg.Features))
}

// Command returns the protocol command string for the message.
func (msg *MsgHandshakeAck) Command() string {
	return CmdHandshakeAck
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgHandshakeAck) MaxPayloadLength(pver uint32) uint32 {
	return 1 + uint32(VarIntSerializeSize(MaxHandshakeRejectReasonLength)) + MaxHandshakeRejectReasonLength +
		4 + 8 + 2 + 8
}
