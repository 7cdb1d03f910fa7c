// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// MaxNetworkIDLength bounds the Handshake/HandshakeAck net_id string
// (e.g. "Astram-mainnet").
const MaxNetworkIDLength = 64

// MsgHandshake implements the Message interface and represents the first
// message sent by a dialing peer:
// Handshake{proto, net_id, chain_id, height, listen_port, features}.
type MsgHandshake struct {
	ProtocolVersion uint32
	NetworkID       string
	ChainID         uint32
	Height          uint64
	ListenPort      uint16
	Features        ServiceFlag
}

// NewMsgHandshake returns a new Astram handshake message.
func NewMsgHandshake(networkID string, chainID uint32, height uint64, listenPort uint16, features ServiceFlag) *MsgHandshake {
	return &MsgHandshake{
		ProtocolVersion: ProtocolVersion,
		NetworkID:       networkID,
		ChainID:         chainID,
		Height:          height,
		ListenPort:      listenPort,
		Features:        features,
	}
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgHandshake) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.ProtocolVersion = littleEndian.Uint32(buf[:4])

	netID, err := ReadVarBytes(r, pver, MaxNetworkIDLength, "network id")
	if err != nil {
		return err
	}
	msg.NetworkID = string(netID)

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
func (msg *MsgHandshake) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	littleEndian.PutUint32(buf[:4], msg.ProtocolVersion)
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := WriteVarBytes(w, pver, []byte(msg.NetworkID)); err != nil {
		return err
	}

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
func (msg *MsgHandshake) Command() string {
	return CmdHandshake
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgHandshake) MaxPayloadLength(pver uint32) uint32 {
	return 4 + uint32(VarIntSerializeSize(MaxNetworkIDLength)) + MaxNetworkIDLength + 4 + 8 + 2 + 8
}
