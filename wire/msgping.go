// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// MsgPing implements the Message interface and represents an Astram ping
// message, sent to keep an idle connection alive and to measure latency for
// peer scoring. The nonce echoed back in the matching Pong lets the sender
// attribute a round trip to this specific ping.
type MsgPing struct {
	Nonce uint64
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgPing) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	nonce, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Nonce = nonce
	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgPing) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return binarySerializer.PutUint64(w, littleEndian, msg.Nonce)
}

// Command returns the protocol command string for the message.
func (msg *MsgPing) Command() string {
	return CmdPing
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 {
	return 8
}

// NewMsgPing returns a new Astram ping message that conforms to the Message
// interface.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}
