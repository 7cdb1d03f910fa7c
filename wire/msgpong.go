// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// MsgPong implements the Message interface and represents an Astram pong
// message, sent in reply to a Ping echoing its nonce.
type MsgPong struct {
	Nonce uint64
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgPong) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	nonce, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Nonce = nonce
	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgPong) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return binarySerializer.PutUint64(w, littleEndian, msg.Nonce)
}

// Command returns the protocol command string for the message.
func (msg *MsgPong) Command() string {
	return CmdPong
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 {
	return 8
}

// NewMsgPong returns a new Astram pong message echoing nonce.
func NewMsgPong(nonce uint64) *MsgPong {
	return &MsgPong{Nonce: nonce}
}
