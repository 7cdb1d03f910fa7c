// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// MaxUserAgentLength bounds the Version message's user agent string.
const MaxUserAgentLength = 256

// MsgVersion implements the Message interface and represents the second
// leg of the handshake, carrying software identification once the
// peers have already agreed on network identity via
// Handshake/HandshakeAck.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        ServiceFlag
	UserAgent       string
}

// NewMsgVersion returns a new Astram version message.
func NewMsgVersion(services ServiceFlag, userAgent string) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        services,
		UserAgent:       userAgent,
	}
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgVersion) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		binarySerializer.Return(buf)
		return err
	}
	msg.ProtocolVersion = littleEndian.Uint32(buf[:4])
	binarySerializer.Return(buf)

	services, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Services = ServiceFlag(services)

	userAgent, err := ReadVarBytes(r, pver, MaxUserAgentLength, "user agent")
	if err != nil {
		return err
	}
	msg.UserAgent = string(userAgent)

	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgVersion) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	littleEndian.PutUint32(buf[:4], msg.ProtocolVersion)
	_, err := w.Write(buf[:4])
	binarySerializer.Return(buf)
	if err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, uint64(msg.Services)); err != nil {
		return err
	}

	return WriteVarBytes(w, pver, []byte(msg.UserAgent))
}

// Command returns the protocol command string for the message.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + uint32(VarIntSerializeSize(MaxUserAgentLength)) + MaxUserAgentLength
}
