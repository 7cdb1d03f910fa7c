// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MaxBlockHeadersPerMsg is the maximum number of block headers that can be
// in a single Astram headers message.
const MaxBlockHeadersPerMsg = 2000

// MsgHeaders implements the Message interface and represents an Astram
// headers message, delivered in response to a GetHeaders request.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader adds a new block header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxBlockHeadersPerMsg {
		return messageError("MsgHeaders.AddBlockHeader",
			fmt.Sprintf("too many block headers in message [max %v]",
				MaxBlockHeadersPerMsg))
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgHeaders) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	count, err := ReadVarIntBuf(r, pver, buf)
	binarySerializer.Return(buf)
	if err != nil {
		return err
	}

	if count > MaxBlockHeadersPerMsg {
		return messageError("MsgHeaders.FlcDecode",
			fmt.Sprintf("too many block headers for message [count %v, max %v]",
				count, MaxBlockHeadersPerMsg))
	}

	headers := make([]BlockHeader, count)
	msg.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		bh := &headers[i]
		if err := readBlockHeader(r, pver, bh); err != nil {
			return err
		}
		msg.AddBlockHeader(bh)
	}

	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgHeaders) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	count := len(msg.Headers)
	if count > MaxBlockHeadersPerMsg {
		return messageError("MsgHeaders.FlcEncode",
			fmt.Sprintf("too many block headers for message [count %v, max %v]",
				count, MaxBlockHeadersPerMsg))
	}

	buf := binarySerializer.Borrow()
	err := WriteVarIntBuf(w, pver, uint64(count), buf)
	binarySerializer.Return(buf)
	if err != nil {
		return err
	}

	for _, bh := range msg.Headers {
		if err := writeBlockHeader(w, pver, bh); err != nil {
			return err
		}
	}

	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgHeaders) Command() string {
	return CmdHeaders
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + (MaxBlockHeaderPayload * MaxBlockHeadersPerMsg)
}

// NewMsgHeaders returns a new Astram headers message that conforms to the
// Message interface.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{
		Headers: make([]*BlockHeader, 0, MaxBlockHeadersPerMsg),
	}
}
