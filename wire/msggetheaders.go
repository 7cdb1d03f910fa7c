// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/astram-project/astramd/astramutil"
)

// MaxBlockLocatorHashes is the maximum number of block locator hashes
// allowed per message.
const MaxBlockLocatorHashes = 500

// MsgGetHeaders implements the Message interface and represents a request
// for headers starting at the locator, the exponentially-spaced ancestor
// hashes of the requester's best chain.
type MsgGetHeaders struct {
	BlockLocatorHashes []astramutil.Hash256
	HashStop           astramutil.Hash256
}

// AddBlockLocatorHash adds a new hash to the message.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash astramutil.Hash256) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorHashes {
		return messageError("MsgGetHeaders.AddBlockLocatorHash",
			fmt.Sprintf("too many block locator hashes for message [max %v]",
				MaxBlockLocatorHashes))
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgGetHeaders) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	count, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorHashes {
		return messageError("MsgGetHeaders.FlcDecode",
			fmt.Sprintf("too many block locator hashes for message [%v]", count))
	}

	msg.BlockLocatorHashes = make([]astramutil.Hash256, 0, count)
	for i := uint64(0); i < count; i++ {
		var hash astramutil.Hash256
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return err
		}
		msg.AddBlockLocatorHash(hash)
	}

	if _, err := io.ReadFull(r, msg.HashStop[:]); err != nil {
		return err
	}

	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgGetHeaders) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	count := len(msg.BlockLocatorHashes)
	if count > MaxBlockLocatorHashes {
		return messageError("MsgGetHeaders.FlcEncode",
			fmt.Sprintf("too many block locator hashes for message [%v]", count))
	}

	buf := binarySerializer.Borrow()
	err := WriteVarIntBuf(w, pver, uint64(count), buf)
	binarySerializer.Return(buf)
	if err != nil {
		return err
	}

	for _, hash := range msg.BlockLocatorHashes {
		if _, err := w.Write(hash[:]); err != nil {
			return err
		}
	}

	_, err = w.Write(msg.HashStop[:])
	return err
}

// Command returns the protocol command string for the message.
func (msg *MsgGetHeaders) Command() string {
	return CmdGetHeaders
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + (MaxBlockLocatorHashes * astramutil.HashSize) + astramutil.HashSize
}

// NewMsgGetHeaders returns a new Astram getheaders message that conforms to
// the Message interface.
func NewMsgGetHeaders() *MsgGetHeaders {
	return &MsgGetHeaders{
		BlockLocatorHashes: make([]astramutil.Hash256, 0, MaxBlockLocatorHashes),
	}
}
