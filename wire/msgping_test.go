// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// TestPing tests the MsgPing API against the latest protocol version.
func TestPing(t *testing.T) {
	pver := ProtocolVersion

	nonce, err := RandomUint64()
	if err != nil {
		t.Errorf("RandomUint64: Error generating nonce: %v", err)
	}
	msg := NewMsgPing(nonce)
	if msg.Nonce != nonce {
		t.Errorf("NewMsgPing: wrong nonce - got %v, want %v",
			msg.Nonce, nonce)
	}

	wantCmd := "ping"
	if cmd := msg.Command(); cmd != wantCmd {
		t.Errorf("NewMsgPing: wrong command - got %v want %v",
			cmd, wantCmd)
	}

	wantPayload := uint32(8)
	maxPayload := msg.MaxPayloadLength(pver)
	if maxPayload != wantPayload {
		t.Errorf("MaxPayloadLength: wrong max payload length for "+
			"protocol version %d - got %v, want %v", pver,
			maxPayload, wantPayload)
	}
}

// TestPingWire tests the MsgPing wire encode and decode.
func TestPingWire(t *testing.T) {
	tests := []struct {
		in   MsgPing
		out  MsgPing
		buf  []byte
		pver uint32
		enc  MessageEncoding
	}{
		{
			MsgPing{Nonce: 123123}, // 0x1e0f3
			MsgPing{Nonce: 123123},
			[]byte{0xf3, 0xe0, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00},
			ProtocolVersion,
			BaseEncoding,
		},
	}

	for i, test := range tests {
		var buf bytes.Buffer
		err := test.in.FlcEncode(&buf, test.pver, test.enc)
		if err != nil {
			t.Errorf("FlcEncode #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("FlcEncode #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		var msg MsgPing
		rbuf := bytes.NewReader(test.buf)
		err = msg.FlcDecode(rbuf, test.pver, test.enc)
		if err != nil {
			t.Errorf("FlcDecode #%d error %v", i, err)
			continue
		}
		if !reflect.DeepEqual(msg, test.out) {
			t.Errorf("FlcDecode #%d\n got: %s want: %s", i,
				spew.Sdump(msg), spew.Sdump(test.out))
			continue
		}
	}
}

// TestPingWireErrors performs negative tests against wire encode and decode
// of MsgPing to confirm error paths work correctly.
func TestPingWireErrors(t *testing.T) {
	pver := ProtocolVersion

	tests := []struct {
		in       *MsgPing
		buf      []byte
		pver     uint32
		enc      MessageEncoding
		max      int
		writeErr error
		readErr  error
	}{
		{
			&MsgPing{Nonce: 123123},
			[]byte{0xf3, 0xe0, 0x01, 0x00},
			pver,
			BaseEncoding,
			2,
			io.ErrShortWrite,
			io.ErrUnexpectedEOF,
		},
	}

	for i, test := range tests {
		w := newFixedWriter(test.max)
		err := test.in.FlcEncode(w, test.pver, test.enc)
		if err != test.writeErr {
			t.Errorf("FlcEncode #%d wrong error got: %v, want: %v",
				i, err, test.writeErr)
			continue
		}

		var msg MsgPing
		r := newFixedReader(test.max, test.buf)
		err = msg.FlcDecode(r, test.pver, test.enc)
		if err != test.readErr {
			t.Errorf("FlcDecode #%d wrong error got: %v, want: %v",
				i, err, test.readErr)
			continue
		}
	}
}
