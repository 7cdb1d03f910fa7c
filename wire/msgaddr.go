// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
	"net"
	"time"
)

// MaxAddrPerMsg is the maximum number of addresses that can be in a single
// addr message.
const MaxAddrPerMsg = 1000

// maxNetAddressPayload is the maximum size in bytes of an encoded
// NetAddress: 8 bytes services + 16 bytes IP + 2 bytes port + 4 bytes
// timestamp.
const maxNetAddressPayload = 8 + 16 + 2 + 4

// NetAddress records a peer's network location, used by the address
// manager's gossip to bootstrap outbound dialing beyond the DNS
// registry's advisory seed list.
type NetAddress struct {
	// Timestamp the address was last seen active.
	Timestamp time.Time

	// Services advertised by the peer at that address.
	Services ServiceFlag

	// IP address, stored in its 16-byte form (v4-in-v6 mapped when IPv4).
	IP net.IP

	// Port the peer listens on.
	Port uint16
}

// NewNetAddressIPPort builds a NetAddress from an IP, port and service set.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{
		Timestamp: time.Unix(time.Now().Unix(), 0),
		Services:  services,
		IP:        ip,
		Port:      port,
	}
}

func readNetAddress(r io.Reader, pver uint32, na *NetAddress, buf []byte) error {
	var ts uint32
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	ts = littleEndian.Uint32(buf[:4])
	na.Timestamp = time.Unix(int64(ts), 0)

	svc, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	na.Services = ServiceFlag(svc)

	var ip [16]byte
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}
	na.IP = net.IP(ip[:])

	port, err := binarySerializer.Uint16(r, littleEndian)
	if err != nil {
		return err
	}
	na.Port = port

	return nil
}

func writeNetAddress(w io.Writer, pver uint32, na *NetAddress, buf []byte) error {
	littleEndian.PutUint32(buf[:4], uint32(na.Timestamp.Unix()))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if ip4 := na.IP.To4(); ip4 != nil {
		copy(ip[12:16], ip4)
	} else if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	return binarySerializer.PutUint16(w, littleEndian, na.Port)
}

// MsgAddr implements the Message interface and represents an Astram addr
// message, used to deliver known peer addresses in response to getaddr.
type MsgAddr struct {
	AddrList []*NetAddress
}

// AddAddress adds a known active peer address to the message.
func (msg *MsgAddr) AddAddress(na *NetAddress) error {
	if len(msg.AddrList)+1 > MaxAddrPerMsg {
		return messageError("MsgAddr.AddAddress",
			fmt.Sprintf("too many addresses in message [max %v]", MaxAddrPerMsg))
	}
	msg.AddrList = append(msg.AddrList, na)
	return nil
}

// FlcDecode decodes r using the Astram protocol encoding into the receiver.
func (msg *MsgAddr) FlcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	count, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.FlcDecode",
			fmt.Sprintf("too many addresses for message [%v]", count))
	}

	addrList := make([]NetAddress, count)
	msg.AddrList = make([]*NetAddress, 0, count)
	for i := uint64(0); i < count; i++ {
		na := &addrList[i]
		if err := readNetAddress(r, pver, na, buf); err != nil {
			return err
		}
		msg.AddAddress(na)
	}
	return nil
}

// FlcEncode encodes the receiver to w using the Astram protocol encoding.
func (msg *MsgAddr) FlcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	count := len(msg.AddrList)
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.FlcEncode",
			fmt.Sprintf("too many addresses for message [%v]", count))
	}

	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if err := WriteVarIntBuf(w, pver, uint64(count), buf); err != nil {
		return err
	}
	for _, na := range msg.AddrList {
		if err := writeNetAddress(w, pver, na, buf); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgAddr) Command() string {
	return CmdAddr
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.
func (msg *MsgAddr) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + (MaxAddrPerMsg * maxNetAddressPayload)
}

// NewMsgAddr returns a new Astram addr message that conforms to the Message
// interface.
func NewMsgAddr() *MsgAddr {
	return &MsgAddr{AddrList: make([]*NetAddress, 0, defaultInvListAlloc)}
}
