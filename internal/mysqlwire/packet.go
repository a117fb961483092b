/*
Copyright 2026 The Aidb Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mysqlwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxPacketPayload is the MySQL wire protocol's per-packet payload limit;
// a payload of exactly this size is followed by a zero-length packet to
// mark the end of the logical message. aidb never emits a packet anywhere
// close to this, so the split path exists for completeness rather than
// because any response triggers it today.
const maxPacketPayload = 1<<24 - 1

// readPacket reads one length-prefixed protocol packet, returning its
// payload and sequence number: a 3-byte little-endian length followed
// by a 1-byte sequence id, the same framing perkeep's vendored GoMySQL
// client uses in the other direction.
func readPacket(r io.Reader) (payload []byte, seq byte, err error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, 0, err
	}
	length := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
	seq = hdr[3]
	payload = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, 0, err
		}
	}
	return payload, seq, nil
}

// writePacket writes payload as one or more framed packets, splitting at
// maxPacketPayload boundaries, advancing seq for each fragment written.
func writePacket(w io.Writer, payload []byte, seq *byte) error {
	for {
		chunk := payload
		if len(chunk) > maxPacketPayload {
			chunk = payload[:maxPacketPayload]
		}
		var hdr [4]byte
		hdr[0] = byte(len(chunk))
		hdr[1] = byte(len(chunk) >> 8)
		hdr[2] = byte(len(chunk) >> 16)
		hdr[3] = *seq
		*seq++
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if len(chunk) > 0 {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
		}
		payload = payload[len(chunk):]
		if len(chunk) < maxPacketPayload {
			return nil
		}
	}
}

// putLenencInt appends n to b in length-encoded-integer form (MySQL
// protocol encoding: values under 251 are a single byte, larger values
// are flagged with 0xfc/0xfd/0xfe followed by a fixed-width little-endian
// field), generalized from perkeep's vendored GoMySQL lcbtob/btolcb pair
// to the modern three-size-class encoding.
func putLenencInt(b []byte, n uint64) []byte {
	switch {
	case n < 251:
		return append(b, byte(n))
	case n <= 0xffff:
		return append(b, 0xfc, byte(n), byte(n>>8))
	case n <= 0xffffff:
		return append(b, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, n)
		return append(append(b, 0xfe), buf...)
	}
}

// putLenencString appends s as a length-encoded string: its byte length
// as a lenenc int, followed by the raw bytes.
func putLenencString(b []byte, s string) []byte {
	b = putLenencInt(b, uint64(len(s)))
	return append(b, s...)
}

// lenencNull is the sentinel first byte marking a NULL column value in a
// text result-set row, per the protocol's length-encoded-string column.
const lenencNull = 0xfb

// getLenencInt reads a length-encoded integer from b, returning its value,
// the number of bytes consumed, and whether b held a well-formed encoding.
func getLenencInt(b []byte) (n uint64, consumed int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	switch {
	case b[0] < 0xfb:
		return uint64(b[0]), 1, true
	case b[0] == 0xfc:
		if len(b) < 3 {
			return 0, 0, false
		}
		return uint64(b[1]) | uint64(b[2])<<8, 3, true
	case b[0] == 0xfd:
		if len(b) < 4 {
			return 0, 0, false
		}
		return uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16, 4, true
	case b[0] == 0xfe:
		if len(b) < 9 {
			return 0, 0, false
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, true
	default:
		return 0, 0, false
	}
}

// getLenencString reads a length-encoded string from b.
func getLenencString(b []byte) (s string, consumed int, ok bool) {
	n, used, ok := getLenencInt(b)
	if !ok || used+int(n) > len(b) {
		return "", 0, false
	}
	return string(b[used : used+int(n)]), used + int(n), true
}

// nullTerminated splits b at the first 0x00 byte, returning the string
// before it and the number of bytes consumed including the terminator.
func nullTerminated(b []byte) (s string, consumed int, ok bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), i + 1, true
		}
	}
	return "", 0, false
}

func errPacketTooShort(what string) error {
	return fmt.Errorf("mysqlwire: packet too short reading %s", what)
}
