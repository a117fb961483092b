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

// Package mysqlwire implements a minimal server side of the MySQL
// client/server wire protocol: the initial handshake, COM_QUERY, and the
// OK/ERR/result-set response packets, wrapping an *engine.Engine behind a
// plain net.Listener. It is read off perkeep's vendored MySQL client
// libraries backwards (lib/go/camli/third_party/github.com/camlistore/GoMySQL
// and pkg/third_party/github.com/Philio/GoMySQL), since a client's packet
// readers and writers describe exactly the packets a server must write
// and read, respectively.
package mysqlwire

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/NKID00/aidb/internal/engine"
	"github.com/NKID00/aidb/internal/types"
)

const (
	protocolVersion10 = 10
	serverVersion     = "8.0.0-aidb"

	capProtocol41     = 0x00000200
	capSecureConn     = 0x00008000
	capPluginAuth     = 0x00080000
	capConnectWithDB  = 0x00000008
	statusAutocommit  = 0x0002
	authPluginName    = "mysql_native_password"
	colTypeLongLong   = 0x08 // COLUMN_TYPE_LONGLONG
	colTypeDouble     = 0x05 // COLUMN_TYPE_DOUBLE
	colTypeVarString  = 0xfd // COLUMN_TYPE_VAR_STRING
	commandQuery byte = 0x03
	commandQuit  byte = 0x01
	commandPing  byte = 0x0e
)

// Server accepts TCP connections speaking the MySQL protocol and serves
// every query against a single *engine.Engine. The engine is not safe for
// concurrent use by itself (§5), so Server serializes every query across
// all connections with a mutex; it holds no other per-connection state.
type Server struct {
	Engine *engine.Engine

	mu sync.Mutex
}

// NewServer returns a Server backed by e.
func NewServer(e *engine.Engine) *Server {
	return &Server{Engine: e}
}

// Serve accepts connections on ln until it returns an error (including
// when ln is closed), handling each one on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	defer nc.Close()
	c := &conn{nc: nc}
	if err := c.handshake(); err != nil {
		log.Printf("mysqlwire: handshake with %s: %v", nc.RemoteAddr(), err)
		return
	}
	log.Printf("mysqlwire: %s connected as %q", nc.RemoteAddr(), c.username)
	for {
		payload, seq, err := readPacket(nc)
		if err != nil {
			if err != io.EOF {
				log.Printf("mysqlwire: read from %s: %v", nc.RemoteAddr(), err)
			}
			return
		}
		c.seq = seq + 1
		if len(payload) == 0 {
			continue
		}
		switch payload[0] {
		case commandQuit:
			return
		case commandPing:
			if err := c.writeOK(0, 0); err != nil {
				return
			}
		case commandQuery:
			sql := string(payload[1:])
			if err := s.runQuery(ctx, c, sql); err != nil {
				log.Printf("mysqlwire: write response to %s: %v", nc.RemoteAddr(), err)
				return
			}
		default:
			if err := c.writeErr(1047, "08S01", fmt.Sprintf("unsupported command 0x%02x", payload[0])); err != nil {
				return
			}
		}
	}
}

func (s *Server) runQuery(ctx context.Context, c *conn, sql string) error {
	s.mu.Lock()
	resp, err := s.Engine.Query(ctx, sql)
	s.mu.Unlock()
	if err != nil {
		return c.writeErr(1064, "42000", err.Error())
	}
	if resp.Meta != nil {
		return c.writeOK(uint64(resp.Meta.AffectedRows), 0)
	}
	return c.writeResultSet(resp.Rows)
}

// conn holds the per-connection framing state: the net.Conn and the next
// packet sequence number to send.
type conn struct {
	nc       net.Conn
	seq      byte
	username string
}

// handshake sends the initial handshake packet and accepts whatever
// credentials the client offers (per §4.11, authentication itself is out
// of scope: aidb accepts any user/password).
func (c *conn) handshake() error {
	c.seq = 0
	scramble := make([]byte, 20)
	for i := range scramble {
		scramble[i] = byte('a' + i%26)
	}

	payload := []byte{protocolVersion10}
	payload = append(payload, serverVersion...)
	payload = append(payload, 0)
	payload = append(payload, 1, 0, 0, 0) // connection id
	payload = append(payload, scramble[:8]...)
	payload = append(payload, 0) // filler
	caps := uint32(capProtocol41 | capSecureConn | capPluginAuth | capConnectWithDB)
	payload = append(payload, byte(caps), byte(caps>>8))
	payload = append(payload, 0x21) // character set: utf8_general_ci
	payload = append(payload, byte(statusAutocommit), byte(statusAutocommit>>8))
	payload = append(payload, byte(caps>>16), byte(caps>>24))
	payload = append(payload, byte(len(scramble)+1))
	payload = append(payload, make([]byte, 10)...) // reserved
	payload = append(payload, scramble[8:]...)
	payload = append(payload, 0)
	payload = append(payload, authPluginName...)
	payload = append(payload, 0)

	if err := writePacket(c.nc, payload, &c.seq); err != nil {
		return fmt.Errorf("mysqlwire: write handshake: %w", err)
	}

	resp, _, err := readPacket(c.nc)
	if err != nil {
		return fmt.Errorf("mysqlwire: read handshake response: %w", err)
	}
	c.seq++
	if len(resp) < 32 {
		return errPacketTooShort("handshake response")
	}

	// Bytes [0:4) capability flags, [4:8) max packet size, [8) charset,
	// [9:32) reserved, then a null-terminated username and a
	// length-encoded auth response (per capSecureConn). Parsed for
	// logging only: aidb accepts any username/password per §4.11.
	username, n, ok := nullTerminated(resp[32:])
	if !ok {
		return errPacketTooShort("handshake response username")
	}
	c.username = username
	rest := resp[32+n:]
	if _, _, ok := getLenencString(rest); !ok {
		return errPacketTooShort("handshake response auth data")
	}

	return c.writeOK(0, 0)
}

// writeOK sends an OK packet (header 0x00) reporting affectedRows and
// lastInsertID.
func (c *conn) writeOK(affectedRows, lastInsertID uint64) error {
	payload := []byte{0x00}
	payload = putLenencInt(payload, affectedRows)
	payload = putLenencInt(payload, lastInsertID)
	payload = append(payload, byte(statusAutocommit), byte(statusAutocommit>>8))
	payload = append(payload, 0, 0) // warning count
	return writePacket(c.nc, payload, &c.seq)
}

// writeErr sends an ERR packet (header 0xff) with the given MySQL error
// code, five-character SQL state, and message.
func (c *conn) writeErr(code uint16, sqlState, message string) error {
	payload := []byte{0xff, byte(code), byte(code >> 8)}
	payload = append(payload, '#')
	payload = append(payload, sqlState...)
	payload = append(payload, message...)
	return writePacket(c.nc, payload, &c.seq)
}

// writeEOF sends a (pre-deprecate_eof) EOF packet.
func (c *conn) writeEOF() error {
	payload := []byte{0xfe, 0, 0, byte(statusAutocommit), byte(statusAutocommit >> 8)}
	return writePacket(c.nc, payload, &c.seq)
}

// writeResultSet renders rows as a text protocol result set: the column
// count, one column-definition-41 packet per column, an EOF marking the
// end of the column definitions, one row packet per row, and a final EOF.
func (c *conn) writeResultSet(rows *engine.RowsResult) error {
	if rows == nil {
		return c.writeOK(0, 0)
	}

	header := putLenencInt(nil, uint64(len(rows.Columns)))
	if err := writePacket(c.nc, header, &c.seq); err != nil {
		return err
	}
	for _, col := range rows.Columns {
		if err := writePacket(c.nc, columnDefinition(col), &c.seq); err != nil {
			return err
		}
	}
	if err := c.writeEOF(); err != nil {
		return err
	}
	for _, row := range rows.Rows {
		if err := writePacket(c.nc, rowPayload(row), &c.seq); err != nil {
			return err
		}
	}
	return c.writeEOF()
}

// columnDefinition builds a COLUMN_DEFINITION_41 packet for col.
func columnDefinition(col engine.Column) []byte {
	var p []byte
	p = putLenencString(p, "def")  // catalog
	p = putLenencString(p, "")     // schema
	p = putLenencString(p, "")     // table
	p = putLenencString(p, "")     // org_table
	p = putLenencString(p, col.Name)
	p = putLenencString(p, col.Name) // org_name
	p = append(p, 0x0c)               // length of fixed fields
	p = append(p, 0x21, 0x00)         // character set: utf8_general_ci
	p = append(p, 0xff, 0xff, 0xff, 0xff) // column length
	p = append(p, columnType(col.Type))
	p = append(p, 0, 0) // flags
	p = append(p, 0)    // decimals
	p = append(p, 0, 0) // filler
	return p
}

func columnType(t types.DataType) byte {
	switch t {
	case types.Integer:
		return colTypeLongLong
	case types.Real:
		return colTypeDouble
	default:
		return colTypeVarString
	}
}

// rowPayload renders one row of the text protocol: each value as a
// length-encoded string, or the NULL sentinel byte.
func rowPayload(row []types.Value) []byte {
	var p []byte
	for _, v := range row {
		if v.IsNull() {
			p = append(p, lenencNull)
			continue
		}
		p = putLenencString(p, valueText(v))
	}
	return p
}

// valueText renders v's textual form for the wire protocol, as distinct
// from types.Value.String's debug quoting of Text values.
func valueText(v types.Value) string {
	switch v.Kind() {
	case types.KindInteger:
		return fmt.Sprintf("%d", v.Integer())
	case types.KindReal:
		return fmt.Sprintf("%g", v.Real())
	case types.KindText:
		return v.Text()
	default:
		return ""
	}
}
