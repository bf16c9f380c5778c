package server

import (
	"io"
	"net"
	"strconv"

	pgproto3 "github.com/jackc/pgproto3/v2"
	log "github.com/sirupsen/logrus"

	"github.com/colstore/tilegroup/sql"
)

// Proto3Config names the address to listen on for PostgreSQL wire
// protocol connections.
type Proto3Config struct {
	Address string
}

// ListenAndServeProto3 accepts pgproto3 connections on p3Cfg.Address,
// handing each to its own goroutine, until the listener is closed.
// Grounded in the teacher's server/proto3.go ListenAndServeProto3.
func (svr *Server) ListenAndServeProto3(p3Cfg Proto3Config) error {
	l, err := net.Listen("tcp", p3Cfg.Address)
	if err != nil {
		return err
	}
	svr.addListener(l)

	for {
		conn, err := l.Accept()
		if err != nil {
			svr.mutex.Lock()
			closed := svr.shutdown
			svr.mutex.Unlock()
			if closed {
				return ErrServerClosed
			}
			log.WithField("error", err.Error()).Error("proto3 accept")
			return err
		}

		entry := log.WithField("addr", conn.RemoteAddr().String())
		entry.Info("proto3 connected")
		go svr.handleProto3Conn(conn, entry)
	}
}

func (svr *Server) handleProto3Conn(conn net.Conn, entry *log.Entry) {
	svr.trackConn(1)
	defer svr.trackConn(-1)
	defer conn.Close()
	defer entry.Info("proto3 disconnected")

	be := pgproto3.NewBackend(pgproto3.NewChunkReader(conn), conn)

	started := false
	for !started {
		msg, err := be.ReceiveStartupMessage()
		if err != nil {
			entry.Errorf("receive startup message: %s", err)
			return
		}
		switch msg := msg.(type) {
		case *pgproto3.StartupMessage:
			entry.Infof("protocol version: %d", msg.ProtocolVersion)
			if _, err := conn.Write((&pgproto3.AuthenticationOk{}).Encode(nil)); err != nil {
				entry.Errorf("send authentication ok: %s", err)
				return
			}
			started = true
		case *pgproto3.SSLRequest:
			if _, err := conn.Write([]byte("N")); err != nil {
				entry.Errorf("send deny SSL request: %s", err)
				return
			}
		default:
			entry.Errorf("unknown startup message: %#v", msg)
			return
		}
	}

	svr.handleProto3Session(be, conn, entry)
}

func (svr *Server) handleProto3Session(be *pgproto3.Backend, conn net.Conn, entry *log.Entry) {
	for {
		if _, err := conn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil)); err != nil {
			entry.Errorf("send ready for query: %s", err)
			return
		}

		msg, err := be.Receive()
		if err != nil {
			if err != io.EOF {
				entry.Errorf("receive: %s", err)
			}
			return
		}

		switch msg := msg.(type) {
		case *pgproto3.Query:
			svr.proto3Query(conn, msg, entry)
		case *pgproto3.Terminate:
			return
		default:
			entry.Errorf("backend unexpected message: %#v", msg)
		}
	}
}

func (svr *Server) proto3Query(conn net.Conn, msg *pgproto3.Query, entry *log.Entry) {
	rows, err := svr.Engine.ExecuteString(msg.String)
	if err != nil {
		proto3ErrorResponse(conn, err, entry)
		return
	}

	if rows == nil {
		proto3CommandComplete(conn, "OK", 0, entry)
		return
	}

	fields := make([]pgproto3.FieldDescription, len(rows[0].Values))
	for i := range fields {
		fields[i] = pgproto3.FieldDescription{Name: []byte(columnLabel(i)), DataTypeOID: proto3OID(rows[0].Values[i].Type())}
	}
	if _, err := conn.Write((&pgproto3.RowDescription{Fields: fields}).Encode(nil)); err != nil {
		entry.Errorf("send row description: %s", err)
		return
	}

	for _, r := range rows {
		values := make([][]byte, len(r.Values))
		for i, v := range r.Values {
			values[i] = []byte(v.String())
		}
		if _, err := conn.Write((&pgproto3.DataRow{Values: values}).Encode(nil)); err != nil {
			entry.Errorf("send data row: %s", err)
			return
		}
	}
	proto3CommandComplete(conn, "SELECT", int64(len(rows)), entry)
}

func columnLabel(i int) string { return "col" + strconv.Itoa(i) }

// proto3OID maps a storage DataType to a minimal libpq-compatible type
// OID. Grounded in the teacher's server/proto3.go dataType table, cut
// down to the five types this module's sql.DataType defines; text is
// used as the fallback encoding for every value since rows are always
// serialized through Value.String().
func proto3OID(dt sql.DataType) uint32 {
	const (
		oidBool = 16
		oidInt8 = 20
		oidText = 25
		oidFloat8 = 701
	)
	switch dt {
	case sql.BooleanType:
		return oidBool
	case sql.IntegerType:
		return oidInt8
	case sql.FloatType:
		return oidFloat8
	default:
		return oidText
	}
}

func proto3ErrorResponse(conn net.Conn, err error, entry *log.Entry) {
	if _, werr := conn.Write((&pgproto3.ErrorResponse{Severity: "ERROR", Message: err.Error()}).Encode(nil)); werr != nil {
		entry.Errorf("send error response: %s", werr)
	}
}

func proto3CommandComplete(conn net.Conn, tag string, n int64, entry *log.Entry) {
	cmdTag := tag
	if n >= 0 {
		cmdTag = tag + " " + strconv.FormatInt(n, 10)
	}
	if _, err := conn.Write((&pgproto3.CommandComplete{CommandTag: []byte(cmdTag)}).Encode(nil)); err != nil {
		entry.Errorf("send command complete: %s", err)
	}
}
