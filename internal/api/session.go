package api

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"jsondb/internal/engine"
	"jsondb/internal/model"
)

// maxRequestBytes bounds one request line. A single JSON value larger
// than this is rejected by the scanner, not buffered without limit.
const maxRequestBytes = 4 << 20

// Session serves one connection: one JSON value per line in, one JSON
// value per line out. Evaluation failures answer that request with an
// {"error": ...} value and the session carries on; only transport errors
// end it.
type Session struct {
	ID   string
	conn net.Conn
	db   *engine.DB
	log  *slog.Logger
}

func NewSession(id string, conn net.Conn, db *engine.DB, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:   id,
		conn: conn,
		db:   db,
		log:  logger.With("session", id),
	}
}

// Run reads requests until the connection closes.
func (s *Session) Run() error {
	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 64*1024), maxRequestBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := s.handle([]byte(line))
		if err := s.write(reply); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
	// EOF is the normal way for a client to leave.
	return scanner.Err()
}

func (s *Session) handle(request []byte) *model.Value {
	cmd, err := model.Parse(request)
	if err != nil {
		s.log.Debug("unparseable request", "error", err)
		return errorValue(fmt.Errorf("bad json: %w", err))
	}
	result, err := s.db.Eval(cmd)
	if err != nil {
		s.log.Debug("command failed", "error", err)
		return errorValue(err)
	}
	return result
}

func (s *Session) write(v *model.Value) error {
	buf := v.AppendJSON(nil)
	buf = append(buf, '\n')
	_, err := s.conn.Write(buf)
	return err
}

// Close terminates the session's connection, unblocking its reader.
func (s *Session) Close() error {
	return s.conn.Close()
}

func errorValue(err error) *model.Value {
	obj := model.NewObject()
	obj.ObjectSet("error", model.FromString(err.Error()))
	return obj
}
