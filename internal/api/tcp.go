package api

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"jsondb/internal/engine"
)

// TCPListener accepts client connections and runs one session per
// connection. Sessions share the engine; the engine's own locking makes
// that safe.
type TCPListener struct {
	listener net.Listener
	db       *engine.DB
	log      *slog.Logger

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewTCPListener(addr string, db *engine.DB, logger *slog.Logger) (*TCPListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TCPListener{
		listener: listener,
		db:       db,
		log:      logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Addr returns the listener's network address.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections until Close is called.
func (l *TCPListener) Serve() error {
	l.log.Info("listening", "addr", l.listener.Addr().String())

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			l.log.Error("accept error", "error", err)
			continue
		}

		l.wg.Add(1)
		go l.handleConnection(conn)
	}
}

func (l *TCPListener) handleConnection(conn net.Conn) {
	defer l.wg.Done()

	sessionID := uuid.NewString()
	l.log.Debug("new connection", "session", sessionID, "remote", conn.RemoteAddr().String())

	session := NewSession(sessionID, conn, l.db, l.log)

	l.sessionsMu.Lock()
	l.sessions[sessionID] = session
	l.sessionsMu.Unlock()

	if err := session.Run(); err != nil {
		l.log.Error("session error", "session", sessionID, "error", err)
	}

	l.sessionsMu.Lock()
	delete(l.sessions, sessionID)
	l.sessionsMu.Unlock()

	l.log.Debug("session ended", "session", sessionID)
}

// SessionCount returns the number of live sessions.
func (l *TCPListener) SessionCount() int {
	l.sessionsMu.RLock()
	defer l.sessionsMu.RUnlock()
	return len(l.sessions)
}

// Close stops accepting, closes all sessions, and waits for them.
func (l *TCPListener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}

	err := l.listener.Close()

	l.sessionsMu.RLock()
	for _, session := range l.sessions {
		session.Close()
	}
	l.sessionsMu.RUnlock()

	l.wg.Wait()
	return err
}
