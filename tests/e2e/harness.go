package e2e

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"jsondb/internal/api"
	"jsondb/internal/engine"
)

type systemUnderTest struct {
	Addr     string
	shutdown func()
	restart  func(t *testing.T)
}

func (s *systemUnderTest) Close() {
	if s.shutdown != nil {
		s.shutdown()
	}
}

// startSystemUnderTest brings up a full server in-process: commit log on a
// temp file, engine, and the TCP listener on an ephemeral port. The returned
// restart tears everything down and reopens the same log so tests can cover
// replay across a cold start.
func startSystemUnderTest(t *testing.T) *systemUnderTest {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "jsondb.log")
	sut := &systemUnderTest{}

	start := func(t *testing.T) {
		t.Helper()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		db, cancel, err := engine.Open(context.Background(), engine.CommitLogCfg{Path: logPath}, logger)
		if err != nil {
			t.Fatalf("open engine: %v", err)
		}

		tcp, err := api.NewTCPListener("127.0.0.1:0", db, logger)
		if err != nil {
			cancel()
			t.Fatalf("listen: %v", err)
		}
		go tcp.Serve()

		sut.Addr = tcp.Addr().String()
		sut.shutdown = func() {
			tcp.Close()
			cancel()
		}
	}

	start(t)
	sut.restart = func(t *testing.T) {
		t.Helper()
		sut.shutdown()
		start(t)
	}
	t.Cleanup(sut.Close)
	return sut
}
