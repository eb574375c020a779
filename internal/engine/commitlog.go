package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"jsondb/internal/model"
	"jsondb/internal/storage"
)

// ErrLogClosed is returned by Append once the writer goroutine has shut down.
var ErrLogClosed = errors.New("commit log closed")

const (
	payloadLenBytes = 4
	checksumBytes   = 4
	seqNumBytes     = 8

	defaultMaxPending     = 1024
	defaultEnqueueTimeout = 5 * time.Second
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CommitLogCfg configures the commit log.
type CommitLogCfg struct {
	Path           string
	MaxPending     int           // bounded queue depth before Append fails fast
	EnqueueTimeout time.Duration // how long Append waits for a queue slot
}

type appendMsg struct {
	cmd  *model.Value
	done chan error
}

/*
Channel-backed append flow keeps a single writer goroutine in charge of the log:
- Ordering: the channel preserves request order; one goroutine owns the file handle.
- Durability handshake: the per-request done channel is signalled only after the
  record (and everything queued with it) has been written and fsynced, so Append
  returning nil means the mutation is durable.
- Group commit: the writer drains whatever is queued, writes the batch, and
  syncs once for all of it.
- Backpressure: bounded channel plus timeout lets callers fail fast instead of
  queueing without bound.
- Shutdown: cancelling the context fails queued appends with ErrLogClosed and
  closes the file; nothing acknowledged is ever lost.
*/
type CommitLog struct {
	cfg     CommitLogCfg
	file    *os.File
	seq     uint64 // owned by the writer goroutine
	appends chan *appendMsg
	done    chan struct{} // closed when the writer exits
	log     *slog.Logger
}

// NewCommitLog opens (creating if needed) the log file for appending and
// starts the writer goroutine. lastSeq is the sequence number of the last
// replayed record; new records continue from there.
func NewCommitLog(ctx context.Context, cfg CommitLogCfg, lastSeq uint64, logger *slog.Logger) (*CommitLog, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open commit log: %w", err)
	}

	if cfg.MaxPending <= 0 {
		cfg.MaxPending = defaultMaxPending
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultEnqueueTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	cl := &CommitLog{
		cfg:     cfg,
		file:    f,
		seq:     lastSeq,
		appends: make(chan *appendMsg, cfg.MaxPending),
		done:    make(chan struct{}),
		log:     logger,
	}
	go cl.run(ctx)
	return cl, nil
}

// Append durably records a mutating command. It returns only after the
// record has been written and fsynced, or with the reason it was not.
func (cl *CommitLog) Append(cmd *model.Value) error {
	msg := &appendMsg{cmd: cmd, done: make(chan error, 1)}
	select {
	case cl.appends <- msg:
	case <-cl.done:
		return ErrLogClosed
	case <-time.After(cl.cfg.EnqueueTimeout):
		return fmt.Errorf("enqueue timed out after %s", cl.cfg.EnqueueTimeout)
	}
	select {
	case err := <-msg.done:
		return err
	case <-cl.done:
		// The writer may have handled the message just before exiting.
		select {
		case err := <-msg.done:
			return err
		default:
			return ErrLogClosed
		}
	}
}

func (cl *CommitLog) run(ctx context.Context) {
	defer close(cl.done)
	defer cl.file.Close()

	for {
		select {
		case msg := <-cl.appends:
			batch := []*appendMsg{msg}
		drain:
			for {
				select {
				case m := <-cl.appends:
					batch = append(batch, m)
				default:
					break drain
				}
			}
			err := cl.commit(batch)
			for _, m := range batch {
				m.done <- err
			}
		case <-ctx.Done():
			cl.log.Info("commit log shutting down")
			for {
				select {
				case m := <-cl.appends:
					m.done <- ErrLogClosed
				default:
					return
				}
			}
		}
	}
}

// commit writes the batch and syncs once for all of it.
func (cl *CommitLog) commit(batch []*appendMsg) error {
	var buf []byte
	for _, m := range batch {
		cl.seq++
		buf = encodeRecord(buf, cl.seq, m.cmd)
	}
	if err := storage.Append(cl.file, buf); err != nil {
		return err
	}
	if err := cl.file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

/*
Record layout:

	| PayloadLength | CRC32C  | Sequence | Command        |
	| 4 bytes       | 4 bytes | 8 bytes  | JSON, N bytes  |

The CRC covers the payload (sequence through command). Length and CRC let
replay walk the file record by record and stop cleanly at a truncated or
corrupted tail.
*/
func encodeRecord(dst []byte, seq uint64, cmd *model.Value) []byte {
	payload := make([]byte, seqNumBytes, seqNumBytes+64)
	binary.BigEndian.PutUint64(payload, seq)
	payload = cmd.AppendJSON(payload)

	var hdr [payloadLenBytes + checksumBytes]byte
	binary.BigEndian.PutUint32(hdr[0:], uint32(len(payload)))
	binary.BigEndian.PutUint32(hdr[4:], crc32.Checksum(payload, castagnoli))

	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

func decodePayload(payload []byte) (model.Record, error) {
	if len(payload) < seqNumBytes {
		return model.Record{}, fmt.Errorf("payload too short: %d bytes", len(payload))
	}
	seq := binary.BigEndian.Uint64(payload[:seqNumBytes])
	cmd, err := model.Parse(payload[seqNumBytes:])
	if err != nil {
		return model.Record{}, fmt.Errorf("decode command: %w", err)
	}
	return model.Record{Sequence: seq, Cmd: cmd}, nil
}

// LoadCommitLog reads every intact record from the log at path, in file
// order. It stops at the first truncated or corrupted record: that is the
// crash boundary, and everything before it is the recovered state. A
// missing file is an empty log.
func LoadCommitLog(path string, logger *slog.Logger) ([]model.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open commit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat commit log: %w", err)
	}
	fileSize := info.Size()

	var records []model.Record
	var offset int64
	for offset < fileSize {
		hdr, err := storage.ReadAt(f, offset, payloadLenBytes+checksumBytes)
		if err != nil {
			logTruncation(logger, len(records), offset, err)
			break
		}
		payloadLen := binary.BigEndian.Uint32(hdr[:payloadLenBytes])
		wantCRC := binary.BigEndian.Uint32(hdr[payloadLenBytes:])
		offset += payloadLenBytes + checksumBytes

		// A length that runs past the file is a torn header, not a record.
		if int64(payloadLen) > fileSize-offset {
			logger.Warn("commit log truncated", "record", len(records), "offset", offset)
			break
		}

		payload, err := storage.ReadAt(f, offset, int(payloadLen))
		if err != nil {
			logTruncation(logger, len(records), offset, err)
			break
		}
		offset += int64(payloadLen)

		if got := crc32.Checksum(payload, castagnoli); got != wantCRC {
			logger.Warn("commit log checksum mismatch, stopping at corruption boundary",
				"record", len(records), "want", wantCRC, "got", got)
			break
		}

		rec, err := decodePayload(payload)
		if err != nil {
			logger.Warn("commit log record undecodable, stopping",
				"record", len(records), "error", err)
			break
		}
		records = append(records, rec)
	}

	logger.Info("commit log loaded", "records", len(records), "bytes", fileSize)
	return records, nil
}

func logTruncation(logger *slog.Logger, record int, offset int64, err error) {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		logger.Warn("commit log truncated", "record", record, "offset", offset)
		return
	}
	logger.Warn("commit log read error", "record", record, "offset", offset, "error", err)
}
