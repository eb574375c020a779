package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Note: commit log access is single-writer during normal operation, with
// readers only during startup replay. These helpers do not coordinate
// concurrent writers/readers; the engine's writer goroutine owns the file
// handle for the life of the process.

// Append writes data to the given open file handle. The handle must be in
// append mode; the caller owns the file lifecycle and decides when to sync.
func Append(file *os.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// ReadAt reads exactly length bytes at offset. A record that runs past the
// end of file comes back short with io.ErrUnexpectedEOF, which replay
// treats as the truncation boundary.
func ReadAt(file *os.File, offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := file.ReadAt(buf, offset)
	if err != nil {
		if errors.Is(err, io.EOF) && n < length {
			return buf[:n], io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read at %d: %w", offset, err)
	}
	return buf, nil
}
