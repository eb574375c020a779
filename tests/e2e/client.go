package e2e

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"
)

// client speaks the line protocol: one JSON request per line, one JSON
// reply per line.
type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func connect(addr string) (*client, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

func dial(t *testing.T, addr string) *client {
	t.Helper()

	c, err := connect(addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.conn.Close() })
	return c
}

// exchange sends one request line and returns the reply without its
// trailing newline.
func (c *client) exchange(request string) (string, error) {
	c.conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write([]byte(request + "\n")); err != nil {
		return "", fmt.Errorf("write %q: %w", request, err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply to %q: %w", request, err)
	}
	return line[:len(line)-1], nil
}

func (c *client) roundTrip(t *testing.T, request string) string {
	t.Helper()

	reply, err := c.exchange(request)
	if err != nil {
		t.Fatal(err)
	}
	return reply
}
