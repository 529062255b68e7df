package linesock

import (
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// countingConn records how often the socket closes the transport.
type countingConn struct {
	net.Conn
	closes atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(test *testing.T) (net.Conn, net.Conn) {
	test.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	defer l.Close()

	acceptC := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			close(acceptC)
			return
		}
		acceptC <- c
	}()

	client, err := net.Dial("tcp", l.Addr().String())
	require.NoError(test, err)
	server, ok := <-acceptC
	require.True(test, ok, "accept")

	test.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// collector gathers the messages passed to it.
type collector struct {
	msgC chan string
}

func newCollector() *collector {
	return &collector{msgC: make(chan string, 128)}
}

func (c *collector) Handle(s *Socket, msg string) bool {
	c.msgC <- msg
	return true
}
