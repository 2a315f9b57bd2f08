package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:6379", Address("127.0.0.1", 6379))
	assert.Equal(t, "[::1]:6379", Address("::1", 6379))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	ln, err := Listen(ctx, "127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := Connect(ctx, "127.0.0.1", port, time.Second)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()
	assert.Equal(t, client.LocalAddr().String(), server.RemoteAddr().String())

	// Peer hangup surfaces as a closed error on the next read.
	server.Close()
	_, err = client.Read(make([]byte, 1))
	assert.True(t, IsClosed(err))
}

func TestConnectRefused(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = Connect(context.Background(), "127.0.0.1", port, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot connect")
}

func TestIsClosed(t *testing.T) {
	assert.True(t, IsClosed(io.EOF))
	assert.True(t, IsClosed(io.ErrUnexpectedEOF))
	assert.True(t, IsClosed(net.ErrClosed))
	assert.False(t, IsClosed(nil))
	assert.False(t, IsClosed(errors.New("other")))
}
