package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	srv := NewTCPServerTransport(1024, 2)
	srv.RegisterHandler(func(req []byte) []byte {
		return append([]byte("tcp:"), req...)
	})

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}) }()
	addr := base.Addr(srv)
	require.NotNil(t, addr)

	c := NewTCPClientTransport()
	require.NoError(t, c.Connect(common.ClientConfig{Endpoints: []string{addr.String()}, TimeoutSecond: 2}))

	resp, err := c.Send(context.Background(), []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, "tcp:ping", string(resp))

	require.NoError(t, c.Close())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-listenErr)
}

func TestUpgradeIgnoresOtherConnections(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	assert.NoError(t, upgrade(a))
}

func TestListenOnUsedAddress(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = NewTCPDefaultServerTransport().Listen(common.ServerConfig{Endpoint: l.Addr().String()})
	assert.Error(t, err)
}
