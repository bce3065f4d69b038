package unix

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripWithStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skv.sock")

	// a socket file left by a crashed node
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv := NewUnixDefaultServerTransport()
	srv.RegisterHandler(func(req []byte) []byte {
		return append([]byte("unix:"), req...)
	})

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Listen(common.ServerConfig{Endpoint: path}) }()
	require.NotNil(t, base.Addr(srv))

	c := NewUnixClientTransport()
	require.NoError(t, c.Connect(common.ClientConfig{Endpoints: []string{path}, TimeoutSecond: 2, ConnectionsPerEndpoint: 2}))

	for i := 0; i < 3; i++ {
		resp, err := c.Send(context.Background(), []byte("ping"))
		require.NoError(t, err)
		assert.Equal(t, "unix:ping", string(resp))
	}

	require.NoError(t, c.Close())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-listenErr)
}
