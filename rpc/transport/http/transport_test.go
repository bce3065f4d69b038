package http

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler func(req []byte) []byte, api nethttp.Handler) *httptest.Server {
	t.Helper()
	tr := NewHttpServerTransport()
	if handler != nil {
		tr.RegisterHandler(handler)
	}
	if api != nil {
		tr.RegisterAPI(api)
	}
	ts := httptest.NewServer(tr.Router(false))
	t.Cleanup(ts.Close)
	return ts
}

func connect(t *testing.T, endpoints ...string) *httpClientTransport {
	t.Helper()
	c := NewHttpClientTransport().(*httpClientTransport)
	require.NoError(t, c.Connect(common.ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: 2,
		RetryCount:    2,
	}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"localhost:8080":        "http://localhost:8080",
		"http://localhost:8080": "http://localhost:8080",
		"https://example.com":   "https://example.com",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeEndpoint(in), in)
	}
}

func TestRoundTrip(t *testing.T) {
	ts := newServer(t, func(req []byte) []byte {
		return append([]byte("echo:"), req...)
	}, nil)

	c := connect(t, ts.URL)
	resp, err := c.Send(context.Background(), []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", string(resp))
}

func TestRoundRobin(t *testing.T) {
	var a, b atomic.Int32
	tsA := newServer(t, func(req []byte) []byte { a.Add(1); return req }, nil)
	tsB := newServer(t, func(req []byte) []byte { b.Add(1); return req }, nil)

	c := connect(t, tsA.URL, tsB.URL)
	for i := 0; i < 4; i++ {
		_, err := c.Send(context.Background(), []byte("x"))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), a.Load())
	assert.Equal(t, int32(2), b.Load())
}

func TestMissingHandler(t *testing.T) {
	ts := newServer(t, nil, nil)

	c := connect(t, ts.URL)
	_, err := c.Send(context.Background(), []byte("ping"))
	assert.Error(t, err)
}

func TestAPIMountedNextToRPC(t *testing.T) {
	api := nethttp.NewServeMux()
	api.HandleFunc("/hello", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = w.Write([]byte("world"))
	})
	ts := newServer(t, func(req []byte) []byte { return req }, api)

	resp, err := ts.Client().Get(ts.URL + "/hello")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "world", string(body))

	c := connect(t, ts.URL)
	echo, err := c.Send(context.Background(), []byte("rpc"))
	require.NoError(t, err)
	assert.Equal(t, "rpc", string(echo))
}

func TestSendCanceled(t *testing.T) {
	ts := newServer(t, func(req []byte) []byte { return req }, nil)
	c := connect(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Send(ctx, []byte("ping"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendWithoutConnect(t *testing.T) {
	_, err := NewHttpClientTransport().Send(context.Background(), []byte("ping"))
	assert.Error(t, err)
}

func TestConnectWithoutEndpoints(t *testing.T) {
	assert.Error(t, NewHttpClientTransport().Connect(common.ClientConfig{}))
}
