package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/replication"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	httptransport "github.com/ValentinKolb/sKV/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRequestConversion(t *testing.T) {
	set := replication.Notification{Op: replication.OpSet, Key: "k", Value: []byte("v"), ExpireAt: 42}
	n, err := NewSyncRequest(set).Notification()
	require.NoError(t, err)
	assert.Equal(t, set, n)

	del := replication.Notification{Op: replication.OpDelete, Key: "k"}
	n, err = NewSyncRequest(del).Notification()
	require.NoError(t, err)
	assert.Equal(t, del, n)

	// the original short form of delete
	n, err = SyncRequest{Command: "DEL", Key: "k"}.Notification()
	require.NoError(t, err)
	assert.Equal(t, replication.OpDelete, n.Op)

	_, err = SyncRequest{Command: "APPEND", Key: "k"}.Notification()
	assert.Error(t, err)
	_, err = SyncRequest{Command: "SET"}.Notification()
	assert.Error(t, err)
}

func TestSyncRequestValues(t *testing.T) {
	values := map[string][]byte{
		"text":        []byte("hello"),
		"empty":       {},
		"document":    []byte(`{"a":"<b>","n":[1,2]}`),
		"spaced json": []byte(`{"a": 1}`),
		"number":      []byte("42"),
		"null text":   []byte("null"),
		"quoted":      []byte(`"x"`),
		"binary":      {0xff, 0x00, 0xfe, 'a'},
	}

	for name, value := range values {
		t.Run(name, func(t *testing.T) {
			set := replication.Notification{Op: replication.OpSet, Key: "k", Value: value}

			// through the wire format of the json sink
			var body bytes.Buffer
			enc := json.NewEncoder(&body)
			enc.SetEscapeHTML(false)
			require.NoError(t, enc.Encode(NewSyncRequest(set)))

			var req SyncRequest
			require.NoError(t, json.NewDecoder(&body).Decode(&req))
			n, err := req.Notification()
			require.NoError(t, err)
			assert.Equal(t, value, n.Value)
		})
	}

	req := NewSyncRequest(replication.Notification{Op: replication.OpSet, Key: "k", Value: []byte{0xff}})
	assert.Equal(t, common.ValueEncodingBase64, req.Encoding)

	req = NewSyncRequest(replication.Notification{Op: replication.OpSet, Key: "k", Value: []byte(`{"a":1}`)})
	assert.Empty(t, req.Encoding)
	assert.JSONEq(t, `{"a":1}`, string(req.Value))

	_, err := SyncRequest{Command: "SET", Key: "k", Value: json.RawMessage(`"x"`), Encoding: "rot13"}.Notification()
	assert.Error(t, err)
}

func TestJSONSyncSink(t *testing.T) {
	var mu sync.Mutex
	var received []SyncRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SyncPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, req)
		mu.Unlock()
	}))
	defer ts.Close()

	sink := NewJSONSyncSink(ts.Client())

	// peers may be given without scheme
	peer := strings.TrimPrefix(ts.URL, "http://")
	require.NoError(t, sink.Deliver(context.Background(), peer, replication.Notification{Op: replication.OpSet, Key: "a", Value: []byte("1"), ExpireAt: 7}))
	require.NoError(t, sink.Deliver(context.Background(), ts.URL, replication.Notification{Op: replication.OpDelete, Key: "a"}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, SyncRequest{Command: "SET", Key: "a", Value: json.RawMessage("1"), ExpireAt: 7}, received[0])
	assert.Equal(t, SyncRequest{Command: "DELETE", Key: "a"}, received[1])
}

func TestJSONSyncSinkRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusLocked)
	}))
	defer ts.Close()

	err := NewJSONSyncSink(nil).Deliver(context.Background(), ts.URL, replication.Notification{Op: replication.OpSet, Key: "a"})
	assert.Error(t, err)
}

func TestRPCSyncSink(t *testing.T) {
	ser := serializer.NewBinarySerializer()

	var mu sync.Mutex
	var received []common.Message

	tr := httptransport.NewHttpServerTransport()
	tr.RegisterHandler(func(req []byte) []byte {
		var msg common.Message
		assert.NoError(t, ser.Deserialize(req, &msg))

		var err error
		if msg.Key == "locked" {
			err = store.NewError(store.RetCLockConflict, "key is locked")
		} else {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
		}

		resp, _ := ser.Serialize(*common.NewSyncResponse(msg.MsgType, err))
		return resp
	})
	ts := httptest.NewServer(tr.Router(false))
	defer ts.Close()

	connects := 0
	sink := NewRPCSyncSink(func() transport.IRPCClientTransport {
		connects++
		return httptransport.NewHttpClientTransport()
	}, ser, time.Second)

	ctx := context.Background()
	require.NoError(t, sink.Deliver(ctx, ts.URL, replication.Notification{Op: replication.OpSet, Key: "a", Value: []byte("1"), ExpireAt: 99}))
	require.NoError(t, sink.Deliver(ctx, ts.URL, replication.Notification{Op: replication.OpDelete, Key: "a"}))

	err := sink.Deliver(ctx, ts.URL, replication.Notification{Op: replication.OpSet, Key: "locked"})
	assert.True(t, store.IsLockConflict(err))

	assert.Equal(t, 1, connects, "one transport per peer")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, common.MsgTSyncSet, received[0].MsgType)
	assert.Equal(t, "a", received[0].Key)
	assert.Equal(t, []byte("1"), received[0].Value)
	assert.Equal(t, uint64(99), received[0].ExpireAt)
	assert.Equal(t, common.MsgTSyncDelete, received[1].MsgType)
}
