package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ValentinKolb/sKV/lib/replication"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// SyncPath is the REST path a node accepts json sync notifications on
const SyncPath = "/sync"

// SyncRequest is the json body of a sync notification
// Values use the encoding of the json api: text as a json string, compact json documents
// as themselves and other bytes as base64 with Encoding set.
type SyncRequest struct {
	Command  string          `json:"command"`
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value,omitempty"`
	Encoding string          `json:"encoding,omitempty"`
	ExpireAt uint64          `json:"expireAt,omitempty"`
}

// NewSyncRequest converts a notification into its json form
func NewSyncRequest(n replication.Notification) SyncRequest {
	r := SyncRequest{
		Command:  n.Op.String(),
		Key:      n.Key,
		ExpireAt: n.ExpireAt,
	}
	if n.Op == replication.OpSet {
		r.Value, r.Encoding = common.EncodeJSONValue(n.Value)
	}
	return r
}

// Notification converts the json form back into a notification
func (r SyncRequest) Notification() (replication.Notification, error) {
	op, err := replication.ParseOp(r.Command)
	if err != nil {
		return replication.Notification{}, err
	}
	if r.Key == "" {
		return replication.Notification{}, fmt.Errorf("sync request without key")
	}
	n := replication.Notification{Op: op, Key: r.Key, ExpireAt: r.ExpireAt}
	if op == replication.OpSet {
		if n.Value, err = common.DecodeJSONValue(r.Value, r.Encoding); err != nil {
			return replication.Notification{}, err
		}
	}
	return n, nil
}

// --------------------------------------------------------------------------
// RPC sink
// --------------------------------------------------------------------------

// NewRPCSyncSink returns a replication.Sink that delivers notifications as SyncSet and SyncDelete
// rpc messages. One client transport is created per peer on first use.
func NewRPCSyncSink(newTransport func() transport.IRPCClientTransport, serializer serializer.IRPCSerializer, timeout time.Duration) replication.Sink {
	return &rpcSyncSink{
		newTransport: newTransport,
		serializer:   serializer,
		timeout:      timeout,
		peers:        xsync.NewMapOf[string, transport.IRPCClientTransport](),
	}
}

type rpcSyncSink struct {
	newTransport func() transport.IRPCClientTransport
	serializer   serializer.IRPCSerializer
	timeout      time.Duration
	peers        *xsync.MapOf[string, transport.IRPCClientTransport]
}

func (s *rpcSyncSink) Deliver(ctx context.Context, peer string, n replication.Notification) error {
	t, err := s.transport(peer)
	if err != nil {
		return err
	}

	var req *common.Message
	switch n.Op {
	case replication.OpSet:
		req = common.NewSyncSetRequest(n.Key, n.Value, n.ExpireAt)
	case replication.OpDelete:
		req = common.NewSyncDeleteRequest(n.Key)
	default:
		return fmt.Errorf("unknown sync op %s", n.Op)
	}

	_, err = invokeRPCRequest(ctx, req, t, s.serializer)
	return err
}

func (s *rpcSyncSink) transport(peer string) (t transport.IRPCClientTransport, err error) {
	t, _ = s.peers.Compute(peer, func(old transport.IRPCClientTransport, loaded bool) (transport.IRPCClientTransport, bool) {
		if loaded {
			return old, false
		}
		nt := s.newTransport()
		err = nt.Connect(common.ClientConfig{
			Endpoints:              []string{peer},
			TimeoutSecond:          max(int(s.timeout/time.Second), 1),
			RetryCount:             1,
			ConnectionsPerEndpoint: 1,
		})
		if err != nil {
			return nil, true
		}
		return nt, false
	})
	if err != nil {
		return nil, fmt.Errorf("connect to peer %s: %w", peer, err)
	}
	return t, nil
}

// --------------------------------------------------------------------------
// JSON sink
// --------------------------------------------------------------------------

// NewJSONSyncSink returns a replication.Sink that posts notifications as json to the
// SyncPath of every peer.
func NewJSONSyncSink(client *http.Client) replication.Sink {
	if client == nil {
		client = &http.Client{}
	}
	return &jsonSyncSink{client: client}
}

type jsonSyncSink struct {
	client *http.Client
}

func (s *jsonSyncSink) Deliver(ctx context.Context, peer string, n replication.Notification) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewSyncRequest(n)); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL(peer)+SyncPath, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s answered sync with status %d", peer, resp.StatusCode)
	}
	return nil
}

func peerURL(peer string) string {
	if strings.HasPrefix(peer, "http://") || strings.HasPrefix(peer, "https://") {
		return strings.TrimRight(peer, "/")
	}
	return "http://" + strings.TrimRight(peer, "/")
}
