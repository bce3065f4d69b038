package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/ValentinKolb/sKV/lib/lockmgr"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/pstore"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/lni/dragonboat/v4/logger"
)

var restLogger = logger.GetLogger("rest")

// restAPI is the json api of a node. It serves the same store as the rpc endpoint.
type restAPI struct {
	store      *pstore.Store
	locks      lockmgr.ILockManager
	nodes      NodeRegistry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewRESTAPI returns the json api routes of a node.
// defaultTTL is applied to sets that carry no ttl (0 = never expire).
func NewRESTAPI(st *pstore.Store, nodes NodeRegistry, defaultTTL time.Duration) http.Handler {
	api := &restAPI{
		store:      st,
		locks:      st.Locks(),
		nodes:      nodes,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	r.Post("/set", api.set)
	r.Get("/get/{key}", api.get)
	r.Delete("/del/{key}", api.del)
	r.Delete("/match/{pattern}", api.deleteMatching)
	r.Get("/keys", api.keys)

	r.Post("/lock/{key}", api.lock)
	r.Delete("/lock/{key}", api.unlock)
	r.Get("/lock/{key}", api.lockStatus)

	r.Post("/nodes", api.addNode)
	r.Get("/nodes", api.listNodes)
	r.Post(client.SyncPath, api.sync)

	return r
}

// --------------------------------------------------------------------------
// Request and response bodies
// --------------------------------------------------------------------------

type setRequest struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Encoding string          `json:"encoding,omitempty"` // "base64" or empty
	TTL      *float64        `json:"ttl,omitempty"`      // seconds, absent = default ttl
}

type addNodeRequest struct {
	Address string `json:"address"`
}

type record struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Encoding string          `json:"encoding,omitempty"`
	TTL      *float64        `json:"ttl"`                // remaining seconds, null = never expires
	ExpireAt int64           `json:"expireAt,omitempty"` // unix milliseconds
}

type errorResponse struct {
	Error string `json:"error"`
}

// --------------------------------------------------------------------------
// Store handlers
// --------------------------------------------------------------------------

func (api *restAPI) set(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	ttl := api.defaultTTL
	if req.TTL != nil {
		if *req.TTL < 0 || math.IsNaN(*req.TTL) || math.IsInf(*req.TTL, 0) {
			writeError(w, http.StatusBadRequest, "ttl must be a non negative number of seconds")
			return
		}
		ttl = time.Duration(*req.TTL * float64(time.Second))
	}

	value, err := common.DecodeJSONValue(req.Value, req.Encoding)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := api.store.Set(req.Key, value, ttl); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key})
}

func (api *restAPI) get(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	value, expireAt, ok, err := api.store.GetWithExpiry(key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, http.StatusOK, api.record(key, value, expireAt))
}

func (api *restAPI) del(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	deleted, err := api.store.Remove(key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (api *restAPI) deleteMatching(w http.ResponseWriter, r *http.Request) {
	n, err := api.store.DeleteMatching(pathParam(r, "pattern"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (api *restAPI) keys(w http.ResponseWriter, r *http.Request) {
	keys, err := api.store.Keys()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	records := make([]record, 0, len(keys))
	for _, k := range keys {
		records = append(records, api.record(k.Key, k.Value, k.ExpireAt))
	}
	writeJSON(w, http.StatusOK, records)
}

func (api *restAPI) record(key string, value []byte, expireAt time.Time) record {
	rec := record{Key: key}
	rec.Value, rec.Encoding = common.EncodeJSONValue(value)
	if !expireAt.IsZero() {
		remaining := max(expireAt.Sub(api.now()), 0).Seconds()
		rec.TTL = &remaining
		rec.ExpireAt = expireAt.UnixMilli()
	}
	return rec
}

// --------------------------------------------------------------------------
// Lock handlers
// --------------------------------------------------------------------------

func (api *restAPI) lock(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	ok, err := api.locks.Lock(key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "key is already locked")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "locked": true})
}

func (api *restAPI) unlock(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	if err := api.locks.Unlock(key); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "locked": false})
}

func (api *restAPI) lockStatus(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	locked, err := api.locks.IsLocked(key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "locked": locked})
}

// --------------------------------------------------------------------------
// Cluster handlers
// --------------------------------------------------------------------------

func (api *restAPI) addNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	added := api.nodes.AddNode(req.Address)
	writeJSON(w, http.StatusOK, map[string]any{"address": req.Address, "added": added})
}

func (api *restAPI) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes := api.nodes.Nodes()
	if nodes == nil {
		nodes = []string{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (api *restAPI) sync(w http.ResponseWriter, r *http.Request) {
	var req client.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	n, err := req.Notification()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := api.store.ApplySync(n); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": n.Key})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// pathParam returns the unescaped url parameter name
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		restLogger.Warningf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps the return code of a store error to a http status
func writeStoreError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		msg = storeErr.Msg
	}

	switch store.CodeOf(err) {
	case store.RetCLockConflict:
		writeError(w, http.StatusLocked, msg)
	case store.RetCInvalidOperation:
		writeError(w, http.StatusBadRequest, msg)
	case store.RetCUnsupportedOperation:
		writeError(w, http.StatusNotImplemented, msg)
	default:
		restLogger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
