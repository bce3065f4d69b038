package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key      string `json:"key,omitempty"`      // Used for: all key based operations, pattern for DeleteMatching
	Value    []byte `json:"value,omitempty"`    // Used for: Set, Sync (request), Get (response), Acquire (response), Release (request)
	TTL      uint64 `json:"ttl,omitempty"`      // Used for: Set (milliseconds), Acquire (seconds)
	ExpireAt uint64 `json:"expireAt,omitempty"` // Used for: Sync (request), Get (response), absolute unix milliseconds

	// Response only fields
	Ok      bool   `json:"ok,omitempty"`       // Used for: Get, Lock, Acquire, Release, IsLocked, NodeAdd responses
	Err     string `json:"err,omitempty"`      // Empty if no error, otherwise contains the error message
	ErrCode uint64 `json:"err_code,omitempty"` // store.RetCode of the error

	// Meta information
	Meta []byte `json:"meta,omitempty"` // JSON payload for Keys, Info, NodeList and DeleteMatching responses
}

// withErr fills the error fields of a response
func (m *Message) withErr(err error) *Message {
	if err != nil {
		m.Err = errMessage(err)
		m.ErrCode = uint64(errCode(err))
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request, ttl in milliseconds (0 = never expires)
func NewSetRequest(key string, value []byte, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTKVSet,
		Key:     key,
		Value:   value,
		TTL:     ttl,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	return (&Message{MsgType: MsgTKVSet}).withErr(err)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	return (&Message{MsgType: MsgTKVDelete}).withErr(err)
}

// NewDeleteMatchingRequest creates a new DeleteMatching request
func NewDeleteMatchingRequest(pattern string) *Message {
	return &Message{
		MsgType: MsgTKVDeleteMatching,
		Key:     pattern,
	}
}

// NewDeleteMatchingResponse creates a new DeleteMatching response, meta holds the count as JSON
func NewDeleteMatchingResponse(meta []byte, err error) *Message {
	return (&Message{MsgType: MsgTKVDeleteMatching, Meta: meta}).withErr(err)
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, expireAt uint64, ok bool, err error) *Message {
	return (&Message{
		MsgType:  MsgTKVGet,
		Ok:       ok,
		Value:    value,
		ExpireAt: expireAt,
	}).withErr(err)
}

// NewKeysRequest creates a new Keys request
func NewKeysRequest() *Message {
	return &Message{MsgType: MsgTKVKeys}
}

// NewKeysResponse creates a new Keys response, meta holds the key list as JSON
func NewKeysResponse(meta []byte, err error) *Message {
	return (&Message{MsgType: MsgTKVKeys, Meta: meta}).withErr(err)
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{MsgType: MsgTKVInfo}
}

// NewInfoResponse creates a new Info response, meta holds the db.DatabaseInfo as JSON
func NewInfoResponse(meta []byte, err error) *Message {
	return (&Message{MsgType: MsgTKVInfo, Meta: meta}).withErr(err)
}

// NewLockRequest creates a new Lock request
func NewLockRequest(key string) *Message {
	return &Message{
		MsgType: MsgTLCKLock,
		Key:     key,
	}
}

// NewLockResponse creates a new Lock response
func NewLockResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTLCKLock, Ok: ok}).withErr(err)
}

// NewUnlockRequest creates a new Unlock request
func NewUnlockRequest(key string) *Message {
	return &Message{
		MsgType: MsgTLCKUnlock,
		Key:     key,
	}
}

// NewUnlockResponse creates a new Unlock response
func NewUnlockResponse(err error) *Message {
	return (&Message{MsgType: MsgTLCKUnlock}).withErr(err)
}

// NewAcquireRequest creates a new Acquire request, timeout in seconds (0 = no timeout)
func NewAcquireRequest(key string, timeout uint64) *Message {
	return &Message{
		MsgType: MsgTLCKAcquire,
		Key:     key,
		TTL:     timeout,
	}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, ownerID []byte, err error) *Message {
	return (&Message{
		MsgType: MsgTLCKAcquire,
		Ok:      ok,
		Value:   ownerID,
	}).withErr(err)
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(key string, ownerId []byte) *Message {
	return &Message{
		MsgType: MsgTLCKRelease,
		Key:     key,
		Value:   ownerId,
	}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTLCKRelease, Ok: ok}).withErr(err)
}

// NewIsLockedRequest creates a new IsLocked request
func NewIsLockedRequest(key string) *Message {
	return &Message{
		MsgType: MsgTLCKIsLocked,
		Key:     key,
	}
}

// NewIsLockedResponse creates a new IsLocked response
func NewIsLockedResponse(locked bool, err error) *Message {
	return (&Message{MsgType: MsgTLCKIsLocked, Ok: locked}).withErr(err)
}

// NewSyncSetRequest creates a replication request for a set, expireAt is absolute (unix ms)
func NewSyncSetRequest(key string, value []byte, expireAt uint64) *Message {
	return &Message{
		MsgType:  MsgTSyncSet,
		Key:      key,
		Value:    value,
		ExpireAt: expireAt,
	}
}

// NewSyncDeleteRequest creates a replication request for a delete
func NewSyncDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTSyncDelete,
		Key:     key,
	}
}

// NewSyncResponse creates a response to a replication request
func NewSyncResponse(t MessageType, err error) *Message {
	return (&Message{MsgType: t}).withErr(err)
}

// NewNodeAddRequest creates a new NodeAdd request
func NewNodeAddRequest(addr string) *Message {
	return &Message{
		MsgType: MsgTNodeAdd,
		Key:     addr,
	}
}

// NewNodeAddResponse creates a new NodeAdd response, ok is false if the node was already known
func NewNodeAddResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTNodeAdd, Ok: ok}).withErr(err)
}

// NewNodeListRequest creates a new NodeList request
func NewNodeListRequest() *Message {
	return &Message{MsgType: MsgTNodeList}
}

// NewNodeListResponse creates a new NodeList response, meta holds the address list as JSON
func NewNodeListResponse(meta []byte, err error) *Message {
	return (&Message{MsgType: MsgTNodeList, Meta: meta}).withErr(err)
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	return (&Message{MsgType: MsgTCustom, Meta: meta}).withErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var msgTypeNames = map[MessageType]string{
	MsgTUnknown:          "unknown",
	MsgTSuccess:          "success",
	MsgTError:            "error",
	MsgTKVSet:            "set",
	MsgTKVGet:            "get",
	MsgTKVDelete:         "delete",
	MsgTKVDeleteMatching: "deleteMatching",
	MsgTKVKeys:           "keys",
	MsgTKVInfo:           "info",
	MsgTLCKLock:          "lock",
	MsgTLCKUnlock:        "unlock",
	MsgTLCKAcquire:       "acquire",
	MsgTLCKRelease:       "release",
	MsgTLCKIsLocked:      "isLocked",
	MsgTSyncSet:          "syncSet",
	MsgTSyncDelete:       "syncDelete",
	MsgTNodeAdd:          "nodeAdd",
	MsgTNodeList:         "nodeList",
	MsgTCustom:           "custom",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range msgTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVSet            // Set a key-value pair (optional ttl)
	MsgTKVGet            // Get a value by key
	MsgTKVDelete         // Delete a key-value pair
	MsgTKVDeleteMatching // Delete all keys containing a pattern
	MsgTKVKeys           // List all live records
	MsgTKVInfo           // Database information

	// ILockManager operations

	MsgTLCKLock     // Take an anonymous lock
	MsgTLCKUnlock   // Remove any lock
	MsgTLCKAcquire  // Acquire an owned lease
	MsgTLCKRelease  // Release an owned lease
	MsgTLCKIsLocked // Check whether a key is locked

	// Replication

	MsgTSyncSet    // Apply a replicated set
	MsgTSyncDelete // Apply a replicated delete
	MsgTNodeAdd    // Register a replication peer
	MsgTNodeList   // List replication peers

	// Custom operations

	MsgTCustom // Custom operation type
)
