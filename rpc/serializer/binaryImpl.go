package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
//
// Layout: MsgType u8 | flags u8 | present fields in flag order (big endian,
// strings and byte slices prefixed with a u32 length)
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey      byte = 1 << 0
	hasTTL      byte = 1 << 1
	hasExpireAt byte = 1 << 2
	hasValue    byte = 1 << 3
	hasOk       byte = 1 << 4
	hasErr      byte = 1 << 5
	hasErrCode  byte = 1 << 6
	hasMeta     byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags byte = 0
	pos := 2 // Start after MsgType and flags

	putBytes := func(data []byte) {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(data)))
		pos += 4
		pos += copy(result[pos:], data)
	}
	putUint64 := func(v uint64) {
		binary.BigEndian.PutUint64(result[pos:pos+8], v)
		pos += 8
	}

	if msg.Key != "" {
		flags |= hasKey
		putBytes([]byte(msg.Key))
	}
	if msg.TTL > 0 {
		flags |= hasTTL
		putUint64(msg.TTL)
	}
	if msg.ExpireAt > 0 {
		flags |= hasExpireAt
		putUint64(msg.ExpireAt)
	}
	if msg.Value != nil {
		flags |= hasValue
		putBytes(msg.Value)
	}
	if msg.Ok {
		// the flag carries the value
		flags |= hasOk
	}
	if msg.Err != "" {
		flags |= hasErr
		putBytes([]byte(msg.Err))
	}
	if msg.ErrCode > 0 {
		flags |= hasErrCode
		putUint64(msg.ErrCode)
	}
	if msg.Meta != nil {
		flags |= hasMeta
		putBytes(msg.Meta)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// value and meta buffers of a reused message are recycled
	reuseValue, reuseMeta := msg.Value, msg.Meta
	*msg = common.Message{MsgType: common.MessageType(data[0])}

	flags := data[1]
	pos := 2

	readBytes := func(field string, reuse []byte) ([]byte, error) {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("data too short for %s length", field)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if n > len(data)-pos {
			return nil, fmt.Errorf("data too short for %s data", field)
		}

		// an empty slice (not nil) for length 0, allocate only if needed
		if reuse == nil || cap(reuse) < n {
			reuse = make([]byte, n)
		} else {
			reuse = reuse[:n]
		}
		copy(reuse, data[pos:pos+n])
		pos += n
		return reuse, nil
	}
	readUint64 := func(field string) (uint64, error) {
		if pos+8 > len(data) {
			return 0, fmt.Errorf("data too short for %s", field)
		}
		v := binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
		return v, nil
	}

	var err error
	if flags&hasKey != 0 {
		var key []byte
		if key, err = readBytes("key", nil); err != nil {
			return err
		}
		msg.Key = string(key)
	}
	if flags&hasTTL != 0 {
		if msg.TTL, err = readUint64("ttl"); err != nil {
			return err
		}
	}
	if flags&hasExpireAt != 0 {
		if msg.ExpireAt, err = readUint64("expireAt"); err != nil {
			return err
		}
	}
	if flags&hasValue != 0 {
		if msg.Value, err = readBytes("value", reuseValue); err != nil {
			return err
		}
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasErr != 0 {
		var errMsg []byte
		if errMsg, err = readBytes("error", nil); err != nil {
			return err
		}
		msg.Err = string(errMsg)
	}
	if flags&hasErrCode != 0 {
		if msg.ErrCode, err = readUint64("error code"); err != nil {
			return err
		}
	}
	if flags&hasMeta != 0 {
		if msg.Meta, err = readBytes("meta", reuseMeta); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != "" {
		size += 4 + len(msg.Key) // 4 bytes for length + key string
	}
	if msg.TTL > 0 {
		size += 8
	}
	if msg.ExpireAt > 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.ErrCode > 0 {
		size += 8
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}
