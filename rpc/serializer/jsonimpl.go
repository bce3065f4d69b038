package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewJSONSerializer creates a serializer using json.
// Values are base64 encoded, Meta payloads are json themselves and stay base64 encoded as well.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json: encode %s: %w", msg.MsgType, err)
	}
	return b, nil
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// reset first, json.Unmarshal keeps fields that are absent in b
	*msg = common.Message{}
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json: decode: %w", err)
	}
	return nil
}
