package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"

	msgpack "github.com/hashicorp/go-msgpack/v2/codec"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// Text serializers carry byte input as a string so that a serializer placed
// after a byte transform still decodes to something Bytes accepts. Input that
// is not valid UTF-8 is rejected: json and protobuf would otherwise replace
// the bad bytes and the value would no longer round-trip.
func textual(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if !validText(v) {
		return nil, fmt.Errorf("%w: invalid UTF-8 in text serializer input", ErrUnsupportedType)
	}
	return v, nil
}

func validText(v any) bool {
	switch x := v.(type) {
	case string:
		return utf8.ValidString(x)
	case []any:
		for _, item := range x {
			if !validText(item) {
				return false
			}
		}
	case []string:
		for _, item := range x {
			if !utf8.ValidString(item) {
				return false
			}
		}
	case map[string]any:
		for k, item := range x {
			if !utf8.ValidString(k) || !validText(item) {
				return false
			}
		}
	case map[string]string:
		for k, item := range x {
			if !utf8.ValidString(k) || !utf8.ValidString(item) {
				return false
			}
		}
	}
	return true
}

func encodeJSON(v any) ([]byte, error) {
	v, err := textual(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func decodeJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func encodeYAML(v any) ([]byte, error) {
	v, err := textual(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}

func decodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var msgpackHandle = func() *msgpack.MsgpackHandle {
	h := &msgpack.MsgpackHandle{}
	h.WriteExt = true
	h.RawToString = true
	h.Canonical = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}()

func encodeMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf, msgpackHandle).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMsgpack(data []byte) (any, error) {
	var v any
	if err := msgpack.NewDecoderBytes(data, msgpackHandle).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

var protoMarshal = proto.MarshalOptions{Deterministic: true}

func encodeProto(v any) ([]byte, error) {
	v, err := textual(v)
	if err != nil {
		return nil, err
	}
	val, err := structpb.NewValue(v)
	if err != nil {
		return nil, err
	}
	return protoMarshal.Marshal(val)
}

func decodeProto(data []byte) (any, error) {
	var val structpb.Value
	if err := proto.Unmarshal(data, &val); err != nil {
		return nil, err
	}
	return val.AsInterface(), nil
}
