package codec

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

func encodeBase64(v any) ([]byte, error) {
	b, err := Bytes(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.URLEncoding.EncodedLen(len(b)))
	base64.URLEncoding.Encode(out, b)
	return out, nil
}

func decodeBase64(data []byte) (any, error) {
	out := make([]byte, base64.URLEncoding.DecodedLen(len(data)))
	n, err := base64.URLEncoding.Decode(out, data)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func encodeHex(v any) ([]byte, error) {
	b, err := Bytes(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(out, b)
	return out, nil
}

func decodeHex(data []byte) (any, error) {
	out := make([]byte, hex.DecodedLen(len(data)))
	n, err := hex.Decode(out, data)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// EncodeAll and DecodeAll are safe for concurrent use, so one of each is shared.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

func encodeZstd(v any) ([]byte, error) {
	b, err := Bytes(v)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(b, nil), nil
}

func decodeZstd(data []byte) (any, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeSnappy(v any) ([]byte, error) {
	b, err := Bytes(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, b), nil
}

func decodeSnappy(data []byte) (any, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return out, nil
}
