package codec

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// digestInput hashes scalars as-is and anything structured through its JSON
// form. encoding/json sorts map keys, so equal maps hash equally.
func digestInput(v any) ([]byte, error) {
	if b, err := Bytes(v); err == nil {
		return b, nil
	}
	return json.Marshal(v)
}

func hexDigest(sum []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}

func hashMD5(v any) ([]byte, error) {
	b, err := digestInput(v)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(b)
	return hexDigest(sum[:]), nil
}

func hashSHA1(v any) ([]byte, error) {
	b, err := digestInput(v)
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum(b)
	return hexDigest(sum[:]), nil
}

func hashSHA256(v any) ([]byte, error) {
	b, err := digestInput(v)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return hexDigest(sum[:]), nil
}

func hashBlake2b(v any) ([]byte, error) {
	b, err := digestInput(v)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(b)
	return hexDigest(sum[:]), nil
}

func hashXXH64(v any) ([]byte, error) {
	b, err := digestInput(v)
	if err != nil {
		return nil, err
	}
	return strconv.AppendUint(nil, xxhash.Sum64(b), 16), nil
}

func hashUUID5(v any) ([]byte, error) {
	b, err := digestInput(v)
	if err != nil {
		return nil, err
	}
	return []byte(uuid.NewSHA1(uuid.NameSpaceOID, b).String()), nil
}
