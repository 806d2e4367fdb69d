package codec

func init() {
	for _, c := range []Codec{
		// serializers
		New("json", encodeJSON, decodeJSON),
		New("tnet", encodeTnet, decodeTnet),
		New("yaml", encodeYAML, decodeYAML),
		New("msgpack", encodeMsgpack, decodeMsgpack),
		New("proto", encodeProto, decodeProto),

		// byte transforms
		New("base64", encodeBase64, decodeBase64),
		New("hex", encodeHex, decodeHex),
		New("zstd", encodeZstd, decodeZstd),
		New("snappy", encodeSnappy, decodeSnappy),

		// one-way digests
		New("md5", hashMD5, nil),
		New("sha1", hashSHA1, nil),
		New("sha256", hashSHA256, nil),
		New("blake2b", hashBlake2b, nil),
		New("xxhash", hashXXH64, nil),
		New("uuid5", hashUUID5, nil),
	} {
		Register(c)
	}
}
