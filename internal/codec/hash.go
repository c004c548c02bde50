package codec

// Hash computes the djb2 hash GVDB uses to index a table's hash-item
// array: h=5381, then h = h*33 + signed-byte-extended(c) for each byte
// of key. An empty key hashes to 5381.
func Hash(key string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(key); i++ {
		h = h*33 + uint32(int8(key[i]))
	}
	return h
}
