// Package codec converts values to and from bytes for cached reads, and
// between Go types and the JSON-shaped values stored in the tree.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Convert re-types v by encoding it with enc and decoding the bytes with dec.
// Typical use: tree value (any) -> caller type T via JSON.
func Convert[From, To any](v From, enc Codec[From], dec Codec[To]) (To, error) {
	b, err := enc.Encode(v)
	if err != nil {
		var zero To
		return zero, err
	}
	return dec.Decode(b)
}
