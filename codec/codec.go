// Package codec serializes cached values. The bytes a Codec produces become
// the payload of a herdcache entry, behind the entry's timing metadata.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
