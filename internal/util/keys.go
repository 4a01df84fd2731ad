package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NameReserved holds the bytes a cache name must not contain. ':' ends the
// name inside both prefixes; the rest are glob metacharacters for SCAN MATCH.
const NameReserved = ":*?[]\\"

// ValidName reports whether name maps to a keyspace no other name can
// prefix.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, NameReserved)
}

// StoragePrefix returns the provider keyspace owned by the cache name.
func StoragePrefix(name string) string { return "herd:" + name + ":" }

// FlightPrefix returns the registry keyspace owned by the cache name.
func FlightPrefix(name string) string { return name + ":" }

// ShortHash returns the first 16 hex chars of the sha256 of s.
func ShortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
