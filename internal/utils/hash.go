package utils

import "hash/fnv"

func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// PickIndex maps key onto [0, n) deterministically; n must be positive.
func PickIndex(key string, n int) int {
	return int(HashStringToUint64(key) % uint64(n))
}
