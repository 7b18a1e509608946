package exthash

// stringHashMod is the fixed prime the polynomial string hash runs
// modulo.
const stringHashMod = 1_000_000_007

// IntHasher hashes integer-like keys by casting them to the discriminator
// space: the low bits of the key are the bucket number.
func IntHasher[K ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](k K) uint64 {
	return uint64(k)
}

// StringHasher hashes character strings with a base-26 polynomial modulo
// a fixed prime. Alphabetic characters contribute 1..26, digits
// contribute 0..9, and any other character contributes a
// multiplicative-only step.
func StringHasher(s string) uint64 {
	var h uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		h = h * 26 % stringHashMod
		switch {
		case c >= 'a' && c <= 'z':
			h = (h + uint64(c-'a') + 1) % stringHashMod
		case c >= 'A' && c <= 'Z':
			h = (h + uint64(c-'A') + 1) % stringHashMod
		case c >= '0' && c <= '9':
			h = (h + uint64(c-'0')) % stringHashMod
		}
	}
	return h
}
