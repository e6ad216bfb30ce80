package crypto

// Zero overwrites a byte slice in memory with zeros. Callers use it to drop
// key material once a cipher holds its own copy.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
