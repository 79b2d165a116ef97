package driver

// The transmit command packs its two operands into one 32-bit argument:
// bits 0-15 carry the 16-bit destination address and bits 16-23 carry the
// payload length. The encoding is a wire-compatible contract with existing
// callers, so the decode lives here and nowhere else.

// DecodeTxArg unpacks a transmit command argument into the destination
// address and payload length.
func DecodeTxArg(arg uint32) (dest uint16, length int) {
	return uint16(arg & 0xFFFF), int((arg >> 16) & 0xFF)
}

// PackTxArg builds a transmit command argument from a destination address
// and payload length. Lengths above 255 are truncated to their low 8 bits,
// mirroring what the decode on the far side would see.
func PackTxArg(dest uint16, length int) uint32 {
	return uint32(dest) | uint32(length&0xFF)<<16
}
