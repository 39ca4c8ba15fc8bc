package norflash

// putAddr serializes addr into dst[:width] (spec §4.3.1). dst must have
// length >= width; it is written starting at offset 0, so callers place
// the opcode byte before dst themselves. For big-endian addressing the
// most significant byte lands at offset 0; for little-endian the least
// significant byte does.
func putAddr(dst []byte, addr uint32, width uint8, bigEndian bool) {
	if bigEndian {
		for i := 0; i < int(width); i++ {
			shift := uint((int(width) - 1 - i) * 8)
			dst[i] = byte(addr >> shift)
		}
		return
	}
	for i := 0; i < int(width); i++ {
		dst[i] = byte(addr >> uint(i*8))
	}
}
