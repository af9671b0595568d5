package hx711

// Convert24To32 interprets the low 24 bits of bits as a two's complement
// value, MSB first, as a 32-bit int.
func Convert24To32(bits uint32) int32 {
	u32 := bits & DataMask

	// sign extension
	if (u32 & SignBit) != 0 {
		u32 |= 0xFF000000
	}
	return int32(u32)
}

// Convert32To24 is the inverse of [Convert24To32] for values in [MinRaw, MaxRaw].
func Convert32To24(v int32) uint32 {
	return uint32(v) & DataMask
}

// mean returns the arithmetic mean of the samples.
func mean(samples []int32) float64 {
	var sum int64
	for _, s := range samples {
		sum += int64(s)
	}
	return float64(sum) / float64(len(samples))
}
