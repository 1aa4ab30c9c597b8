package scene

// Color is a linear RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float32
}

var White = Color{R: 1, G: 1, B: 1, A: 1}

// IntBits packs the color as ABGR8888, alpha in the high byte. This is the
// form persisted in scene files.
func (c Color) IntBits() int32 {
	return int32(channel(c.A)<<24 | channel(c.B)<<16 | channel(c.G)<<8 | channel(c.R))
}

// ColorFromIntBits is the inverse of IntBits.
func ColorFromIntBits(bits int32) Color {
	v := uint32(bits)
	return Color{
		R: float32(v&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32((v>>16)&0xff) / 255,
		A: float32((v>>24)&0xff) / 255,
	}
}

func channel(f float32) uint32 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint32(f*255 + 0.5)
}
