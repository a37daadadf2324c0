package guest

// Camera mirrors the camera fields of the guest state.
type Camera struct {
	X, Y, Z     int32
	Rotation    float32
	Inclination float32
}

// Offset is the texture offset render_game derives from time and camera.
func (c Camera) Offset(time uint32) uint32 {
	off := int32(time) + c.X + 7*c.Y + 13*c.Z
	off += int32(c.Rotation * 100)
	off += 3 * int32(c.Inclination*100)
	return uint32(off)
}

// Expected returns the n pixel bytes render_game produces for the given
// texture copy, time and camera.
func Expected(tex []byte, n int, time uint32, cam Camera) []byte {
	off := cam.Offset(time)
	out := make([]byte, n)
	texLen := uint32(len(tex))
	for i := range out {
		idx := uint32(i) + off
		if texLen == 0 {
			out[i] = byte(idx)
			continue
		}
		out[i] = tex[idx%texLen]
	}
	return out
}
