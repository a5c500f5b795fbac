package epoch

// Position packing shared by every epoch: map coordinates and a facing
// direction squeezed into three bytes, ten bits per axis and four for
// the direction.

// PackPosition packs x, y and dir into the 3-byte wire form.
func PackPosition(x, y uint16, dir uint8) [3]byte {
	return [3]byte{
		byte(x >> 2),
		byte(x<<6) | byte(y>>4)&0x3f,
		byte(y<<4) | dir&0x0f,
	}
}

// UnpackPosition reverses PackPosition.
func UnpackPosition(p [3]byte) (x, y uint16, dir uint8) {
	x = uint16(p[0])<<2 | uint16(p[1])>>6
	y = uint16(p[1]&0x3f)<<4 | uint16(p[2])>>4
	dir = p[2] & 0x0f
	return
}
