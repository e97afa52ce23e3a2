package dex

// Reader is a positioned little-endian reader over a DEX image.
// All multi-byte reads advance the position; Seek moves it absolutely.
// A checkpoint is simply the value returned by Tell.
type Reader struct {
	data []byte
	pos  uint32
}

// NewReader creates a reader positioned at the start of the image
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total image size in bytes
func (r *Reader) Len() uint32 {
	return uint32(len(r.data))
}

// Tell returns the current position (usable as a checkpoint for Restore)
func (r *Reader) Tell() uint32 {
	return r.pos
}

// Seek moves the position to an absolute offset
func (r *Reader) Seek(offset uint32) error {
	if offset > r.Len() {
		return NewParseError(offset, ErrTruncatedInput, "seek beyond end of image")
	}
	r.pos = offset
	return nil
}

// Restore returns to a previously saved checkpoint
func (r *Reader) Restore(checkpoint uint32) {
	r.pos = checkpoint
}

// Bytes reads n raw bytes
func (r *Reader) Bytes(n uint32) ([]byte, error) {
	if r.pos+n > r.Len() || r.pos+n < r.pos {
		return nil, NewParseError(r.pos, ErrTruncatedInput, "read crosses end of image")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Uint8 reads one byte
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a little-endian 16-bit value
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// Uint32 reads a little-endian 32-bit value
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// Uint64 reads a little-endian 64-bit value
func (r *Reader) Uint64() (uint64, error) {
	lo, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	hi, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// ULEB128 reads an unsigned LEB128 value of at most 32 bits.
// A value occupying more than 5 bytes is malformed.
func (r *Reader) ULEB128() (uint32, error) {
	start := r.pos
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.Uint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, NewParseError(start, ErrMalformedLEB, "ULEB128 exceeds 5 bytes")
}

// SLEB128 reads a signed LEB128 value of at most 32 bits.
// A value occupying more than 5 bytes is malformed.
func (r *Reader) SLEB128() (int32, error) {
	start := r.pos
	var result int32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.Uint8()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			// Sign extend if the sign bit of the last byte is set
			if shift < 32 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
	return 0, NewParseError(start, ErrMalformedLEB, "SLEB128 exceeds 5 bytes")
}

// ULEB128x64 reads an unsigned LEB128 value of at most 64 bits.
// A value occupying more than 9 bytes is malformed.
func (r *Reader) ULEB128x64() (uint64, error) {
	start := r.pos
	var result uint64
	var shift uint
	for i := 0; i < 9; i++ {
		b, err := r.Uint8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, NewParseError(start, ErrMalformedLEB, "ULEB128 exceeds 9 bytes")
}

// SLEB128x64 reads a signed LEB128 value of at most 64 bits.
// A value occupying more than 9 bytes is malformed.
func (r *Reader) SLEB128x64() (int64, error) {
	start := r.pos
	var result int64
	var shift uint
	for i := 0; i < 9; i++ {
		b, err := r.Uint8()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
	return 0, NewParseError(start, ErrMalformedLEB, "SLEB128 exceeds 9 bytes")
}

// ULEB128at reads a ULEB128 at an absolute offset without moving the position
func (r *Reader) ULEB128at(offset uint32) (uint32, error) {
	saved := r.Tell()
	defer r.Restore(saved)
	if err := r.Seek(offset); err != nil {
		return 0, err
	}
	return r.ULEB128()
}
