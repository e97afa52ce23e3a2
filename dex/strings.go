package dex

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Strings is the DEX string pool. Ids are dense [0, N) in string_id order.
type Strings struct {
	strings []string
	offsets []uint32
	count   uint32
	offset  uint32
}

// parseStrings decodes the string_ids section and the string data it points at.
// The cursor position is saved on entry and restored on exit.
func parseStrings(r *Reader, h *Header) (*Strings, error) {
	s := &Strings{
		strings: make([]string, 0, h.StringIdsSize),
		offsets: make([]uint32, 0, h.StringIdsSize),
		count:   h.StringIdsSize,
		offset:  h.StringIdsOff,
	}

	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(h.StringIdsOff); err != nil {
		return nil, err
	}

	for i := uint32(0); i < h.StringIdsSize; i++ {
		dataOff, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		str, err := readStringData(r, dataOff)
		if err != nil {
			return nil, err
		}
		s.offsets = append(s.offsets, dataOff)
		s.strings = append(s.strings, str)
	}

	return s, nil
}

// readStringData reads the ULEB128-prefixed MUTF-8 data at an absolute offset
// without disturbing the current position
func readStringData(r *Reader, offset uint32) (string, error) {
	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(offset); err != nil {
		return "", err
	}
	// The prefix is the decoded length in UTF-16 code units, not bytes
	utf16Len, err := r.ULEB128()
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, utf16Len)
	for {
		b, err := r.Uint8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		raw = append(raw, b)
	}

	return decodeMUTF8(raw), nil
}

// decodeMUTF8 converts Modified UTF-8 bytes to a Go string. MUTF-8 encodes
// NUL as 0xC0 0x80 and supplementary characters as surrogate pairs of
// three-byte sequences; everything else matches standard UTF-8.
func decodeMUTF8(raw []byte) string {
	units := make([]uint16, 0, len(raw))
	for i := 0; i < len(raw); {
		b := raw[i]
		switch {
		case b&0x80 == 0:
			units = append(units, uint16(b))
			i++
		case b&0xE0 == 0xC0 && i+1 < len(raw):
			units = append(units, uint16(b&0x1F)<<6|uint16(raw[i+1]&0x3F))
			i += 2
		case b&0xF0 == 0xE0 && i+2 < len(raw):
			units = append(units, uint16(b&0x0F)<<12|uint16(raw[i+1]&0x3F)<<6|uint16(raw[i+2]&0x3F))
			i += 3
		default:
			// Invalid sequence: keep the byte as-is and resynchronize
			units = append(units, uint16(b))
			i++
		}
	}
	return string(utf16.Decode(units))
}

// GetStringByID returns the string for a dense string id
func (s *Strings) GetStringByID(id uint32) (string, error) {
	if id >= s.count {
		return "", NewParseError(s.offset, ErrIndexOutOfRange,
			fmt.Sprintf("string id %d out of range (have %d)", id, s.count))
	}
	return s.strings[id], nil
}

// NumberOfStrings returns the string pool size
func (s *Strings) NumberOfStrings() uint32 {
	return s.count
}

// Offset returns the file offset of the string_ids section
func (s *Strings) Offset() uint32 {
	return s.offset
}

// String renders the pool for diagnostic dumps
func (s *Strings) String() string {
	var sb strings.Builder
	sb.WriteString("=========== DEX Strings ===========\n")
	for i, str := range s.strings {
		fmt.Fprintf(&sb, "String (%d): %q\n", i, str)
	}
	return sb.String()
}
