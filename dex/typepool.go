package dex

import (
	"fmt"
	"strings"
)

// Types is the DEX type pool. Each type_id entry is a string-pool index whose
// string is a type descriptor. Entries are kept both in section order and
// indexed by the referenced string id.
type Types struct {
	ordered []Type
	byID    map[uint32]Type
	count   uint32
	offset  uint32
}

// parseTypes decodes the type_ids section, validating every entry against the
// string pool. The cursor position is saved on entry and restored on exit.
func parseTypes(r *Reader, h *Header, strs *Strings) (*Types, error) {
	t := &Types{
		ordered: make([]Type, 0, h.TypeIdsSize),
		byID:    make(map[uint32]Type, h.TypeIdsSize),
		count:   h.TypeIdsSize,
		offset:  h.TypeIdsOff,
	}

	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(h.TypeIdsOff); err != nil {
		return nil, err
	}

	for i := uint32(0); i < h.TypeIdsSize; i++ {
		pos := r.Tell()
		stringID, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if stringID >= strs.NumberOfStrings() {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("type %d references string id %d out of string bound %d", i, stringID, strs.NumberOfStrings()))
		}
		descriptor, err := strs.GetStringByID(stringID)
		if err != nil {
			return nil, err
		}
		typ, err := parseDescriptor(descriptor)
		if err != nil {
			return nil, NewParseError(pos, ErrMalformedDescriptor,
				fmt.Sprintf("type %d: %q violates descriptor grammar", i, descriptor))
		}
		t.ordered = append(t.ordered, typ)
		t.byID[stringID] = typ
	}

	return t, nil
}

// GetTypeByID returns the type whose type_id entry references the given
// string id
func (t *Types) GetTypeByID(id uint32) (Type, error) {
	typ, ok := t.byID[id]
	if !ok {
		return nil, NewParseError(t.offset, ErrIndexOutOfRange,
			fmt.Sprintf("no type references string id %d", id))
	}
	return typ, nil
}

// GetTypeByOrder returns the type at the given position in section order.
// This is the index field/method/proto entries use.
func (t *Types) GetTypeByOrder(pos uint32) (Type, error) {
	if pos >= t.count {
		return nil, NewParseError(t.offset, ErrIndexOutOfRange,
			fmt.Sprintf("type index %d out of range (have %d)", pos, t.count))
	}
	return t.ordered[pos], nil
}

// NumberOfTypes returns the type pool size
func (t *Types) NumberOfTypes() uint32 {
	return t.count
}

// Offset returns the file offset of the type_ids section
func (t *Types) Offset() uint32 {
	return t.offset
}

// String renders the pool for diagnostic dumps
func (t *Types) String() string {
	var sb strings.Builder
	sb.WriteString("=========== DEX Types ===========\n")
	for i, typ := range t.ordered {
		fmt.Fprintf(&sb, "Type (%d): %s -> %q\n", i, typ.Kind(), typ.Raw())
	}
	return sb.String()
}
