package dex

import (
	"fmt"
	"strings"
)

// FieldID identifies a field: the class that defines it, the field's own type
// and its name
type FieldID struct {
	Class Type
	Type  Type
	Name  string
}

// String renders the field in class->name:type form
func (f *FieldID) String() string {
	return fmt.Sprintf("%s->%s:%s", f.Class.Raw(), f.Name, f.Type.Raw())
}

// Fields is the DEX field pool, dense [0, N) in field_id order
type Fields struct {
	fields []*FieldID
	count  uint32
	offset uint32
}

// parseFields decodes the field_ids section, validating every entry against
// the type and string pools. The cursor position is saved on entry and
// restored on exit.
func parseFields(r *Reader, h *Header, strs *Strings, types *Types) (*Fields, error) {
	f := &Fields{
		fields: make([]*FieldID, 0, h.FieldIdsSize),
		count:  h.FieldIdsSize,
		offset: h.FieldIdsOff,
	}

	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(h.FieldIdsOff); err != nil {
		return nil, err
	}

	for i := uint32(0); i < h.FieldIdsSize; i++ {
		pos := r.Tell()
		classIdx, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		typeIdx, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.Uint32()
		if err != nil {
			return nil, err
		}

		class, err := types.GetTypeByOrder(uint32(classIdx))
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("field %d class type index %d out of range", i, classIdx))
		}
		typ, err := types.GetTypeByOrder(uint32(typeIdx))
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("field %d type index %d out of range", i, typeIdx))
		}
		if nameIdx >= strs.NumberOfStrings() {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("field %d name string id %d out of range", i, nameIdx))
		}
		name, err := strs.GetStringByID(nameIdx)
		if err != nil {
			return nil, err
		}

		f.fields = append(f.fields, &FieldID{Class: class, Type: typ, Name: name})
	}

	return f, nil
}

// GetFieldByID returns the field for a dense field id
func (f *Fields) GetFieldByID(id uint32) (*FieldID, error) {
	if id >= f.count {
		return nil, NewParseError(f.offset, ErrIndexOutOfRange,
			fmt.Sprintf("field id %d out of range (have %d)", id, f.count))
	}
	return f.fields[id], nil
}

// NumberOfFields returns the field pool size
func (f *Fields) NumberOfFields() uint32 {
	return f.count
}

// Offset returns the file offset of the field_ids section
func (f *Fields) Offset() uint32 {
	return f.offset
}

// String renders the pool for diagnostic dumps
func (f *Fields) String() string {
	var sb strings.Builder
	sb.WriteString("=========== DEX Fields ===========\n")
	for i, fld := range f.fields {
		fmt.Fprintf(&sb, "Field (%d): %s\n", i, fld)
	}
	return sb.String()
}
