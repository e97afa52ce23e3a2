package dex

import (
	"fmt"
	"strings"
)

// MethodID identifies a method: the class that defines it, its prototype and
// its name
type MethodID struct {
	Class Type
	Proto *Proto
	Name  string
}

// String renders the method in class->name(params)return form
func (m *MethodID) String() string {
	return fmt.Sprintf("%s->%s%s", m.Class.Raw(), m.Name, m.Proto)
}

// Methods is the DEX method pool, dense [0, N) in method_id order
type Methods struct {
	methods []*MethodID
	count   uint32
	offset  uint32
}

// parseMethods decodes the method_ids section, validating every entry against
// the type, proto and string pools. The cursor position is saved on entry and
// restored on exit.
func parseMethods(r *Reader, h *Header, strs *Strings, types *Types, protos *Protos) (*Methods, error) {
	m := &Methods{
		methods: make([]*MethodID, 0, h.MethodIdsSize),
		count:   h.MethodIdsSize,
		offset:  h.MethodIdsOff,
	}

	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(h.MethodIdsOff); err != nil {
		return nil, err
	}

	for i := uint32(0); i < h.MethodIdsSize; i++ {
		pos := r.Tell()
		classIdx, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		protoIdx, err := r.Uint16()
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
				fmt.Sprintf("method %d class type index %d out of range", i, classIdx))
		}
		proto, err := protos.GetProtoByID(uint32(protoIdx))
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("method %d proto index %d out of range", i, protoIdx))
		}
		if nameIdx >= strs.NumberOfStrings() {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("method %d name string id %d out of range", i, nameIdx))
		}
		name, err := strs.GetStringByID(nameIdx)
		if err != nil {
			return nil, err
		}

		m.methods = append(m.methods, &MethodID{Class: class, Proto: proto, Name: name})
	}

	return m, nil
}

// GetMethodByID returns the method for a dense method id
func (m *Methods) GetMethodByID(id uint32) (*MethodID, error) {
	if id >= m.count {
		return nil, NewParseError(m.offset, ErrIndexOutOfRange,
			fmt.Sprintf("method id %d out of range (have %d)", id, m.count))
	}
	return m.methods[id], nil
}

// NumberOfMethods returns the method pool size
func (m *Methods) NumberOfMethods() uint32 {
	return m.count
}

// Offset returns the file offset of the method_ids section
func (m *Methods) Offset() uint32 {
	return m.offset
}

// String renders the pool for diagnostic dumps
func (m *Methods) String() string {
	var sb strings.Builder
	sb.WriteString("=========== DEX Methods ===========\n")
	for i, meth := range m.methods {
		fmt.Fprintf(&sb, "Method (%d): %s\n", i, meth)
	}
	return sb.String()
}
