package dex

import (
	"fmt"
	"strings"
)

// Proto is a method prototype: a shorty form, a return type and the
// parameter type list
type Proto struct {
	Shorty     string
	Return     Type
	Parameters []Type
}

// String renders the prototype in descriptor form, e.g. (ILjava/lang/String;)V
func (p *Proto) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, t := range p.Parameters {
		sb.WriteString(t.Raw())
	}
	sb.WriteByte(')')
	sb.WriteString(p.Return.Raw())
	return sb.String()
}

// Protos is the DEX prototype pool, dense [0, N) in proto_id order
type Protos struct {
	protos []*Proto
	count  uint32
	offset uint32
}

// parseProtos decodes the proto_ids section. Each entry references the string
// pool (shorty), the type pool (return type) and an optional type_list in the
// data section. The cursor position is saved on entry and restored on exit.
func parseProtos(r *Reader, h *Header, strs *Strings, types *Types) (*Protos, error) {
	p := &Protos{
		protos: make([]*Proto, 0, h.ProtoIdsSize),
		count:  h.ProtoIdsSize,
		offset: h.ProtoIdsOff,
	}

	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(h.ProtoIdsOff); err != nil {
		return nil, err
	}

	for i := uint32(0); i < h.ProtoIdsSize; i++ {
		pos := r.Tell()
		shortyIdx, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		returnIdx, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		paramsOff, err := r.Uint32()
		if err != nil {
			return nil, err
		}

		if shortyIdx >= strs.NumberOfStrings() {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("proto %d shorty string id %d out of range", i, shortyIdx))
		}
		shorty, err := strs.GetStringByID(shortyIdx)
		if err != nil {
			return nil, err
		}
		ret, err := types.GetTypeByOrder(returnIdx)
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("proto %d return type index %d out of range", i, returnIdx))
		}

		var params []Type
		if paramsOff != 0 {
			if params, err = readTypeList(r, paramsOff, types); err != nil {
				return nil, err
			}
		}

		p.protos = append(p.protos, &Proto{Shorty: shorty, Return: ret, Parameters: params})
	}

	return p, nil
}

// readTypeList reads a type_list structure at an absolute offset without
// disturbing the current position
func readTypeList(r *Reader, offset uint32, types *Types) ([]Type, error) {
	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(offset); err != nil {
		return nil, err
	}
	size, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	list := make([]Type, 0, size)
	for i := uint32(0); i < size; i++ {
		pos := r.Tell()
		idx, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		t, err := types.GetTypeByOrder(uint32(idx))
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("type list entry %d index %d out of range", i, idx))
		}
		list = append(list, t)
	}
	return list, nil
}

// GetProtoByID returns the prototype for a dense proto id
func (p *Protos) GetProtoByID(id uint32) (*Proto, error) {
	if id >= p.count {
		return nil, NewParseError(p.offset, ErrIndexOutOfRange,
			fmt.Sprintf("proto id %d out of range (have %d)", id, p.count))
	}
	return p.protos[id], nil
}

// NumberOfProtos returns the prototype pool size
func (p *Protos) NumberOfProtos() uint32 {
	return p.count
}

// Offset returns the file offset of the proto_ids section
func (p *Protos) Offset() uint32 {
	return p.offset
}
