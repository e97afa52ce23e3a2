package dex

import (
	"fmt"
	"strings"
)

// Access flag bits shared by classes, fields and methods
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccInterface = 0x0200
	AccAbstract  = 0x0400
	AccNative    = 0x0100
)

// CodeItem is a method body: register frame sizes and the raw instruction
// stream in 16-bit code units
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	TriesSize     uint16
	DebugInfoOff  uint32
	Insns         []uint16
}

// EncodedField is a field declared by a class
type EncodedField struct {
	Field       *FieldID
	AccessFlags uint32
}

// EncodedMethod is a method declared by a class, with its code item when the
// method is neither abstract nor native
type EncodedMethod struct {
	Method      *MethodID
	AccessFlags uint32
	Code        *CodeItem
}

// ClassDef is one class definition record
type ClassDef struct {
	Class          Type
	AccessFlags    uint32
	Superclass     Type // nil when the class has no superclass
	Interfaces     []Type
	SourceFile     string // empty when absent
	StaticFields   []*EncodedField
	InstanceFields []*EncodedField
	DirectMethods  []*EncodedMethod
	VirtualMethods []*EncodedMethod
}

// Classes is the DEX class pool, dense [0, N) in class_def order
type Classes struct {
	classes []*ClassDef
	count   uint32
	offset  uint32
}

// parseClasses decodes the class_defs section including each class's
// class_data and per-method code items. The cursor position is saved on entry
// and restored on exit.
func parseClasses(r *Reader, h *Header, strs *Strings, types *Types, fields *Fields, methods *Methods) (*Classes, error) {
	c := &Classes{
		classes: make([]*ClassDef, 0, h.ClassDefsSize),
		count:   h.ClassDefsSize,
		offset:  h.ClassDefsOff,
	}

	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(h.ClassDefsOff); err != nil {
		return nil, err
	}

	for i := uint32(0); i < h.ClassDefsSize; i++ {
		pos := r.Tell()

		var raw [8]uint32
		for j := range raw {
			v, err := r.Uint32()
			if err != nil {
				return nil, err
			}
			raw[j] = v
		}
		classIdx, accessFlags := raw[0], raw[1]
		superclassIdx, interfacesOff := raw[2], raw[3]
		sourceFileIdx := raw[4]
		classDataOff := raw[6]

		def := &ClassDef{AccessFlags: accessFlags}

		var err error
		if def.Class, err = types.GetTypeByOrder(classIdx); err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("class %d type index %d out of range", i, classIdx))
		}
		if superclassIdx != NoIndex {
			if def.Superclass, err = types.GetTypeByOrder(superclassIdx); err != nil {
				return nil, NewParseError(pos, ErrIndexOutOfRange,
					fmt.Sprintf("class %d superclass index %d out of range", i, superclassIdx))
			}
		}
		if interfacesOff != 0 {
			if def.Interfaces, err = readTypeList(r, interfacesOff, types); err != nil {
				return nil, err
			}
		}
		if sourceFileIdx != NoIndex {
			if sourceFileIdx >= strs.NumberOfStrings() {
				return nil, NewParseError(pos, ErrIndexOutOfRange,
					fmt.Sprintf("class %d source file string id %d out of range", i, sourceFileIdx))
			}
			if def.SourceFile, err = strs.GetStringByID(sourceFileIdx); err != nil {
				return nil, err
			}
		}
		if classDataOff != 0 {
			if err = readClassData(r, classDataOff, def, fields, methods); err != nil {
				return nil, err
			}
		}

		c.classes = append(c.classes, def)
	}

	return c, nil
}

// readClassData decodes a class_data_item at an absolute offset without
// disturbing the current position. Field and method indices are diff-encoded.
func readClassData(r *Reader, offset uint32, def *ClassDef, fields *Fields, methods *Methods) error {
	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(offset); err != nil {
		return err
	}

	var counts [4]uint32
	for i := range counts {
		v, err := r.ULEB128()
		if err != nil {
			return err
		}
		counts[i] = v
	}
	staticFields, instanceFields, directMethods, virtualMethods := counts[0], counts[1], counts[2], counts[3]

	var err error
	if def.StaticFields, err = readEncodedFields(r, staticFields, fields); err != nil {
		return err
	}
	if def.InstanceFields, err = readEncodedFields(r, instanceFields, fields); err != nil {
		return err
	}
	if def.DirectMethods, err = readEncodedMethods(r, directMethods, methods); err != nil {
		return err
	}
	if def.VirtualMethods, err = readEncodedMethods(r, virtualMethods, methods); err != nil {
		return err
	}
	return nil
}

func readEncodedFields(r *Reader, count uint32, fields *Fields) ([]*EncodedField, error) {
	list := make([]*EncodedField, 0, count)
	var fieldIdx uint32
	for i := uint32(0); i < count; i++ {
		pos := r.Tell()
		diff, err := r.ULEB128()
		if err != nil {
			return nil, err
		}
		accessFlags, err := r.ULEB128()
		if err != nil {
			return nil, err
		}
		fieldIdx += diff
		field, err := fields.GetFieldByID(fieldIdx)
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("encoded field index %d out of range", fieldIdx))
		}
		list = append(list, &EncodedField{Field: field, AccessFlags: accessFlags})
	}
	return list, nil
}

func readEncodedMethods(r *Reader, count uint32, methods *Methods) ([]*EncodedMethod, error) {
	list := make([]*EncodedMethod, 0, count)
	var methodIdx uint32
	for i := uint32(0); i < count; i++ {
		pos := r.Tell()
		diff, err := r.ULEB128()
		if err != nil {
			return nil, err
		}
		accessFlags, err := r.ULEB128()
		if err != nil {
			return nil, err
		}
		codeOff, err := r.ULEB128()
		if err != nil {
			return nil, err
		}
		methodIdx += diff
		method, err := methods.GetMethodByID(methodIdx)
		if err != nil {
			return nil, NewParseError(pos, ErrIndexOutOfRange,
				fmt.Sprintf("encoded method index %d out of range", methodIdx))
		}
		em := &EncodedMethod{Method: method, AccessFlags: accessFlags}
		if codeOff != 0 {
			if em.Code, err = readCodeItem(r, codeOff); err != nil {
				return nil, err
			}
		}
		list = append(list, em)
	}
	return list, nil
}

// readCodeItem decodes a code_item at an absolute offset without disturbing
// the current position. Try blocks and debug info are skipped; the analyzer
// only needs the instruction stream.
func readCodeItem(r *Reader, offset uint32) (*CodeItem, error) {
	saved := r.Tell()
	defer r.Restore(saved)

	if err := r.Seek(offset); err != nil {
		return nil, err
	}

	ci := &CodeItem{}
	var err error
	if ci.RegistersSize, err = r.Uint16(); err != nil {
		return nil, err
	}
	if ci.InsSize, err = r.Uint16(); err != nil {
		return nil, err
	}
	if ci.OutsSize, err = r.Uint16(); err != nil {
		return nil, err
	}
	if ci.TriesSize, err = r.Uint16(); err != nil {
		return nil, err
	}
	if ci.DebugInfoOff, err = r.Uint32(); err != nil {
		return nil, err
	}
	insnsSize, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	ci.Insns = make([]uint16, insnsSize)
	for i := uint32(0); i < insnsSize; i++ {
		if ci.Insns[i], err = r.Uint16(); err != nil {
			return nil, err
		}
	}
	return ci, nil
}

// GetClassByID returns the class definition for a dense class id
func (c *Classes) GetClassByID(id uint32) (*ClassDef, error) {
	if id >= c.count {
		return nil, NewParseError(c.offset, ErrIndexOutOfRange,
			fmt.Sprintf("class id %d out of range (have %d)", id, c.count))
	}
	return c.classes[id], nil
}

// NumberOfClasses returns the class pool size
func (c *Classes) NumberOfClasses() uint32 {
	return c.count
}

// Offset returns the file offset of the class_defs section
func (c *Classes) Offset() uint32 {
	return c.offset
}

// All returns every class definition in section order
func (c *Classes) All() []*ClassDef {
	return c.classes
}

// String renders the pool for diagnostic dumps
func (c *Classes) String() string {
	var sb strings.Builder
	sb.WriteString("=========== DEX Classes ===========\n")
	for i, def := range c.classes {
		fmt.Fprintf(&sb, "Class (%d): %s", i, def.Class.Raw())
		if def.Superclass != nil {
			fmt.Fprintf(&sb, " extends %s", def.Superclass.Raw())
		}
		fmt.Fprintf(&sb, " (%d direct, %d virtual methods)\n",
			len(def.DirectMethods), len(def.VirtualMethods))
	}
	return sb.String()
}
