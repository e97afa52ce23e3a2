// Package ir is the typed SSA intermediate representation produced by the
// lifter. Values form a use/def graph: every operation records its operands
// and every value tracks its users, so block-argument rewrites are O(uses).
package ir

// DVMType is the Dalvik result type tag of an IR value
type DVMType int

const (
	// TypeUnknown marks a block argument whose incoming types have not been
	// observed yet
	TypeUnknown DVMType = iota
	TypeNone
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeBool
	TypeByte
	TypeChar
	TypeShort
	TypeObject
)

func (t DVMType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeBool:
		return "bool"
	case TypeByte:
		return "byte"
	case TypeChar:
		return "char"
	case TypeShort:
		return "short"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Join combines two type tags. Equal types join to themselves and an unknown
// side takes the other. Any other pair is incompatible and reported by the
// second return value.
func Join(a, b DVMType) (DVMType, bool) {
	switch {
	case a == b:
		return a, true
	case a == TypeUnknown:
		return b, true
	case b == TypeUnknown:
		return a, true
	}
	return TypeUnknown, false
}
