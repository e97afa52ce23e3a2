package dex

import "strings"

// TypeKind discriminates the variants of a Dalvik type descriptor
type TypeKind int

const (
	KindFundamental TypeKind = iota
	KindClass
	KindArray
	KindUnknown
)

func (k TypeKind) String() string {
	switch k {
	case KindFundamental:
		return "Fundamental"
	case KindClass:
		return "Class"
	case KindArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// FundamentalKind identifies one of the nine primitive Dalvik types
type FundamentalKind int

const (
	Boolean FundamentalKind = iota
	Byte
	Char
	Double
	Float
	Int
	Long
	Short
	Void
)

func (f FundamentalKind) String() string {
	switch f {
	case Boolean:
		return "boolean"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Double:
		return "double"
	case Float:
		return "float"
	case Int:
		return "int"
	case Long:
		return "long"
	case Short:
		return "short"
	case Void:
		return "void"
	}
	return ""
}

// Type is a parsed Dalvik type descriptor
type Type interface {
	Kind() TypeKind
	// Raw returns the descriptor exactly as it appeared in the string pool
	Raw() string
}

// FundamentalType is one of the nine primitive types (Z, B, C, D, F, I, J, S, V)
type FundamentalType struct {
	Fundamental FundamentalKind
	raw         string
}

func (t *FundamentalType) Kind() TypeKind { return KindFundamental }
func (t *FundamentalType) Raw() string    { return t.raw }

// ClassType is a reference type descriptor such as Ljava/lang/String;
type ClassType struct {
	name string
}

func (t *ClassType) Kind() TypeKind { return KindClass }
func (t *ClassType) Raw() string    { return t.name }

// Name returns the full descriptor of the class
func (t *ClassType) Name() string { return t.name }

// IsExternal reports whether the class descriptor starts with one of the
// given prefixes. The prefix must be a proper prefix: a descriptor that is
// exactly equal to a prefix names nothing and is not external.
func (t *ClassType) IsExternal(prefixes []string) bool {
	for _, p := range prefixes {
		if len(t.name) > len(p) && strings.HasPrefix(t.name, p) {
			return true
		}
	}
	return false
}

// ArrayType is an array descriptor; the element type is itself a descriptor
type ArrayType struct {
	inner Type
	raw   string
}

func (t *ArrayType) Kind() TypeKind { return KindArray }
func (t *ArrayType) Raw() string    { return t.raw }

// Inner returns the element type (which may itself be an array)
func (t *ArrayType) Inner() Type { return t.inner }

// Arity returns the number of array dimensions
func (t *ArrayType) Arity() int {
	arity := 1
	for inner := t.inner; ; {
		arr, ok := inner.(*ArrayType)
		if !ok {
			return arity
		}
		arity++
		inner = arr.inner
	}
}

// UnknownType is an unclassified descriptor, retained verbatim
type UnknownType struct {
	raw string
}

func (t *UnknownType) Kind() TypeKind { return KindUnknown }
func (t *UnknownType) Raw() string    { return t.raw }

var fundamentals = map[byte]FundamentalKind{
	'Z': Boolean,
	'B': Byte,
	'C': Char,
	'D': Double,
	'F': Float,
	'I': Int,
	'J': Long,
	'S': Short,
	'V': Void,
}

// ParseType parses a Dalvik type descriptor. It is total on non-empty input:
// a descriptor that matches no variant is returned as UnknownType. Array
// recursion is bounded by the descriptor length.
func ParseType(name string) Type {
	t, err := parseDescriptor(name)
	if err != nil {
		return &UnknownType{raw: name}
	}
	return t
}

// parseDescriptor parses a descriptor, reporting grammar violations that
// ParseType folds into UnknownType. The pool decoders surface these as
// MalformedDescriptor errors.
func parseDescriptor(name string) (Type, error) {
	if name == "" {
		return nil, NewParseError(0, ErrMalformedDescriptor, "empty descriptor")
	}
	if len(name) == 1 {
		if f, ok := fundamentals[name[0]]; ok {
			return &FundamentalType{Fundamental: f, raw: name}, nil
		}
		return &UnknownType{raw: name}, nil
	}
	switch name[0] {
	case 'L':
		return &ClassType{name: name}, nil
	case '[':
		inner, err := parseDescriptor(name[1:])
		if err != nil {
			return nil, NewParseError(0, ErrMalformedDescriptor, "array of empty descriptor: "+name)
		}
		return &ArrayType{inner: inner, raw: name}, nil
	default:
		return &UnknownType{raw: name}, nil
	}
}
