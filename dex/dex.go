// Package dex parses the Dalvik executable format: the header, the string,
// type, prototype, field, method and class pools, and per-method code items.
// The pool is immutable after construction; lookups by id are O(1).
package dex

// DEX is a fully parsed DEX image. Pool errors abort the load; a DEX value is
// only returned when every section parsed and every cross-pool reference was
// validated.
type DEX struct {
	Header  *Header
	Strings *Strings
	Types   *Types
	Protos  *Protos
	Fields  *Fields
	Methods *Methods
	Classes *Classes

	reader *Reader
}

// New parses a DEX image. Sections are decoded in dependency order so every
// pool can validate its references against the pools before it.
func New(data []byte) (*DEX, error) {
	r := NewReader(data)

	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	strs, err := parseStrings(r, header)
	if err != nil {
		return nil, err
	}
	types, err := parseTypes(r, header, strs)
	if err != nil {
		return nil, err
	}
	protos, err := parseProtos(r, header, strs, types)
	if err != nil {
		return nil, err
	}
	fields, err := parseFields(r, header, strs, types)
	if err != nil {
		return nil, err
	}
	methods, err := parseMethods(r, header, strs, types, protos)
	if err != nil {
		return nil, err
	}
	classes, err := parseClasses(r, header, strs, types, fields, methods)
	if err != nil {
		return nil, err
	}

	return &DEX{
		Header:  header,
		Strings: strs,
		Types:   types,
		Protos:  protos,
		Fields:  fields,
		Methods: methods,
		Classes: classes,
		reader:  r,
	}, nil
}
