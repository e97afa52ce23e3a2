package dex

import (
	"bytes"
	"fmt"
)

// HeaderSize is the fixed size of the DEX header in bytes
const HeaderSize = 0x70

// NoIndex is the sentinel for an absent index field (superclass, source file)
const NoIndex = 0xFFFFFFFF

// endianConstant is the value of the endian_tag field in a little-endian DEX
const endianConstant = 0x12345678

// Header is the DEX file header with section counts and offsets
type Header struct {
	Magic         [8]byte
	Checksum      uint32
	Signature     [20]byte
	FileSize      uint32
	HeaderSize    uint32
	EndianTag     uint32
	LinkSize      uint32
	LinkOff       uint32
	MapOff        uint32
	StringIdsSize uint32
	StringIdsOff  uint32
	TypeIdsSize   uint32
	TypeIdsOff    uint32
	ProtoIdsSize  uint32
	ProtoIdsOff   uint32
	FieldIdsSize  uint32
	FieldIdsOff   uint32
	MethodIdsSize uint32
	MethodIdsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32
	DataSize      uint32
	DataOff       uint32
}

// Version returns the three-digit format version from the magic, e.g. "035"
func (h *Header) Version() string {
	return string(h.Magic[4:7])
}

// parseHeader reads and validates the header at offset 0
func parseHeader(r *Reader) (*Header, error) {
	if err := r.Seek(0); err != nil {
		return nil, err
	}

	h := &Header{}

	magic, err := r.Bytes(8)
	if err != nil {
		return nil, err
	}
	copy(h.Magic[:], magic)

	// Magic is "dex\n" followed by a three-digit version and a NUL
	if !bytes.Equal(h.Magic[:4], []byte("dex\n")) || h.Magic[7] != 0 {
		return nil, NewParseError(0, ErrBadMagic, fmt.Sprintf("not a DEX file: magic %q", magic))
	}
	for _, c := range h.Magic[4:7] {
		if c < '0' || c > '9' {
			return nil, NewParseError(0, ErrBadMagic, fmt.Sprintf("invalid DEX version %q", h.Magic[4:7]))
		}
	}
	if h.Version() < "035" {
		return nil, NewParseError(0, ErrBadMagic, fmt.Sprintf("unsupported DEX version %s", h.Version()))
	}

	if h.Checksum, err = r.Uint32(); err != nil {
		return nil, err
	}
	sig, err := r.Bytes(20)
	if err != nil {
		return nil, err
	}
	copy(h.Signature[:], sig)

	fields := []*uint32{
		&h.FileSize, &h.HeaderSize, &h.EndianTag,
		&h.LinkSize, &h.LinkOff, &h.MapOff,
		&h.StringIdsSize, &h.StringIdsOff,
		&h.TypeIdsSize, &h.TypeIdsOff,
		&h.ProtoIdsSize, &h.ProtoIdsOff,
		&h.FieldIdsSize, &h.FieldIdsOff,
		&h.MethodIdsSize, &h.MethodIdsOff,
		&h.ClassDefsSize, &h.ClassDefsOff,
		&h.DataSize, &h.DataOff,
	}
	for _, f := range fields {
		if *f, err = r.Uint32(); err != nil {
			return nil, err
		}
	}

	if h.EndianTag != endianConstant {
		return nil, NewParseError(40, ErrBadMagic, fmt.Sprintf("unsupported endian tag 0x%08X", h.EndianTag))
	}

	return h, nil
}
