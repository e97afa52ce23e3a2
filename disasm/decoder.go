// Package disasm decodes Dalvik bytecode: the opcode catalog, instruction
// operand extraction, and basic-block construction by linear sweep or
// recursive traversal.
package disasm

import (
	"fmt"

	"github.com/lookbusy1344/dex-analyzer/dex"
)

// Algorithm selects the disassembly strategy
type Algorithm int

const (
	// LinearSweep decodes every instruction in address order
	LinearSweep Algorithm = iota
	// RecursiveTraversal decodes only instructions reachable from the entry
	RecursiveTraversal
)

func (a Algorithm) String() string {
	if a == RecursiveTraversal {
		return "recursive"
	}
	return "linear"
}

// ParseAlgorithm converts a configuration string to an Algorithm
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "linear", "linear-sweep", "":
		return LinearSweep, nil
	case "recursive", "recursive-traversal":
		return RecursiveTraversal, nil
	}
	return LinearSweep, fmt.Errorf("unknown disassembly algorithm %q", s)
}

// MethodDisassembly is the decode result for one method. Decode errors abort
// the method but not the surrounding DEX; Err carries the per-method status.
type MethodDisassembly struct {
	Class        *dex.ClassDef
	Method       *dex.MethodID
	Code         *dex.CodeItem
	Instructions []*Instruction
	Blocks       *Blocks
	Err          error
}

// Disassembler decodes method bodies of a parsed DEX using the configured
// algorithm
type Disassembler struct {
	dex       *dex.DEX
	algorithm Algorithm
}

// NewDisassembler creates a disassembler over a parsed DEX. The default
// algorithm is linear sweep.
func NewDisassembler(d *dex.DEX) *Disassembler {
	return &Disassembler{dex: d}
}

// SetAlgorithm selects the strategy used by subsequent disassembly calls
func (d *Disassembler) SetAlgorithm(a Algorithm) {
	d.algorithm = a
}

// Algorithm returns the currently selected strategy
func (d *Disassembler) Algorithm() Algorithm {
	return d.algorithm
}

// Dex returns the pool the disassembler resolves indices against
func (d *Disassembler) Dex() *dex.DEX {
	return d.dex
}

// decodeUnits decodes a complete code-unit stream in address order.
// The final instruction must end exactly at the declared code length.
func decodeUnits(code []uint16) ([]*Instruction, error) {
	var instrs []*Instruction
	pos := uint32(0)
	for pos < uint32(len(code)) {
		inst, err := decodeAt(code, pos)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, inst)
		pos += inst.Length
	}
	if pos != uint32(len(code)) {
		return nil, NewDecodeError(pos*2, ErrCodeStreamDesync,
			fmt.Sprintf("consumed %d code units of %d declared", pos, len(code)))
	}
	return instrs, nil
}

// DisassembleBuffer decodes a raw byte buffer as Dalvik bytecode. The buffer
// must hold an even number of bytes (16-bit code units, little-endian).
func (d *Disassembler) DisassembleBuffer(buf []byte) ([]*Instruction, error) {
	if len(buf)%2 != 0 {
		return nil, NewDecodeError(0, ErrCodeStreamDesync,
			fmt.Sprintf("buffer length %d is not a whole number of code units", len(buf)))
	}
	code := make([]uint16, len(buf)/2)
	for i := range code {
		code[i] = uint16(buf[i*2]) | uint16(buf[i*2+1])<<8
	}
	return decodeUnits(code)
}

// DisassembleMethod decodes one method body and builds its basic blocks with
// the configured algorithm
func (d *Disassembler) DisassembleMethod(class *dex.ClassDef, em *dex.EncodedMethod) *MethodDisassembly {
	md := &MethodDisassembly{
		Class:  class,
		Method: em.Method,
		Code:   em.Code,
	}
	if em.Code == nil {
		return md
	}

	instrs, err := decodeUnits(em.Code.Insns)
	if err != nil {
		md.Err = err
		return md
	}
	md.Instructions = instrs

	switch d.algorithm {
	case RecursiveTraversal:
		md.Blocks, md.Err = buildRecursive(em.Code.Insns)
	default:
		md.Blocks, md.Err = buildLinear(instrs)
	}
	return md
}

// DisassembleDex decodes every method body in the DEX. Methods without code
// (abstract, native) are skipped. A method whose decode fails is reported
// with its error; other methods are unaffected.
func (d *Disassembler) DisassembleDex() []*MethodDisassembly {
	var out []*MethodDisassembly
	for _, class := range d.dex.Classes.All() {
		for _, em := range class.DirectMethods {
			if em.Code != nil {
				out = append(out, d.DisassembleMethod(class, em))
			}
		}
		for _, em := range class.VirtualMethods {
			if em.Code != nil {
				out = append(out, d.DisassembleMethod(class, em))
			}
		}
	}
	return out
}
