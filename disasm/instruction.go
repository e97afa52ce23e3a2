package disasm

import (
	"fmt"
	"strings"
)

// Instruction is one decoded Dalvik instruction. Address is the byte offset
// from the start of the method's code; Length is in 16-bit code units.
// Operand fields are populated according to the format.
type Instruction struct {
	Address uint32
	Opcode  Opcode
	Format  Format
	Length  uint32

	A, B, C uint32 // register operands
	Literal int64  // immediate value (11n, 21s, 21h, 22b, 22s, 31i, 51l)
	Offset  int32  // branch offset in code units (10t, 20t, 21t, 22t, 30t, 31t)
	Index   uint32 // pool index (21c, 22c, 31c, 35c, 3rc, 45cc, 4rcc)
	Index2  uint32 // secondary proto index (45cc, 4rcc)
	Args    []uint32

	// Switch and array payload data (pseudo-instruction formats only)
	SwitchFirstKey int32
	SwitchKeys     []int32
	SwitchTargets  []int32
	ElementWidth   uint16
	ArrayData      []byte
}

// ByteLength returns the instruction size in bytes
func (i *Instruction) ByteLength() uint32 {
	return i.Length * 2
}

// IsPayload reports whether the instruction is a data payload
// pseudo-instruction rather than executable code
func (i *Instruction) IsPayload() bool {
	switch i.Format {
	case FormatPackedSwitch, FormatSparseSwitch, FormatFillArrayData:
		return true
	}
	return false
}

// IsTerminator reports whether control never falls through this instruction
func (i *Instruction) IsTerminator() bool {
	switch i.Opcode {
	case OpReturnVoid, OpReturn, OpReturnWide, OpReturnObject,
		OpThrow, OpGoto, OpGoto16, OpGoto32:
		return true
	}
	return false
}

// IsBranch reports whether the instruction transfers control to an explicit
// target (conditionally or not)
func (i *Instruction) IsBranch() bool {
	switch i.Opcode {
	case OpGoto, OpGoto16, OpGoto32, OpPackedSwitch, OpSparseSwitch:
		return true
	}
	return i.Opcode >= OpIfEq && i.Opcode <= OpIfLez
}

// decodeAt decodes the instruction starting at code-unit index pos.
// The returned instruction's Address is pos*2.
func decodeAt(code []uint16, pos uint32) (*Instruction, error) {
	addr := pos * 2
	unit0 := code[pos]

	// Payload pseudo-instructions share the nop opcode byte with a nonzero
	// high byte
	switch unit0 {
	case PackedSwitchIdent, SparseSwitchIdent, FillArrayDataIdent:
		return decodePayload(code, pos)
	}

	op := Opcode(unit0 & 0xff)
	if !op.Defined() {
		return nil, NewDecodeError(addr, ErrUnknownOpcode,
			fmt.Sprintf("opcode 0x%02X is not in the table", uint8(op)))
	}

	format := op.InstructionFormat()
	length := format.Length()
	if pos+length > uint32(len(code)) {
		return nil, NewDecodeError(addr, ErrCodeStreamDesync,
			fmt.Sprintf("%s needs %d code units, %d remain", op.Name(), length, uint32(len(code))-pos))
	}

	inst := &Instruction{
		Address: addr,
		Opcode:  op,
		Format:  format,
		Length:  length,
	}

	aa := uint32(unit0 >> 8)

	switch format {
	case Format10x:
		// no operands

	case Format12x:
		inst.A = aa & 0x0f
		inst.B = aa >> 4

	case Format11n:
		inst.A = aa & 0x0f
		inst.Literal = int64(int8(aa&0xf0) >> 4) // sign-extend the high nibble

	case Format11x:
		inst.A = aa

	case Format10t:
		inst.Offset = int32(int8(aa))

	case Format20t:
		inst.Offset = int32(int16(code[pos+1]))

	case Format22x:
		inst.A = aa
		inst.B = uint32(code[pos+1])

	case Format21t:
		inst.A = aa
		inst.Offset = int32(int16(code[pos+1]))

	case Format21s:
		inst.A = aa
		inst.Literal = int64(int16(code[pos+1]))

	case Format21h:
		inst.A = aa
		// The literal is the high 16 bits of a 32- or 64-bit value
		if op == OpConstWideHigh16 {
			inst.Literal = int64(int16(code[pos+1])) << 48
		} else {
			inst.Literal = int64(int16(code[pos+1])) << 16
		}

	case Format21c:
		inst.A = aa
		inst.Index = uint32(code[pos+1])

	case Format23x:
		inst.A = aa
		inst.B = uint32(code[pos+1] & 0xff)
		inst.C = uint32(code[pos+1] >> 8)

	case Format22b:
		inst.A = aa
		inst.B = uint32(code[pos+1] & 0xff)
		inst.Literal = int64(int8(code[pos+1] >> 8))

	case Format22t:
		inst.A = aa & 0x0f
		inst.B = aa >> 4
		inst.Offset = int32(int16(code[pos+1]))

	case Format22s:
		inst.A = aa & 0x0f
		inst.B = aa >> 4
		inst.Literal = int64(int16(code[pos+1]))

	case Format22c:
		inst.A = aa & 0x0f
		inst.B = aa >> 4
		inst.Index = uint32(code[pos+1])

	case Format30t:
		inst.Offset = int32(uint32(code[pos+1]) | uint32(code[pos+2])<<16)

	case Format32x:
		inst.A = uint32(code[pos+1])
		inst.B = uint32(code[pos+2])

	case Format31i:
		inst.A = aa
		inst.Literal = int64(int32(uint32(code[pos+1]) | uint32(code[pos+2])<<16))

	case Format31t:
		inst.A = aa
		inst.Offset = int32(uint32(code[pos+1]) | uint32(code[pos+2])<<16)

	case Format31c:
		inst.A = aa
		inst.Index = uint32(code[pos+1]) | uint32(code[pos+2])<<16

	case Format35c, Format45cc:
		count := aa >> 4
		g := aa & 0x0f
		inst.Index = uint32(code[pos+1])
		unit2 := code[pos+2]
		regs := []uint32{
			uint32(unit2 & 0x0f),
			uint32(unit2>>4) & 0x0f,
			uint32(unit2>>8) & 0x0f,
			uint32(unit2>>12) & 0x0f,
			g,
		}
		if count > 5 {
			return nil, NewDecodeError(addr, ErrCodeStreamDesync,
				fmt.Sprintf("%s register count %d exceeds 5", op.Name(), count))
		}
		inst.Args = regs[:count]
		if format == Format45cc {
			inst.Index2 = uint32(code[pos+3])
		}

	case Format3rc, Format4rcc:
		inst.A = aa // register count
		inst.Index = uint32(code[pos+1])
		inst.C = uint32(code[pos+2]) // first register
		if format == Format4rcc {
			inst.Index2 = uint32(code[pos+3])
		}

	case Format51l:
		inst.A = aa
		inst.Literal = int64(uint64(code[pos+1]) | uint64(code[pos+2])<<16 |
			uint64(code[pos+3])<<32 | uint64(code[pos+4])<<48)
	}

	return inst, nil
}

// decodePayload decodes a switch or array-data payload pseudo-instruction
func decodePayload(code []uint16, pos uint32) (*Instruction, error) {
	addr := pos * 2
	remain := uint32(len(code)) - pos

	need := func(units uint32) error {
		if units > remain {
			return NewDecodeError(addr, ErrCodeStreamDesync,
				fmt.Sprintf("payload needs %d code units, %d remain", units, remain))
		}
		return nil
	}

	switch code[pos] {
	case PackedSwitchIdent:
		if err := need(4); err != nil {
			return nil, err
		}
		size := uint32(code[pos+1])
		length := size*2 + 4
		if err := need(length); err != nil {
			return nil, err
		}
		inst := &Instruction{
			Address:        addr,
			Opcode:         OpNop,
			Format:         FormatPackedSwitch,
			Length:         length,
			SwitchFirstKey: int32(uint32(code[pos+2]) | uint32(code[pos+3])<<16),
		}
		for i := uint32(0); i < size; i++ {
			t := int32(uint32(code[pos+4+i*2]) | uint32(code[pos+5+i*2])<<16)
			inst.SwitchTargets = append(inst.SwitchTargets, t)
		}
		return inst, nil

	case SparseSwitchIdent:
		if err := need(2); err != nil {
			return nil, err
		}
		size := uint32(code[pos+1])
		length := size*4 + 2
		if err := need(length); err != nil {
			return nil, err
		}
		inst := &Instruction{
			Address: addr,
			Opcode:  OpNop,
			Format:  FormatSparseSwitch,
			Length:  length,
		}
		keys := pos + 2
		targets := keys + size*2
		for i := uint32(0); i < size; i++ {
			k := int32(uint32(code[keys+i*2]) | uint32(code[keys+i*2+1])<<16)
			t := int32(uint32(code[targets+i*2]) | uint32(code[targets+i*2+1])<<16)
			inst.SwitchKeys = append(inst.SwitchKeys, k)
			inst.SwitchTargets = append(inst.SwitchTargets, t)
		}
		return inst, nil

	case FillArrayDataIdent:
		if err := need(4); err != nil {
			return nil, err
		}
		width := code[pos+1]
		size := uint32(code[pos+2]) | uint32(code[pos+3])<<16
		dataBytes := size * uint32(width)
		length := (dataBytes+1)/2 + 4
		if err := need(length); err != nil {
			return nil, err
		}
		inst := &Instruction{
			Address:      addr,
			Opcode:       OpNop,
			Format:       FormatFillArrayData,
			Length:       length,
			ElementWidth: width,
		}
		inst.ArrayData = make([]byte, 0, dataBytes)
		for i := uint32(0); i < dataBytes; i++ {
			unit := code[pos+4+i/2]
			if i%2 == 0 {
				inst.ArrayData = append(inst.ArrayData, byte(unit&0xff))
			} else {
				inst.ArrayData = append(inst.ArrayData, byte(unit>>8))
			}
		}
		return inst, nil
	}

	return nil, NewDecodeError(addr, ErrUnknownOpcode, "not a payload ident")
}

// Encode re-assembles the instruction into its original code units.
// Decoding then encoding reproduces well-formed input exactly; bits that a
// format reserves as zero are written as zero.
func (i *Instruction) Encode() []uint16 {
	out := make([]uint16, 0, i.Length)
	op := uint16(i.Opcode)

	switch i.Format {
	case Format10x:
		out = append(out, op)

	case Format12x:
		out = append(out, op|uint16(i.A)<<8|uint16(i.B)<<12)

	case Format11n:
		out = append(out, op|uint16(i.A)<<8|uint16(i.Literal&0x0f)<<12)

	case Format11x:
		out = append(out, op|uint16(i.A)<<8)

	case Format10t:
		out = append(out, op|uint16(uint8(i.Offset))<<8)

	case Format20t:
		out = append(out, op, uint16(int16(i.Offset)))

	case Format22x:
		out = append(out, op|uint16(i.A)<<8, uint16(i.B))

	case Format21t:
		out = append(out, op|uint16(i.A)<<8, uint16(int16(i.Offset)))

	case Format21s:
		out = append(out, op|uint16(i.A)<<8, uint16(int16(i.Literal)))

	case Format21h:
		lit := i.Literal
		if i.Opcode == OpConstWideHigh16 {
			lit >>= 48
		} else {
			lit >>= 16
		}
		out = append(out, op|uint16(i.A)<<8, uint16(int16(lit)))

	case Format21c:
		out = append(out, op|uint16(i.A)<<8, uint16(i.Index))

	case Format23x:
		out = append(out, op|uint16(i.A)<<8, uint16(i.B)|uint16(i.C)<<8)

	case Format22b:
		out = append(out, op|uint16(i.A)<<8, uint16(i.B)|uint16(uint8(i.Literal))<<8)

	case Format22t:
		out = append(out, op|uint16(i.A)<<8|uint16(i.B)<<12, uint16(int16(i.Offset)))

	case Format22s:
		out = append(out, op|uint16(i.A)<<8|uint16(i.B)<<12, uint16(int16(i.Literal)))

	case Format22c:
		out = append(out, op|uint16(i.A)<<8|uint16(i.B)<<12, uint16(i.Index))

	case Format30t:
		out = append(out, op, uint16(uint32(i.Offset)), uint16(uint32(i.Offset)>>16))

	case Format32x:
		out = append(out, op, uint16(i.A), uint16(i.B))

	case Format31i:
		out = append(out, op|uint16(i.A)<<8, uint16(uint32(i.Literal)), uint16(uint32(i.Literal)>>16))

	case Format31t:
		out = append(out, op|uint16(i.A)<<8, uint16(uint32(i.Offset)), uint16(uint32(i.Offset)>>16))

	case Format31c:
		out = append(out, op|uint16(i.A)<<8, uint16(i.Index), uint16(i.Index>>16))

	case Format35c, Format45cc:
		var g uint32
		regs := [4]uint32{}
		for n, r := range i.Args {
			if n == 4 {
				g = r
			} else {
				regs[n] = r
			}
		}
		out = append(out,
			op|uint16(len(i.Args))<<12|uint16(g)<<8,
			uint16(i.Index),
			uint16(regs[0])|uint16(regs[1])<<4|uint16(regs[2])<<8|uint16(regs[3])<<12)
		if i.Format == Format45cc {
			out = append(out, uint16(i.Index2))
		}

	case Format3rc, Format4rcc:
		out = append(out, op|uint16(i.A)<<8, uint16(i.Index), uint16(i.C))
		if i.Format == Format4rcc {
			out = append(out, uint16(i.Index2))
		}

	case Format51l:
		v := uint64(i.Literal)
		out = append(out, op|uint16(i.A)<<8,
			uint16(v), uint16(v>>16), uint16(v>>32), uint16(v>>48))

	case FormatPackedSwitch:
		out = append(out, PackedSwitchIdent, uint16(len(i.SwitchTargets)),
			uint16(uint32(i.SwitchFirstKey)), uint16(uint32(i.SwitchFirstKey)>>16))
		for _, t := range i.SwitchTargets {
			out = append(out, uint16(uint32(t)), uint16(uint32(t)>>16))
		}

	case FormatSparseSwitch:
		out = append(out, SparseSwitchIdent, uint16(len(i.SwitchTargets)))
		for _, k := range i.SwitchKeys {
			out = append(out, uint16(uint32(k)), uint16(uint32(k)>>16))
		}
		for _, t := range i.SwitchTargets {
			out = append(out, uint16(uint32(t)), uint16(uint32(t)>>16))
		}

	case FormatFillArrayData:
		size := uint32(0)
		if i.ElementWidth > 0 {
			size = uint32(len(i.ArrayData)) / uint32(i.ElementWidth)
		}
		out = append(out, FillArrayDataIdent, i.ElementWidth, uint16(size), uint16(size>>16))
		for n := 0; n < len(i.ArrayData); n += 2 {
			unit := uint16(i.ArrayData[n])
			if n+1 < len(i.ArrayData) {
				unit |= uint16(i.ArrayData[n+1]) << 8
			}
			out = append(out, unit)
		}
	}

	return out
}

// String renders the instruction in a dexdump-like form
func (i *Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X: ", i.Address)

	switch i.Format {
	case FormatPackedSwitch:
		fmt.Fprintf(&sb, "packed-switch-payload (%d targets)", len(i.SwitchTargets))
	case FormatSparseSwitch:
		fmt.Fprintf(&sb, "sparse-switch-payload (%d targets)", len(i.SwitchTargets))
	case FormatFillArrayData:
		fmt.Fprintf(&sb, "fill-array-data-payload (%d bytes)", len(i.ArrayData))
	default:
		sb.WriteString(i.Opcode.Name())
		switch i.Format {
		case Format12x, Format22t, Format22s, Format22c:
			fmt.Fprintf(&sb, " v%d, v%d", i.A, i.B)
		case Format11x, Format21t, Format21s, Format21h, Format21c, Format31i, Format31t, Format31c:
			fmt.Fprintf(&sb, " v%d", i.A)
		case Format23x, Format22b:
			fmt.Fprintf(&sb, " v%d, v%d, v%d", i.A, i.B, i.C)
		case Format22x, Format32x:
			fmt.Fprintf(&sb, " v%d, v%d", i.A, i.B)
		case Format11n:
			fmt.Fprintf(&sb, " v%d, #%d", i.A, i.Literal)
		}
		switch i.Format {
		case Format10t, Format20t, Format30t, Format21t, Format22t:
			fmt.Fprintf(&sb, " %+d", i.Offset)
		case Format21c, Format22c, Format31c:
			fmt.Fprintf(&sb, " @%d", i.Index)
		case Format21s, Format22s, Format31i, Format51l:
			fmt.Fprintf(&sb, " #%d", i.Literal)
		}
	}
	return sb.String()
}
